package postgres

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/user"
)

const (
	getUserByIDSQL = `SELECT id, name, email, phone, tier, channel FROM users WHERE id = $1`

	upsertUserSQL = `INSERT INTO users (id, name, email, phone, tier, channel)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, phone = EXCLUDED.phone,
			tier = EXCLUDED.tier, channel = EXCLUDED.channel, updated_at = now()`
)

var _ user.Repository = (*UserRepository)(nil)

// UserRepository implements user.Repository backed by PostgreSQL.
type UserRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a UserRepository that uses the given pool.
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// GetByID returns the user with the given id.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*user.User, error) {
	rows, err := r.pool.Query(ctx, getUserByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get user %q", id)
	}

	u, err := pgx.CollectExactlyOneRow(rows, scanUser)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get user %q", id)
	}
	return &u, nil
}

// Upsert inserts or replaces a user.
func (r *UserRepository) Upsert(ctx context.Context, u user.User) error {
	if _, err := r.pool.Exec(ctx, upsertUserSQL,
		u.ID, u.Name, u.Email, u.Phone, string(u.Tier), string(u.Channel),
	); err != nil {
		return errors.Wrapf(err, "upsert user %q", u.ID)
	}
	return nil
}

func scanUser(row pgx.CollectableRow) (user.User, error) {
	var (
		u             user.User
		tier, channel string
	)
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &tier, &channel)
	u.Tier = pricing.Kind(tier)
	u.Channel = notify.Channel(channel)
	return u, err
}
