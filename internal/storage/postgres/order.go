package postgres

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
)

const (
	createOrderSQL = `INSERT INTO orders (id, user_id, items, policy, subtotal, discount, total, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderByIDSQL = `SELECT id, user_id, items, policy, subtotal, discount, total, created_at
		FROM orders WHERE id = $1`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Items are stored in a JSONB column.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	_, err := r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, encodeItems(o.Items), string(o.Policy),
		o.Subtotal, o.Discount, o.Total, o.CreatedAt,
	)
	if err != nil {
		return errors.Wrapf(err, "create order %q", o.ID)
	}
	return nil
}

// GetByID returns a stored order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderByIDSQL, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get order %q", id)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, errors.Wrapf(err, "get order %q", id)
	}
	return &o, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o         order.Order
		items     []byte
		policy    string
		createdAt time.Time
	)
	if err := row.Scan(&o.ID, &o.UserID, &items, &policy,
		&o.Subtotal, &o.Discount, &o.Total, &createdAt,
	); err != nil {
		return o, err
	}
	o.Policy = pricing.Kind(policy)
	o.CreatedAt = createdAt.UTC()

	decoded, err := decodeItems(items)
	if err != nil {
		return o, errors.Wrapf(err, "decode items of order %q", o.ID)
	}
	o.Items = decoded
	return o, nil
}

// encodeItems renders order lines as a JSON array. Prices are strings to
// keep decimal precision.
func encodeItems(items []order.Item) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				e.Field("unitPrice", func(e *jx.Encoder) { e.Str(it.UnitPrice.String()) })
			})
		}
	})
	return e.Bytes()
}

func decodeItems(data []byte) ([]order.Item, error) {
	items := []order.Item{}
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		var it order.Item
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			switch key {
			case "productId":
				v, err := d.Str()
				it.ProductID = v
				return err
			case "quantity":
				v, err := d.Int()
				it.Quantity = v
				return err
			case "unitPrice":
				v, err := d.Str()
				if err != nil {
					return err
				}
				it.UnitPrice, err = decimal.NewFromString(v)
				return err
			default:
				return d.Skip()
			}
		}); err != nil {
			return err
		}
		items = append(items, it)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}
