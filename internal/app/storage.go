package app

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/db"
	"github.com/xenking/cart-pricing/internal/catalog"
	"github.com/xenking/cart-pricing/internal/domain/auth"
	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
	"github.com/xenking/cart-pricing/internal/storage/memory"
	"github.com/xenking/cart-pricing/internal/storage/postgres"
	"github.com/xenking/cart-pricing/pkg/health"
)

// stores groups the repositories behind the HTTP API.
type stores struct {
	products product.Repository
	users    user.Repository
	orders   order.Repository
	apikeys  auth.Repository
	close    func()
}

// openStores connects to PostgreSQL when a database URL is configured and
// registers its readiness check. Without one, an in-memory store seeded with
// the bundled demo catalog is used.
func openStores(ctx context.Context, lg *zap.Logger, cfg *Config, hs *health.Health) (*stores, error) {
	if cfg.DatabaseURL == "" {
		lg.Warn("No database URL configured, using in-memory store")
		return openMemory(ctx, lg, cfg)
	}

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "create db pool")
	}
	if err := postgres.RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "run migrations")
	}
	hs.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))

	return &stores{
		products: postgres.NewProductRepository(pool),
		users:    postgres.NewUserRepository(pool),
		orders:   postgres.NewOrderRepository(pool),
		apikeys:  postgres.NewAPIKeyRepository(pool),
		close:    pool.Close,
	}, nil
}

func openMemory(ctx context.Context, lg *zap.Logger, cfg *Config) (*stores, error) {
	s := &stores{
		products: memory.NewProductRepository(),
		users:    memory.NewUserRepository(),
		orders:   memory.NewOrderRepository(),
		apikeys:  memory.NewAPIKeyRepository(),
		close:    func() {},
	}
	if err := catalog.Seed(ctx, s.products, s.users, db.SeedProducts, db.SeedUsers); err != nil {
		return nil, errors.Wrap(err, "seed memory store")
	}

	if cfg.SeedAPIKey == "" {
		lg.Warn("No seed API key configured, order endpoints will reject every request")
		return s, nil
	}
	if err := s.apikeys.Upsert(ctx, auth.APIKeyInfo{
		ID:      "default",
		Name:    "seed",
		KeyHash: auth.HashKey([]byte(cfg.APIKeyPepper), cfg.SeedAPIKey),
	}); err != nil {
		return nil, errors.Wrap(err, "seed api key")
	}
	return s, nil
}
