package catalog

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
)

// Seed upserts the products and users encoded as JSON arrays. Either
// document may be empty.
func Seed(ctx context.Context, products product.Repository, users user.Repository, productsJSON, usersJSON []byte) error {
	lg := zctx.From(ctx)

	if len(productsJSON) > 0 {
		list, err := DecodeProducts(productsJSON)
		if err != nil {
			return errors.Wrap(err, "decode products")
		}
		for _, p := range list {
			if err := products.Upsert(ctx, p); err != nil {
				return errors.Wrapf(err, "upsert product %s", p.ID)
			}
		}
		lg.Info("Seeded products", zap.Int("count", len(list)))
	}

	if len(usersJSON) > 0 {
		list, err := DecodeUsers(usersJSON)
		if err != nil {
			return errors.Wrap(err, "decode users")
		}
		for _, u := range list {
			if err := users.Upsert(ctx, u); err != nil {
				return errors.Wrapf(err, "upsert user %s", u.ID)
			}
		}
		lg.Info("Seeded users", zap.Int("count", len(list)))
	}
	return nil
}
