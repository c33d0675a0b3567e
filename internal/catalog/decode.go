// Package catalog loads products and customers from JSON documents: the
// embedded demo seed and gzipped JSON-lines catalog exports.
package catalog

import (
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
)

// DecodeProduct reads one product object. Price may be a JSON number or a
// decimal string.
func DecodeProduct(d *jx.Decoder) (product.Product, error) {
	var (
		p        product.Product
		hasPrice bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var err error
		switch key {
		case "id":
			p.ID, err = d.Str()
		case "name":
			p.Name, err = d.Str()
		case "category":
			p.Category, err = d.Str()
		case "price":
			p.Price, err = decodeDecimal(d)
			hasPrice = true
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return p, err
	}

	switch {
	case p.ID == "":
		return p, errors.New("product id is required")
	case !hasPrice:
		return p, errors.Errorf("product %s: price is required", p.ID)
	case p.Price.IsNegative():
		return p, errors.Errorf("product %s: negative price %s", p.ID, p.Price)
	}
	return p, nil
}

// DecodeUser reads one user object. Tier defaults to regular and channel to
// email.
func DecodeUser(d *jx.Decoder) (user.User, error) {
	u := user.User{Tier: pricing.Regular, Channel: notify.ChannelEmail}
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		var (
			err error
			s   string
		)
		switch key {
		case "id":
			u.ID, err = d.Str()
		case "name":
			u.Name, err = d.Str()
		case "email":
			u.Email, err = d.Str()
		case "phone":
			u.Phone, err = d.Str()
		case "tier":
			if s, err = d.Str(); err == nil && s != "" {
				u.Tier = pricing.ParseKind(s)
			}
		case "channel":
			if s, err = d.Str(); err == nil && s != "" {
				u.Channel = notify.Channel(s)
			}
		default:
			err = d.Skip()
		}
		if err != nil {
			return errors.Wrap(err, key)
		}
		return nil
	}); err != nil {
		return u, err
	}
	if u.ID == "" {
		return u, errors.New("user id is required")
	}
	if u.Recipient() == "" {
		return u, errors.Errorf("user %s: no address for channel %q", u.ID, u.Channel)
	}
	return u, nil
}

// DecodeProducts reads a JSON array of products.
func DecodeProducts(data []byte) ([]product.Product, error) {
	var out []product.Product
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		p, err := DecodeProduct(d)
		if err != nil {
			return errors.Wrapf(err, "product #%d", len(out))
		}
		out = append(out, p)
		return nil
	})
	return out, err
}

// DecodeUsers reads a JSON array of users.
func DecodeUsers(data []byte) ([]user.User, error) {
	var out []user.User
	err := jx.DecodeBytes(data).Arr(func(d *jx.Decoder) error {
		u, err := DecodeUser(d)
		if err != nil {
			return errors.Wrapf(err, "user #%d", len(out))
		}
		out = append(out, u)
		return nil
	})
	return out, err
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Zero, err
		}
		return decimal.NewFromString(n.String())
	default:
		return decimal.Zero, errors.Errorf("expected number or string, got %s", d.Next())
	}
}
