package handler

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/product"
)

// Money is rendered as a JSON number carrying the exact decimal text, so
// clients that parse arbitrary precision see no float rounding.
func money(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.String()))
}

func total(e *jx.Encoder, d decimal.Decimal) {
	e.Num(jx.Num(d.StringFixed(pricing.Scale)))
}

func writeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		e.Field("id", func(e *jx.Encoder) { e.Str(p.ID) })
		e.Field("name", func(e *jx.Encoder) { e.Str(p.Name) })
		e.Field("price", func(e *jx.Encoder) { money(e, p.Price) })
		e.Field("category", func(e *jx.Encoder) { e.Str(p.Category) })
	})
}

func encodeProduct(p product.Product) []byte {
	var e jx.Encoder
	writeProduct(&e, p)
	return e.Bytes()
}

func encodeProducts(list []product.Product) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, p := range list {
			writeProduct(e, p)
		}
	})
	return e.Bytes()
}

func encodeKinds(kinds []pricing.Kind) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, k := range kinds {
			e.Str(string(k))
		}
	})
	return e.Bytes()
}

func writeItems(e *jx.Encoder, items []order.Item) {
	e.Arr(func(e *jx.Encoder) {
		for _, it := range items {
			e.Obj(func(e *jx.Encoder) {
				e.Field("productId", func(e *jx.Encoder) { e.Str(it.ProductID) })
				e.Field("quantity", func(e *jx.Encoder) { e.Int(it.Quantity) })
				e.Field("unitPrice", func(e *jx.Encoder) { money(e, it.UnitPrice) })
			})
		}
	})
}

func writeBreakdown(e *jx.Encoder, b pricing.Breakdown) {
	e.Field("policy", func(e *jx.Encoder) { e.Str(string(b.Policy)) })
	e.Field("subtotal", func(e *jx.Encoder) { money(e, b.Subtotal) })
	e.Field("discount", func(e *jx.Encoder) { money(e, b.Discount) })
	e.Field("total", func(e *jx.Encoder) { total(e, b.Total) })
}

func encodeQuote(q *order.QuoteResult) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		writeBreakdown(e, q.Breakdown)
		e.Field("items", func(e *jx.Encoder) { writeItems(e, q.Items) })
	})
	return e.Bytes()
}

func writeOrderFields(e *jx.Encoder, o *order.Order) {
	e.Field("id", func(e *jx.Encoder) { e.Str(o.ID) })
	e.Field("userId", func(e *jx.Encoder) { e.Str(o.UserID) })
	writeBreakdown(e, pricing.Breakdown{
		Policy:   o.Policy,
		Subtotal: o.Subtotal,
		Discount: o.Discount,
		Total:    o.Total,
	})
	e.Field("items", func(e *jx.Encoder) { writeItems(e, o.Items) })
	e.Field("createdAt", func(e *jx.Encoder) { e.Str(o.CreatedAt.UTC().Format(time.RFC3339)) })
}

func encodeOrder(o *order.Order) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) { writeOrderFields(e, o) })
	return e.Bytes()
}

func encodePlacedOrder(r *order.PlaceOrderResult) []byte {
	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		writeOrderFields(e, r.Order)
		e.Field("products", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, p := range r.Products {
					writeProduct(e, p)
				}
			})
		})
	})
	return e.Bytes()
}

func decodeCartItems(d *jx.Decoder) ([]order.CartItem, error) {
	var items []order.CartItem
	err := d.Arr(func(d *jx.Decoder) error {
		var it order.CartItem
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "productId":
				it.ProductID, err = d.Str()
			case "quantity":
				it.Quantity, err = d.Int()
			default:
				err = d.Skip()
			}
			if err != nil {
				return errors.Wrap(err, key)
			}
			return nil
		}); err != nil {
			return errors.Wrapf(err, "items[%d]", len(items))
		}
		items = append(items, it)
		return nil
	})
	return items, err
}

func decodeQuoteRequest(body []byte) (order.QuoteRequest, error) {
	req := order.QuoteRequest{Policy: pricing.Regular}
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "policy":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			req.Policy = pricing.ParseKind(s)
			return nil
		case "items":
			items, err := decodeCartItems(d)
			req.Items = items
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, errors.Wrap(err, "invalid request body")
	}
	return req, nil
}

func decodePlaceOrderRequest(body []byte) (order.PlaceOrderRequest, error) {
	var req order.PlaceOrderRequest
	err := jx.DecodeBytes(body).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "userId":
			s, err := d.Str()
			if err != nil {
				return errors.Wrap(err, key)
			}
			req.UserID = s
			return nil
		case "items":
			items, err := decodeCartItems(d)
			req.Items = items
			return err
		default:
			return d.Skip()
		}
	})
	if err != nil {
		return req, errors.Wrap(err, "invalid request body")
	}
	if req.UserID == "" {
		return req, errors.New("userId is required")
	}
	return req, nil
}
