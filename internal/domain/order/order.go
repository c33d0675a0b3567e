package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/cart-pricing/internal/domain/pricing"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is the persisted snapshot of a priced cart. Unit prices are copied
// from the catalog at placement time so later price changes do not alter it.
type Order struct {
	ID        string
	UserID    string
	Items     []Item
	Policy    pricing.Kind
	Subtotal  decimal.Decimal
	Discount  decimal.Decimal
	Total     decimal.Decimal
	CreatedAt time.Time
}

// Item is a single line of an order.
type Item struct {
	ProductID string          `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// LineItems converts the order lines into pricing input.
func (o *Order) LineItems() []pricing.LineItem {
	out := make([]pricing.LineItem, len(o.Items))
	for i, it := range o.Items {
		out[i] = pricing.LineItem{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
	}
	return out
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}
