// Package pricing computes cart totals under a pluggable discount policy.
//
// The calculation is pure: Subtotal sums unit price times quantity over the
// line items and CalculateTotal hands that subtotal to the policy, rounding
// the result once to cents (half away from zero).
package pricing

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Scale is the number of decimal places kept in a final total.
const Scale = 2

// ErrInvalidLineItem is matched by every *InvalidLineItemError.
var ErrInvalidLineItem = errors.New("invalid line item")

// LineItem is one product line of a cart snapshot.
type LineItem struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

// InvalidLineItemError reports the first line item violating the
// non-negative price and quantity invariants.
type InvalidLineItemError struct {
	Index  int
	Reason string
}

func (e *InvalidLineItemError) Error() string {
	return fmt.Sprintf("line item %d: %s", e.Index, e.Reason)
}

// Is makes errors.Is(err, ErrInvalidLineItem) hold.
func (e *InvalidLineItemError) Is(target error) bool {
	return target == ErrInvalidLineItem
}

// Validate checks the line item invariants. CalculateTotal does not call it.
func Validate(items []LineItem) error {
	for i, item := range items {
		if item.UnitPrice.IsNegative() {
			return &InvalidLineItemError{Index: i, Reason: "unit price must not be negative"}
		}
		if item.Quantity < 0 {
			return &InvalidLineItemError{Index: i, Reason: "quantity must not be negative"}
		}
	}
	return nil
}

// Subtotal returns the sum of unit price times quantity.
func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(item.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// CalculateTotal returns the payable total of items under policy.
func CalculateTotal(items []LineItem, policy Policy) decimal.Decimal {
	return policy.Apply(Subtotal(items)).Round(Scale)
}

// Breakdown is a priced cart.
type Breakdown struct {
	Policy   Kind
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Total    decimal.Decimal
}

// Quote prices items like CalculateTotal and also reports the subtotal and
// the discount granted by policy.
func Quote(items []LineItem, policy Policy) Breakdown {
	subtotal := Subtotal(items)
	total := policy.Apply(subtotal).Round(Scale)
	return Breakdown{
		Policy:   policy.Kind,
		Subtotal: subtotal,
		Discount: subtotal.Sub(total),
		Total:    total,
	}
}
