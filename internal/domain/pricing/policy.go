package pricing

import (
	"slices"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Kind names a discount policy, e.g. a customer tier.
type Kind string

const (
	// Regular is the default tier: 5% off the subtotal.
	Regular Kind = "regular"
	// Premium is the preferred tier: 10% off the subtotal.
	Premium Kind = "premium"
)

// ErrUnknownPolicy is returned when no policy is registered for a kind.
var ErrUnknownPolicy = errors.New("unknown discount policy")

// ParseKind normalises user supplied policy names.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Policy maps a cart subtotal to the discounted total. It never sees the
// individual line items. The zero Policy applies no discount.
type Policy struct {
	Kind Kind
	fn   func(subtotal decimal.Decimal) decimal.Decimal
}

// New returns a policy backed by an arbitrary pure function.
func New(kind Kind, fn func(subtotal decimal.Decimal) decimal.Decimal) Policy {
	return Policy{Kind: kind, fn: fn}
}

// FlatRate returns a policy that multiplies the subtotal by factor.
func FlatRate(kind Kind, factor decimal.Decimal) Policy {
	return New(kind, func(subtotal decimal.Decimal) decimal.Decimal {
		return subtotal.Mul(factor)
	})
}

// Apply returns the discounted total for subtotal. No rounding happens here.
func (p Policy) Apply(subtotal decimal.Decimal) decimal.Decimal {
	if p.fn == nil {
		return subtotal
	}
	return p.fn(subtotal)
}

var (
	// RegularPolicy multiplies the subtotal by 0.95.
	RegularPolicy = FlatRate(Regular, decimal.RequireFromString("0.95"))
	// PremiumPolicy multiplies the subtotal by 0.90.
	PremiumPolicy = FlatRate(Premium, decimal.RequireFromString("0.90"))
)

// Registry resolves policy kinds. It is immutable after construction and
// safe for concurrent use.
type Registry struct {
	policies map[Kind]Policy
}

// DefaultRegistry holds the Regular and Premium policies.
func DefaultRegistry() *Registry {
	return NewRegistry()
}

// NewRegistry returns a registry with the default policies plus extra.
// A later policy with the same kind replaces an earlier one.
func NewRegistry(extra ...Policy) *Registry {
	r := &Registry{policies: make(map[Kind]Policy, 2+len(extra))}
	for _, p := range append([]Policy{RegularPolicy, PremiumPolicy}, extra...) {
		r.policies[p.Kind] = p
	}
	return r
}

// Lookup returns the policy registered for kind.
func (r *Registry) Lookup(kind Kind) (Policy, error) {
	p, ok := r.policies[kind]
	if !ok {
		return Policy{}, errors.Wrapf(ErrUnknownPolicy, "%q", kind)
	}
	return p, nil
}

// Kinds lists the registered kinds in lexical order.
func (r *Registry) Kinds() []Kind {
	kinds := make([]Kind, 0, len(r.policies))
	for k := range r.policies {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

// ParseFlatRate parses a "kind=factor" definition such as "vip=0.80".
func ParseFlatRate(def string) (Policy, error) {
	name, value, ok := strings.Cut(def, "=")
	if !ok {
		return Policy{}, errors.Errorf("policy %q: expected kind=factor", def)
	}
	kind := ParseKind(name)
	if kind == "" {
		return Policy{}, errors.Errorf("policy %q: empty kind", def)
	}
	factor, err := decimal.NewFromString(strings.TrimSpace(value))
	if err != nil {
		return Policy{}, errors.Wrapf(err, "policy %q: parse factor", def)
	}
	if factor.IsNegative() {
		return Policy{}, errors.Errorf("policy %q: negative factor", def)
	}
	return FlatRate(kind, factor), nil
}
