package pricing

import (
	"context"
	"slices"
	"testing"

	"github.com/cucumber/godog"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

type pricingFeature struct {
	extra     []Policy
	items     []LineItem
	breakdown Breakdown
	lookupErr error
}

func (f *pricingFeature) reset() {
	*f = pricingFeature{}
}

func (f *pricingFeature) theDefaultPoliciesAreRegistered() error {
	f.extra = nil
	return nil
}

func (f *pricingFeature) aPolicyWithFactor(kind, factor string) error {
	p, err := ParseFlatRate(kind + "=" + factor)
	if err != nil {
		return err
	}
	f.extra = append(f.extra, p)
	return nil
}

func (f *pricingFeature) anEmptyCart() error {
	f.items = nil
	return nil
}

func (f *pricingFeature) aCartWithTheFollowingItems(table *godog.Table) error {
	f.items = nil
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		if len(row.Cells) != 2 {
			return errors.Errorf("row %d: expected price and quantity", i)
		}
		price, err := decimal.NewFromString(row.Cells[0].Value)
		if err != nil {
			return errors.Wrapf(err, "row %d: price", i)
		}
		qty, err := decimal.NewFromString(row.Cells[1].Value)
		if err != nil {
			return errors.Wrapf(err, "row %d: quantity", i)
		}
		f.items = append(f.items, LineItem{UnitPrice: price, Quantity: int(qty.IntPart())})
	}
	return nil
}

func (f *pricingFeature) iReverseTheCartItems() error {
	slices.Reverse(f.items)
	return nil
}

func (f *pricingFeature) iPriceTheCartWithThePolicy(kind string) error {
	policy, err := NewRegistry(f.extra...).Lookup(ParseKind(kind))
	if err != nil {
		f.lookupErr = err
		return nil
	}
	f.breakdown = Quote(f.items, policy)
	return nil
}

func (f *pricingFeature) theSubtotalIs(want string) error {
	return expectAmount("subtotal", want, f.breakdown.Subtotal)
}

func (f *pricingFeature) theTotalIs(want string) error {
	if f.lookupErr != nil {
		return f.lookupErr
	}
	if got := CalculateTotal(f.items, mustPolicy(f.extra, f.breakdown.Policy)); !got.Equal(f.breakdown.Total) {
		return errors.Errorf("CalculateTotal %s differs from Quote %s", got, f.breakdown.Total)
	}
	return expectAmount("total", want, f.breakdown.Total)
}

func (f *pricingFeature) thePolicyLookupFails() error {
	if !errors.Is(f.lookupErr, ErrUnknownPolicy) {
		return errors.Errorf("expected ErrUnknownPolicy, got %v", f.lookupErr)
	}
	return nil
}

func mustPolicy(extra []Policy, kind Kind) Policy {
	p, err := NewRegistry(extra...).Lookup(kind)
	if err != nil {
		panic(err)
	}
	return p
}

func expectAmount(what, want string, got decimal.Decimal) error {
	w, err := decimal.NewFromString(want)
	if err != nil {
		return errors.Wrapf(err, "parse expected %s", what)
	}
	if !w.Equal(got) {
		return errors.Errorf("expected %s %s, got %s", what, w, got)
	}
	return nil
}

func initializePricingScenario(sc *godog.ScenarioContext) {
	f := &pricingFeature{}

	sc.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		f.reset()
		return ctx, nil
	})

	sc.Step(`^the default policies are registered$`, f.theDefaultPoliciesAreRegistered)
	sc.Step(`^a "([^"]*)" policy with factor (\d+(?:\.\d+)?)$`, f.aPolicyWithFactor)
	sc.Step(`^an empty cart$`, f.anEmptyCart)
	sc.Step(`^a cart with the following items:$`, f.aCartWithTheFollowingItems)

	sc.Step(`^I reverse the cart items$`, f.iReverseTheCartItems)
	sc.Step(`^I price the cart with the "([^"]*)" policy$`, f.iPriceTheCartWithThePolicy)

	sc.Step(`^the subtotal is (-?\d+(?:\.\d+)?)$`, f.theSubtotalIs)
	sc.Step(`^the total is (-?\d+(?:\.\d+)?)$`, f.theTotalIs)
	sc.Step(`^the policy lookup fails$`, f.thePolicyLookupFails)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: initializePricingScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
