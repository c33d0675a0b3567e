package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	"github.com/xenking/cart-pricing/internal/domain/product"
	"github.com/xenking/cart-pricing/internal/domain/user"
)

// ErrEmptyItems is returned for a cart without lines.
var ErrEmptyItems = errors.New("items required")

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// InvalidQuantityError indicates a line item has a non-positive quantity.
type InvalidQuantityError struct {
	ProductID string
	Quantity  int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for product %s, got %d", e.ProductID, e.Quantity)
}

// CartItem is a requested cart line before the catalog price is resolved.
type CartItem struct {
	ProductID string
	Quantity  int
}

// QuoteRequest prices a cart under an explicit policy.
type QuoteRequest struct {
	Items  []CartItem
	Policy pricing.Kind
}

// QuoteResult is a priced cart that was not persisted.
type QuoteResult struct {
	Breakdown pricing.Breakdown
	Items     []Item
	Products  []product.Product
}

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	UserID string
	Items  []CartItem
}

// PlaceOrderResult holds the output of a successfully placed order.
type PlaceOrderResult struct {
	Order    *Order
	Products []product.Product
}

// Notifier sends a message over a channel. It is satisfied by the
// notification router.
type Notifier interface {
	Send(ctx context.Context, ch notify.Channel, recipient, message string) error
}

// Option configures a Service.
type Option func(*Service)

// WithTracerProvider sets the tracer provider, otel global by default.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(s *Service) { s.tracerProvider = tp }
}

// WithMeterProvider sets the meter provider, otel global by default.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(s *Service) { s.meterProvider = mp }
}

// WithClock overrides the time source used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service prices carts, places orders and notifies customers.
type Service struct {
	products product.Repository
	users    user.Repository
	orders   Repository
	policies *pricing.Registry
	notifier Notifier
	now      func() time.Time

	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	placed         metric.Int64Counter
	totals         metric.Float64Histogram
}

// NewService creates an order Service with the required domain dependencies.
func NewService(
	products product.Repository,
	users user.Repository,
	orders Repository,
	policies *pricing.Registry,
	notifier Notifier,
	opts ...Option,
) (*Service, error) {
	s := &Service{
		products:       products,
		users:          users,
		orders:         orders,
		policies:       policies,
		notifier:       notifier,
		now:            time.Now,
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.policies == nil {
		s.policies = pricing.DefaultRegistry()
	}

	const name = "github.com/xenking/cart-pricing/internal/domain/order"
	s.tracer = s.tracerProvider.Tracer(name)
	meter := s.meterProvider.Meter(name)

	var err error
	if s.placed, err = meter.Int64Counter("orders.placed",
		metric.WithDescription("Number of placed orders"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.placed")
	}
	if s.totals, err = meter.Float64Histogram("orders.total",
		metric.WithDescription("Order totals after discount"),
	); err != nil {
		return nil, errors.Wrap(err, "orders.total")
	}
	return s, nil
}

// Policies returns the registry used to resolve discount policies.
func (s *Service) Policies() *pricing.Registry {
	return s.policies
}

// Quote prices a cart without persisting it.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (_ *QuoteResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Quote",
		trace.WithAttributes(attribute.String("policy", string(req.Policy))),
	)
	defer endSpan(span, &rerr)

	policy, err := s.policies.Lookup(req.Policy)
	if err != nil {
		return nil, err
	}
	return s.price(ctx, req.Items, policy)
}

// PlaceOrder prices the cart with the user's tier policy, persists the order
// and notifies the user. A failed notification does not fail the order.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *PlaceOrderResult, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder",
		trace.WithAttributes(attribute.String("user.id", req.UserID)),
	)
	defer endSpan(span, &rerr)

	u, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "get user")
	}
	policy, err := s.policies.Lookup(u.Tier)
	if err != nil {
		return nil, errors.Wrapf(err, "user %s tier", u.ID)
	}
	span.SetAttributes(attribute.String("policy", string(policy.Kind)))

	q, err := s.price(ctx, req.Items, policy)
	if err != nil {
		return nil, err
	}

	o := &Order{
		ID:        uuid.New().String(),
		UserID:    u.ID,
		Items:     q.Items,
		Policy:    q.Breakdown.Policy,
		Subtotal:  q.Breakdown.Subtotal,
		Discount:  q.Breakdown.Discount,
		Total:     q.Breakdown.Total,
		CreatedAt: s.now().UTC(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	attrs := metric.WithAttributes(attribute.String("policy", string(o.Policy)))
	s.placed.Add(ctx, 1, attrs)
	s.totals.Record(ctx, o.Total.InexactFloat64(), attrs)

	s.notify(ctx, u, o)

	return &PlaceOrderResult{Order: o, Products: q.Products}, nil
}

// GetOrder returns a persisted order.
func (s *Service) GetOrder(ctx context.Context, id string) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.GetOrder",
		trace.WithAttributes(attribute.String("order.id", id)),
	)
	defer endSpan(span, &rerr)

	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// price validates the cart, resolves catalog prices in one batch and runs
// the pricing engine.
func (s *Service) price(ctx context.Context, cart []CartItem, policy pricing.Policy) (*QuoteResult, error) {
	if len(cart) == 0 {
		return nil, ErrEmptyItems
	}

	ids := make([]string, len(cart))
	for i, item := range cart {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{ProductID: item.ProductID, Quantity: item.Quantity}
		}
		ids[i] = item.ProductID
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	productMap := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		productMap[p.ID] = p
	}

	items := make([]Item, len(cart))
	lines := make([]pricing.LineItem, len(cart))
	products := make([]product.Product, len(cart))
	for i, item := range cart {
		p, ok := productMap[item.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: item.ProductID}
		}
		products[i] = p
		items[i] = Item{ProductID: p.ID, Quantity: item.Quantity, UnitPrice: p.Price}
		lines[i] = pricing.LineItem{UnitPrice: p.Price, Quantity: item.Quantity}
	}
	if err := pricing.Validate(lines); err != nil {
		return nil, err
	}

	return &QuoteResult{
		Breakdown: pricing.Quote(lines, policy),
		Items:     items,
		Products:  products,
	}, nil
}

func (s *Service) notify(ctx context.Context, u *user.User, o *Order) {
	if s.notifier == nil {
		return
	}
	lg := zctx.From(ctx).With(
		zap.String("order_id", o.ID),
		zap.String("channel", string(u.Channel)),
	)
	msg := fmt.Sprintf("Your order %s total is %s", o.ID, o.Total.StringFixed(pricing.Scale))
	if err := s.notifier.Send(ctx, u.Channel, u.Recipient(), msg); err != nil {
		lg.Warn("Notification failed", zap.Error(err))
		return
	}
	lg.Debug("Notification sent")
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
