// Command cart-demo prices one cart under every registered policy, then
// places it for each demo user so the console notifiers print their lines.
package main

import (
	"context"
	"flag"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/cart-pricing/db"
	"github.com/xenking/cart-pricing/internal/catalog"
	"github.com/xenking/cart-pricing/internal/domain/notify"
	"github.com/xenking/cart-pricing/internal/domain/order"
	"github.com/xenking/cart-pricing/internal/domain/pricing"
	notifyimpl "github.com/xenking/cart-pricing/internal/notify"
	"github.com/xenking/cart-pricing/internal/storage/memory"
)

func main() {
	var (
		items    string
		users    string
		policies string
	)
	flag.StringVar(&items, "items", "laptop:1,mouse:2", "cart as productId:quantity pairs")
	flag.StringVar(&users, "users", "john,jane", "users to place the cart for")
	flag.StringVar(&policies, "policies", "", "extra policies as kind=factor pairs, e.g. vip=0.80")
	flag.Parse()

	lg, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx := zctx.Base(context.Background(), lg)
	if err := run(ctx, os.Stdout, items, users, policies); err != nil {
		lg.Fatal("Demo failed", zap.Error(err))
	}
}

func run(ctx context.Context, out io.Writer, itemsFlag, usersFlag, policiesFlag string) error {
	lg := zctx.From(ctx)

	cart, err := parseCart(itemsFlag)
	if err != nil {
		return err
	}
	registry, err := parseRegistry(policiesFlag)
	if err != nil {
		return err
	}

	products := memory.NewProductRepository()
	users := memory.NewUserRepository()
	if err := catalog.Seed(ctx, products, users, db.SeedProducts, db.SeedUsers); err != nil {
		return err
	}

	router := notifyimpl.NewRouter(notify.ChannelEmail).
		Handle(notify.ChannelEmail, notifyimpl.NewEmail(out)).
		Handle(notify.ChannelSMS, notifyimpl.NewSMS(out))
	svc, err := order.NewService(products, users, memory.NewOrderRepository(), registry, router)
	if err != nil {
		return err
	}

	for _, kind := range registry.Kinds() {
		q, err := svc.Quote(ctx, order.QuoteRequest{Items: cart, Policy: kind})
		if err != nil {
			return errors.Wrapf(err, "quote %s", kind)
		}
		lg.Info("Quote",
			zap.String("policy", string(kind)),
			zap.String("subtotal", q.Breakdown.Subtotal.StringFixed(pricing.Scale)),
			zap.String("discount", q.Breakdown.Discount.StringFixed(pricing.Scale)),
			zap.String("total", q.Breakdown.Total.StringFixed(pricing.Scale)),
		)
	}

	for _, id := range strings.Split(usersFlag, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		res, err := svc.PlaceOrder(ctx, order.PlaceOrderRequest{UserID: id, Items: cart})
		if err != nil {
			return errors.Wrapf(err, "place order for %s", id)
		}
		lg.Info("Order placed",
			zap.String("user_id", id),
			zap.String("order_id", res.Order.ID),
			zap.String("policy", string(res.Order.Policy)),
			zap.String("total", res.Order.Total.StringFixed(pricing.Scale)),
		)
	}
	return nil
}

func parseCart(s string) ([]order.CartItem, error) {
	var cart []order.CartItem
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		id, qty, ok := strings.Cut(pair, ":")
		if !ok {
			qty = "1"
		}
		n, err := strconv.Atoi(qty)
		if err != nil {
			return nil, errors.Wrapf(err, "item %q: quantity", pair)
		}
		cart = append(cart, order.CartItem{ProductID: strings.TrimSpace(id), Quantity: n})
	}
	return cart, nil
}

func parseRegistry(s string) (*pricing.Registry, error) {
	var extra []pricing.Policy
	for _, def := range strings.Split(s, ",") {
		if strings.TrimSpace(def) == "" {
			continue
		}
		p, err := pricing.ParseFlatRate(def)
		if err != nil {
			return nil, err
		}
		extra = append(extra, p)
	}
	return pricing.NewRegistry(extra...), nil
}
