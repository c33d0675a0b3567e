package notify

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

// Router holds one notifier per channel and a fallback channel used when
// the requested one is not configured.
type Router struct {
	channels map[notify.Channel]notify.Notifier
	fallback notify.Channel
}

// NewRouter returns a router falling back to the given channel.
func NewRouter(fallback notify.Channel) *Router {
	return &Router{
		channels: make(map[notify.Channel]notify.Notifier),
		fallback: fallback,
	}
}

// Handle registers n for ch. It must not be called once the router is in use.
func (r *Router) Handle(ch notify.Channel, n notify.Notifier) *Router {
	r.channels[ch] = n
	return r
}

// For returns the notifier for ch or the fallback notifier.
func (r *Router) For(ch notify.Channel) (notify.Notifier, error) {
	if n, ok := r.channels[ch]; ok {
		return n, nil
	}
	if n, ok := r.channels[r.fallback]; ok {
		return n, nil
	}
	return nil, errors.Errorf("no notifier for channel %q", ch)
}

// Send delivers msg to the recipient through ch.
func (r *Router) Send(ctx context.Context, ch notify.Channel, to, msg string) error {
	n, err := r.For(ch)
	if err != nil {
		return err
	}
	return n.Send(ctx, to, msg)
}

// Channels lists the configured channels.
func (r *Router) Channels() []notify.Channel {
	out := make([]notify.Channel, 0, len(r.channels))
	for ch := range r.channels {
		out = append(out, ch)
	}
	return out
}
