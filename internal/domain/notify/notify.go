package notify

import (
	"context"

	"github.com/go-faster/errors"
)

// Channel identifies a notification transport.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelKafka Channel = "kafka"
)

// ErrNoRecipient is returned when a message has nowhere to go.
var ErrNoRecipient = errors.New("no recipient")

// Notifier delivers a free-text message to a recipient. Delivery is best
// effort: callers log a returned error and carry on.
type Notifier interface {
	Send(ctx context.Context, recipient, message string) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, recipient, message string) error

// Send calls f.
func (f NotifierFunc) Send(ctx context.Context, recipient, message string) error {
	return f(ctx, recipient, message)
}
