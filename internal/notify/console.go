// Package notify implements the notification channels: console stubs for
// email and SMS, a Kafka publisher, and an in-memory recorder.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/go-faster/errors"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

var (
	_ notify.Notifier = (*Email)(nil)
	_ notify.Notifier = (*SMS)(nil)
)

// console serializes writes so concurrent senders never interleave lines.
type console struct {
	mu    sync.Mutex
	out   io.Writer
	label string
}

func (c *console) send(to, msg string) error {
	if to == "" {
		return notify.ErrNoRecipient
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.out, "Sending %s to %s: %s\n", c.label, to, msg); err != nil {
		return errors.Wrapf(err, "write %s", c.label)
	}
	return nil
}

// Email prints email notifications instead of delivering them.
type Email struct {
	c console
}

// NewEmail returns an email stub writing to out, or stdout when out is nil.
func NewEmail(out io.Writer) *Email {
	if out == nil {
		out = os.Stdout
	}
	return &Email{c: console{out: out, label: "Email"}}
}

// Send writes the email line.
func (e *Email) Send(_ context.Context, to, msg string) error {
	return e.c.send(to, msg)
}

// SMS prints text messages instead of delivering them.
type SMS struct {
	c console
}

// NewSMS returns an SMS stub writing to out, or stdout when out is nil.
func NewSMS(out io.Writer) *SMS {
	if out == nil {
		out = os.Stdout
	}
	return &SMS{c: console{out: out, label: "SMS"}}
}

// Send writes the SMS line.
func (s *SMS) Send(_ context.Context, to, msg string) error {
	return s.c.send(to, msg)
}
