package notify

import (
	"context"
	"sync"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

var _ notify.Notifier = (*Recorder)(nil)

// Message is a notification captured by Recorder.
type Message struct {
	Recipient string
	Text      string
}

// Recorder keeps every message in memory.
type Recorder struct {
	mu     sync.Mutex
	outbox []Message
	err    error
}

// FailWith makes subsequent sends return err without recording.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

// Send records the message.
func (r *Recorder) Send(_ context.Context, to, msg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	r.outbox = append(r.outbox, Message{Recipient: to, Text: msg})
	return nil
}

// Messages returns a copy of the recorded messages.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.outbox...)
}
