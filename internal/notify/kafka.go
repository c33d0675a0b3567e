package notify

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

var _ notify.Notifier = (*Kafka)(nil)

// MessageWriter is the subset of *kafka.Writer used by Kafka.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Kafka publishes notifications as JSON records keyed by recipient, leaving
// delivery to a downstream consumer.
type Kafka struct {
	w   MessageWriter
	now func() time.Time
}

// NewKafka returns a Kafka notifier publishing through w.
func NewKafka(w MessageWriter) *Kafka {
	return &Kafka{w: w, now: time.Now}
}

// NewKafkaWriter returns a writer for topic on the comma-separated brokers.
func NewKafkaWriter(brokersCSV, topic string) (*kafka.Writer, error) {
	var brokers []string
	for _, b := range strings.Split(brokersCSV, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, errors.New("no kafka brokers configured")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
	}, nil
}

// Send publishes one notification record.
func (k *Kafka) Send(ctx context.Context, to, msg string) error {
	if to == "" {
		return notify.ErrNoRecipient
	}
	now := k.now().UTC()

	var e jx.Encoder
	e.Obj(func(e *jx.Encoder) {
		e.Field("channel", func(e *jx.Encoder) { e.Str(string(notify.ChannelKafka)) })
		e.Field("recipient", func(e *jx.Encoder) { e.Str(to) })
		e.Field("message", func(e *jx.Encoder) { e.Str(msg) })
		e.Field("sentAt", func(e *jx.Encoder) { e.Str(now.Format(time.RFC3339Nano)) })
	})

	if err := k.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(to),
		Value: e.Bytes(),
		Time:  now,
	}); err != nil {
		return errors.Wrap(err, "publish notification")
	}
	return nil
}
