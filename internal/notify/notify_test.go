package notify

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/cart-pricing/internal/domain/notify"
)

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	ctx := context.Background()

	require.NoError(t, NewEmail(&buf).Send(ctx, "john@example.com", "Your order total is 47.50"))
	require.NoError(t, NewSMS(&buf).Send(ctx, "+15550100", "Your order total is 45.00"))

	assert.Equal(t,
		"Sending Email to john@example.com: Your order total is 47.50\n"+
			"Sending SMS to +15550100: Your order total is 45.00\n",
		buf.String(),
	)
}

func TestConsole_NoRecipient(t *testing.T) {
	var buf bytes.Buffer
	err := NewEmail(&buf).Send(context.Background(), "", "hello")
	require.ErrorIs(t, err, notify.ErrNoRecipient)
	assert.Empty(t, buf.String())
}

func TestConsole_ConcurrentLines(t *testing.T) {
	var buf bytes.Buffer
	sms := NewSMS(&buf)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = sms.Send(context.Background(), fmt.Sprintf("+1555%04d", i), "ping")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 50)
	for _, l := range lines {
		assert.True(t, strings.HasPrefix(l, "Sending SMS to +1555"), l)
		assert.True(t, strings.HasSuffix(l, ": ping"), l)
	}
}

func TestRouter(t *testing.T) {
	email, sms := &Recorder{}, &Recorder{}
	r := NewRouter(notify.ChannelEmail).
		Handle(notify.ChannelEmail, email).
		Handle(notify.ChannelSMS, sms)
	ctx := context.Background()

	require.NoError(t, r.Send(ctx, notify.ChannelSMS, "+15550100", "a"))
	require.NoError(t, r.Send(ctx, notify.ChannelEmail, "x@example.com", "b"))
	// Unconfigured channel falls back to email.
	require.NoError(t, r.Send(ctx, notify.ChannelKafka, "y@example.com", "c"))

	assert.Equal(t, []Message{{Recipient: "+15550100", Text: "a"}}, sms.Messages())
	assert.Equal(t, []Message{
		{Recipient: "x@example.com", Text: "b"},
		{Recipient: "y@example.com", Text: "c"},
	}, email.Messages())
	assert.ElementsMatch(t, []notify.Channel{notify.ChannelEmail, notify.ChannelSMS}, r.Channels())
}

func TestRouter_NoNotifier(t *testing.T) {
	r := NewRouter(notify.ChannelEmail)
	err := r.Send(context.Background(), notify.ChannelSMS, "+15550100", "a")
	require.Error(t, err)
}

func TestRecorder_FailWith(t *testing.T) {
	var r Recorder
	boom := errors.New("boom")
	r.FailWith(boom)

	require.ErrorIs(t, r.Send(context.Background(), "a", "b"), boom)
	assert.Empty(t, r.Messages())
}

func TestNotifierFunc(t *testing.T) {
	var got string
	n := notify.NotifierFunc(func(_ context.Context, to, msg string) error {
		got = to + "|" + msg
		return nil
	})
	r := NewRouter(notify.ChannelEmail).Handle(notify.ChannelEmail, n)
	require.NoError(t, r.Send(context.Background(), notify.ChannelEmail, "to", "msg"))
	assert.Equal(t, "to|msg", got)
}

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func TestKafka(t *testing.T) {
	w := &mockWriter{}
	k := NewKafka(w)
	k.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	require.NoError(t, k.Send(context.Background(), "john@example.com", "Your order total is 47.50"))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "john@example.com", string(msg.Key))

	got := map[string]string{}
	require.NoError(t, jx.DecodeBytes(msg.Value).Obj(func(d *jx.Decoder, key string) error {
		v, err := d.Str()
		got[key] = v
		return err
	}))
	assert.Equal(t, map[string]string{
		"channel":   "kafka",
		"recipient": "john@example.com",
		"message":   "Your order total is 47.50",
		"sentAt":    "2024-05-01T12:00:00Z",
	}, got)
}

func TestKafka_Errors(t *testing.T) {
	k := NewKafka(&mockWriter{err: errors.New("broker unavailable")})

	err := k.Send(context.Background(), "john@example.com", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish notification")

	require.ErrorIs(t, k.Send(context.Background(), "", "hi"), notify.ErrNoRecipient)
}

func TestNewKafkaWriter(t *testing.T) {
	w, err := NewKafkaWriter(" localhost:9092, localhost:9093 ,", "notifications")
	require.NoError(t, err)
	assert.Equal(t, "notifications", w.Topic)
	assert.Contains(t, w.Addr.String(), "localhost:9092")
	assert.Contains(t, w.Addr.String(), "localhost:9093")

	_, err = NewKafkaWriter(" , ", "notifications")
	require.Error(t, err)
	_, err = NewKafkaWriter("localhost:9092", "")
	require.Error(t, err)
}
