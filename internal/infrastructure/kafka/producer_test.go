package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

// fakeReader hands out queued messages, then blocks until ctx is done.
type fakeReader struct {
	mu       sync.Mutex
	messages []kafka.Message
}

func (r *fakeReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.messages) > 0 {
		msg := r.messages[0]
		r.messages = r.messages[1:]
		r.mu.Unlock()
		return msg, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *fakeReader) Close() error { return nil }

func mustEvent(t *testing.T, aggregateType, aggregateID, eventType string) Event {
	t.Helper()
	event, err := NewEvent(aggregateType, aggregateID, eventType, map[string]string{"id": aggregateID})
	require.NoError(t, err)
	return event
}

func mustMessage(t *testing.T, event Event) kafka.Message {
	t.Helper()
	msg, err := newMessage(event)
	require.NoError(t, err)
	return msg
}

// ============================================
// Producer Tests
// ============================================

func TestProducer_Publish(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w, topic: "storefront-events"}
	event := mustEvent(t, "Cart", "4b1f", "CartUpdated")

	require.NoError(t, p.Publish(context.Background(), event))

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "Cart:4b1f", string(msg.Key))
	assert.Equal(t, event.Timestamp, msg.Time)
	eventType, _ := header(msg, HeaderEventType)
	assert.Equal(t, "CartUpdated", eventType)
	aggregateType, _ := header(msg, HeaderAggregateType)
	assert.Equal(t, "Cart", aggregateType)
	id, _ := header(msg, HeaderEventID)
	assert.Equal(t, event.ID, id)

	decoded, err := DecodeEvent(msg.Value)
	require.NoError(t, err)
	assert.Equal(t, event.ID, decoded.ID)
}

func TestProducer_PublishWriteError(t *testing.T) {
	brokerErr := errors.New("leader not available")
	p := &Producer{writer: &fakeWriter{err: brokerErr}, topic: "storefront-events"}

	err := p.Publish(context.Background(), mustEvent(t, "Product", "3", "ProductUpdated"))

	assert.ErrorIs(t, err, brokerErr)
	assert.Contains(t, err.Error(), "storefront-events")
}

func TestMessageKey_SeparatesAggregateTypes(t *testing.T) {
	product := mustEvent(t, "Product", "7", "ProductUpdated")
	checkout := mustEvent(t, "Checkout", "7", "CheckoutCompleted")

	assert.NotEqual(t, MessageKey(product), MessageKey(checkout))
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := &Producer{writer: w}

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

// ============================================
// Consumer Tests
// ============================================

func TestConsumer_DeliversWantedAggregates(t *testing.T) {
	reader := &fakeReader{messages: []kafka.Message{
		mustMessage(t, mustEvent(t, "Cart", "a", "CartUpdated")),
		mustMessage(t, mustEvent(t, "Product", "1", "ProductCreated")),
		{Value: []byte("{")},
		mustMessage(t, mustEvent(t, "Product", "2", "ProductDeleted")),
	}}
	c := newConsumer(reader, "Product")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var got []string
	err := c.Consume(ctx, func(_ context.Context, event Event) error {
		got = append(got, event.AggregateID)
		if len(got) == 2 {
			cancel()
		}
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, []string{"1", "2"}, got)
}

func TestConsumer_HandleWithoutHeadersFallsBackToPayload(t *testing.T) {
	c := newConsumer(&fakeReader{}, "Product")
	msg := mustMessage(t, mustEvent(t, "Cart", "a", "CartUpdated"))
	msg.Headers = nil

	called := false
	err := c.handle(context.Background(), msg, func(context.Context, Event) error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.False(t, called)
}

func TestConsumer_NoFilterDeliversEverything(t *testing.T) {
	c := newConsumer(&fakeReader{})

	var got Event
	err := c.handle(context.Background(), mustMessage(t, mustEvent(t, "Cart", "a", "CartCleared")), func(_ context.Context, event Event) error {
		got = event
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, "CartCleared", got.EventType)
}

func TestConsumer_HandleErrors(t *testing.T) {
	c := newConsumer(&fakeReader{})
	handlerErr := errors.New("refresh failed")

	err := c.handle(context.Background(), mustMessage(t, mustEvent(t, "Product", "1", "ProductUpdated")), func(context.Context, Event) error {
		return handlerErr
	})
	assert.ErrorIs(t, err, handlerErr)

	err = c.handle(context.Background(), kafka.Message{Value: []byte("not json")}, func(context.Context, Event) error {
		return nil
	})
	assert.Error(t, err)
}
