package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// EventHandler receives one decoded storefront event.
type EventHandler func(ctx context.Context, event Event) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// Consumer reads storefront events, optionally only those of some
// aggregate types.
type Consumer struct {
	reader         messageReader
	aggregateTypes map[string]bool
}

// NewConsumer joins groupID on topic. A new group starts at the end of the
// topic: state built before startup is loaded directly, not replayed. With
// no aggregateTypes every event is delivered.
func NewConsumer(brokers []string, topic, groupID string, aggregateTypes ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	})
	return newConsumer(reader, aggregateTypes...)
}

func newConsumer(reader messageReader, aggregateTypes ...string) *Consumer {
	c := &Consumer{reader: reader}
	if len(aggregateTypes) > 0 {
		c.aggregateTypes = make(map[string]bool, len(aggregateTypes))
		for _, t := range aggregateTypes {
			c.aggregateTypes[t] = true
		}
	}
	return c
}

// Consume reads until ctx is cancelled. Undecodable messages and handler
// errors are logged and the message is committed anyway.
func (c *Consumer) Consume(ctx context.Context, handler EventHandler) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.WithError(err).Error("error reading message")
			continue
		}

		if err := c.handle(ctx, msg, handler); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"topic":     msg.Topic,
				"partition": msg.Partition,
				"offset":    msg.Offset,
				"key":       string(msg.Key),
			}).Error("error handling message")
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg kafka.Message, handler EventHandler) error {
	if t, ok := header(msg, HeaderAggregateType); ok && !c.wants(t) {
		return nil
	}
	event, err := DecodeEvent(msg.Value)
	if err != nil {
		return err
	}
	if !c.wants(event.AggregateType) {
		return nil
	}
	return handler(ctx, event)
}

func (c *Consumer) wants(aggregateType string) bool {
	return c.aggregateTypes == nil || c.aggregateTypes[aggregateType]
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

func header(msg kafka.Message, key string) (string, bool) {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}
