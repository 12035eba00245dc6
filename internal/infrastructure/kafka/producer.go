package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Headers set on every storefront message. Consumers filter on
// HeaderAggregateType without decoding the value.
const (
	HeaderEventID       = "event-id"
	HeaderEventType     = "event-type"
	HeaderAggregateType = "aggregate-type"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes storefront events to one topic.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: writer, topic: topic}
}

// Publish writes event under its MessageKey, so one session's cart events
// and one product's changes each stay ordered on a single partition.
func (p *Producer) Publish(ctx context.Context, event Event) error {
	msg, err := newMessage(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write %s to %s: %w", event.EventType, p.topic, err)
	}

	log.WithFields(log.Fields{
		"topic":      p.topic,
		"key":        string(msg.Key),
		"event_type": event.EventType,
	}).Debug("published event")
	return nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}

// MessageKey is the partition key for event. Aggregate ids are only unique
// per aggregate type, so the type is part of the key.
func MessageKey(event Event) string {
	return event.AggregateType + ":" + event.AggregateID
}

func newMessage(event Event) (kafka.Message, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal %s: %w", event.EventType, err)
	}
	return kafka.Message{
		Key:   []byte(MessageKey(event)),
		Value: value,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: HeaderEventID, Value: []byte(event.ID)},
			{Key: HeaderEventType, Value: []byte(event.EventType)},
			{Key: HeaderAggregateType, Value: []byte(event.AggregateType)},
		},
	}, nil
}
