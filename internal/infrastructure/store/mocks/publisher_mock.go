package mocks

import (
	"context"
	"sync"

	"github.com/example/ec-storefront/internal/infrastructure/kafka"
)

// MockPublisher collects published events
type MockPublisher struct {
	mu     sync.Mutex
	events []kafka.Event

	PublishErr error
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{events: make([]kafka.Event, 0)}
}

func (m *MockPublisher) Publish(ctx context.Context, event kafka.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.PublishErr != nil {
		return m.PublishErr
	}
	m.events = append(m.events, event)
	return nil
}

// Events returns the published events in order
func (m *MockPublisher) Events() []kafka.Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]kafka.Event, len(m.events))
	copy(out, m.events)
	return out
}

// EventTypes returns the event types in publish order
func (m *MockPublisher) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.events))
	for _, e := range m.events {
		types = append(types, e.EventType)
	}
	return types
}
