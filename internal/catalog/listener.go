package catalog

import (
	"context"

	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	log "github.com/sirupsen/logrus"
)

// Listener keeps the category cache in step with product changes made by
// any storefront instance.
type Listener struct {
	cache *CategoryCache
}

func NewListener(cache *CategoryCache) *Listener {
	return &Listener{cache: cache}
}

// AggregateTypes lists the event aggregates HandleEvent acts on, for
// narrowing the consumer.
func (l *Listener) AggregateTypes() []string {
	return []string{product.AggregateType}
}

// HandleEvent is a kafka.EventHandler. Events other than product changes
// are ignored.
func (l *Listener) HandleEvent(ctx context.Context, event kafka.Event) error {
	if event.AggregateType != product.AggregateType {
		return nil
	}

	switch event.EventType {
	case product.EventProductCreated, product.EventProductUpdated, product.EventProductDeleted:
		log.WithFields(log.Fields{
			"event_type": event.EventType,
			"product_id": event.AggregateID,
		}).Debug("refreshing categories after product change")
		return l.cache.Refresh(ctx)
	}
	return nil
}
