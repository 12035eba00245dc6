package catalog

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/ec-storefront/internal/metrics"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// CategorySource loads the distinct category labels.
type CategorySource interface {
	Categories(ctx context.Context) ([]string, error)
}

type categorySnapshot struct {
	categories []string
	loadedAt   time.Time
}

// CategoryCache serves the category list from memory. Readers see an
// immutable snapshot and never block; Refresh swaps in a new one.
type CategoryCache struct {
	source  CategorySource
	metrics *metrics.ServerMetrics

	refreshMu sync.Mutex
	snapshot  atomic.Pointer[categorySnapshot]
}

func NewCategoryCache(source CategorySource, m *metrics.ServerMetrics) *CategoryCache {
	c := &CategoryCache{source: source, metrics: m}
	c.snapshot.Store(&categorySnapshot{categories: []string{}})
	return c
}

// Refresh reloads categories from the source. On failure the previous
// snapshot stays in place.
func (c *CategoryCache) Refresh(ctx context.Context) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	categories, err := c.source.Categories(ctx)
	c.metrics.ObserveCategoryRefresh(err)
	if err != nil {
		return errors.Wrap(err, "refresh categories")
	}
	if categories == nil {
		categories = []string{}
	}
	c.snapshot.Store(&categorySnapshot{categories: categories, loadedAt: time.Now()})
	log.WithField("count", len(categories)).Debug("category cache refreshed")
	return nil
}

// Categories returns a copy of the cached list.
func (c *CategoryCache) Categories() []string {
	snap := c.snapshot.Load()
	out := make([]string, len(snap.categories))
	copy(out, snap.categories)
	return out
}

// LoadedAt is when the current snapshot was loaded; zero before the first Refresh.
func (c *CategoryCache) LoadedAt() time.Time {
	return c.snapshot.Load().loadedAt
}

// Invalidate drops the cached list until the next Refresh.
func (c *CategoryCache) Invalidate() {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()
	c.snapshot.Store(&categorySnapshot{categories: []string{}})
}
