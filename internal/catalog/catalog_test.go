package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/example/ec-storefront/internal/catalog"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	mu         sync.Mutex
	categories []string
	err        error
	calls      int
}

func (s *stubSource) Categories(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	return s.categories, s.err
}

func newSeededService(t *testing.T) (*catalog.Service, *catalog.CategoryCache) {
	t.Helper()
	products := store.NewMemoryProductStore()
	_, err := store.SeedExampleProducts(context.Background(), products)
	require.NoError(t, err)
	cache := catalog.NewCategoryCache(products, nil)
	require.NoError(t, cache.Refresh(context.Background()))
	return catalog.NewService(products, cache, catalog.DefaultPerPage), cache
}

// ============================================
// CategoryCache Tests
// ============================================

func TestCategoryCache_EmptyBeforeRefresh(t *testing.T) {
	cache := catalog.NewCategoryCache(&stubSource{}, nil)

	assert.Equal(t, []string{}, cache.Categories())
	assert.True(t, cache.LoadedAt().IsZero())
}

func TestCategoryCache_Refresh(t *testing.T) {
	source := &stubSource{categories: []string{"Bakery", "Produce"}}
	cache := catalog.NewCategoryCache(source, nil)

	require.NoError(t, cache.Refresh(context.Background()))

	assert.Equal(t, []string{"Bakery", "Produce"}, cache.Categories())
	assert.False(t, cache.LoadedAt().IsZero())
}

func TestCategoryCache_FailedRefreshKeepsSnapshot(t *testing.T) {
	source := &stubSource{categories: []string{"Bakery"}}
	cache := catalog.NewCategoryCache(source, nil)
	require.NoError(t, cache.Refresh(context.Background()))

	source.err = errors.New("db down")
	err := cache.Refresh(context.Background())

	assert.Error(t, err)
	assert.Equal(t, []string{"Bakery"}, cache.Categories())
}

func TestCategoryCache_ReturnsCopy(t *testing.T) {
	cache := catalog.NewCategoryCache(&stubSource{categories: []string{"Bakery"}}, nil)
	require.NoError(t, cache.Refresh(context.Background()))

	got := cache.Categories()
	got[0] = "mutated"

	assert.Equal(t, []string{"Bakery"}, cache.Categories())
}

func TestCategoryCache_Invalidate(t *testing.T) {
	cache := catalog.NewCategoryCache(&stubSource{categories: []string{"Bakery"}}, nil)
	require.NoError(t, cache.Refresh(context.Background()))

	cache.Invalidate()

	assert.Empty(t, cache.Categories())
}

func TestCategoryCache_ConcurrentReadsDuringRefresh(t *testing.T) {
	cache := catalog.NewCategoryCache(&stubSource{categories: []string{"A", "B"}}, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = cache.Refresh(context.Background())
		}()
		go func() {
			defer wg.Done()
			got := cache.Categories()
			assert.True(t, len(got) == 0 || len(got) == 2)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"A", "B"}, cache.Categories())
}

// ============================================
// Browse Tests
// ============================================

func TestService_Browse_FirstPage(t *testing.T) {
	svc, _ := newSeededService(t)

	page, err := svc.Browse(context.Background(), catalog.BrowseParams{})

	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 7, page.TotalItems)
	assert.Equal(t, 4, page.PerPage)
	require.Len(t, page.Products, 4)
	assert.Equal(t, "Green Apple", page.Products[0].Name)
	assert.Equal(t, []string{"Bakery", "Beverage", "Produce"}, page.Categories)
	assert.Equal(t, "", page.FilterQuery)
}

func TestService_Browse_PageClampedAndFiltered(t *testing.T) {
	svc, _ := newSeededService(t)

	page, err := svc.Browse(context.Background(), catalog.BrowseParams{
		Page:     -3,
		Category: "Beverage",
		Sort:     "alpha",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 1, page.TotalPages)
	require.Len(t, page.Products, 3)
	assert.Equal(t, "Coffee", page.Products[0].Name)
	assert.Equal(t, "category=Beverage&sort=alpha", page.FilterQuery)
	assert.Equal(t, "Beverage", page.RequestArgs["category"])
}

func TestService_Browse_NoMatches(t *testing.T) {
	svc, _ := newSeededService(t)

	page, err := svc.Browse(context.Background(), catalog.BrowseParams{Search: "nothing like this"})

	require.NoError(t, err)
	assert.Empty(t, page.Products)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, 0, page.TotalItems)
}

func TestService_Product(t *testing.T) {
	svc, _ := newSeededService(t)

	v, err := svc.Product(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "Red Apple", v.Name)

	_, err = svc.Product(context.Background(), 404)
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestTotalPages(t *testing.T) {
	tests := []struct {
		total, perPage, expected int
	}{
		{0, 4, 1},
		{1, 4, 1},
		{4, 4, 1},
		{5, 4, 2},
		{8, 4, 2},
		{9, 4, 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, catalog.TotalPages(tt.total, tt.perPage), "total=%d", tt.total)
	}
}

func TestFilterQuery(t *testing.T) {
	assert.Equal(t, "", catalog.FilterQuery(catalog.BrowseParams{Category: "  "}))
	assert.Equal(t,
		"category=Fruit+%26+Veg&search=red+apple&sort=price_high&tag=Healthy",
		catalog.FilterQuery(catalog.BrowseParams{
			Category: "Fruit & Veg",
			Search:   "red apple",
			Sort:     "price_high",
			Tag:      "Healthy",
		}))
}

// ============================================
// Listener Tests
// ============================================

func newEvent(t *testing.T, aggregateType, eventType string) kafka.Event {
	t.Helper()
	event, err := kafka.NewEvent(aggregateType, "1", eventType, map[string]int{"product_id": 1})
	require.NoError(t, err)
	return event
}

func TestListener_RefreshesOnProductEvents(t *testing.T) {
	source := &stubSource{categories: []string{"Bakery"}}
	cache := catalog.NewCategoryCache(source, nil)
	listener := catalog.NewListener(cache)
	ctx := context.Background()

	for _, eventType := range []string{product.EventProductCreated, product.EventProductUpdated, product.EventProductDeleted} {
		require.NoError(t, listener.HandleEvent(ctx, newEvent(t, product.AggregateType, eventType)))
	}

	assert.Equal(t, 3, source.calls)
	assert.Equal(t, []string{"Bakery"}, cache.Categories())
}

func TestListener_IgnoresOtherEvents(t *testing.T) {
	source := &stubSource{}
	listener := catalog.NewListener(catalog.NewCategoryCache(source, nil))

	err := listener.HandleEvent(context.Background(), newEvent(t, "Cart", "CartUpdated"))

	require.NoError(t, err)
	assert.Zero(t, source.calls)
}

func TestListener_IgnoresUnrelatedProductEvents(t *testing.T) {
	source := &stubSource{}
	listener := catalog.NewListener(catalog.NewCategoryCache(source, nil))

	require.NoError(t, listener.HandleEvent(context.Background(), newEvent(t, product.AggregateType, "ProductViewed")))

	assert.Zero(t, source.calls)
	assert.Equal(t, []string{product.AggregateType}, listener.AggregateTypes())
}
