package store

import (
	"context"
	"errors"
	"net/url"
	"os"
	"sync"
	"testing"

	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/session"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newPostgresTestDB connects to DATABASE_URL with a throwaway schema first
// on the search path, so tests never touch existing tables. Tests using it
// are skipped when DATABASE_URL is unset.
func newPostgresTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping postgres integration test")
	}
	ctx := context.Background()

	admin, err := ConnectPostgres(ctx, dsn)
	require.NoError(t, err)
	schema := "storefront_test_" + uuid.NewString()[:8]
	_, err = admin.ExecContext(ctx, `CREATE SCHEMA `+schema)
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = admin.ExecContext(context.Background(), `DROP SCHEMA `+schema+` CASCADE`)
		_ = admin.Close()
	})

	db, err := ConnectPostgres(ctx, withSearchPath(dsn, schema))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

func withSearchPath(dsn, schema string) string {
	if u, err := url.Parse(dsn); err == nil && (u.Scheme == "postgres" || u.Scheme == "postgresql") {
		q := u.Query()
		q.Set("search_path", schema)
		u.RawQuery = q.Encode()
		return u.String()
	}
	return dsn + " search_path=" + schema
}

func newSeededPostgresProductStore(t *testing.T) *PostgresProductStore {
	t.Helper()
	s := NewPostgresProductStore(newPostgresTestDB(t))
	n, err := SeedExampleProducts(context.Background(), s)
	require.NoError(t, err)
	require.Equal(t, 7, n)
	return s
}

func inventoryOf(t *testing.T, s *PostgresProductStore, id int) int {
	t.Helper()
	p, ok, err := s.Get(context.Background(), id)
	require.NoError(t, err)
	require.True(t, ok)
	return p.Inventory
}

type approveAll struct{}

func (approveAll) Authorize(context.Context, product.Price, string) error { return nil }

// ============================================
// Product Store
// ============================================

func TestPostgresProductStore_List(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		filter   product.Filter
		sort     product.Sort
		limit    int
		offset   int
		expected []string
	}{
		{"price ascending first page", product.Filter{}, product.SortPriceLow, 4, 0, []string{"Green Apple", "Malk", "Red Apple", "Rust Cookie"}},
		{"price ascending second page", product.Filter{}, product.SortPriceLow, 4, 4, []string{"Tea", "Coffee", "Kernberry Pie"}},
		{"alphabetical within category", product.Filter{Category: "Beverage"}, product.SortAlpha, 10, 0, []string{"Coffee", "Malk", "Tea"}},
		{"tag substring", product.Filter{Tag: "Fruit"}, product.SortAlpha, 10, 0, []string{"Green Apple", "Red Apple"}},
		{"case-insensitive search", product.Filter{Search: "CRISP"}, product.SortAlpha, 10, 0, []string{"Green Apple", "Red Apple"}},
		{"wildcards are literal", product.Filter{Search: "%"}, product.SortAlpha, 10, 0, []string{}},
		{"offset past end", product.Filter{}, product.SortAlpha, 4, 40, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			products, err := s.List(ctx, tt.filter, tt.sort, tt.limit, tt.offset)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, names(products))
		})
	}
}

func TestPostgresProductStore_CountAndCategories(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()

	n, err := s.Count(ctx, product.Filter{Category: "Bakery"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	categories, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bakery", "Beverage", "Produce"}, categories)
}

func TestPostgresProductStore_SaveAndDelete(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()

	p, ok, err := s.Get(ctx, 5)
	require.NoError(t, err)
	require.True(t, ok)
	p.Inventory = 70
	require.NoError(t, s.Save(ctx, p))
	assert.Equal(t, 70, inventoryOf(t, s, 5))

	require.NoError(t, s.Delete(ctx, 5))
	assert.ErrorIs(t, s.Delete(ctx, 5), product.ErrProductNotFound)
	assert.ErrorIs(t, s.Save(ctx, p), product.ErrProductNotFound)
}

func TestPostgresProductStore_WithinTx_RollsBack(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithinTx(ctx, func(tx checkout.InventoryTx) error {
		require.NoError(t, tx.Decrement(ctx, 5, 3))
		require.NoError(t, tx.Decrement(ctx, 6, 1))
		inventory, err := tx.Inventory(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, 4, inventory)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 7, inventoryOf(t, s, 5))
	assert.Equal(t, 8, inventoryOf(t, s, 6))
}

func TestPostgresProductStore_WithinTx_GuardedDecrement(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()

	err := s.WithinTx(ctx, func(tx checkout.InventoryTx) error {
		return tx.Decrement(ctx, 5, 8)
	})
	assert.ErrorIs(t, err, checkout.ErrInsufficientInventory)
	assert.Equal(t, 7, inventoryOf(t, s, 5))

	err = s.WithinTx(ctx, func(tx checkout.InventoryTx) error {
		_, err := tx.Inventory(ctx, 4242)
		return err
	})
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

// ============================================
// Checkout against Postgres
// ============================================

func TestPostgres_ConcurrentBuyersOfLastUnit(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()
	last, err := s.Insert(ctx, product.NewProduct{Name: "Last One", Price: 500, Inventory: 1, Category: "Test"})
	require.NoError(t, err)
	sessions := NewMemorySessionStore()
	coordinator := checkout.NewCoordinator(s, s, sessions, approveAll{}, nil, nil)

	const buyers = 8
	contexts := make([]*session.Context, buyers)
	for i := range contexts {
		created, err := sessions.Create(ctx, "", "")
		require.NoError(t, err)
		version, err := sessions.UpdateCart(ctx, created.ID, created.Version, cart.Cart{{ProductID: last.ID, Quantity: 1}})
		require.NoError(t, err)
		contexts[i] = &session.Context{SessionID: created.ID, Cart: cart.Cart{{ProductID: last.ID, Quantity: 1}}, Version: version}
	}

	var wg sync.WaitGroup
	errs := make([]error, buyers)
	for i := range contexts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.Checkout(ctx, contexts[i], "tok")
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, checkout.ErrInsufficientInventory)
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 0, inventoryOf(t, s, last.ID))
}

func TestPostgres_PartialShortfallChangesNothing(t *testing.T) {
	s := newSeededPostgresProductStore(t)
	ctx := context.Background()
	sessions := NewMemorySessionStore()
	coordinator := checkout.NewCoordinator(s, s, sessions, approveAll{}, nil, nil)

	// Red Apple has 100 in stock, Malk only 7.
	items := cart.Cart{{ProductID: 1, Quantity: 3}, {ProductID: 5, Quantity: 8}}
	created, err := sessions.Create(ctx, "", "")
	require.NoError(t, err)
	version, err := sessions.UpdateCart(ctx, created.ID, created.Version, items)
	require.NoError(t, err)

	result, err := coordinator.Checkout(ctx, &session.Context{SessionID: created.ID, Cart: items, Version: version}, "tok")

	assert.ErrorIs(t, err, checkout.ErrInsufficientInventory)
	assert.Equal(t, checkout.StateInventoryInsufficient, result.State)
	assert.Equal(t, 100, inventoryOf(t, s, 1))
	assert.Equal(t, 7, inventoryOf(t, s, 5))
}

// ============================================
// Session Store
// ============================================

func TestPostgresSessionStore_CreateFindUpdate(t *testing.T) {
	s := NewPostgresSessionStore(newPostgresTestDB(t))
	ctx := context.Background()

	created, err := s.Create(ctx, "10.0.0.3", "agent")
	require.NoError(t, err)

	found, ok, err := s.Find(ctx, created.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "10.0.0.3", found.IPAddress)
	assert.Equal(t, int64(1), found.Version)

	version, err := s.UpdateCart(ctx, created.ID, found.Version, cart.Cart{{ProductID: 2, Quantity: 4}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), version)

	found, _, err = s.Find(ctx, created.ID)
	require.NoError(t, err)
	c, err := session.DecodeCart(found.CartData)
	require.NoError(t, err)
	assert.Equal(t, cart.Cart{{ProductID: 2, Quantity: 4}}, c)
	assert.Equal(t, version, found.Version)
}

func TestPostgresSessionStore_UpdateCartMissingRow(t *testing.T) {
	s := NewPostgresSessionStore(newPostgresTestDB(t))

	_, err := s.UpdateCart(context.Background(), uuid.New(), 1, cart.Cart{})

	assert.ErrorIs(t, err, session.ErrSessionRowMissing)
	assert.NotErrorIs(t, err, session.ErrCartConflict)
}

func TestPostgresSessionStore_ConcurrentWritesAtOneVersion(t *testing.T) {
	s := NewPostgresSessionStore(newPostgresTestDB(t))
	ctx := context.Background()
	created, err := s.Create(ctx, "", "")
	require.NoError(t, err)

	const writers = 4
	var wg sync.WaitGroup
	errs := make([]error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.UpdateCart(ctx, created.ID, created.Version, cart.Cart{{ProductID: i + 1, Quantity: 1}})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, session.ErrCartConflict)
	}
	assert.Equal(t, 1, succeeded)
	found, _, err := s.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Version+1, found.Version)
}
