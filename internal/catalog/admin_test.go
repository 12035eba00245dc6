package catalog_test

import (
	"context"
	"testing"

	"github.com/example/ec-storefront/internal/catalog"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/infrastructure/store/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type adminEnv struct {
	admin     *catalog.Admin
	products  *store.MemoryProductStore
	cache     *catalog.CategoryCache
	publisher *mocks.MockPublisher
}

func newTestAdmin(t *testing.T) *adminEnv {
	t.Helper()
	env := &adminEnv{
		products:  store.NewMemoryProductStore(),
		publisher: mocks.NewMockPublisher(),
	}
	env.cache = catalog.NewCategoryCache(env.products, nil)
	env.admin = catalog.NewAdmin(env.products, env.cache, env.publisher)
	return env
}

func TestAdmin_CreateProduct(t *testing.T) {
	env := newTestAdmin(t)

	p, err := env.admin.CreateProduct(context.Background(), product.NewProduct{
		Name: "Scone", Price: 250, Inventory: 12, Category: "Bakery",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, p.ID)
	assert.Equal(t, []string{"Bakery"}, env.cache.Categories())
	assert.Equal(t, []string{product.EventProductCreated}, env.publisher.EventTypes())
	assert.Equal(t, "1", env.publisher.Events()[0].AggregateID)
}

func TestAdmin_CreateProduct_Invalid(t *testing.T) {
	env := newTestAdmin(t)

	_, err := env.admin.CreateProduct(context.Background(), product.NewProduct{Name: "", Category: "Bakery"})

	assert.ErrorIs(t, err, product.ErrInvalidName)
	assert.Empty(t, env.publisher.Events())
}

func TestAdmin_UpdateProduct_KeepsAddedDate(t *testing.T) {
	env := newTestAdmin(t)
	ctx := context.Background()
	created, err := env.admin.CreateProduct(ctx, product.NewProduct{Name: "Scone", Price: 250, Inventory: 12, Category: "Bakery"})
	require.NoError(t, err)

	updated, err := env.admin.UpdateProduct(ctx, created.ID, product.NewProduct{
		Name: "Scone", Price: 300, Inventory: 3, Category: "Pastry",
	})

	require.NoError(t, err)
	assert.Equal(t, int64(300), updated.Price)
	assert.Equal(t, created.AddedDate, updated.AddedDate)
	assert.Equal(t, []string{"Pastry"}, env.cache.Categories())
	assert.Equal(t, []string{product.EventProductCreated, product.EventProductUpdated}, env.publisher.EventTypes())
}

func TestAdmin_UpdateProduct_Unknown(t *testing.T) {
	env := newTestAdmin(t)

	_, err := env.admin.UpdateProduct(context.Background(), 77, product.NewProduct{Name: "X", Category: "Y"})

	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestAdmin_DeleteProduct(t *testing.T) {
	env := newTestAdmin(t)
	ctx := context.Background()
	created, err := env.admin.CreateProduct(ctx, product.NewProduct{Name: "Scone", Price: 250, Inventory: 12, Category: "Bakery"})
	require.NoError(t, err)

	require.NoError(t, env.admin.DeleteProduct(ctx, created.ID))

	assert.Empty(t, env.cache.Categories())
	assert.ErrorIs(t, env.admin.DeleteProduct(ctx, created.ID), product.ErrProductNotFound)
	assert.Equal(t, []string{product.EventProductCreated, product.EventProductDeleted}, env.publisher.EventTypes())
}

func TestAdmin_RefreshCategories(t *testing.T) {
	env := newTestAdmin(t)
	ctx := context.Background()
	_, err := env.products.Insert(ctx, product.NewProduct{Name: "Tea", Category: "Beverage"})
	require.NoError(t, err)

	categories, err := env.admin.RefreshCategories(ctx)

	require.NoError(t, err)
	assert.Equal(t, []string{"Beverage"}, categories)
}
