package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Admin performs back-office product edits. Every successful edit refreshes
// the local category cache and announces the change so other instances
// can refresh theirs.
type Admin struct {
	products  product.Repository
	cache     *CategoryCache
	publisher kafka.Publisher
}

func NewAdmin(products product.Repository, cache *CategoryCache, publisher kafka.Publisher) *Admin {
	return &Admin{products: products, cache: cache, publisher: publisher}
}

func (a *Admin) CreateProduct(ctx context.Context, n product.NewProduct) (*product.Product, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	p, err := a.products.Insert(ctx, n)
	if err != nil {
		return nil, err
	}

	a.afterChange(ctx, p.ID, product.EventProductCreated, product.ProductCreated{
		ProductID: p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Inventory: p.Inventory,
		CreatedAt: time.Now(),
	})
	return p, nil
}

// UpdateProduct replaces every editable field of product id. The added
// date is preserved.
func (a *Admin) UpdateProduct(ctx context.Context, id int, n product.NewProduct) (*product.Product, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	existing, ok, err := a.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(product.ErrProductNotFound, "product %d", id)
	}

	p := n.Build(id, existing.AddedDate)
	if err := a.products.Save(ctx, &p); err != nil {
		return nil, err
	}

	a.afterChange(ctx, id, product.EventProductUpdated, product.ProductUpdated{
		ProductID: id,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Inventory: p.Inventory,
		UpdatedAt: time.Now(),
	})
	return &p, nil
}

func (a *Admin) DeleteProduct(ctx context.Context, id int) error {
	if err := a.products.Delete(ctx, id); err != nil {
		return err
	}
	a.afterChange(ctx, id, product.EventProductDeleted, product.ProductDeleted{
		ProductID: id,
		DeletedAt: time.Now(),
	})
	return nil
}

// RefreshCategories reloads the category cache on demand.
func (a *Admin) RefreshCategories(ctx context.Context) ([]string, error) {
	if err := a.cache.Refresh(ctx); err != nil {
		return nil, err
	}
	return a.cache.Categories(), nil
}

func (a *Admin) afterChange(ctx context.Context, id int, eventType string, payload any) {
	if err := a.cache.Refresh(ctx); err != nil {
		log.WithError(err).WithField("product_id", id).Warn("category refresh after product change failed")
	}
	kafka.Emit(ctx, a.publisher, product.AggregateType, strconv.Itoa(id), eventType, payload)
}
