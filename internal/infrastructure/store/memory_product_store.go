package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/pkg/errors"
)

// MemoryProductStore is an in-memory inventory store. Transactions hold the
// store lock for their whole duration and stage writes until commit.
type MemoryProductStore struct {
	mu       sync.RWMutex
	products map[int]product.Product
	nextID   int
	now      func() time.Time
}

func NewMemoryProductStore() *MemoryProductStore {
	return &MemoryProductStore{
		products: make(map[int]product.Product),
		nextID:   1,
		now:      time.Now,
	}
}

func (s *MemoryProductStore) Get(ctx context.Context, id int) (*product.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (s *MemoryProductStore) List(ctx context.Context, filter product.Filter, sort product.Sort, limit, offset int) ([]product.Product, error) {
	s.mu.RLock()
	matched := s.matching(filter)
	s.mu.RUnlock()

	sortProducts(matched, sort)
	if offset >= len(matched) {
		return []product.Product{}, nil
	}
	end := offset + limit
	if limit < 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[offset:end], nil
}

func (s *MemoryProductStore) Count(ctx context.Context, filter product.Filter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matching(filter)), nil
}

func (s *MemoryProductStore) Categories(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	categories := []string{}
	for _, p := range s.products {
		if !seen[p.Category] {
			seen[p.Category] = true
			categories = append(categories, p.Category)
		}
	}
	sort.Strings(categories)
	return categories, nil
}

func (s *MemoryProductStore) Insert(ctx context.Context, n product.NewProduct) (*product.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := n.Build(s.nextID, s.now().UTC())
	s.products[p.ID] = p
	s.nextID++
	return &p, nil
}

func (s *MemoryProductStore) Save(ctx context.Context, p *product.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[p.ID]; !ok {
		return errors.Wrapf(product.ErrProductNotFound, "save product %d", p.ID)
	}
	s.products[p.ID] = *p
	return nil
}

func (s *MemoryProductStore) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return errors.Wrapf(product.ErrProductNotFound, "delete product %d", id)
	}
	delete(s.products, id)
	return nil
}

func (s *MemoryProductStore) WithinTx(ctx context.Context, fn func(tx checkout.InventoryTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memoryInventoryTx{products: s.products, staged: make(map[int]int)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for id, inventory := range tx.staged {
		p := s.products[id]
		p.Inventory = inventory
		s.products[id] = p
	}
	return nil
}

type memoryInventoryTx struct {
	products map[int]product.Product
	staged   map[int]int
}

func (t *memoryInventoryTx) Inventory(ctx context.Context, id int) (int, error) {
	if inventory, ok := t.staged[id]; ok {
		return inventory, nil
	}
	p, ok := t.products[id]
	if !ok {
		return 0, product.ErrProductNotFound
	}
	return p.Inventory, nil
}

func (t *memoryInventoryTx) Decrement(ctx context.Context, id int, amount int) error {
	current, err := t.Inventory(ctx, id)
	if err != nil {
		return err
	}
	if current < amount {
		return errors.Wrapf(checkout.ErrInsufficientInventory, "decrement product %d", id)
	}
	t.staged[id] = current - amount
	return nil
}

func (s *MemoryProductStore) matching(filter product.Filter) []product.Product {
	out := []product.Product{}
	for _, p := range s.products {
		if filter.Matches(&p) {
			out = append(out, p)
		}
	}
	return out
}

func sortProducts(products []product.Product, by product.Sort) {
	sort.Slice(products, func(i, j int) bool {
		a, b := products[i], products[j]
		switch by {
		case product.SortAlpha:
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case product.SortPriceHigh:
			if a.Price != b.Price {
				return a.Price > b.Price
			}
		default:
			if a.Price != b.Price {
				return a.Price < b.Price
			}
		}
		return a.ID < b.ID
	})
}

var (
	_ product.Repository      = (*MemoryProductStore)(nil)
	_ checkout.InventoryStore = (*MemoryProductStore)(nil)
)
