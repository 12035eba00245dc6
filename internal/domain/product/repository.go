package product

import (
	"context"
	"strings"
)

type Sort string

const (
	SortAlpha     Sort = "alpha"
	SortPriceLow  Sort = "price_low"
	SortPriceHigh Sort = "price_high"
)

// ParseSort maps a query value to a Sort, defaulting to ascending price.
func ParseSort(s string) Sort {
	switch Sort(strings.TrimSpace(s)) {
	case SortAlpha:
		return SortAlpha
	case SortPriceHigh:
		return SortPriceHigh
	default:
		return SortPriceLow
	}
}

// Filter narrows a product listing. Empty fields are ignored.
type Filter struct {
	Category string
	Tag      string
	Search   string
}

// Normalize trims every field so that whitespace-only values disable the filter.
func (f Filter) Normalize() Filter {
	return Filter{
		Category: strings.TrimSpace(f.Category),
		Tag:      strings.TrimSpace(f.Tag),
		Search:   strings.TrimSpace(f.Search),
	}
}

// Matches reports whether p passes the filter. Tag matching is a substring
// test against the raw tags text and search is case-insensitive over name,
// description and tagline, the same semantics the SQL store uses.
func (f Filter) Matches(p *Product) bool {
	f = f.Normalize()
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	if f.Tag != "" && !strings.Contains(p.Tags, f.Tag) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) &&
			!strings.Contains(strings.ToLower(p.Tagline), q) {
			return false
		}
	}
	return true
}

// Repository is the inventory store: the source of truth for products and stock.
type Repository interface {
	// Get returns the product with the given id; ok is false when it does not exist.
	Get(ctx context.Context, id int) (p *Product, ok bool, err error)
	List(ctx context.Context, filter Filter, sort Sort, limit, offset int) ([]Product, error)
	Count(ctx context.Context, filter Filter) (int, error)
	// Categories returns the distinct category labels.
	Categories(ctx context.Context) ([]string, error)

	Insert(ctx context.Context, p NewProduct) (*Product, error)
	// Save overwrites an existing product; ErrProductNotFound if the id is unknown.
	Save(ctx context.Context, p *Product) error
	// Delete removes a product; ErrProductNotFound if the id is unknown.
	Delete(ctx context.Context, id int) error
}
