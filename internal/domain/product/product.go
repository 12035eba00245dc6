package product

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const AggregateType = "Product"

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrInvalidPrice     = errors.New("price must not be negative")
	ErrInvalidName      = errors.New("name is required")
	ErrInvalidInventory = errors.New("inventory must not be negative")
	ErrInvalidCategory  = errors.New("category is required")
	ErrInvalidDiscount  = errors.New("discount percent must be between 0 and 100")
)

// Product is a catalog entry. Price is in cents; Tags, Keywords and
// GalleryURLs are stored as comma-delimited text.
type Product struct {
	ID              int        `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Price           int64      `db:"price" json:"price"`
	Inventory       int        `db:"inventory" json:"inventory"`
	Category        string     `db:"category" json:"category"`
	Tags            string     `db:"tags" json:"tags,omitempty"`
	Keywords        string     `db:"keywords" json:"keywords,omitempty"`
	ThumbnailURL    string     `db:"thumbnail_url" json:"thumbnail_url,omitempty"`
	GalleryURLs     string     `db:"gallery_urls" json:"gallery_urls,omitempty"`
	Tagline         string     `db:"tagline" json:"tagline,omitempty"`
	Description     string     `db:"description" json:"description,omitempty"`
	DiscountPercent *float32   `db:"discount_percent" json:"discount_percent,omitempty"`
	AddedDate       time.Time  `db:"added_date" json:"added_date"`
	RestockDate     *time.Time `db:"restock_date" json:"restock_date,omitempty"`
}

// NewProduct carries the fields an admin supplies when inserting a product.
type NewProduct struct {
	Name            string     `json:"name"`
	Price           int64      `json:"price"`
	Inventory       int        `json:"inventory"`
	Category        string     `json:"category"`
	Tags            string     `json:"tags"`
	Keywords        string     `json:"keywords"`
	ThumbnailURL    string     `json:"thumbnail_url"`
	GalleryURLs     string     `json:"gallery_urls"`
	Tagline         string     `json:"tagline"`
	Description     string     `json:"description"`
	DiscountPercent *float32   `json:"discount_percent,omitempty"`
	RestockDate     *time.Time `json:"restock_date,omitempty"`
}

func (n NewProduct) Validate() error {
	return validate(n.Name, n.Category, n.Price, n.Inventory, n.DiscountPercent)
}

func (p *Product) Validate() error {
	return validate(p.Name, p.Category, p.Price, p.Inventory, p.DiscountPercent)
}

func validate(name, category string, price int64, inventory int, discount *float32) error {
	if strings.TrimSpace(name) == "" {
		return ErrInvalidName
	}
	if strings.TrimSpace(category) == "" {
		return ErrInvalidCategory
	}
	if price < 0 {
		return ErrInvalidPrice
	}
	if inventory < 0 {
		return ErrInvalidInventory
	}
	if discount != nil && (*discount < 0 || *discount > 100) {
		return ErrInvalidDiscount
	}
	return nil
}

// Build turns an insert request into a Product with the given id and added date.
func (n NewProduct) Build(id int, addedAt time.Time) Product {
	return Product{
		ID:              id,
		Name:            n.Name,
		Price:           n.Price,
		Inventory:       n.Inventory,
		Category:        n.Category,
		Tags:            n.Tags,
		Keywords:        n.Keywords,
		ThumbnailURL:    n.ThumbnailURL,
		GalleryURLs:     n.GalleryURLs,
		Tagline:         n.Tagline,
		Description:     n.Description,
		DiscountPercent: n.DiscountPercent,
		AddedDate:       addedAt,
		RestockDate:     n.RestockDate,
	}
}

func (p *Product) TagList() []string { return splitList(p.Tags) }
func (p *Product) KeywordList() []string { return splitList(p.Keywords) }
func (p *Product) GalleryList() []string { return splitList(p.GalleryURLs) }

// UnitPrice returns the price after applying DiscountPercent, rounded to the cent.
func (p *Product) UnitPrice() Price {
	if p.DiscountPercent == nil || *p.DiscountPercent <= 0 {
		return Price(p.Price)
	}
	pct := decimal.NewFromFloat32(*p.DiscountPercent)
	factor := decimal.NewFromInt(100).Sub(pct).Div(decimal.NewFromInt(100))
	discounted := decimal.NewFromInt(p.Price).Mul(factor).Round(0)
	return Price(discounted.IntPart())
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
