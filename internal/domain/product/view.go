package product

const viewDateLayout = "2006-01-02 15:04:05"

// View is the JSON shape of a product for storefront responses.
type View struct {
	ProductID           int      `json:"product_id"`
	Name                string   `json:"name"`
	Price               float64  `json:"price"`
	PriceLabel          string   `json:"price_label"`
	SalePrice           float64  `json:"sale_price"`
	Category            string   `json:"category"`
	Tags                []string `json:"tags"`
	GalleryURLs         []string `json:"gallery_urls"`
	Tagline             string   `json:"tagline,omitempty"`
	DiscountPercent     *float32 `json:"discount_percent,omitempty"`
	ThumbnailURL        string   `json:"thumbnail_url,omitempty"`
	Description         string   `json:"description,omitempty"`
	InStock             bool     `json:"in_stock"`
	DateAdded           string   `json:"date_added,omitempty"`
	DateRestockExpected string   `json:"date_restock_expected,omitempty"`
}

func NewView(p *Product) View {
	v := View{
		ProductID:       p.ID,
		Name:            p.Name,
		Price:           Price(p.Price).Float(),
		PriceLabel:      Price(p.Price).String(),
		SalePrice:       p.UnitPrice().Float(),
		Category:        p.Category,
		Tags:            p.TagList(),
		GalleryURLs:     p.GalleryList(),
		Tagline:         p.Tagline,
		DiscountPercent: p.DiscountPercent,
		ThumbnailURL:    p.ThumbnailURL,
		Description:     p.Description,
		InStock:         p.Inventory > 0,
	}
	if !p.AddedDate.IsZero() {
		v.DateAdded = p.AddedDate.Format(viewDateLayout)
	}
	if p.RestockDate != nil {
		v.DateRestockExpected = p.RestockDate.Format(viewDateLayout)
	}
	return v
}

func NewViews(products []Product) []View {
	views := make([]View, 0, len(products))
	for i := range products {
		views = append(views, NewView(&products[i]))
	}
	return views
}
