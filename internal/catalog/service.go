package catalog

import (
	"context"
	"net/url"
	"strings"

	"github.com/example/ec-storefront/internal/domain/product"
)

const DefaultPerPage = 4

// BrowseParams are the raw listing query parameters.
type BrowseParams struct {
	Page     int
	Category string
	Tag      string
	Search   string
	Sort     string
}

// Page is one page of a filtered product listing.
type Page struct {
	Products    []product.View    `json:"products"`
	Categories  []string          `json:"categories"`
	CurrentPage int               `json:"current_page"`
	TotalPages  int               `json:"total_pages"`
	TotalItems  int               `json:"total_items"`
	PerPage     int               `json:"per_page"`
	FilterQuery string            `json:"filter_query"`
	RequestArgs map[string]string `json:"request_args"`
}

type Service struct {
	products product.Repository
	cache    *CategoryCache
	perPage  int
}

func NewService(products product.Repository, cache *CategoryCache, perPage int) *Service {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	return &Service{products: products, cache: cache, perPage: perPage}
}

// Browse returns the requested page. Pages below 1 are treated as 1; a page
// past the end is returned empty with the real page count.
func (s *Service) Browse(ctx context.Context, params BrowseParams) (*Page, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	filter := product.Filter{
		Category: params.Category,
		Tag:      params.Tag,
		Search:   params.Search,
	}.Normalize()
	sort := product.ParseSort(params.Sort)

	total, err := s.products.Count(ctx, filter)
	if err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx, filter, sort, s.perPage, (page-1)*s.perPage)
	if err != nil {
		return nil, err
	}

	return &Page{
		Products:    product.NewViews(products),
		Categories:  s.cache.Categories(),
		CurrentPage: page,
		TotalPages:  TotalPages(total, s.perPage),
		TotalItems:  total,
		PerPage:     s.perPage,
		FilterQuery: FilterQuery(params),
		RequestArgs: map[string]string{
			"category": params.Category,
			"search":   params.Search,
			"sort":     params.Sort,
			"tag":      params.Tag,
		},
	}, nil
}

// Product returns a single product view.
func (s *Service) Product(ctx context.Context, id int) (*product.View, error) {
	p, ok, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, product.ErrProductNotFound
	}
	v := product.NewView(p)
	return &v, nil
}

func (s *Service) Categories() []string {
	return s.cache.Categories()
}

// TotalPages is ceil(total/perPage), never less than 1.
func TotalPages(total, perPage int) int {
	if total <= 0 {
		return 1
	}
	return (total + perPage - 1) / perPage
}

// FilterQuery rebuilds the active filters as a query string so that
// pagination links keep them. Blank values are omitted and keys are sorted.
func FilterQuery(params BrowseParams) string {
	v := url.Values{}
	for key, value := range map[string]string{
		"category": params.Category,
		"sort":     params.Sort,
		"search":   params.Search,
		"tag":      params.Tag,
	} {
		if strings.TrimSpace(value) != "" {
			v.Set(key, value)
		}
	}
	return v.Encode()
}
