package storefront

import (
	"context"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/example/ec-storefront/internal/session"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// maxCartAttempts bounds how often a cart update is replayed after losing a
// race with another request on the same session.
const maxCartAttempts = 5

// CartLine is one cart item joined with its live product.
type CartLine struct {
	Product   product.View  `json:"product"`
	Quantity  int           `json:"quantity"`
	UnitPrice product.Price `json:"unit_price"`
	LineTotal product.Price `json:"line_total"`
}

type CartView struct {
	Lines     []CartLine    `json:"lines"`
	ItemCount int           `json:"item_count"`
	Subtotal  product.Price `json:"subtotal"`
}

// CartService mutates and reads the cart stored on a session.
type CartService struct {
	products  product.Repository
	sessions  session.Store
	publisher kafka.Publisher
	metrics   *metrics.ServerMetrics
}

func NewCartService(products product.Repository, sessions session.Store, publisher kafka.Publisher, m *metrics.ServerMetrics) *CartService {
	return &CartService{
		products:  products,
		sessions:  sessions,
		publisher: publisher,
		metrics:   m,
	}
}

// Update applies delta to productID in sc's cart against live inventory and
// persists the result. sc.Cart is replaced only after the write succeeds.
// When another request wrote the cart first, the stored cart is reloaded and
// delta applied to it again.
func (s *CartService) Update(ctx context.Context, sc *session.Context, productID, delta int) (cart.Cart, error) {
	updated, err := s.update(ctx, sc, productID, delta)
	if err != nil {
		s.metrics.ObserveCartUpdate("error")
		return nil, err
	}
	s.metrics.ObserveCartUpdate("ok")
	return updated, nil
}

func (s *CartService) update(ctx context.Context, sc *session.Context, productID, delta int) (cart.Cart, error) {
	p, ok, err := s.products.Get(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.Wrapf(product.ErrProductNotFound, "product %d", productID)
	}

	limit := cart.MaxAllowed(p.Inventory)
	var updated cart.Cart
	for attempt := 1; ; attempt++ {
		updated = cart.Reconcile(sc.Cart, productID, delta, limit)
		version, err := s.sessions.UpdateCart(ctx, sc.SessionID, sc.Version, updated)
		if err == nil {
			sc.Cart = updated
			sc.Version = version
			break
		}
		if !errors.Is(err, session.ErrCartConflict) || attempt == maxCartAttempts {
			return nil, err
		}
		log.WithFields(log.Fields{
			"session_id": sc.SessionID,
			"attempt":    attempt,
		}).Debug("cart changed concurrently, reloading")
		if err := sc.Reload(ctx, s.sessions); err != nil {
			return nil, err
		}
	}

	log.WithFields(log.Fields{
		"session_id": sc.SessionID,
		"product_id": productID,
		"delta":      delta,
		"quantity":   updated.Quantity(productID),
	}).Debug("cart updated")
	kafka.Emit(ctx, s.publisher, cart.AggregateType, sc.SessionID.String(), cart.EventCartUpdated, cart.CartUpdated{
		SessionID: sc.SessionID.String(),
		ProductID: productID,
		Delta:     delta,
		Quantity:  updated.Quantity(productID),
		Items:     updated,
		UpdatedAt: time.Now(),
	})
	return updated, nil
}

// View joins the cart with current product data. Lines whose product has
// been deleted are left out.
func (s *CartService) View(ctx context.Context, sc *session.Context) (*CartView, error) {
	view := &CartView{Lines: []CartLine{}}
	for _, item := range sc.Cart {
		p, ok, err := s.products.Get(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		unit := p.UnitPrice()
		line := CartLine{
			Product:   product.NewView(p),
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: unit.Mul(item.Quantity),
		}
		view.Lines = append(view.Lines, line)
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view, nil
}
