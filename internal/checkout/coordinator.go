package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/example/ec-storefront/internal/session"
	log "github.com/sirupsen/logrus"
)

var (
	ErrEmptyCart             = errors.New("cart is empty")
	ErrInsufficientInventory = errors.New("insufficient inventory")
	ErrPaymentFailed         = errors.New("payment failed")
)

// InventoryTx is the view of the inventory store inside one transaction.
type InventoryTx interface {
	// Inventory returns the current stock for id and locks it until the
	// transaction ends. product.ErrProductNotFound if the id is unknown.
	Inventory(ctx context.Context, id int) (int, error)
	Decrement(ctx context.Context, id int, amount int) error
}

// InventoryStore runs fn in a single transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type InventoryStore interface {
	WithinTx(ctx context.Context, fn func(tx InventoryTx) error) error
}

// PaymentAuthorizer charges amount against an opaque payment token.
type PaymentAuthorizer interface {
	Authorize(ctx context.Context, amount product.Price, token string) error
}

type LineItem struct {
	ProductID int           `json:"product_id"`
	Name      string        `json:"name"`
	Quantity  int           `json:"quantity"`
	UnitPrice product.Price `json:"unit_price"`
	LineTotal product.Price `json:"line_total"`
}

// Result describes how far a checkout got. It is returned alongside any error.
type Result struct {
	State      State         `json:"state"`
	OrderTotal product.Price `json:"order_total"`
	Items      []LineItem    `json:"items"`
}

func (r *Result) transition(to State) {
	if !r.State.CanTransitionTo(to) {
		panic(fmt.Sprintf("checkout: invalid transition %s -> %s", r.State, to))
	}
	r.State = to
}

// maxRestoreAttempts bounds how often putting a cart back after a failed
// checkout is retried against concurrent cart writes.
const maxRestoreAttempts = 3

// Coordinator turns a session cart into an order: the cart is claimed, then
// payment is taken, then inventory is decremented all-or-nothing.
type Coordinator struct {
	products  product.Repository
	inventory InventoryStore
	sessions  session.Store
	payments  PaymentAuthorizer
	publisher kafka.Publisher
	metrics   *metrics.ServerMetrics
}

func NewCoordinator(
	products product.Repository,
	inventory InventoryStore,
	sessions session.Store,
	payments PaymentAuthorizer,
	publisher kafka.Publisher,
	m *metrics.ServerMetrics,
) *Coordinator {
	return &Coordinator{
		products:  products,
		inventory: inventory,
		sessions:  sessions,
		payments:  payments,
		publisher: publisher,
		metrics:   m,
	}
}

// Checkout places the order for sc's cart. The stored cart is emptied at
// sc.Version before payment, so of several checkouts racing on one session
// only one gets past the claim; the rest fail with session.ErrCartConflict.
// Any failure after the claim puts the cart back.
func (c *Coordinator) Checkout(ctx context.Context, sc *session.Context, paymentToken string) (*Result, error) {
	result := &Result{State: StateStarted}
	logger := log.WithField("session_id", sc.SessionID)

	if sc.Cart.IsEmpty() {
		return result, ErrEmptyCart
	}

	items := sortedItems(sc.Cart)
	lines, total, err := c.price(ctx, items)
	if err != nil {
		if errors.Is(err, product.ErrProductNotFound) {
			result.transition(StateInventoryInsufficient)
			c.fail(ctx, sc, result, err)
		}
		return result, err
	}
	result.Items = lines
	result.OrderTotal = total

	claimed, err := c.sessions.UpdateCart(ctx, sc.SessionID, sc.Version, cart.Cart{})
	if err != nil {
		logger.WithError(err).Warn("could not claim cart for checkout")
		return result, fmt.Errorf("failed to claim cart: %w", err)
	}
	original := sc.Cart

	result.transition(StatePaymentPending)
	if err := c.payments.Authorize(ctx, total, paymentToken); err != nil {
		result.transition(StatePaymentFailed)
		c.fail(ctx, sc, result, err)
		c.restoreCart(ctx, sc, claimed, original)
		logger.WithError(err).Warn("payment declined")
		return result, fmt.Errorf("%w: %v", ErrPaymentFailed, err)
	}
	result.transition(StatePaymentAuthorized)

	err = c.inventory.WithinTx(ctx, func(tx InventoryTx) error {
		return commitInventory(ctx, tx, items)
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientInventory) {
			result.transition(StateInventoryInsufficient)
			c.fail(ctx, sc, result, err)
			logger.WithError(err).Warn("checkout rolled back")
		}
		c.restoreCart(ctx, sc, claimed, original)
		return result, err
	}
	result.transition(StateInventoryCommitted)
	c.metrics.ObserveCheckout(string(result.State))
	sc.Cart = cart.Cart{}
	sc.Version = claimed

	now := time.Now()
	kafka.Emit(ctx, c.publisher, AggregateType, sc.SessionID.String(), EventCheckoutCompleted, CheckoutCompleted{
		SessionID:   sc.SessionID.String(),
		Items:       lines,
		Total:       total.Cents(),
		CompletedAt: now,
	})
	kafka.Emit(ctx, c.publisher, cart.AggregateType, sc.SessionID.String(), cart.EventCartCleared, cart.CartCleared{
		SessionID: sc.SessionID.String(),
		ClearedAt: now,
	})
	logger.WithField("total", total.String()).Info("checkout completed")

	return result, nil
}

// restoreCart writes original back over the claimed, empty cart. Items added
// to the cart while the checkout ran are kept alongside it.
func (c *Coordinator) restoreCart(ctx context.Context, sc *session.Context, claimed int64, original cart.Cart) {
	logger := log.WithField("session_id", sc.SessionID)
	restored, version := original, claimed
	for attempt := 1; ; attempt++ {
		next, err := c.sessions.UpdateCart(ctx, sc.SessionID, version, restored)
		if err == nil {
			sc.Cart = restored
			sc.Version = next
			return
		}
		if !errors.Is(err, session.ErrCartConflict) || attempt == maxRestoreAttempts {
			logger.WithError(err).Error("failed to restore cart after checkout")
			return
		}
		if err := sc.Reload(ctx, c.sessions); err != nil {
			logger.WithError(err).Error("failed to restore cart after checkout")
			return
		}
		restored = cart.Normalize(append(sc.Cart.Clone(), original...))
		version = sc.Version
	}
}

// price builds line items from live product prices.
func (c *Coordinator) price(ctx context.Context, items []cart.Item) ([]LineItem, product.Price, error) {
	lines := make([]LineItem, 0, len(items))
	var total product.Price
	for _, item := range items {
		p, ok, err := c.products.Get(ctx, item.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !ok {
			return nil, 0, fmt.Errorf("%w: product %d: %w", ErrInsufficientInventory, item.ProductID, product.ErrProductNotFound)
		}
		unit := p.UnitPrice()
		line := unit.Mul(item.Quantity)
		lines = append(lines, LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: unit,
			LineTotal: line,
		})
		total = total.Add(line)
	}
	return lines, total, nil
}

// commitInventory checks every line before decrementing any of them, so a
// shortfall anywhere leaves the transaction with no writes to roll back.
func commitInventory(ctx context.Context, tx InventoryTx, items []cart.Item) error {
	for _, item := range items {
		available, err := tx.Inventory(ctx, item.ProductID)
		if errors.Is(err, product.ErrProductNotFound) {
			return fmt.Errorf("%w: product %d: %w", ErrInsufficientInventory, item.ProductID, err)
		}
		if err != nil {
			return err
		}
		if available < item.Quantity {
			return fmt.Errorf("%w: product %d has %d, need %d", ErrInsufficientInventory, item.ProductID, available, item.Quantity)
		}
	}
	for _, item := range items {
		if err := tx.Decrement(ctx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func (c *Coordinator) fail(ctx context.Context, sc *session.Context, result *Result, cause error) {
	c.metrics.ObserveCheckout(string(result.State))
	kafka.Emit(ctx, c.publisher, AggregateType, sc.SessionID.String(), EventCheckoutFailed, CheckoutFailed{
		SessionID: sc.SessionID.String(),
		State:     result.State,
		Reason:    cause.Error(),
		FailedAt:  time.Now(),
	})
}

// sortedItems returns the cart lines in ascending product id order, the
// order rows are locked in.
func sortedItems(c cart.Cart) []cart.Item {
	items := make([]cart.Item, len(c))
	copy(items, c)
	sort.Slice(items, func(i, j int) bool { return items[i].ProductID < items[j].ProductID })
	return items
}
