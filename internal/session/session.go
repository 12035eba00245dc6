package session

import (
	"context"
	"errors"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/google/uuid"
)

const (
	// CookieName is the cookie carrying the session token.
	CookieName = "session_id"
	// TTL is how long a session is considered live after creation.
	TTL = 7 * 24 * time.Hour
)

var (
	ErrSessionRowMissing = errors.New("session row missing")
	ErrMalformedCart     = errors.New("malformed cart data")
	// ErrCartConflict is returned by UpdateCart when the stored cart has
	// moved past the version the caller read.
	ErrCartConflict = errors.New("cart modified concurrently")
)

// Record is a persisted session row. CartData holds the serialized cart and
// Version counts cart writes.
type Record struct {
	ID        uuid.UUID `db:"session_id"`
	UserID    *int      `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	ExpiresAt time.Time `db:"expires_at"`
	IPAddress string    `db:"ip_address"`
	UserAgent string    `db:"user_agent"`
	CartData  []byte    `db:"cart_data"`
	Version   int64     `db:"version"`
}

// NewRecord builds an anonymous session with an empty cart.
func NewRecord(ipAddress, userAgent string, now time.Time) *Record {
	return &Record{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(TTL),
		IPAddress: ipAddress,
		UserAgent: userAgent,
		CartData:  []byte("[]"),
		Version:   1,
	}
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store persists session rows.
type Store interface {
	// Find returns the session with the given id; ok is false when there is none.
	// Expired rows are returned as well.
	Find(ctx context.Context, id uuid.UUID) (r *Record, ok bool, err error)
	Create(ctx context.Context, ipAddress, userAgent string) (*Record, error)
	// UpdateCart replaces the stored cart if the row is still at version and
	// returns the new version. ErrSessionRowMissing is returned when there
	// is no such row, ErrCartConflict when the version has moved on.
	UpdateCart(ctx context.Context, id uuid.UUID, version int64, c cart.Cart) (int64, error)
}

// Request carries what the resolver needs from an incoming HTTP request.
type Request struct {
	Token     string
	IPAddress string
	UserAgent string
}

// Context is the resolved per-request session. Version is the stored
// version Cart was read at.
type Context struct {
	SessionID  uuid.UUID
	WasCreated bool
	UserID     *int
	Cart       cart.Cart
	Version    int64
	IPAddress  string
	UserAgent  string
}

// ItemCount is the number of units in the cart.
func (c *Context) ItemCount() int {
	return c.Cart.ItemCount()
}
