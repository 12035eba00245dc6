package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/session"
	"github.com/google/uuid"
)

// MockSessionStore is an in-memory session.Store that records calls
type MockSessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*session.Record

	// For tracking calls in tests
	FindCalls       []uuid.UUID
	CreateCalls     []CreateCall
	UpdateCartCalls []UpdateCartCall

	FindErr       error
	CreateErr     error
	UpdateCartErr error
}

// CreateCall records parameters passed to Create
type CreateCall struct {
	IPAddress string
	UserAgent string
}

// UpdateCartCall records parameters passed to UpdateCart
type UpdateCartCall struct {
	ID      uuid.UUID
	Version int64
	Cart    cart.Cart
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{
		sessions:        make(map[uuid.UUID]*session.Record),
		FindCalls:       make([]uuid.UUID, 0),
		CreateCalls:     make([]CreateCall, 0),
		UpdateCartCalls: make([]UpdateCartCall, 0),
	}
}

func (m *MockSessionStore) Find(ctx context.Context, id uuid.UUID) (*session.Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.FindCalls = append(m.FindCalls, id)
	if m.FindErr != nil {
		return nil, false, m.FindErr
	}

	r, ok := m.sessions[id]
	if !ok {
		return nil, false, nil
	}
	cp := *r
	return &cp, true, nil
}

func (m *MockSessionStore) Create(ctx context.Context, ipAddress, userAgent string) (*session.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.CreateCalls = append(m.CreateCalls, CreateCall{IPAddress: ipAddress, UserAgent: userAgent})
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}

	r := session.NewRecord(ipAddress, userAgent, time.Now())
	m.sessions[r.ID] = r
	cp := *r
	return &cp, nil
}

func (m *MockSessionStore) UpdateCart(ctx context.Context, id uuid.UUID, version int64, c cart.Cart) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateCartCalls = append(m.UpdateCartCalls, UpdateCartCall{ID: id, Version: version, Cart: c.Clone()})
	if m.UpdateCartErr != nil {
		return 0, m.UpdateCartErr
	}

	r, ok := m.sessions[id]
	if !ok {
		return 0, session.ErrSessionRowMissing
	}
	if r.Version != version {
		return 0, session.ErrCartConflict
	}
	data, err := session.EncodeCart(c)
	if err != nil {
		return 0, err
	}
	r.CartData = data
	r.UpdatedAt = time.Now()
	r.Version++
	return r.Version, nil
}

// AddSession stores a record directly for testing
func (m *MockSessionStore) AddSession(r *session.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.sessions[r.ID] = &cp
}

// Cart decodes the stored cart for id; nil when the session is unknown
func (m *MockSessionStore) Cart(id uuid.UUID) cart.Cart {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.sessions[id]
	if !ok {
		return nil
	}
	c, _ := session.DecodeCart(r.CartData)
	return c
}
