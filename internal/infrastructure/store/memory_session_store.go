package store

import (
	"context"
	"sync"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/session"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]session.Record
	now      func() time.Time
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[uuid.UUID]session.Record),
		now:      time.Now,
	}
}

func (s *MemorySessionStore) Find(ctx context.Context, id uuid.UUID) (*session.Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.sessions[id]
	if !ok {
		return nil, false, nil
	}
	r.CartData = append([]byte(nil), r.CartData...)
	return &r, true, nil
}

func (s *MemorySessionStore) Create(ctx context.Context, ipAddress, userAgent string) (*session.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := session.NewRecord(ipAddress, userAgent, s.now().UTC())
	s.sessions[r.ID] = *r
	return r, nil
}

func (s *MemorySessionStore) UpdateCart(ctx context.Context, id uuid.UUID, version int64, c cart.Cart) (int64, error) {
	data, err := session.EncodeCart(c)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.sessions[id]
	if !ok {
		return 0, errors.Wrapf(session.ErrSessionRowMissing, "update cart for session %s", id)
	}
	if r.Version != version {
		return 0, errors.Wrapf(session.ErrCartConflict, "session %s at version %d, not %d", id, r.Version, version)
	}
	r.CartData = data
	r.UpdatedAt = s.now().UTC()
	r.Version++
	s.sessions[id] = r
	return r.Version, nil
}

var _ session.Store = (*MemorySessionStore)(nil)
