package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/example/ec-storefront/internal/domain/cart"
	"github.com/example/ec-storefront/internal/session"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PostgresSessionStore keeps sessions in the session table with the cart
// as a JSONB column.
type PostgresSessionStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewPostgresSessionStore(db *sqlx.DB) *PostgresSessionStore {
	return &PostgresSessionStore{db: db, now: time.Now}
}

func (s *PostgresSessionStore) Find(ctx context.Context, id uuid.UUID) (*session.Record, bool, error) {
	var r session.Record
	err := s.db.GetContext(ctx, &r,
		`SELECT session_id, user_id, created_at, updated_at, expires_at,
			COALESCE(ip_address, '') AS ip_address,
			COALESCE(user_agent, '') AS user_agent,
			cart_data, version
		 FROM session WHERE session_id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, unavailable(err, "find session %s", id)
	}
	return &r, true, nil
}

func (s *PostgresSessionStore) Create(ctx context.Context, ipAddress, userAgent string) (*session.Record, error) {
	r := session.NewRecord(ipAddress, userAgent, s.now().UTC())
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO session (session_id, user_id, created_at, updated_at, expires_at, ip_address, user_agent, cart_data, version)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.UserID, r.CreatedAt, r.UpdatedAt, r.ExpiresAt, r.IPAddress, r.UserAgent, string(r.CartData), r.Version,
	)
	if err != nil {
		return nil, unavailable(err, "create session")
	}
	return r, nil
}

// UpdateCart writes only when the row is still at version. When nothing
// matched, a second lookup tells a missing row from a lost race.
func (s *PostgresSessionStore) UpdateCart(ctx context.Context, id uuid.UUID, version int64, c cart.Cart) (int64, error) {
	data, err := session.EncodeCart(c)
	if err != nil {
		return 0, err
	}

	log.WithFields(log.Fields{"session_id": id, "lines": len(c), "version": version}).Debug("updating session cart")
	var next int64
	err = s.db.GetContext(ctx, &next,
		`UPDATE session SET cart_data = $1, updated_at = $2, version = version + 1
		 WHERE session_id = $3 AND version = $4
		 RETURNING version`,
		string(data), s.now().UTC(), id, version,
	)
	if err == nil {
		return next, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, unavailable(err, "update cart for session %s", id)
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists, `SELECT EXISTS (SELECT 1 FROM session WHERE session_id = $1)`, id); err != nil {
		return 0, unavailable(err, "check session %s", id)
	}
	if !exists {
		return 0, errors.Wrapf(session.ErrSessionRowMissing, "update cart for session %s", id)
	}
	return 0, errors.Wrapf(session.ErrCartConflict, "update cart for session %s at version %d", id, version)
}

var _ session.Store = (*PostgresSessionStore)(nil)
