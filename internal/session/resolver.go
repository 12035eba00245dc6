package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Resolver maps an incoming request to a durable session, creating one
// when the presented token is missing, invalid or unknown.
type Resolver struct {
	store Store
	now   func() time.Time
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store, now: time.Now}
}

// Resolve returns the session for req. Lookup failures fall through to
// creating a fresh session; only a failed create is returned as an error.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Context, error) {
	record := r.lookup(ctx, req.Token)

	wasCreated := false
	if record == nil {
		created, err := r.store.Create(ctx, req.IPAddress, req.UserAgent)
		if err != nil {
			return nil, errors.Wrap(err, "failed to create session")
		}
		log.WithFields(log.Fields{
			"session_id": created.ID,
			"ip":         req.IPAddress,
		}).Info("created new session")
		record = created
		wasCreated = true
	}

	c, err := DecodeCart(record.CartData)
	if err != nil {
		log.WithError(err).WithField("session_id", record.ID).Warn("discarding unreadable cart")
	}

	return &Context{
		SessionID:  record.ID,
		WasCreated: wasCreated,
		UserID:     record.UserID,
		Cart:       c,
		Version:    record.Version,
		IPAddress:  req.IPAddress,
		UserAgent:  req.UserAgent,
	}, nil
}

func (r *Resolver) lookup(ctx context.Context, token string) *Record {
	if token == "" {
		log.Debug("no session cookie")
		return nil
	}
	id, err := uuid.Parse(token)
	if err != nil {
		log.WithField("token", token).Debug("unparsable session token")
		return nil
	}

	record, ok, err := r.store.Find(ctx, id)
	if err != nil {
		log.WithError(err).WithField("session_id", id).Error("session lookup failed")
		return nil
	}
	if !ok {
		log.WithField("session_id", id).Info("session not found")
		return nil
	}
	if record.Expired(r.now()) {
		// Expiry is not enforced on lookup.
		log.WithFields(log.Fields{
			"session_id": id,
			"expires_at": record.ExpiresAt,
		}).Debug("reusing expired session")
	}
	return record
}

// Reload replaces Cart and Version with what is currently stored for the
// session. An unreadable cart reloads as empty, as it does on Resolve.
func (c *Context) Reload(ctx context.Context, store Store) error {
	record, ok, err := store.Find(ctx, c.SessionID)
	if err != nil {
		return err
	}
	if !ok {
		return errors.Wrapf(ErrSessionRowMissing, "reload session %s", c.SessionID)
	}
	items, err := DecodeCart(record.CartData)
	if err != nil {
		log.WithError(err).WithField("session_id", c.SessionID).Warn("discarding unreadable cart")
	}
	c.Cart = items
	c.Version = record.Version
	return nil
}
