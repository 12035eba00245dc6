package store

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

const Schema = `
CREATE TABLE IF NOT EXISTS product (
	id               SERIAL PRIMARY KEY,
	name             TEXT NOT NULL,
	price            BIGINT NOT NULL CHECK (price >= 0),
	inventory        INTEGER NOT NULL CHECK (inventory >= 0),
	category         TEXT NOT NULL,
	tags             TEXT,
	keywords         TEXT,
	thumbnail_url    TEXT,
	gallery_urls     TEXT,
	tagline          TEXT,
	description      TEXT,
	discount_percent REAL,
	added_date       TIMESTAMPTZ NOT NULL DEFAULT now(),
	restock_date     TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS product_category_idx ON product (category);

CREATE TABLE IF NOT EXISTS session (
	session_id UUID PRIMARY KEY,
	user_id    INTEGER,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	expires_at TIMESTAMPTZ NOT NULL,
	ip_address TEXT,
	user_agent TEXT,
	cart_data  JSONB,
	version    BIGINT NOT NULL DEFAULT 1
);

ALTER TABLE session ADD COLUMN IF NOT EXISTS version BIGINT NOT NULL DEFAULT 1;
`

// ConnectPostgres opens a pooled connection and verifies it with a ping.
func ConnectPostgres(ctx context.Context, connStr string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connStr)
	if err != nil {
		return nil, unavailable(err, "connect postgres")
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the product and session tables if they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, Schema); err != nil {
		return unavailable(err, "ensure schema")
	}
	return nil
}
