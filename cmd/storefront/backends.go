package main

import (
	"context"
	"fmt"

	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/domain/product"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/session"
	"github.com/jmoiron/sqlx"
	log "github.com/sirupsen/logrus"
)

// productStore is a catalog that can also run inventory transactions.
type productStore interface {
	product.Repository
	checkout.InventoryStore
}

type backends struct {
	products productStore
	sessions session.Store
	db       *sqlx.DB
}

func (b *backends) Close() {
	if b.db != nil {
		b.db.Close()
	}
}

func openBackends(ctx context.Context, cfg *config.Config) (*backends, error) {
	b := &backends{}

	if cfg.NeedsPostgres() {
		db, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureSchema(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		b.db = db
		log.Info("connected to PostgreSQL")
	}

	switch cfg.StoreBackend {
	case config.BackendPostgres:
		b.products = store.NewPostgresProductStore(b.db)
	case config.BackendMemory:
		b.products = store.NewMemoryProductStore()
	default:
		b.Close()
		return nil, fmt.Errorf("%w: STORE_BACKEND=%q", config.ErrUnknownBackend, cfg.StoreBackend)
	}

	switch cfg.SessionBackend {
	case config.BackendPostgres:
		b.sessions = store.NewPostgresSessionStore(b.db)
	case config.BackendDynamoDB:
		client, err := store.NewDynamoDBClient(ctx, cfg.AWSRegion, cfg.DynamoDBEndpoint)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sessions = store.NewDynamoSessionStore(client, cfg.SessionTable)
	case config.BackendMemory:
		b.sessions = store.NewMemorySessionStore()
	default:
		b.Close()
		return nil, fmt.Errorf("%w: SESSION_BACKEND=%q", config.ErrUnknownBackend, cfg.SessionBackend)
	}

	log.WithFields(log.Fields{
		"store":   cfg.StoreBackend,
		"session": cfg.SessionBackend,
	}).Info("backends ready")
	return b, nil
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		log.WithField("level", cfg.LogLevel).Warn("unknown log level, using info")
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}
