package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/ec-storefront/internal/api"
	"github.com/example/ec-storefront/internal/auth"
	"github.com/example/ec-storefront/internal/catalog"
	"github.com/example/ec-storefront/internal/checkout"
	"github.com/example/ec-storefront/internal/config"
	"github.com/example/ec-storefront/internal/infrastructure/kafka"
	"github.com/example/ec-storefront/internal/infrastructure/store"
	"github.com/example/ec-storefront/internal/metrics"
	"github.com/example/ec-storefront/internal/payment"
	"github.com/example/ec-storefront/internal/session"
	"github.com/example/ec-storefront/internal/storefront"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
)

const jwtIssuer = "storefront"

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "run the HTTP API",
		Action: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			setupLogging(cfg)
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	b, err := openBackends(ctx, cfg)
	if err != nil {
		return err
	}
	defer b.Close()

	if cfg.SeedExamples {
		if _, err := store.SeedExampleProducts(ctx, b.products); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewServerMetrics(reg)

	cache := catalog.NewCategoryCache(b.products, m)
	if err := cache.Refresh(ctx); err != nil {
		log.WithError(err).Warn("initial category load failed, serving an empty list until the next refresh")
	}

	var publisher kafka.Publisher = kafka.NopPublisher{}
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer producer.Close()
		publisher = producer
	}

	var payments checkout.PaymentAuthorizer = payment.Stub{}
	if !cfg.PaymentStub {
		payments = payment.NewClient(cfg.PaymentURL, cfg.PaymentAPIKey, cfg.PaymentTimeout)
	} else {
		log.Warn("payment stub enabled, every charge with a token is approved")
	}

	jwtService := auth.NewJWTService(jwtSecret(cfg), jwtIssuer, cfg.JWTExpiry)
	if !cfg.AdminEnabled() {
		log.Warn("ADMIN_PASSWORD_HASH not set, admin login disabled")
	}

	handlers := api.NewHandlers(
		session.NewResolver(b.sessions),
		catalog.NewService(b.products, cache, cfg.PerPage),
		storefront.NewCartService(b.products, b.sessions, publisher, m),
		checkout.NewCoordinator(b.products, b.products, b.sessions, payments, publisher, m),
		api.Site{Name: cfg.SiteName, RootDomain: cfg.RootDomain, SecureCookies: cfg.CookieSecure},
	)
	adminHandlers := api.NewAdminHandlers(
		auth.NewAdminAuthenticator(cfg.AdminPasswordHash, jwtService),
		catalog.NewAdmin(b.products, cache, publisher),
		cfg.CookieSecure,
	)
	router := api.NewRouter(api.RouterConfig{
		Handlers:      handlers,
		AdminHandlers: adminHandlers,
		JWTService:    jwtService,
		Metrics:       m,
		Gatherer:      reg,
	})
	server := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.WithField("addr", server.Addr).Info("server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if cfg.KafkaEnabled {
		listener := catalog.NewListener(cache)
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaTopic, instanceGroupID(cfg.KafkaGroupID), listener.AggregateTypes()...)
		defer consumer.Close()

		g.Go(func() error {
			log.Info("starting catalog event consumer")
			if err := consumer.Consume(gctx, listener.HandleEvent); err != nil && gctx.Err() == nil {
				return fmt.Errorf("consumer error: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// jwtSecret falls back to a random per-process secret when admin login is
// disabled, so no externally minted token can validate.
func jwtSecret(cfg *config.Config) string {
	if cfg.JWTSecret != "" {
		return cfg.JWTSecret
	}
	return uuid.NewString() + uuid.NewString()
}

// instanceGroupID gives each instance its own consumer group so every
// instance sees every product event.
func instanceGroupID(base string) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = uuid.NewString()
	}
	return base + "-" + host
}
