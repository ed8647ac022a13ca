package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/crmsync"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	apphttp "leadrouter_backend/internal/http"
	"leadrouter_backend/internal/http/router"
	"leadrouter_backend/internal/leads"
	"leadrouter_backend/internal/reconcile"
	"leadrouter_backend/internal/routing"
	"leadrouter_backend/internal/scheduler"
	"leadrouter_backend/internal/vendors"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/db"
	"leadrouter_backend/platform/logger"
	"leadrouter_backend/platform/retry"
	"leadrouter_backend/platform/validator"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	accountID, err := uuid.Parse(cfg.CRMAccountID)
	if err != nil {
		log.Error("invalid CRM_ACCOUNT_ID", "error", err)
		panic("invalid CRM_ACCOUNT_ID: " + err.Error())
	}

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()
	clk := clock.System{}

	// ZIP resolver, cached in redis when available
	var geoLookup coverage.GeoLookup = geo.NewHTTPResolver(cfg.GeoBaseURL, log)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			panic("invalid REDIS_URL: " + err.Error())
		}
		geoLookup = geo.NewCachedResolver(geoLookup, redis.NewClient(opt), cfg.GeoCacheTTL, log)
		log.Info("geo cache enabled", "ttl", cfg.GeoCacheTTL)
	}

	// CRM source-of-truth client
	crmClient := crm.NewHTTPClient(cfg.CRMBaseURL, cfg.CRMAPIKey, crm.DefaultFieldMap(), log)

	// Background-job client for async admin reconciliation triggers
	var enqueuer reconcile.Enqueuer
	if cfg.RedisURL != "" {
		schedClient, err := scheduler.NewClient(cfg)
		if err != nil {
			log.Error("failed to create scheduler client", "error", err)
			panic("failed to create scheduler client: " + err.Error())
		}
		defer schedClient.Close()
		enqueuer = schedClient
		log.Info("async reconciliation trigger enabled")
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	vendorsModule := vendors.NewModule(pool, accountID, val)
	leadsModule := leads.NewModule(pool, geoLookup, log, accountID, val)
	routingModule := routing.NewModule(
		leadsModule.Repository(),
		vendorsModule.Repository(),
		eventBus,
		log,
		clk,
		accountID,
		cfg.RoutingTopK,
		cfg.MaxReassignments,
		val,
	)
	reconcileModule := reconcile.NewModule(
		crmClient,
		vendorsModule.Repository(),
		leadsModule.Repository(),
		geoLookup,
		eventBus,
		log,
		clk,
		accountID,
		enqueuer,
	)

	// CRM push subscriber: assignments flow back to the source of truth
	// off the request path.
	pushPolicy := retry.DefaultPolicy()
	if cfg.CRMPushMaxAttempts > 0 {
		pushPolicy.MaxAttempts = cfg.CRMPushMaxAttempts
	}
	crmsync.NewSubscriber(crmClient, log, pushPolicy).Register(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			vendorsModule,
			leadsModule,
			routingModule,
			reconcileModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return lastErr
}
