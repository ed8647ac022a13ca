package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	leadrepo "leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/reconcile"
	"leadrouter_backend/internal/scheduler"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/db"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// The worker consumes reconciliation tasks from the queue and, when a
// cron is configured, enqueues them periodically. It shares the engine
// wiring with the API but carries no HTTP surface.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting worker", "env", cfg.Env, "queue", cfg.AsynqQueueName)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	accountID, err := uuid.Parse(cfg.CRMAccountID)
	if err != nil {
		log.Error("invalid CRM_ACCOUNT_ID", "error", err)
		panic("invalid CRM_ACCOUNT_ID: " + err.Error())
	}

	eventBus := events.NewInMemoryBus(log)

	var geoLookup coverage.GeoLookup = geo.NewHTTPResolver(cfg.GeoBaseURL, log)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Error("invalid REDIS_URL", "error", err)
			panic("invalid REDIS_URL: " + err.Error())
		}
		geoLookup = geo.NewCachedResolver(geoLookup, redis.NewClient(opt), cfg.GeoCacheTTL, log)
	}

	crmClient := crm.NewHTTPClient(cfg.CRMBaseURL, cfg.CRMAPIKey, crm.DefaultFieldMap(), log)

	engine := reconcile.New(
		crmClient,
		vendorrepo.New(pool),
		leadrepo.New(pool),
		coverage.NewNormalizer(geoLookup),
		geoLookup,
		eventBus,
		log,
		clock.System{},
		accountID,
	)

	worker, err := scheduler.NewWorker(cfg, engine, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("worker stopped")
}
