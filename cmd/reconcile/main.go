package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"leadrouter_backend/internal/coverage"
	"leadrouter_backend/internal/crm"
	"leadrouter_backend/internal/events"
	"leadrouter_backend/internal/geo"
	leadrepo "leadrouter_backend/internal/leads/repository"
	"leadrouter_backend/internal/reconcile"
	vendorrepo "leadrouter_backend/internal/vendors/repository"
	"leadrouter_backend/platform/clock"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/db"
	"leadrouter_backend/platform/logger"

	"github.com/google/uuid"
)

// One-shot reconciliation runner for operators and cron jobs outside the
// asynq worker.
func main() {
	entity := flag.String("entity", "all", "entity to reconcile: vendors, leads, or all")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	accountID, err := uuid.Parse(cfg.CRMAccountID)
	if err != nil {
		log.Error("invalid CRM_ACCOUNT_ID", "error", err)
		os.Exit(1)
	}

	geoLookup := geo.NewHTTPResolver(cfg.GeoBaseURL, log)
	crmClient := crm.NewHTTPClient(cfg.CRMBaseURL, cfg.CRMAPIKey, crm.DefaultFieldMap(), log)

	engine := reconcile.New(
		crmClient,
		vendorrepo.New(pool),
		leadrepo.New(pool),
		coverage.NewNormalizer(geoLookup),
		geoLookup,
		events.NewInMemoryBus(log),
		log,
		clock.System{},
		accountID,
	)

	failed := false
	if *entity == "vendors" || *entity == "all" {
		if _, err := engine.ReconcileVendors(ctx); err != nil {
			log.Error("vendor reconciliation failed", "error", err)
			failed = true
		}
	}
	if *entity == "leads" || *entity == "all" {
		if _, err := engine.ReconcileLeads(ctx); err != nil {
			log.Error("lead reconciliation failed", "error", err)
			failed = true
		}
	}

	if failed {
		os.Exit(1)
	}
}
