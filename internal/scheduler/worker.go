package scheduler

import (
	"context"
	"fmt"

	"leadrouter_backend/internal/reconcile"
	"leadrouter_backend/platform/config"
	"leadrouter_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes reconciliation tasks and runs the engine. Tasks arrive
// from the periodic scheduler on the configured cron and from async admin
// triggers enqueued through Client.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	engine    *reconcile.Service
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *reconcile.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskReconcileVendors, w.handleReconcileVendors)
	mux.HandleFunc(TaskReconcileLeads, w.handleReconcileLeads)

	if cron := cfg.GetReconcileCron(); cron != "" {
		sched := asynq.NewScheduler(opt, nil)

		vendorsTask, err := NewReconcileVendorsTask(ReconcilePayload{Trigger: "cron"})
		if err != nil {
			return nil, err
		}
		if _, err := sched.Register(cron, vendorsTask, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register vendors cron: %w", err)
		}

		leadsTask, err := NewReconcileLeadsTask(ReconcilePayload{Trigger: "cron"})
		if err != nil {
			return nil, err
		}
		if _, err := sched.Register(cron, leadsTask, asynq.Queue(queue)); err != nil {
			return nil, fmt.Errorf("register leads cron: %w", err)
		}

		w.scheduler = sched
	}

	return w, nil
}

func (w *Worker) handleReconcileVendors(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReconcilePayload(task)
	if err != nil {
		return err
	}

	summary, err := w.engine.ReconcileVendors(ctx)
	if err != nil {
		return err
	}

	w.log.Info("vendor reconciliation task done",
		"trigger", payload.Trigger,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"added", summary.Added,
		"errors", summary.Errors,
	)
	return nil
}

func (w *Worker) handleReconcileLeads(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReconcilePayload(task)
	if err != nil {
		return err
	}

	summary, err := w.engine.ReconcileLeads(ctx)
	if err != nil {
		return err
	}

	w.log.Info("lead reconciliation task done",
		"trigger", payload.Trigger,
		"updated", summary.Updated,
		"deleted", summary.Deleted,
		"added", summary.Added,
		"errors", summary.Errors,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	if w.scheduler != nil {
		go func() {
			if err := w.scheduler.Run(); err != nil {
				w.log.Error("periodic scheduler stopped", "error", err)
			}
		}()
	}

	go func() {
		<-ctx.Done()
		if w.scheduler != nil {
			w.scheduler.Shutdown()
		}
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
