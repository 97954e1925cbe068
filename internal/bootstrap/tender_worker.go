package bootstrap

import (
	"context"

	"github.com/google/uuid"

	"tender_server/adapter/in/scheduler"
	"tender_server/config"
	"tender_server/pkg/logger"
)

// Worker hosts the cron-driven pipeline jobs.
type Worker struct {
	scheduler *scheduler.Scheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Worker{deps: deps, ctx: ctx, cancel: cancel}

	if cfg.SchedulerEnabled {
		tenantID, err := uuid.Parse(cfg.DefaultTenantID)
		if err != nil {
			logger.Warn("DEFAULT_TENANT_ID missing or invalid, scheduled runs disabled")
		} else {
			w.scheduler = scheduler.New(&scheduler.Config{
				TenantID:     tenantID,
				IngestSpec:   cfg.IngestCronSpec,
				DispatchSpec: cfg.RecommendCron,
				CleanupSpec:  cfg.CleanupCronSpec,
			}, deps.IngestRunner, deps.RecommendService, deps.RecordRepo)
		}
	}

	return w, cleanup, nil
}

// Start runs the scheduler and blocks until Stop is called.
func (w *Worker) Start() {
	if w.scheduler != nil {
		if err := w.scheduler.Start(); err != nil {
			logger.Error("Failed to start scheduler: %v", err)
		}
	} else {
		logger.Info("Scheduler disabled, worker idle")
	}
	<-w.ctx.Done()
}

// Stop halts the scheduler and waits for in-flight jobs.
func (w *Worker) Stop() {
	w.cancel()
	if w.scheduler != nil {
		w.scheduler.Stop()
	}
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
