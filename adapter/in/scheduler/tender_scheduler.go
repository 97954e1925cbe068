// Package scheduler drives periodic pipeline runs with cron.
package scheduler

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	portin "tender_server/core/port/in"
	"tender_server/pkg/apperr"
)

// Config holds the cron expressions. Empty specs disable their job.
type Config struct {
	TenantID     uuid.UUID
	IngestSpec   string // e.g. "0 0 */6 * * *"
	DispatchSpec string
	CleanupSpec  string
	JobTimeout   time.Duration
}

// Cleaner is the slice of the record repository the cleanup job needs.
type Cleaner interface {
	CleanupDuplicates(ctx context.Context, tenantID uuid.UUID) (int64, error)
}

// Scheduler runs ingestion, dispatch and cleanup on cron schedules. Overlap
// protection comes from the shared run guard, not from the scheduler.
type Scheduler struct {
	cron      *cron.Cron
	cfg       *Config
	ingest    portin.IngestService
	recommend portin.RecommendService
	cleaner   Cleaner
	log       zerolog.Logger
}

// New creates a scheduler. Specs use six fields, seconds included.
func New(cfg *Config, ingest portin.IngestService, recommend portin.RecommendService, cleaner Cleaner) *Scheduler {
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Minute
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "scheduler").Logger()

	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		cfg:       cfg,
		ingest:    ingest,
		recommend: recommend,
		cleaner:   cleaner,
		log:       log,
	}
}

// Start registers the configured jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.cfg.IngestSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.IngestSpec, s.runIngest); err != nil {
			return err
		}
	}
	if s.cfg.DispatchSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.DispatchSpec, s.runDispatch); err != nil {
			return err
		}
	}
	if s.cfg.CleanupSpec != "" {
		if _, err := s.cron.AddFunc(s.cfg.CleanupSpec, s.runCleanup); err != nil {
			return err
		}
	}
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
	return nil
}

// Stop halts scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

func (s *Scheduler) runIngest() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	summary, err := s.ingest.RunIngestion(ctx, s.cfg.TenantID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeAlreadyRunning) {
			s.log.Warn().Msg("ingest skipped, run already in flight")
			return
		}
		s.log.Error().Err(err).Msg("scheduled ingest failed")
		return
	}
	s.log.Info().Int("stored", summary.Stored).Int("errors", summary.Errors).Msg("scheduled ingest finished")
}

func (s *Scheduler) runDispatch() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	result, err := s.recommend.Dispatch(ctx, &portin.DispatchRequest{TenantID: s.cfg.TenantID})
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled dispatch failed")
		return
	}
	if result.Skipped != "" {
		s.log.Info().Str("skipped", result.Skipped).Msg("scheduled dispatch skipped")
		return
	}
	s.log.Info().Int("created", result.Created).Msg("scheduled dispatch finished")
}

func (s *Scheduler) runCleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.JobTimeout)
	defer cancel()

	removed, err := s.cleaner.CleanupDuplicates(ctx, s.cfg.TenantID)
	if err != nil {
		s.log.Error().Err(err).Msg("scheduled cleanup failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("duplicate rows cleaned up")
	}
}
