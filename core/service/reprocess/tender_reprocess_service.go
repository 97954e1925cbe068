// Package reprocess re-scores the stored record set after taxonomy changes.
package reprocess

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
	portin "tender_server/core/port/in"
	"tender_server/core/port/out"
	"tender_server/core/service/classification"
	"tender_server/core/service/ingest"
	"tender_server/pkg/logger"
)

// VersionBumper is the slice of the settings service reprocessing needs.
type VersionBumper interface {
	Load(ctx context.Context, tenantID uuid.UUID) (*domain.SmartFilterConfig, error)
	BumpTaxonomyVersion(ctx context.Context, tenantID uuid.UUID) (int, error)
}

// Service runs bulk re-classification. It shares the ingestion guard:
// at most one run of either kind per process.
type Service struct {
	guard    *ingest.RunGuard
	records  out.RecordRepository
	results  out.ClassificationRepository
	runs     out.RunRepository
	settings VersionBumper
	rules    ingest.RuleLoader
	embedder ingest.Embedder
	engine   *classification.Engine
	events   out.EventPublisher
	log      *logger.Logger
}

// ServiceDeps holds dependencies for creating a reprocess Service.
type ServiceDeps struct {
	Guard    *ingest.RunGuard
	Records  out.RecordRepository
	Results  out.ClassificationRepository
	Runs     out.RunRepository
	Settings VersionBumper
	Rules    ingest.RuleLoader
	Embedder ingest.Embedder
	Events   out.EventPublisher
}

// NewService creates a reprocess service.
func NewService(deps *ServiceDeps) *Service {
	return &Service{
		guard:    deps.Guard,
		records:  deps.Records,
		results:  deps.Results,
		runs:     deps.Runs,
		settings: deps.Settings,
		rules:    deps.Rules,
		embedder: deps.Embedder,
		engine:   classification.NewEngine(),
		events:   deps.Events,
		log:      logger.WithField("component", "reprocess"),
	}
}

var _ portin.ReprocessService = (*Service)(nil)

// Reprocess bumps the taxonomy version exactly once, then re-scores every
// matching record at the new version. Individual record failures are counted
// and skipped; the run row is always finalized with the stats.
func (s *Service) Reprocess(ctx context.Context, req *portin.ReprocessRequest) (*domain.ReprocessResult, error) {
	if err := s.guard.TryAcquire("reprocess"); err != nil {
		return nil, err
	}
	defer s.guard.Release()

	version, err := s.settings.BumpTaxonomyVersion(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.settings.Load(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}
	cfg.TaxonomyVersion = version

	rules, err := s.rules.ActiveRules(ctx, req.TenantID)
	if err != nil {
		return nil, err
	}

	run := &domain.ReprocessingRun{
		TenantID:        req.TenantID,
		TaxonomyVersion: version,
		From:            req.From,
		To:              req.To,
		Portal:          req.Portal,
		TriggeredBy:     req.TriggeredBy,
		StartedAt:       time.Now(),
	}
	runID, err := s.runs.Create(ctx, run)
	if err != nil {
		return nil, err
	}

	log := s.log.WithField("tenant_id", req.TenantID.String()).WithField("run_id", runID)
	processed, errCount := 0, 0
	defer func() {
		finishedAt := time.Now()
		if err := s.runs.Finalize(ctx, runID, processed, errCount, finishedAt); err != nil {
			log.WithError(err).Error("run finalize failed")
		}
		s.publishCompleted(ctx, req.TenantID, runID, processed, errCount, finishedAt)
	}()

	filter := &domain.RecordFilter{TenantID: req.TenantID, Portal: req.Portal, From: req.From, To: req.To}
	records, err := s.records.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	for _, record := range records {
		if err := s.rescore(ctx, record, rules, cfg, now); err != nil {
			log.WithError(err).WithField("record_id", record.ID).Warn("record rescore failed")
			errCount++
			continue
		}
		processed++
	}

	log.Info("reprocess finished: version=%d processed=%d errors=%d", version, processed, errCount)
	return &domain.ReprocessResult{RunID: runID, Version: version, Processed: processed, Errors: errCount}, nil
}

// rescore reuses the stored embedding when present; only records that never
// got a vector are embedded here.
func (s *Service) rescore(ctx context.Context, record *domain.CanonicalRecord, rules []*domain.ActivityRule, cfg *domain.SmartFilterConfig, now time.Time) error {
	if len(record.Embedding) == 0 {
		vector, err := s.embedder.EmbedText(ctx, record.EmbeddingText())
		if err != nil {
			return err
		}
		record.Embedding = vector
		if err := s.records.SaveEmbedding(ctx, record.ID, vector); err != nil {
			return err
		}
	}
	result := s.engine.Classify(record, rules, cfg, now)
	return s.results.Upsert(ctx, result)
}

func (s *Service) publishCompleted(ctx context.Context, tenantID uuid.UUID, runID int64, processed, errCount int, finishedAt time.Time) {
	if s.events == nil {
		return
	}
	event := &out.RunCompletedEvent{
		TenantID:   tenantID.String(),
		Kind:       "reprocess",
		RunID:      runID,
		Processed:  processed,
		Errors:     errCount,
		FinishedAt: finishedAt,
	}
	if err := s.events.PublishRunCompleted(ctx, event); err != nil {
		s.log.WithError(err).Warn("run completed event publish failed")
	}
}
