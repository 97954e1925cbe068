// Package ingest runs the portal ingestion pipeline: fetch, dedup, store,
// embed, classify.
package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tender_server/core/domain"
	portin "tender_server/core/port/in"
	"tender_server/core/port/out"
	"tender_server/core/service/classification"
	"tender_server/pkg/apperr"
	"tender_server/pkg/logger"
)

// ConfigLoader is the slice of the settings service the runner needs.
type ConfigLoader interface {
	Load(ctx context.Context, tenantID uuid.UUID) (*domain.SmartFilterConfig, error)
}

// RuleLoader is the slice of the taxonomy service the runner needs.
type RuleLoader interface {
	ActiveRules(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error)
}

// Embedder is the slice of the embedding service the runner needs.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Runner executes ingestion runs over the registered portal adapters.
// Everything inside a run is sequential; concurrency safety comes from the
// shared guard, not from locking inside the pipeline.
type Runner struct {
	guard     *RunGuard
	adapters  []out.PortalAdapter
	records   out.RecordRepository
	results   out.ClassificationRepository
	config    ConfigLoader
	rules     RuleLoader
	embedder  Embedder
	engine    *classification.Engine
	snapshots out.SnapshotArchive
	events    out.EventPublisher
	log       *logger.Logger
}

// RunnerDeps holds dependencies for creating a Runner. Snapshots and Events
// are optional; nil disables them.
type RunnerDeps struct {
	Guard     *RunGuard
	Adapters  []out.PortalAdapter
	Records   out.RecordRepository
	Results   out.ClassificationRepository
	Config    ConfigLoader
	Rules     RuleLoader
	Embedder  Embedder
	Snapshots out.SnapshotArchive
	Events    out.EventPublisher
}

// NewRunner creates an ingestion runner.
func NewRunner(deps *RunnerDeps) *Runner {
	return &Runner{
		guard:     deps.Guard,
		adapters:  deps.Adapters,
		records:   deps.Records,
		results:   deps.Results,
		config:    deps.Config,
		rules:     deps.Rules,
		embedder:  deps.Embedder,
		engine:    classification.NewEngine(),
		snapshots: deps.Snapshots,
		events:    deps.Events,
		log:       logger.WithField("component", "ingest"),
	}
}

var _ portin.IngestService = (*Runner)(nil)

// RunIngestion executes one full pass over the enabled adapters. A record
// failing at any stage is counted and skipped; only ALREADY_RUNNING and a
// failed config load abort the whole run.
func (r *Runner) RunIngestion(ctx context.Context, tenantID uuid.UUID) (*portin.IngestSummary, error) {
	return r.RunIngestionRange(ctx, tenantID, nil)
}

// RunIngestionRange is RunIngestion bounded by a publication window. The
// window reaches adapters implementing out.RangedPortalAdapter; the rest
// fetch in full.
func (r *Runner) RunIngestionRange(ctx context.Context, tenantID uuid.UUID, window *portin.IngestWindow) (*portin.IngestSummary, error) {
	if err := r.guard.TryAcquire("ingest"); err != nil {
		return nil, err
	}
	defer r.guard.Release()

	cfg, err := r.config.Load(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	rules, err := r.rules.ActiveRules(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	summary := &portin.IngestSummary{StartedAt: time.Now()}
	dedup := NewDeduplicator()
	log := r.log.WithField("tenant_id", tenantID.String())

	for _, adapter := range r.adapters {
		if !adapter.Enabled() {
			continue
		}
		adapterSummary := r.runAdapter(ctx, tenantID, adapter, window, dedup, rules, cfg, log)
		summary.Adapters = append(summary.Adapters, adapterSummary)
		summary.Stored += adapterSummary.Stored
		summary.Errors += adapterSummary.Errors
	}
	summary.FinishedAt = time.Now()

	log.WithDuration(summary.FinishedAt.Sub(summary.StartedAt)).
		Info("ingestion run finished: stored=%d errors=%d", summary.Stored, summary.Errors)
	r.publishCompleted(ctx, tenantID, summary)
	return summary, nil
}

func (r *Runner) runAdapter(ctx context.Context, tenantID uuid.UUID, adapter out.PortalAdapter, window *portin.IngestWindow, dedup *Deduplicator, rules []*domain.ActivityRule, cfg *domain.SmartFilterConfig, log *logger.Logger) *portin.AdapterSummary {
	portal := adapter.ID()
	summary := &portin.AdapterSummary{Portal: portal}
	log = log.WithField("portal", portal)

	raws, err := fetch(ctx, adapter, window)
	if err != nil {
		log.WithError(apperr.AdapterError(portal, err)).Error("portal fetch failed")
		summary.Failed = true
		summary.Errors++
		return summary
	}
	summary.Found = len(raws)

	for _, raw := range raws {
		if !dedup.Admit(raw) {
			continue
		}
		if err := r.processRecord(ctx, tenantID, raw, rules, cfg); err != nil {
			if apperr.IsCode(err, apperr.CodeStorageConflict) {
				log.WithError(err).Info("duplicate key at insert, skipped")
				continue
			}
			log.WithError(err).WithField("natural_key", raw.NaturalKey()).Error("record processing failed")
			summary.Errors++
			continue
		}
		summary.Stored++
	}
	return summary
}

func fetch(ctx context.Context, adapter out.PortalAdapter, window *portin.IngestWindow) ([]*domain.RawListingRecord, error) {
	if window != nil {
		if ranged, ok := adapter.(out.RangedPortalAdapter); ok {
			return ranged.FetchRange(ctx, window.From, window.To)
		}
	}
	return adapter.Fetch(ctx)
}

// processRecord runs one raw record through archive, upsert, embed and
// classify. Any error past the upsert leaves the stored row in place;
// classification catches up on the next run or reprocess.
func (r *Runner) processRecord(ctx context.Context, tenantID uuid.UUID, raw *domain.RawListingRecord, rules []*domain.ActivityRule, cfg *domain.SmartFilterConfig) error {
	now := time.Now()
	r.archiveSnapshot(ctx, tenantID, raw, now)

	record, err := r.records.Replace(ctx, domain.FromRaw(tenantID, raw, now))
	if err != nil {
		return err
	}

	vector, err := r.embedder.EmbedText(ctx, record.EmbeddingText())
	if err != nil {
		return err
	}
	record.Embedding = vector
	if err := r.records.SaveEmbedding(ctx, record.ID, vector); err != nil {
		return err
	}

	result := r.engine.Classify(record, rules, cfg, now)
	return r.results.Upsert(ctx, result)
}

func (r *Runner) archiveSnapshot(ctx context.Context, tenantID uuid.UUID, raw *domain.RawListingRecord, now time.Time) {
	if r.snapshots == nil || len(raw.Raw) == 0 {
		return
	}
	snapshot := &out.ListingSnapshot{
		TenantID:   tenantID.String(),
		Portal:     raw.Portal,
		NaturalKey: raw.NaturalKey(),
		Payload:    raw.Raw,
		FetchedAt:  now,
	}
	if err := r.snapshots.Save(ctx, snapshot); err != nil {
		r.log.WithError(err).WithField("portal", raw.Portal).Warn("snapshot archive failed")
	}
}

func (r *Runner) publishCompleted(ctx context.Context, tenantID uuid.UUID, summary *portin.IngestSummary) {
	if r.events == nil {
		return
	}
	event := &out.RunCompletedEvent{
		TenantID:   tenantID.String(),
		Kind:       "ingest",
		Processed:  summary.Stored,
		Errors:     summary.Errors,
		FinishedAt: summary.FinishedAt,
	}
	if err := r.events.PublishRunCompleted(ctx, event); err != nil {
		r.log.WithError(err).Warn("run completed event publish failed")
	}
}
