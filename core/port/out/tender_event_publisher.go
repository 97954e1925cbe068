package out

import (
	"context"
	"time"
)

// EventPublisher defines the outbound port for pipeline lifecycle events.
// Publishing is best effort: a failed publish is logged, never returned up
// the pipeline.
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, event *RunCompletedEvent) error
	PublishRecommendationDispatched(ctx context.Context, event *RecommendationDispatchedEvent) error
}

// RunCompletedEvent is emitted when an ingestion or reprocessing run ends.
type RunCompletedEvent struct {
	TenantID   string    `json:"tenant_id"`
	Kind       string    `json:"kind"` // ingest, reprocess
	RunID      int64     `json:"run_id,omitempty"`
	Processed  int       `json:"processed"`
	Errors     int       `json:"errors"`
	FinishedAt time.Time `json:"finished_at"`
}

// RecommendationDispatchedEvent is emitted after a notification fan-out.
type RecommendationDispatchedEvent struct {
	TenantID   string    `json:"tenant_id"`
	Records    int       `json:"records"`
	Created    int       `json:"created"`
	Skipped    string    `json:"skipped,omitempty"`
	DispatchAt time.Time `json:"dispatch_at"`
}
