package domain

import (
	"time"

	"github.com/google/uuid"
)

// ReprocessingRun is the bookkeeping row for one bulk re-scoring pass. It is
// always finalized (finish timestamp + stats) even when individual records
// failed.
type ReprocessingRun struct {
	ID              int64      `json:"id"`
	TenantID        uuid.UUID  `json:"tenant_id"`
	TaxonomyVersion int        `json:"taxonomy_version"`
	From            *time.Time `json:"from,omitempty"`
	To              *time.Time `json:"to,omitempty"`
	Portal          string     `json:"portal,omitempty"`
	TriggeredBy     uuid.UUID  `json:"triggered_by"`
	StartedAt       time.Time  `json:"started_at"`
	FinishedAt      *time.Time `json:"finished_at,omitempty"`
	Processed       int        `json:"processed"`
	Errors          int        `json:"errors"`
}

// ReprocessResult is what a reprocessing invocation returns to the caller.
type ReprocessResult struct {
	RunID     int64 `json:"run_id"`
	Version   int   `json:"version"`
	Processed int   `json:"processed"`
	Errors    int   `json:"errors"`
}
