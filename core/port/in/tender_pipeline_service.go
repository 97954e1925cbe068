package in

import (
	"context"
	"time"

	"tender_server/core/domain"

	"github.com/google/uuid"
)

// IngestService defines the interface for portal ingestion runs.
type IngestService interface {
	// RunIngestion executes one full ingestion pass over the enabled portal
	// adapters. Returns apperr ALREADY_RUNNING when a run is in flight.
	RunIngestion(ctx context.Context, tenantID uuid.UUID) (*IngestSummary, error)

	// RunIngestionRange is RunIngestion restricted to a publication window.
	// The window is forwarded to adapters that can honor it.
	RunIngestionRange(ctx context.Context, tenantID uuid.UUID, window *IngestWindow) (*IngestSummary, error)
}

// IngestWindow bounds an ingestion pass by publication date. Nil ends are
// open.
type IngestWindow struct {
	From *time.Time `json:"from,omitempty"`
	To   *time.Time `json:"to,omitempty"`
}

// ReprocessService defines the interface for bulk re-classification.
type ReprocessService interface {
	// Reprocess bumps the taxonomy version once and re-scores every record
	// matching the request. Returns apperr ALREADY_RUNNING when any run is
	// in flight.
	Reprocess(ctx context.Context, req *ReprocessRequest) (*domain.ReprocessResult, error)
}

// RecommendService defines the interface for recommendation dispatch.
type RecommendService interface {
	// Dispatch fans qualifying records out to resolved recipients.
	Dispatch(ctx context.Context, req *DispatchRequest) (*domain.DispatchResult, error)
}

// IngestSummary aggregates per-adapter stats for one ingestion run.
type IngestSummary struct {
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Adapters   []*AdapterSummary `json:"adapters"`
	Stored     int               `json:"stored"`
	Errors     int               `json:"errors"`
}

// AdapterSummary is one portal's contribution to a run.
type AdapterSummary struct {
	Portal string `json:"portal"`
	Found  int    `json:"found"`
	Stored int    `json:"stored"`
	Errors int    `json:"errors"`
	Failed bool   `json:"failed,omitempty"` // adapter fetch itself failed
}

// ReprocessRequest narrows the record set to re-score.
type ReprocessRequest struct {
	TenantID    uuid.UUID  `json:"tenant_id"`
	Portal      string     `json:"portal,omitempty"`
	From        *time.Time `json:"from,omitempty"`
	To          *time.Time `json:"to,omitempty"`
	TriggeredBy uuid.UUID  `json:"triggered_by"`
}

// DispatchRequest selects records and optional explicit recipients.
type DispatchRequest struct {
	TenantID  uuid.UUID                    `json:"tenant_id"`
	RecordIDs []int64                      `json:"record_ids,omitempty"` // empty selects qualifying records
	UserIDs   []uuid.UUID                  `json:"user_ids,omitempty"`   // empty resolves via routes
	Channels  []domain.NotificationChannel `json:"channels,omitempty"`   // empty uses defaults
}
