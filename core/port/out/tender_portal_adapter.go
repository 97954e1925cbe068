package out

import (
	"context"
	"time"

	"tender_server/core/domain"
)

// PortalAdapter defines the outbound port for one procurement portal source.
// Adapters run sequentially within an ingestion run; a failing adapter is
// recorded and skipped, it never aborts the run.
type PortalAdapter interface {
	// ID returns the stable portal identifier stored on records.
	ID() string

	// Enabled reports whether the adapter participates in runs.
	Enabled() bool

	// Fetch retrieves the portal's current listings.
	Fetch(ctx context.Context) ([]*domain.RawListingRecord, error)
}

// RangedPortalAdapter is implemented by adapters whose source can restrict a
// fetch to a publication window. Adapters without the capability are fetched
// in full; nil window ends are open.
type RangedPortalAdapter interface {
	PortalAdapter

	FetchRange(ctx context.Context, from, to *time.Time) ([]*domain.RawListingRecord, error)
}
