package out

import (
	"context"
	"time"

	"tender_server/core/domain"
)

// RunRepository defines the outbound port for reprocessing run bookkeeping.
type RunRepository interface {
	// Create inserts the run row and returns its ID.
	Create(ctx context.Context, run *domain.ReprocessingRun) (int64, error)

	// Finalize records the finish timestamp and stats. Called exactly once
	// per run, including runs that errored partway.
	Finalize(ctx context.Context, id int64, processed, errors int, finishedAt time.Time) error
}
