package persistence

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"tender_server/core/domain"
	"tender_server/core/port/out"
)

// RunAdapter implements out.RunRepository using PostgreSQL.
type RunAdapter struct {
	db *sqlx.DB
}

// NewRunAdapter creates a new RunAdapter.
func NewRunAdapter(db *sqlx.DB) *RunAdapter {
	return &RunAdapter{db: db}
}

var _ out.RunRepository = (*RunAdapter)(nil)

// Create inserts the run row and returns its ID.
func (a *RunAdapter) Create(ctx context.Context, run *domain.ReprocessingRun) (int64, error) {
	const query = `
		INSERT INTO reprocessing_runs (
			tenant_id, taxonomy_version, range_from, range_to, portal,
			triggered_by, started_at, processed, errors
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, 0)
		RETURNING id
	`
	var id int64
	err := a.db.QueryRowxContext(ctx, query,
		run.TenantID, run.TaxonomyVersion,
		nullTime(run.From), nullTime(run.To), nullString(run.Portal),
		run.TriggeredBy, run.StartedAt,
	).Scan(&id)
	if err != nil {
		return 0, mapError("run create", "", err)
	}
	return id, nil
}

// Finalize records the finish timestamp and stats.
func (a *RunAdapter) Finalize(ctx context.Context, id int64, processed, errors int, finishedAt time.Time) error {
	const query = `
		UPDATE reprocessing_runs
		SET finished_at = $2, processed = $3, errors = $4
		WHERE id = $1
	`
	_, err := a.db.ExecContext(ctx, query, id, finishedAt, processed, errors)
	return mapError("run finalize", "", err)
}
