package persistence

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tender_server/core/domain"
	"tender_server/core/port/out"
)

// ClassificationAdapter implements out.ClassificationRepository using
// PostgreSQL. Per-scope scores live in a jsonb column; reprocessing upserts
// over the single row per record.
type ClassificationAdapter struct {
	db *sqlx.DB
}

// NewClassificationAdapter creates a new ClassificationAdapter.
func NewClassificationAdapter(db *sqlx.DB) *ClassificationAdapter {
	return &ClassificationAdapter{db: db}
}

var _ out.ClassificationRepository = (*ClassificationAdapter)(nil)

// resultRow represents the database row for a classification result.
type resultRow struct {
	ID              int64          `db:"id"`
	TenantID        uuid.UUID      `db:"tenant_id"`
	RecordID        int64          `db:"record_id"`
	TaxonomyVersion int            `db:"taxonomy_version"`
	Score           int            `db:"score"`
	ScopeScores     []byte         `db:"scope_scores"`
	IsNew           bool           `db:"is_new"`
	MatchedRuleIDs  pq.Int64Array  `db:"matched_rule_ids"`
	MatchedScopes   pq.StringArray `db:"matched_scopes"`
	MatchedKeywords pq.StringArray `db:"matched_keywords"`
	Reasons         pq.StringArray `db:"reasons"`
	ClassifiedAt    time.Time      `db:"classified_at"`
}

func (r *resultRow) toDomain() (*domain.ClassificationResult, error) {
	result := &domain.ClassificationResult{
		ID:              r.ID,
		TenantID:        r.TenantID,
		RecordID:        r.RecordID,
		TaxonomyVersion: r.TaxonomyVersion,
		Score:           r.Score,
		IsNew:           r.IsNew,
		MatchedRuleIDs:  r.MatchedRuleIDs,
		MatchedScopes:   r.MatchedScopes,
		MatchedKeywords: r.MatchedKeywords,
		Reasons:         r.Reasons,
		ClassifiedAt:    r.ClassifiedAt,
	}
	if len(r.ScopeScores) > 0 {
		if err := json.Unmarshal(r.ScopeScores, &result.ScopeScores); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// Upsert stores the result for the record, replacing any prior verdict.
func (a *ClassificationAdapter) Upsert(ctx context.Context, result *domain.ClassificationResult) error {
	scopeScores, err := json.Marshal(result.ScopeScores)
	if err != nil {
		return mapError("result upsert", "", err)
	}

	const query = `
		INSERT INTO classification_results (
			tenant_id, record_id, taxonomy_version, score, scope_scores,
			is_new, matched_rule_ids, matched_scopes, matched_keywords,
			reasons, classified_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (record_id) DO UPDATE SET
			taxonomy_version = EXCLUDED.taxonomy_version,
			score = EXCLUDED.score,
			scope_scores = EXCLUDED.scope_scores,
			is_new = EXCLUDED.is_new,
			matched_rule_ids = EXCLUDED.matched_rule_ids,
			matched_scopes = EXCLUDED.matched_scopes,
			matched_keywords = EXCLUDED.matched_keywords,
			reasons = EXCLUDED.reasons,
			classified_at = EXCLUDED.classified_at
	`
	_, err = a.db.ExecContext(ctx, query,
		result.TenantID, result.RecordID, result.TaxonomyVersion,
		result.Score, scopeScores, result.IsNew,
		pq.Array(result.MatchedRuleIDs), pq.Array(result.MatchedScopes),
		pq.Array(result.MatchedKeywords), pq.Array(result.Reasons),
		result.ClassifiedAt,
	)
	return mapError("result upsert", "", err)
}

// GetByRecord retrieves the current verdict for a record, nil if none.
func (a *ClassificationAdapter) GetByRecord(ctx context.Context, tenantID uuid.UUID, recordID int64) (*domain.ClassificationResult, error) {
	const query = `
		SELECT id, tenant_id, record_id, taxonomy_version, score,
		       scope_scores, is_new, matched_rule_ids, matched_scopes,
		       matched_keywords, reasons, classified_at
		FROM classification_results
		WHERE tenant_id = $1 AND record_id = $2
	`
	var row resultRow
	if err := a.db.GetContext(ctx, &row, query, tenantID, recordID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapError("result", "", err)
	}
	result, err := row.toDomain()
	if err != nil {
		return nil, mapError("result", "", err)
	}
	return result, nil
}

// ListQualifying retrieves results at or above the threshold whose records
// are still new, not yet promoted, and not past their close date. Best score
// first, soonest close date breaking ties.
func (a *ClassificationAdapter) ListQualifying(ctx context.Context, tenantID uuid.UUID, scoreThreshold, limit int) ([]*domain.ClassificationResult, error) {
	builder := sq.Select(
		"cr.id", "cr.tenant_id", "cr.record_id", "cr.taxonomy_version",
		"cr.score", "cr.scope_scores", "cr.is_new", "cr.matched_rule_ids",
		"cr.matched_scopes", "cr.matched_keywords", "cr.reasons",
		"cr.classified_at",
	).
		From("classification_results cr").
		Join("tender_records r ON r.id = cr.record_id").
		Where(sq.Eq{"cr.tenant_id": tenantID}).
		Where(sq.GtOrEq{"cr.score": scoreThreshold}).
		Where(sq.Eq{"cr.is_new": true}).
		Where(sq.NotEq{"r.status": string(domain.ListingStatusPromoted)}).
		Where(sq.Or{sq.Eq{"r.closes_at": nil}, sq.Expr("r.closes_at > NOW()")}).
		OrderBy("cr.score DESC", "r.closes_at ASC NULLS LAST", "r.published_at DESC").
		Limit(uint64(limit)).
		PlaceholderFormat(sq.Dollar)

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, mapError("result list", "", err)
	}

	var rows []resultRow
	if err := a.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, mapError("result list", "", err)
	}
	results := make([]*domain.ClassificationResult, 0, len(rows))
	for i := range rows {
		result, err := rows[i].toDomain()
		if err != nil {
			return nil, mapError("result list", "", err)
		}
		results = append(results, result)
	}
	return results, nil
}
