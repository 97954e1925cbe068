package persistence

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tender_server/core/domain"
	"tender_server/core/port/out"
)

// RuleAdapter implements out.RuleRepository using PostgreSQL.
type RuleAdapter struct {
	db *sqlx.DB
}

// NewRuleAdapter creates a new RuleAdapter.
func NewRuleAdapter(db *sqlx.DB) *RuleAdapter {
	return &RuleAdapter{db: db}
}

var _ out.RuleRepository = (*RuleAdapter)(nil)

// ruleRow represents the database row for an activity rule.
type ruleRow struct {
	ID               int64           `db:"id"`
	TenantID         uuid.UUID       `db:"tenant_id"`
	Name             string          `db:"name"`
	Description      sql.NullString  `db:"description"`
	Scope            string          `db:"scope"`
	Keywords         pq.StringArray  `db:"keywords"`
	NegativeKeywords pq.StringArray  `db:"negative_keywords"`
	Weight           float64         `db:"weight"`
	IsHighPriority   bool            `db:"is_high_priority"`
	IsActive         bool            `db:"is_active"`
	Embedding        pq.Float64Array `db:"embedding"`
}

func (r *ruleRow) toDomain() *domain.ActivityRule {
	return &domain.ActivityRule{
		ID:               r.ID,
		TenantID:         r.TenantID,
		Name:             r.Name,
		Description:      r.Description.String,
		Scope:            domain.ActivityScope(r.Scope),
		Keywords:         r.Keywords,
		NegativeKeywords: r.NegativeKeywords,
		Weight:           r.Weight,
		IsHighPriority:   r.IsHighPriority,
		IsActive:         r.IsActive,
		Embedding:        toFloat32(r.Embedding),
	}
}

// ListActive retrieves the tenant's active rules, embeddings included.
func (a *RuleAdapter) ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error) {
	const query = `
		SELECT id, tenant_id, name, description, scope, keywords,
		       negative_keywords, weight, is_high_priority, is_active, embedding
		FROM activity_rules
		WHERE tenant_id = $1 AND is_active = TRUE
		ORDER BY id
	`
	var rows []ruleRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, mapError("rule list", "", err)
	}
	rules := make([]*domain.ActivityRule, len(rows))
	for i := range rows {
		rules[i] = rows[i].toDomain()
	}
	return rules, nil
}

// SaveEmbedding persists a rule's computed embedding.
func (a *RuleAdapter) SaveEmbedding(ctx context.Context, ruleID int64, embedding []float32) error {
	const query = `UPDATE activity_rules SET embedding = $2, updated_at = NOW() WHERE id = $1`
	_, err := a.db.ExecContext(ctx, query, ruleID, toFloat64(embedding))
	return mapError("rule embedding", "", err)
}
