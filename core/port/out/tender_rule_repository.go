package out

import (
	"context"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

// RuleRepository defines the outbound port for activity rule persistence.
type RuleRepository interface {
	// ListActive retrieves the tenant's active rules, embeddings included.
	ListActive(ctx context.Context, tenantID uuid.UUID) ([]*domain.ActivityRule, error)

	// SaveEmbedding persists a rule's computed embedding.
	SaveEmbedding(ctx context.Context, ruleID int64, embedding []float32) error
}
