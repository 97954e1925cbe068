package out

import (
	"context"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

// ClassificationRepository defines the outbound port for classification
// result persistence. One row per record; upserts replace in place.
type ClassificationRepository interface {
	// Upsert stores the result for the record, replacing any prior verdict.
	Upsert(ctx context.Context, result *domain.ClassificationResult) error

	// GetByRecord retrieves the current verdict for a record, nil if none.
	GetByRecord(ctx context.Context, tenantID uuid.UUID, recordID int64) (*domain.ClassificationResult, error)

	// ListQualifying retrieves recent results at or above the score
	// threshold that are still flagged new, newest first, capped at limit.
	ListQualifying(ctx context.Context, tenantID uuid.UUID, scoreThreshold, limit int) ([]*domain.ClassificationResult, error)
}
