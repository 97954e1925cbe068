package out

import (
	"context"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

// RecordRepository defines the outbound port for canonical record persistence.
type RecordRepository interface {
	// Replace upserts a record by natural key: the prior row for the same
	// (portal, natural key) is deleted and the new row inserted in one
	// transaction. Returns the stored record with its ID set.
	Replace(ctx context.Context, record *domain.CanonicalRecord) (*domain.CanonicalRecord, error)

	// GetByID retrieves a single record.
	GetByID(ctx context.Context, tenantID uuid.UUID, id int64) (*domain.CanonicalRecord, error)

	// List selects records matching the filter, newest first.
	List(ctx context.Context, filter *domain.RecordFilter) ([]*domain.CanonicalRecord, error)

	// SaveEmbedding persists a record's computed embedding.
	SaveEmbedding(ctx context.Context, id int64, embedding []float32) error

	// CleanupDuplicates removes all but the oldest row per (portal, natural
	// key) for the tenant and returns the number of rows removed.
	CleanupDuplicates(ctx context.Context, tenantID uuid.UUID) (int64, error)

	// UpsertBuyer ensures a buyer reference row exists for the name.
	UpsertBuyer(ctx context.Context, tenantID uuid.UUID, name string) (*domain.BuyerRef, error)
}
