package out

import (
	"context"

	"github.com/google/uuid"
)

// SettingsRepository defines the outbound port for tenant settings rows.
// Values are opaque strings; parsing and defaulting happen in the service.
type SettingsRepository interface {
	// GetAll retrieves every setting row for the tenant.
	GetAll(ctx context.Context, tenantID uuid.UUID) (map[string]string, error)

	// Set upserts one setting row.
	Set(ctx context.Context, tenantID uuid.UUID, key, value string) error
}
