package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"tender_server/core/port/out"
)

// SettingsAdapter implements out.SettingsRepository using PostgreSQL.
// Settings are plain key/value rows per tenant.
type SettingsAdapter struct {
	db *sqlx.DB
}

// NewSettingsAdapter creates a new SettingsAdapter.
func NewSettingsAdapter(db *sqlx.DB) *SettingsAdapter {
	return &SettingsAdapter{db: db}
}

var _ out.SettingsRepository = (*SettingsAdapter)(nil)

type settingRow struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// GetAll retrieves every setting row for the tenant.
func (a *SettingsAdapter) GetAll(ctx context.Context, tenantID uuid.UUID) (map[string]string, error) {
	const query = `SELECT key, value FROM tenant_settings WHERE tenant_id = $1`

	var rows []settingRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID); err != nil {
		return nil, mapError("settings", "", err)
	}
	values := make(map[string]string, len(rows))
	for _, row := range rows {
		values[row.Key] = row.Value
	}
	return values, nil
}

// Set upserts one setting row.
func (a *SettingsAdapter) Set(ctx context.Context, tenantID uuid.UUID, key, value string) error {
	const query = `
		INSERT INTO tenant_settings (tenant_id, key, value, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (tenant_id, key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = NOW()
	`
	_, err := a.db.ExecContext(ctx, query, tenantID, key, value)
	return mapError("settings set", key, err)
}
