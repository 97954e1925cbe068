package persistence

import (
	"context"
	"database/sql"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"tender_server/core/domain"
	"tender_server/core/port/out"
)

// NotificationAdapter implements out.NotificationRepository using PostgreSQL.
type NotificationAdapter struct {
	db *sqlx.DB
}

// NewNotificationAdapter creates a new NotificationAdapter.
func NewNotificationAdapter(db *sqlx.DB) *NotificationAdapter {
	return &NotificationAdapter{db: db}
}

var _ out.NotificationRepository = (*NotificationAdapter)(nil)

// CreateMany enqueues the messages in one transaction.
func (a *NotificationAdapter) CreateMany(ctx context.Context, messages []*domain.NotificationMessage) error {
	if len(messages) == 0 {
		return nil
	}

	tx, err := a.db.BeginTxx(ctx, nil)
	if err != nil {
		return mapError("notification create", "", err)
	}
	defer tx.Rollback()

	const query = `
		INSERT INTO notification_messages (
			tenant_id, user_id, activity, channel, title, body, data,
			record_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	for _, message := range messages {
		data, err := json.Marshal(message.Data)
		if err != nil {
			return mapError("notification create", "", err)
		}
		_, err = tx.ExecContext(ctx, query,
			message.TenantID, message.UserID, message.Activity,
			string(message.Channel), message.Title, nullString(message.Body),
			data, nullInt(message.RecordID), message.CreatedAt,
		)
		if err != nil {
			return mapError("notification create", "", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return mapError("notification create", "", err)
	}
	return nil
}

type preferenceRow struct {
	UserID   uuid.UUID `db:"user_id"`
	Activity string    `db:"activity"`
	Channel  string    `db:"channel"`
	Enabled  bool      `db:"enabled"`
	Digest   string    `db:"digest"`
}

// ListPreferences retrieves stored preferences for the users and activity.
func (a *NotificationAdapter) ListPreferences(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, activity string) ([]*domain.RecipientPreference, error) {
	const query = `
		SELECT user_id, activity, channel, enabled, digest
		FROM notification_preferences
		WHERE tenant_id = $1 AND activity = $2 AND user_id = ANY($3)
	`
	ids := make([]string, len(userIDs))
	for i, id := range userIDs {
		ids[i] = id.String()
	}

	var rows []preferenceRow
	if err := a.db.SelectContext(ctx, &rows, query, tenantID, activity, pq.Array(ids)); err != nil {
		return nil, mapError("preference list", "", err)
	}
	preferences := make([]*domain.RecipientPreference, len(rows))
	for i, row := range rows {
		preferences[i] = &domain.RecipientPreference{
			UserID:   row.UserID,
			Activity: row.Activity,
			Channel:  domain.NotificationChannel(row.Channel),
			Enabled:  row.Enabled,
			Digest:   domain.DigestMode(row.Digest),
		}
	}
	return preferences, nil
}

type routeRow struct {
	TenantID uuid.UUID      `db:"tenant_id"`
	Activity string         `db:"activity"`
	UserIDs  pq.StringArray `db:"user_ids"`
	Roles    pq.StringArray `db:"roles"`
}

// GetRoute retrieves the tenant's default route, nil if none is configured.
func (a *NotificationAdapter) GetRoute(ctx context.Context, tenantID uuid.UUID, activity string) (*domain.NotificationRoute, error) {
	const query = `
		SELECT tenant_id, activity, user_ids, roles
		FROM notification_routes
		WHERE tenant_id = $1 AND activity = $2
	`
	var row routeRow
	if err := a.db.GetContext(ctx, &row, query, tenantID, activity); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, mapError("route", "", err)
	}

	route := &domain.NotificationRoute{TenantID: row.TenantID, Activity: row.Activity, Roles: row.Roles}
	for _, raw := range row.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			continue
		}
		route.UserIDs = append(route.UserIDs, id)
	}
	return route, nil
}

// ResolveRoles expands role names to their member user IDs.
func (a *NotificationAdapter) ResolveRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]uuid.UUID, error) {
	const query = `
		SELECT DISTINCT user_id
		FROM tenant_user_roles
		WHERE tenant_id = $1 AND role = ANY($2)
	`
	var ids []uuid.UUID
	if err := a.db.SelectContext(ctx, &ids, query, tenantID, pq.Array(roles)); err != nil {
		return nil, mapError("role resolve", "", err)
	}
	return ids, nil
}

func nullInt(v int64) sql.NullInt64 {
	if v == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: v, Valid: true}
}
