package out

import (
	"context"

	"github.com/google/uuid"

	"tender_server/core/domain"
)

// NotificationRepository defines the outbound port for the notification
// queue and the recipient routing tables around it.
type NotificationRepository interface {
	// CreateMany enqueues the messages in one batch.
	CreateMany(ctx context.Context, messages []*domain.NotificationMessage) error

	// ListPreferences retrieves the delivery preferences the users hold for
	// the activity. Users with no stored preference are absent from the
	// result; the caller applies the enabled-by-default policy.
	ListPreferences(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, activity string) ([]*domain.RecipientPreference, error)

	// GetRoute retrieves the tenant's default route for the activity, nil
	// if none is configured.
	GetRoute(ctx context.Context, tenantID uuid.UUID, activity string) (*domain.NotificationRoute, error)

	// ResolveRoles expands role names to their member user IDs.
	ResolveRoles(ctx context.Context, tenantID uuid.UUID, roles []string) ([]uuid.UUID, error)
}
