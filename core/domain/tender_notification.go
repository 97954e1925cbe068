package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationChannel is the delivery medium for one message.
type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelInApp NotificationChannel = "IN_APP"
)

// DefaultChannels is the channel set used when a dispatch does not name its
// own.
var DefaultChannels = []NotificationChannel{ChannelEmail, ChannelInApp}

// DigestMode controls message batching per recipient preference. ModeOff
// suppresses delivery entirely.
type DigestMode string

const (
	DigestInstant DigestMode = "instant"
	DigestDaily   DigestMode = "daily"
	DigestWeekly  DigestMode = "weekly"
	DigestOff     DigestMode = "off"
)

// ActivityRecommendation is the notification activity emitted when a listing
// clears the relevance threshold.
const ActivityRecommendation = "tender.recommended"

// RecipientPreference gates delivery per user, activity and channel.
type RecipientPreference struct {
	UserID   uuid.UUID           `json:"user_id"`
	Activity string              `json:"activity"`
	Channel  NotificationChannel `json:"channel"`
	Enabled  bool                `json:"enabled"`
	Digest   DigestMode          `json:"digest"`
}

// ShouldDeliver reports whether a message may be created for this preference.
func (p *RecipientPreference) ShouldDeliver() bool {
	return p.Enabled && p.Digest != DigestOff
}

// NotificationMessage is one queued message. The queue itself is an external
// collaborator with create-many semantics.
type NotificationMessage struct {
	ID        int64               `json:"id"`
	TenantID  uuid.UUID           `json:"tenant_id"`
	UserID    uuid.UUID           `json:"user_id"`
	Activity  string              `json:"activity"`
	Channel   NotificationChannel `json:"channel"`
	Title     string              `json:"title"`
	Body      string              `json:"body,omitempty"`
	Data      map[string]any      `json:"data,omitempty"`
	RecordID  int64               `json:"record_id,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// NotificationRoute is the tenant's default routing entry for an activity:
// who gets notified when a dispatch names no explicit recipients.
type NotificationRoute struct {
	TenantID uuid.UUID   `json:"tenant_id"`
	Activity string      `json:"activity"`
	UserIDs  []uuid.UUID `json:"user_ids"`
	Roles    []string    `json:"roles"`
}

// Dispatch skip reasons. Skips are normal outcomes, not errors.
const (
	SkipNoRecipients = "no_recipients"
	SkipNoChannels   = "no_channels"
	SkipNoRecords    = "no_records"
)

// DispatchResult summarizes one recommendation dispatch.
type DispatchResult struct {
	Created int    `json:"created"`
	Skipped string `json:"skipped,omitempty"` // set when Created == 0
}
