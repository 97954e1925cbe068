package domain

import (
	"time"

	"github.com/google/uuid"
)

// ListingStatus tracks the lifecycle of a canonical record.
type ListingStatus string

const (
	ListingStatusNew       ListingStatus = "new"
	ListingStatusPromoted  ListingStatus = "promoted"  // picked up into an opportunity
	ListingStatusArchived  ListingStatus = "archived"
	ListingStatusDismissed ListingStatus = "dismissed"
)

// RawListingRecord is what a portal adapter emits for one listing. It is
// ephemeral: the pipeline owns it only for the duration of a run.
type RawListingRecord struct {
	Portal        string         `json:"portal"`
	ExternalRef   string         `json:"external_ref,omitempty"`
	SourceURL     string         `json:"source_url,omitempty"`
	Title         string         `json:"title,omitempty"`
	OriginalTitle string         `json:"original_title,omitempty"`
	BuyerName     string         `json:"buyer_name,omitempty"`
	PublishedAt   *time.Time     `json:"published_at,omitempty"`
	ClosesAt      *time.Time     `json:"closes_at,omitempty"`
	EstimatedValue *float64      `json:"estimated_value,omitempty"`
	Currency      string         `json:"currency,omitempty"`
	ListingType   string         `json:"listing_type,omitempty"`
	Sector        string         `json:"sector,omitempty"`
	Raw           map[string]any `json:"raw,omitempty"` // original payload, archived as a snapshot
}

// NaturalKey returns the identity used for deduplication and replacement:
// external reference, else source URL, else title. Always scoped by Portal.
func (r *RawListingRecord) NaturalKey() string {
	if r.ExternalRef != "" {
		return r.ExternalRef
	}
	if r.SourceURL != "" {
		return r.SourceURL
	}
	return r.Title
}

// CanonicalRecord is the persisted, deduplicated representation of a listing.
// At most one may exist per (portal, natural key); ingesting a colliding key
// replaces the prior row wholesale.
type CanonicalRecord struct {
	ID            int64         `json:"id"`
	TenantID      uuid.UUID     `json:"tenant_id"`
	Portal        string        `json:"portal"`
	ExternalRef   string        `json:"external_ref,omitempty"`
	SourceURL     string        `json:"source_url,omitempty"`
	Title         string        `json:"title,omitempty"`
	OriginalTitle string        `json:"original_title,omitempty"`
	BuyerName     string        `json:"buyer_name,omitempty"`
	PublishedAt   *time.Time    `json:"published_at,omitempty"`
	ClosesAt      *time.Time    `json:"closes_at,omitempty"`
	EstimatedValue *float64     `json:"estimated_value,omitempty"`
	Currency      string        `json:"currency,omitempty"`
	ListingType   string        `json:"listing_type,omitempty"`
	Sector        string        `json:"sector,omitempty"`
	Embedding     []float32     `json:"-"`
	Status        ListingStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
}

// NaturalKey mirrors RawListingRecord.NaturalKey for the persisted form.
func (c *CanonicalRecord) NaturalKey() string {
	if c.ExternalRef != "" {
		return c.ExternalRef
	}
	if c.SourceURL != "" {
		return c.SourceURL
	}
	return c.Title
}

// EmbeddingText builds the normalized input for the record's embedding:
// translated title, buyer and sector, newline-joined, empty parts skipped.
func (c *CanonicalRecord) EmbeddingText() string {
	parts := make([]string, 0, 3)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	if c.BuyerName != "" {
		parts = append(parts, c.BuyerName)
	}
	if c.Sector != "" {
		parts = append(parts, c.Sector)
	}
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += "\n"
		}
		out += p
	}
	return out
}

// IsOpen reports whether the listing can still be acted on.
func (c *CanonicalRecord) IsOpen(now time.Time) bool {
	return c.ClosesAt == nil || c.ClosesAt.After(now)
}

// FromRaw builds a canonical record from an adapter record. The embedding is
// left empty; it is filled lazily on first classification.
func FromRaw(tenantID uuid.UUID, raw *RawListingRecord, now time.Time) *CanonicalRecord {
	return &CanonicalRecord{
		TenantID:      tenantID,
		Portal:        raw.Portal,
		ExternalRef:   raw.ExternalRef,
		SourceURL:     raw.SourceURL,
		Title:         raw.Title,
		OriginalTitle: raw.OriginalTitle,
		BuyerName:     raw.BuyerName,
		PublishedAt:   raw.PublishedAt,
		ClosesAt:      raw.ClosesAt,
		EstimatedValue: raw.EstimatedValue,
		Currency:      raw.Currency,
		ListingType:   raw.ListingType,
		Sector:        raw.Sector,
		Status:        ListingStatusNew,
		CreatedAt:     now,
	}
}

// BuyerRef is the lightweight client/buyer reference row upserted as a side
// effect of storing a record with a non-empty buyer name.
type BuyerRef struct {
	ID       int64     `json:"id"`
	TenantID uuid.UUID `json:"tenant_id"`
	Name     string    `json:"name"`
}

// RecordFilter narrows record selection for reprocessing.
type RecordFilter struct {
	TenantID uuid.UUID
	Portal   string
	From     *time.Time
	To       *time.Time
}
