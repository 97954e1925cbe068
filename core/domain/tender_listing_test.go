package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNaturalKeyPrecedence(t *testing.T) {
	tests := []struct {
		name   string
		record RawListingRecord
		want   string
	}{
		{"external ref wins", RawListingRecord{ExternalRef: "T-1", SourceURL: "https://x", Title: "t"}, "T-1"},
		{"source url second", RawListingRecord{SourceURL: "https://x", Title: "t"}, "https://x"},
		{"title last", RawListingRecord{Title: "t"}, "t"},
		{"all empty", RawListingRecord{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.NaturalKey(); got != tt.want {
				t.Errorf("NaturalKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromRawCarriesFields(t *testing.T) {
	now := time.Now()
	published := now.Add(-2 * time.Hour)
	tenantID := uuid.New()
	raw := &RawListingRecord{
		Portal:      "eproc",
		ExternalRef: "T-77",
		Title:       "Supply of laptops",
		BuyerName:   "City of Example",
		PublishedAt: &published,
		Sector:      "it",
	}

	record := FromRaw(tenantID, raw, now)
	if record.TenantID != tenantID || record.Portal != "eproc" || record.ExternalRef != "T-77" {
		t.Errorf("identity fields not carried: %+v", record)
	}
	if record.Status != ListingStatusNew {
		t.Errorf("Status = %q, want %q", record.Status, ListingStatusNew)
	}
	if record.NaturalKey() != raw.NaturalKey() {
		t.Error("natural key must survive conversion")
	}
}

func TestEmbeddingTextSkipsEmptyParts(t *testing.T) {
	record := &CanonicalRecord{Title: "Road repair", Sector: "works"}
	if got, want := record.EmbeddingText(), "Road repair\nworks"; got != want {
		t.Errorf("EmbeddingText() = %q, want %q", got, want)
	}
}

func TestIsOpen(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	tests := []struct {
		name     string
		closesAt *time.Time
		want     bool
	}{
		{"nil close date is open", nil, true},
		{"future close date is open", &future, true},
		{"past close date is closed", &past, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			record := &CanonicalRecord{ClosesAt: tt.closesAt}
			if got := record.IsOpen(now); got != tt.want {
				t.Errorf("IsOpen() = %v, want %v", got, tt.want)
			}
		})
	}
}
