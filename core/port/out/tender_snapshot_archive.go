package out

import (
	"context"
	"time"
)

// SnapshotArchive defines the outbound port for raw listing payload storage.
// Snapshots are write-only from the pipeline's point of view; archive
// failures are logged and never block ingestion.
type SnapshotArchive interface {
	Save(ctx context.Context, snapshot *ListingSnapshot) error
}

// ListingSnapshot is the archived form of one raw portal payload.
type ListingSnapshot struct {
	TenantID   string         `json:"tenant_id" bson:"tenant_id"`
	Portal     string         `json:"portal" bson:"portal"`
	NaturalKey string         `json:"natural_key" bson:"natural_key"`
	Payload    map[string]any `json:"payload" bson:"payload"`
	FetchedAt  time.Time      `json:"fetched_at" bson:"fetched_at"`
}
