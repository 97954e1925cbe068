package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tender_server/core/port/out"
)

const snapshotCollection = "listing_snapshots"

// SnapshotAdapter implements out.SnapshotArchive on MongoDB. One document
// per fetch; replaying a portal's history is a query on (portal,
// natural_key).
type SnapshotAdapter struct {
	collection *mongo.Collection
}

// NewSnapshotAdapter creates a new SnapshotAdapter and ensures its indexes.
func NewSnapshotAdapter(client *mongo.Client, database string) (*SnapshotAdapter, error) {
	collection := client.Database(database).Collection(snapshotCollection)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "tenant_id", Value: 1},
				{Key: "portal", Value: 1},
				{Key: "natural_key", Value: 1},
				{Key: "fetched_at", Value: -1},
			},
		},
		{
			// Snapshots expire after 90 days.
			Keys:    bson.D{{Key: "fetched_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(90 * 24 * 3600),
		},
	})
	if err != nil {
		return nil, err
	}
	return &SnapshotAdapter{collection: collection}, nil
}

var _ out.SnapshotArchive = (*SnapshotAdapter)(nil)

// Save archives one raw payload.
func (a *SnapshotAdapter) Save(ctx context.Context, snapshot *out.ListingSnapshot) error {
	_, err := a.collection.InsertOne(ctx, snapshot)
	return err
}
