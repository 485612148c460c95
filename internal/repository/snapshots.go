package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RishiKendai/vigil/internal/models"
)

const snapshotsCollection = "metric_snapshots"

// SnapshotRepository is the append-only per-attempt metric log.
type SnapshotRepository struct {
	mongoRepo *MongoRepository
}

func NewSnapshotRepository(mongoRepo *MongoRepository) *SnapshotRepository {
	return &SnapshotRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *SnapshotRepository) EnsureIndexes(ctx context.Context) error {
	err := r.mongoRepo.CreateIndexes(ctx, snapshotsCollection, mongo.IndexModel{
		Keys: bson.D{{Key: "attemptId", Value: 1}, {Key: "createdAt", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create snapshot indexes: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) AppendSnapshot(ctx context.Context, snapshot models.MetricSnapshot) error {
	if err := r.mongoRepo.InsertOne(ctx, snapshotsCollection, snapshot); err != nil {
		return fmt.Errorf("failed to insert metric snapshot: %w", err)
	}
	return nil
}

func (r *SnapshotRepository) ListSnapshots(ctx context.Context, attemptID string) ([]models.MetricSnapshot, error) {
	filter := bson.M{"attemptId": attemptID}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})

	cursor, err := r.mongoRepo.FindMany(ctx, snapshotsCollection, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find metric snapshots: %w", err)
	}
	defer cursor.Close(ctx)

	snapshots := make([]models.MetricSnapshot, 0)
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode metric snapshots: %w", err)
	}
	return snapshots, nil
}
