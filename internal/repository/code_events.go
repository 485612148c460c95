package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RishiKendai/vigil/internal/models"
)

const (
	codeEventsCollection   = "code_events"
	attributionsCollection = "paste_attributions"
)

// CodeEventRepository stores copy/paste events and the attributions derived from pastes.
type CodeEventRepository struct {
	mongoRepo *MongoRepository
}

func NewCodeEventRepository(mongoRepo *MongoRepository) *CodeEventRepository {
	return &CodeEventRepository{
		mongoRepo: mongoRepo,
	}
}

// EnsureIndexes creates the lookup indexes and the TTL indexes that expire events after retention.
func (r *CodeEventRepository) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	expireAfter := int32(retention.Seconds())

	err := r.mongoRepo.CreateIndexes(ctx, codeEventsCollection,
		mongo.IndexModel{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "attemptId", Value: 1}, {Key: "timestamp", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "timestamp", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(expireAfter)},
	)
	if err != nil {
		return fmt.Errorf("failed to create code event indexes: %w", err)
	}

	err = r.mongoRepo.CreateIndexes(ctx, attributionsCollection,
		mongo.IndexModel{Keys: bson.D{{Key: "eventId", Value: 1}}, Options: options.Index().SetUnique(true)},
		mongo.IndexModel{Keys: bson.D{{Key: "attemptId", Value: 1}}},
		mongo.IndexModel{Keys: bson.D{{Key: "createdAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(expireAfter)},
	)
	if err != nil {
		return fmt.Errorf("failed to create attribution indexes: %w", err)
	}
	return nil
}

// SaveCodeEvent upserts by eventId so a replayed event is stored once.
func (r *CodeEventRepository) SaveCodeEvent(ctx context.Context, event models.CopyPasteEvent) error {
	if err := r.mongoRepo.Upsert(ctx, codeEventsCollection, bson.M{"eventId": event.ID}, event); err != nil {
		return fmt.Errorf("failed to save code event: %w", err)
	}
	return nil
}

func (r *CodeEventRepository) DeleteCodeEvent(ctx context.Context, eventID string) error {
	if err := r.mongoRepo.DeleteOne(ctx, codeEventsCollection, bson.M{"eventId": eventID}); err != nil {
		return fmt.Errorf("failed to delete code event: %w", err)
	}
	return nil
}

func (r *CodeEventRepository) ListCodeEvents(ctx context.Context, attemptID string) ([]models.CopyPasteEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cursor, err := r.mongoRepo.FindMany(ctx, codeEventsCollection, bson.M{"attemptId": attemptID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find code events: %w", err)
	}
	defer cursor.Close(ctx)

	events := make([]models.CopyPasteEvent, 0)
	if err := cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode code events: %w", err)
	}
	return events, nil
}

func (r *CodeEventRepository) SaveAttribution(ctx context.Context, attribution models.PasteAttribution) error {
	if err := r.mongoRepo.Upsert(ctx, attributionsCollection, bson.M{"eventId": attribution.EventID}, attribution); err != nil {
		return fmt.Errorf("failed to save paste attribution: %w", err)
	}
	return nil
}

func (r *CodeEventRepository) ListAttributions(ctx context.Context, attemptID string) ([]models.PasteAttribution, error) {
	cursor, err := r.mongoRepo.FindMany(ctx, attributionsCollection, bson.M{"attemptId": attemptID})
	if err != nil {
		return nil, fmt.Errorf("failed to find paste attributions: %w", err)
	}
	defer cursor.Close(ctx)

	attributions := make([]models.PasteAttribution, 0)
	if err := cursor.All(ctx, &attributions); err != nil {
		return nil, fmt.Errorf("failed to decode paste attributions: %w", err)
	}
	return attributions, nil
}
