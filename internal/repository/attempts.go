package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/RishiKendai/vigil/internal/models"
)

const (
	attemptsCollection     = "attempts"
	userAveragesCollection = "user_averages"
	challengesCollection   = "challenges"
)

// AttemptRepository reads attempts and challenges owned by the progression catalog
// and maintains the per-user averages record.
type AttemptRepository struct {
	mongoRepo *MongoRepository
}

func NewAttemptRepository(mongoRepo *MongoRepository) *AttemptRepository {
	return &AttemptRepository{
		mongoRepo: mongoRepo,
	}
}

func (r *AttemptRepository) GetAttempt(ctx context.Context, attemptID string) (*models.Attempt, error) {
	var attempt models.Attempt
	err := r.mongoRepo.FindOne(ctx, attemptsCollection, bson.M{"attemptId": attemptID}).Decode(&attempt)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find attempt: %w", err)
	}
	return &attempt, nil
}

func (r *AttemptRepository) GetChallenge(ctx context.Context, challengeID string) (*models.ChallengeContext, error) {
	var challenge models.ChallengeContext
	err := r.mongoRepo.FindOne(ctx, challengesCollection, bson.M{"challengeId": challengeID}).Decode(&challenge)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find challenge: %w", err)
	}
	return &challenge, nil
}

// CompletedAttemptMetrics returns the final metrics of every completed attempt of the user.
func (r *AttemptRepository) CompletedAttemptMetrics(ctx context.Context, userID string) ([]models.MetricCalculation, error) {
	filter := bson.M{
		"userId":       userID,
		"status":       models.AttemptCompleted,
		"finalMetrics": bson.M{"$exists": true},
	}

	cursor, err := r.mongoRepo.FindMany(ctx, attemptsCollection, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to find completed attempts: %w", err)
	}
	defer cursor.Close(ctx)

	var attempts []models.Attempt
	if err := cursor.All(ctx, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode attempts: %w", err)
	}

	metrics := make([]models.MetricCalculation, 0, len(attempts))
	for _, a := range attempts {
		if a.FinalMetrics != nil {
			metrics = append(metrics, *a.FinalMetrics)
		}
	}
	return metrics, nil
}

// UpsertUserAverages overwrites the user's averages; concurrent writers race and the last one wins.
func (r *AttemptRepository) UpsertUserAverages(ctx context.Context, averages models.UserAverages) error {
	if err := r.mongoRepo.Upsert(ctx, userAveragesCollection, bson.M{"userId": averages.UserID}, averages); err != nil {
		return fmt.Errorf("failed to upsert user averages: %w", err)
	}
	return nil
}

func (r *AttemptRepository) GetUserAverages(ctx context.Context, userID string) (*models.UserAverages, error) {
	var averages models.UserAverages
	err := r.mongoRepo.FindOne(ctx, userAveragesCollection, bson.M{"userId": userID}).Decode(&averages)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user averages: %w", err)
	}
	return &averages, nil
}
