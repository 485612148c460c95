package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/RishiKendai/vigil/internal/models"
)

func TestAttemptRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("attempt not found", func(mt *mtest.T) {
		repo := NewAttemptRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vigil.attempts", mtest.FirstBatch))

		_, err := repo.GetAttempt(context.Background(), "missing")
		assert.ErrorIs(mt, err, ErrNotFound)
	})

	mt.Run("attempt found", func(mt *mtest.T) {
		repo := NewAttemptRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vigil.attempts", mtest.FirstBatch, bson.D{
			{Key: "attemptId", Value: "a1"},
			{Key: "userId", Value: "u1"},
			{Key: "challengeId", Value: "jwt-auth"},
			{Key: "status", Value: "in_progress"},
		}))

		attempt, err := repo.GetAttempt(context.Background(), "a1")
		require.NoError(mt, err)
		assert.Equal(mt, "u1", attempt.UserID)
		assert.Equal(mt, models.AttemptInProgress, attempt.Status)
	})

	mt.Run("completed attempt metrics", func(mt *mtest.T) {
		repo := NewAttemptRepository(&MongoRepository{db: mt.DB})
		first := mtest.CreateCursorResponse(0, "vigil.attempts", mtest.FirstBatch,
			bson.D{
				{Key: "attemptId", Value: "a1"},
				{Key: "status", Value: "completed"},
				{Key: "finalMetrics", Value: bson.D{{Key: "dependencyIndex", Value: 20.0}, {Key: "passRate", Value: 90.0}}},
			},
			bson.D{
				{Key: "attemptId", Value: "a2"},
				{Key: "status", Value: "completed"},
				{Key: "finalMetrics", Value: bson.D{{Key: "dependencyIndex", Value: 40.0}, {Key: "passRate", Value: 70.0}}},
			},
		)
		mt.AddMockResponses(first)

		metrics, err := repo.CompletedAttemptMetrics(context.Background(), "u1")
		require.NoError(mt, err)
		require.Len(mt, metrics, 2)
		assert.Equal(mt, 40.0, metrics[1].DependencyIndex)
	})

	mt.Run("upsert averages", func(mt *mtest.T) {
		repo := NewAttemptRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.UpsertUserAverages(context.Background(), models.UserAverages{UserID: "u1", UpdatedAt: time.Now()})
		assert.NoError(mt, err)
	})
}

func TestSnapshotRepository_ListSnapshots(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("empty", func(mt *mtest.T) {
		repo := NewSnapshotRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "vigil.metric_snapshots", mtest.FirstBatch))

		snapshots, err := repo.ListSnapshots(context.Background(), "a1")
		require.NoError(mt, err)
		assert.NotNil(mt, snapshots)
		assert.Empty(mt, snapshots)
	})

	mt.Run("insert failure is wrapped", func(mt *mtest.T) {
		repo := NewSnapshotRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 11000, Message: "duplicate key"}))

		err := repo.AppendSnapshot(context.Background(), models.MetricSnapshot{AttemptID: "a1"})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to insert metric snapshot")
	})
}

func TestCodeEventRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("save upserts by event id", func(mt *mtest.T) {
		repo := NewCodeEventRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		err := repo.SaveCodeEvent(context.Background(), models.CopyPasteEvent{ID: "1-0", AttemptID: "a1", Action: models.ActionPaste})
		require.NoError(mt, err)

		started := mt.GetStartedEvent()
		require.NotNil(mt, started)
		assert.Equal(mt, "update", started.CommandName)
		assert.Equal(mt, "1-0", started.Command.Lookup("updates", "0", "q", "eventId").StringValue())
		assert.True(mt, started.Command.Lookup("updates", "0", "upsert").Boolean())
	})

	mt.Run("attribution failure is wrapped", func(mt *mtest.T) {
		repo := NewCodeEventRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value"}))

		err := repo.SaveAttribution(context.Background(), models.PasteAttribution{EventID: "1-0"})
		require.Error(mt, err)
		assert.Contains(mt, err.Error(), "failed to save paste attribution")
	})

	mt.Run("delete", func(mt *mtest.T) {
		repo := NewCodeEventRepository(&MongoRepository{db: mt.DB})
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}))

		assert.NoError(mt, repo.DeleteCodeEvent(context.Background(), "1-0"))
	})
}
