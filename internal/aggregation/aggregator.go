// Package aggregation keeps per-attempt metric series and derives trends and
// per-user averages from them. The durable store is the source of truth; the
// cache is a disposable view that may be dropped at any time.
package aggregation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/metrics"
	"github.com/RishiKendai/vigil/internal/models"
)

const (
	sessionMetricsPrefix = "session_metrics:"
	latestSnapshotPrefix = "metrics:latest:"

	latestSnapshotTTL = 2 * time.Hour
)

// SnapshotStore is the durable per-attempt metric log.
type SnapshotStore interface {
	AppendSnapshot(ctx context.Context, snapshot models.MetricSnapshot) error
	// ListSnapshots returns the attempt's snapshots ordered by creation time ascending.
	ListSnapshots(ctx context.Context, attemptID string) ([]models.MetricSnapshot, error)
}

// AverageStore reads completed attempts and persists rolling averages.
type AverageStore interface {
	CompletedAttemptMetrics(ctx context.Context, userID string) ([]models.MetricCalculation, error)
	UpsertUserAverages(ctx context.Context, averages models.UserAverages) error
}

type Aggregator struct {
	cache      cache.Cache
	snapshots  SnapshotStore
	averages   AverageStore
	sessionTTL time.Duration
	now        func() time.Time
}

func NewAggregator(c cache.Cache, snapshots SnapshotStore, averages AverageStore, sessionTTL time.Duration) *Aggregator {
	return &Aggregator{
		cache:      c,
		snapshots:  snapshots,
		averages:   averages,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func sessionKey(attemptID string) string { return sessionMetricsPrefix + attemptID }
func latestKey(attemptID string) string  { return latestSnapshotPrefix + attemptID }

// RecordSnapshot appends the snapshot durably, then refreshes the latest-snapshot view
// and invalidates the cached series.
func (a *Aggregator) RecordSnapshot(ctx context.Context, snapshot models.MetricSnapshot) error {
	if err := a.snapshots.AppendSnapshot(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to append metric snapshot: %w", err)
	}

	if err := cache.SetJSON(ctx, a.cache, latestKey(snapshot.AttemptID), snapshot, latestSnapshotTTL); err != nil {
		a.cacheFailure("latest_snapshot_set", snapshot.AttemptID, err)
	}
	if err := a.cache.Delete(ctx, sessionKey(snapshot.AttemptID)); err != nil {
		a.cacheFailure("session_metrics_invalidate", snapshot.AttemptID, err)
	}
	return nil
}

// LatestSnapshot returns the cached latest snapshot, or nil when none is cached.
func (a *Aggregator) LatestSnapshot(ctx context.Context, attemptID string) (*models.MetricSnapshot, error) {
	var snapshot models.MetricSnapshot
	err := cache.GetJSON(ctx, a.cache, latestKey(attemptID), &snapshot)
	if errors.Is(err, cache.ErrMiss) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// GetSessionMetrics serves the attempt's series from cache, falling back to the durable log.
func (a *Aggregator) GetSessionMetrics(ctx context.Context, attemptID string) ([]models.MetricSnapshot, error) {
	var series []models.MetricSnapshot
	err := cache.GetJSON(ctx, a.cache, sessionKey(attemptID), &series)
	if err == nil {
		return series, nil
	}
	if !errors.Is(err, cache.ErrMiss) {
		a.cacheFailure("session_metrics_get", attemptID, err)
	}

	series, err = a.snapshots.ListSnapshots(ctx, attemptID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session metrics: %w", err)
	}
	if series == nil {
		series = []models.MetricSnapshot{}
	}

	if err := cache.SetJSON(ctx, a.cache, sessionKey(attemptID), series, a.sessionTTL); err != nil {
		a.cacheFailure("session_metrics_set", attemptID, err)
	}
	return series, nil
}

// PreviousCalculation returns the most recent calculation of the attempt, if any.
func (a *Aggregator) PreviousCalculation(ctx context.Context, attemptID string) *models.MetricCalculation {
	if latest, err := a.LatestSnapshot(ctx, attemptID); err == nil && latest != nil {
		return &latest.Calculation
	}
	series, err := a.GetSessionMetrics(ctx, attemptID)
	if err != nil || len(series) == 0 {
		return nil
	}
	return &series[len(series)-1].Calculation
}

// CalculateTrends loads the attempt's series and computes one trend per metric.
// A failed load degrades to three stable, empty trends.
func (a *Aggregator) CalculateTrends(ctx context.Context, attemptID string, windowSize int) []models.MetricTrend {
	series, err := a.GetSessionMetrics(ctx, attemptID)
	if err != nil {
		log.Warn().Err(err).Str("attemptId", attemptID).Msg("Failed to load series for trends")
		series = nil
	}
	return ComputeTrends(series, windowSize)
}

// UpdateUserAverages recomputes the user's averages from completed attempts. A user
// with no completed attempts is left untouched and nil is returned.
func (a *Aggregator) UpdateUserAverages(ctx context.Context, userID string) (*models.UserAverages, error) {
	completed, err := a.averages.CompletedAttemptMetrics(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completed attempts: %w", err)
	}
	if len(completed) == 0 {
		log.Debug().Str("userId", userID).Msg("No completed attempts, skipping averages update")
		return nil, nil
	}

	var di, pr, cs float64
	for _, c := range completed {
		di += c.DependencyIndex
		pr += c.PassRate
		cs += c.ChecklistScore
	}
	n := float64(len(completed))
	averages := models.UserAverages{
		UserID:             userID,
		AvgDependencyIndex: round2(di / n),
		AvgPassRate:        round2(pr / n),
		AvgChecklistScore:  round2(cs / n),
		CompletedAttempts:  len(completed),
		UpdatedAt:          a.now(),
	}

	if err := a.averages.UpsertUserAverages(ctx, averages); err != nil {
		return nil, fmt.Errorf("failed to upsert user averages: %w", err)
	}
	return &averages, nil
}

func (a *Aggregator) cacheFailure(op, attemptID string, err error) {
	metrics.CacheFailures.WithLabelValues(op).Inc()
	log.Warn().Err(err).Str("attemptId", attemptID).Str("operation", op).Msg("Metric cache operation failed")
}
