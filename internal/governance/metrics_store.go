package governance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/models"
)

const validationMetricsPrefix = "validation_metrics:"

const (
	fieldTotal             = "total"
	fieldRiskScoreSum      = "riskScoreSum"
	fieldConfidenceSum     = "confidenceSum"
	fieldProcessingTimeSum = "processingTimeSum"
)

// ValidationMetricsStore keeps per-challenge running counters of classification outcomes.
// Counters expire ttl after the last recorded validation.
type ValidationMetricsStore struct {
	cache cache.Cache
	ttl   time.Duration
}

func NewValidationMetricsStore(c cache.Cache, ttl time.Duration) *ValidationMetricsStore {
	return &ValidationMetricsStore{cache: c, ttl: ttl}
}

func validationMetricsKey(challengeID string) string {
	return validationMetricsPrefix + challengeID
}

func classificationField(c models.Classification) string {
	switch c {
	case models.ClassificationBlocked:
		return "blocked"
	case models.ClassificationWarning:
		return "warning"
	default:
		return "safe"
	}
}

// Record folds one result into the challenge counters.
func (s *ValidationMetricsStore) Record(ctx context.Context, challengeID string, result models.ValidationResult) error {
	ints := map[string]int64{fieldTotal: 1}
	ints[classificationField(result.Classification)] = 1
	floats := map[string]float64{
		fieldRiskScoreSum:      result.RiskScore,
		fieldConfidenceSum:     result.Confidence,
		fieldProcessingTimeSum: result.Metadata.ProcessingTimeMs,
	}
	if err := s.cache.IncrementFields(ctx, validationMetricsKey(challengeID), ints, floats, s.ttl); err != nil {
		return fmt.Errorf("failed to record validation metrics: %w", err)
	}
	return nil
}

// Get returns the aggregated counters, zero-filled when nothing has been recorded.
func (s *ValidationMetricsStore) Get(ctx context.Context, challengeID string) (models.ValidationMetrics, error) {
	metrics := models.ValidationMetrics{ChallengeID: challengeID}

	fields, err := s.cache.GetFields(ctx, validationMetricsKey(challengeID))
	if err != nil {
		return metrics, fmt.Errorf("failed to read validation metrics: %w", err)
	}

	metrics.Total = parseInt(fields[fieldTotal])
	metrics.Safe = parseInt(fields["safe"])
	metrics.Warning = parseInt(fields["warning"])
	metrics.Blocked = parseInt(fields["blocked"])
	if metrics.Total > 0 {
		n := float64(metrics.Total)
		metrics.AvgRiskScore = round2(parseFloat(fields[fieldRiskScoreSum]) / n)
		metrics.AvgConfidence = round2(parseFloat(fields[fieldConfidenceSum]) / n)
		metrics.AvgProcessingTimeMs = round2(parseFloat(fields[fieldProcessingTimeSum]) / n)
	}
	return metrics, nil
}

// Clear purges the counters of one challenge, or of every challenge when challengeID is empty.
func (s *ValidationMetricsStore) Clear(ctx context.Context, challengeID string) error {
	if challengeID != "" {
		return s.cache.Delete(ctx, validationMetricsKey(challengeID))
	}
	keys, err := s.cache.Keys(ctx, validationMetricsPrefix+"*")
	if err != nil {
		return fmt.Errorf("failed to list validation metrics: %w", err)
	}
	return s.cache.Delete(ctx, keys...)
}

func parseInt(raw string) int64 {
	v, _ := strconv.ParseInt(raw, 10, 64)
	return v
}

func parseFloat(raw string) float64 {
	v, _ := strconv.ParseFloat(raw, 64)
	return v
}
