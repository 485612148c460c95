package governance

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/metrics"
	"github.com/RishiKendai/vigil/internal/models"
)

const escalationPrefix = "escalation:"

// DefaultEscalationTTL bounds how long repeated risky prompts keep raising the hint level.
const DefaultEscalationTTL = 6 * time.Hour

// SecurityRecorder receives blocked prompts for the security audit log.
type SecurityRecorder interface {
	Record(event models.SecurityEvent)
}

// Request is one prompt submitted for validation.
type Request struct {
	Prompt    string
	Challenge models.ChallengeContext
	HintLevel int
	// Config overrides the environment defaults when set.
	Config    *models.ValidationConfig
	UserID    string
	AttemptID string
	// Preview results are not folded into the challenge counters.
	Preview bool
}

// Validator classifies prompts and folds the outcomes into telemetry. Telemetry
// failures are logged and never change the returned verdict.
type Validator struct {
	store         *ValidationMetricsStore
	cache         cache.Cache
	defaults      models.ValidationConfig
	security      SecurityRecorder
	escalationTTL time.Duration
}

func NewValidator(store *ValidationMetricsStore, c cache.Cache, defaults models.ValidationConfig, security SecurityRecorder) *Validator {
	return &Validator{
		store:         store,
		cache:         c,
		defaults:      defaults,
		security:      security,
		escalationTTL: DefaultEscalationTTL,
	}
}

func (v *Validator) Defaults() models.ValidationConfig {
	return v.defaults
}

func (v *Validator) ValidatePrompt(ctx context.Context, req Request) models.ValidationResult {
	cfg := v.defaults
	if req.Config != nil {
		cfg = *req.Config
	}

	hintLevel := max(req.HintLevel, v.escalationLevel(ctx, req.UserID, req.AttemptID))
	result := Classify(req.Prompt, req.Challenge, hintLevel, cfg)

	metrics.PromptValidations.WithLabelValues(string(result.Classification)).Inc()
	metrics.PromptValidationDuration.Observe(result.Metadata.ProcessingTimeMs / 1000)

	if req.Challenge.ChallengeID != "" && !req.Preview {
		if err := v.store.Record(ctx, req.Challenge.ChallengeID, result); err != nil {
			metrics.CacheFailures.WithLabelValues("validation_metrics_record").Inc()
			log.Warn().Err(err).Str("challengeId", req.Challenge.ChallengeID).Msg("Failed to record validation metrics")
		}
	}

	if result.Classification != models.ClassificationSafe {
		v.bumpEscalation(ctx, req.UserID, req.AttemptID)
	}

	if result.Classification == models.ClassificationBlocked {
		log.Warn().
			Str("userId", req.UserID).
			Str("attemptId", req.AttemptID).
			Str("challengeId", req.Challenge.ChallengeID).
			Str("blockedBy", result.Metadata.BlockedBy).
			Float64("riskScore", result.RiskScore).
			Msg("Prompt blocked")
		if v.security != nil {
			v.security.Record(models.SecurityEvent{
				Type:        models.SecurityPromptBlocked,
				UserID:      req.UserID,
				AttemptID:   req.AttemptID,
				ChallengeID: req.Challenge.ChallengeID,
				RiskScore:   result.RiskScore,
				Reasons:     result.Reasons,
			})
		}
	}

	return result
}

func (v *Validator) AnalyzePrompt(prompt string) models.PromptAnalysis {
	return AnalyzePrompt(prompt)
}

// GetValidationMetrics never fails; a cache error yields zeroed counters.
func (v *Validator) GetValidationMetrics(ctx context.Context, challengeID string) models.ValidationMetrics {
	m, err := v.store.Get(ctx, challengeID)
	if err != nil {
		metrics.CacheFailures.WithLabelValues("validation_metrics_get").Inc()
		log.Warn().Err(err).Str("challengeId", challengeID).Msg("Failed to read validation metrics")
		return models.ValidationMetrics{ChallengeID: challengeID}
	}
	return m
}

func (v *Validator) ClearCache(ctx context.Context, challengeID string) error {
	return v.store.Clear(ctx, challengeID)
}

func escalationKey(userID, attemptID string) string {
	return escalationPrefix + userID + ":" + attemptID
}

func (v *Validator) escalationLevel(ctx context.Context, userID, attemptID string) int {
	if userID == "" || attemptID == "" {
		return 0
	}
	fields, err := v.cache.GetFields(ctx, escalationKey(userID, attemptID))
	if err != nil {
		metrics.CacheFailures.WithLabelValues("escalation_get").Inc()
		log.Warn().Err(err).Str("attemptId", attemptID).Msg("Failed to read escalation counter")
		return 0
	}
	return int(parseInt(fields["count"]))
}

func (v *Validator) bumpEscalation(ctx context.Context, userID, attemptID string) {
	if userID == "" || attemptID == "" {
		return
	}
	err := v.cache.IncrementFields(ctx, escalationKey(userID, attemptID), map[string]int64{"count": 1}, nil, v.escalationTTL)
	if err != nil {
		metrics.CacheFailures.WithLabelValues("escalation_bump").Inc()
		log.Warn().Err(err).Str("attemptId", attemptID).Msg("Failed to bump escalation counter")
	}
}
