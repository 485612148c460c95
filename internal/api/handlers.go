package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/governance"
	"github.com/RishiKendai/vigil/internal/models"
	"github.com/RishiKendai/vigil/internal/realtime"
	"github.com/RishiKendai/vigil/internal/repository"
	"github.com/RishiKendai/vigil/internal/worker"
)

// PromptService is satisfied by *governance.Validator.
type PromptService interface {
	ValidatePrompt(ctx context.Context, req governance.Request) models.ValidationResult
	AnalyzePrompt(prompt string) models.PromptAnalysis
	GetValidationMetrics(ctx context.Context, challengeID string) models.ValidationMetrics
	ClearCache(ctx context.Context, challengeID string) error
}

// AttemptStore is satisfied by *repository.AttemptRepository.
type AttemptStore interface {
	GetAttempt(ctx context.Context, attemptID string) (*models.Attempt, error)
	GetChallenge(ctx context.Context, challengeID string) (*models.ChallengeContext, error)
}

// MetricsAggregator is satisfied by *aggregation.Aggregator.
type MetricsAggregator interface {
	RecordSnapshot(ctx context.Context, snapshot models.MetricSnapshot) error
	LatestSnapshot(ctx context.Context, attemptID string) (*models.MetricSnapshot, error)
	GetSessionMetrics(ctx context.Context, attemptID string) ([]models.MetricSnapshot, error)
	PreviousCalculation(ctx context.Context, attemptID string) *models.MetricCalculation
	CalculateTrends(ctx context.Context, attemptID string, windowSize int) []models.MetricTrend
	UpdateUserAverages(ctx context.Context, userID string) (*models.UserAverages, error)
}

// CopyPasteTracker is satisfied by *provenance.Correlator.
type CopyPasteTracker interface {
	TrackCopyPaste(ctx context.Context, userID string, report models.CopyPasteReport) (*models.PasteAttribution, error)
	GetCopyPasteStats(ctx context.Context, attemptID string) (models.CopyPasteStats, error)
}

// Assistant is satisfied by *assistant.Service.
type Assistant interface {
	Ask(ctx context.Context, identity models.Identity, req models.AskRequest, challenge models.ChallengeContext) (*models.AskResponse, error)
}

// SecurityLog is satisfied by *audit.SecurityLog.
type SecurityLog interface {
	Record(event models.SecurityEvent)
	Recent(limit int, eventType models.SecurityEventType) []models.SecurityEvent
}

// Dependencies groups everything the handlers need.
type Dependencies struct {
	Prompts    PromptService
	Attempts   AttemptStore
	Aggregator MetricsAggregator
	CopyPaste  CopyPasteTracker
	Assistant  Assistant
	Security   SecurityLog
	Hub        *realtime.Hub
	Streams    *realtime.StreamManager
	Pool       *worker.Pool
}

// Handler holds dependencies for handlers
type Handler struct {
	Dependencies
	storeTimeout time.Duration
	now          func() time.Time
}

func NewHandler(deps Dependencies, storeTimeout time.Duration) *Handler {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &Handler{
		Dependencies: deps,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
	})
}

func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return false
	}
	return true
}

// authorizeAttempt loads the attempt and checks the caller may act on it.
// Writes need the owner and an in-progress attempt; reads also accept
// instructors and admins on any status.
func (h *Handler) authorizeAttempt(c *gin.Context, attemptID string, write bool) (*models.Attempt, bool) {
	identity := identityFrom(c)
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	attempt, err := h.Attempts.GetAttempt(ctx, attemptID)
	if errors.Is(err, repository.ErrNotFound) {
		h.Security.Record(models.SecurityEvent{
			Type:      models.SecurityAttemptMismatch,
			UserID:    identity.ID,
			AttemptID: attemptID,
			Reasons:   []string{"attempt not found"},
		})
		abortWithError(c, http.StatusForbidden, CodeForbidden, "Attempt not found for caller")
		return nil, false
	}
	if err != nil {
		log.Error().Err(err).Str("attemptId", attemptID).Msg("Failed to load attempt")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to load attempt")
		return nil, false
	}

	owner := attempt.UserID == identity.ID
	privileged := identity.IsAdmin() || identity.Role == models.RoleInstructor
	if !owner && (write || !privileged) {
		h.Security.Record(models.SecurityEvent{
			Type:        models.SecurityAttemptMismatch,
			UserID:      identity.ID,
			AttemptID:   attemptID,
			ChallengeID: attempt.ChallengeID,
			Reasons:     []string{"attempt belongs to another user"},
		})
		log.Warn().Str("userId", identity.ID).Str("attemptId", attemptID).Msg("Attempt ownership mismatch")
		abortWithError(c, http.StatusForbidden, CodeForbidden, "Attempt not found for caller")
		return nil, false
	}

	if write && attempt.Status != models.AttemptInProgress {
		abortWithError(c, http.StatusConflict, CodeAttemptNotActive, "Attempt is not in progress")
		return nil, false
	}
	return attempt, true
}

// challengeContext resolves a challenge from the catalog. A missing or
// unreachable challenge yields an empty context carrying only its ID.
func (h *Handler) challengeContext(ctx context.Context, challengeID string) models.ChallengeContext {
	if challengeID == "" {
		return models.ChallengeContext{}
	}
	ctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
	defer cancel()

	challenge, err := h.Attempts.GetChallenge(ctx, challengeID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			log.Warn().Err(err).Str("challengeId", challengeID).Msg("Failed to load challenge, validating without context")
		}
		return models.ChallengeContext{ChallengeID: challengeID}
	}
	return *challenge
}

func (h *Handler) ValidatePrompt(c *gin.Context) {
	var req models.ValidatePromptRequest
	if !bindJSON(c, &req) {
		return
	}
	identity := identityFrom(c)

	// inline context or config is a staff-only preview
	override := req.Context != nil || req.Config != nil
	if override && !identity.IsAdmin() && identity.Role != models.RoleInstructor {
		h.Security.Record(models.SecurityEvent{
			Type:        models.SecurityPolicyOverride,
			UserID:      identity.ID,
			AttemptID:   req.AttemptID,
			ChallengeID: req.ChallengeID,
			Reasons:     []string{"inline validation context or config"},
		})
		abortWithError(c, http.StatusForbidden, CodeForbidden, "Only instructors and admins may override validation context or config")
		return
	}

	if req.AttemptID != "" {
		if _, ok := h.authorizeAttempt(c, req.AttemptID, false); !ok {
			return
		}
	}

	var challenge models.ChallengeContext
	if req.Context != nil {
		challenge = *req.Context
	} else {
		challenge = h.challengeContext(c.Request.Context(), req.ChallengeID)
	}

	result := h.Prompts.ValidatePrompt(c.Request.Context(), governance.Request{
		Prompt:    req.Prompt,
		Challenge: challenge,
		HintLevel: req.HintLevel,
		Config:    req.Config,
		UserID:    identity.ID,
		AttemptID: req.AttemptID,
		Preview:   override,
	})
	c.JSON(http.StatusOK, result)
}

func (h *Handler) AnalyzePrompt(c *gin.Context) {
	var req models.AnalyzePromptRequest
	if !bindJSON(c, &req) {
		return
	}
	c.JSON(http.StatusOK, h.Prompts.AnalyzePrompt(req.Prompt))
}

func (h *Handler) ValidationMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Prompts.GetValidationMetrics(c.Request.Context(), c.Param("challengeId")))
}

// ClearValidationCache drops one challenge's counters, or all of them without ?challengeId.
func (h *Handler) ClearValidationCache(c *gin.Context) {
	challengeID := c.Query("challengeId")
	if err := h.Prompts.ClearCache(c.Request.Context(), challengeID); err != nil {
		log.Error().Err(err).Str("challengeId", challengeID).Msg("Failed to clear validation cache")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to clear validation cache")
		return
	}
	c.JSON(http.StatusOK, gin.H{"cleared": true, "challengeId": challengeID})
}

func (h *Handler) SecurityEvents(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	events := h.Security.Recent(limit, models.SecurityEventType(c.Query("type")))
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (h *Handler) TrackCopyPaste(c *gin.Context) {
	var report models.CopyPasteReport
	if !bindJSON(c, &report) {
		return
	}
	if _, ok := h.authorizeAttempt(c, report.AttemptID, true); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	attribution, err := h.CopyPaste.TrackCopyPaste(ctx, identityFrom(c).ID, report)
	if err != nil {
		log.Error().Err(err).Str("attemptId", report.AttemptID).Msg("Failed to track copy/paste event")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to record event")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"recorded": true, "attribution": attribution})
}

func (h *Handler) CopyPasteStats(c *gin.Context) {
	attemptID := c.Param("attemptId")
	if _, ok := h.authorizeAttempt(c, attemptID, false); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	stats, err := h.CopyPaste.GetCopyPasteStats(ctx, attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptId", attemptID).Msg("Failed to load copy/paste stats")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to load copy/paste stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) Ask(c *gin.Context) {
	var req models.AskRequest
	if !bindJSON(c, &req) {
		return
	}
	attempt, ok := h.authorizeAttempt(c, req.AttemptID, true)
	if !ok {
		return
	}
	if attempt.ChallengeID != "" && attempt.ChallengeID != req.ChallengeID {
		abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, "challengeId does not match the attempt")
		return
	}

	challenge := h.challengeContext(c.Request.Context(), req.ChallengeID)
	resp, err := h.Assistant.Ask(c.Request.Context(), identityFrom(c), req, challenge)
	if err != nil {
		log.Error().Err(err).Str("attemptId", req.AttemptID).Msg("Assistant request failed")
		abortWithError(c, http.StatusBadGateway, CodeInternalError, "Assistant is unavailable")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ServeWS(c *gin.Context) {
	h.Hub.ServeWS(c.Writer, c.Request, identityFrom(c).ID)
}
