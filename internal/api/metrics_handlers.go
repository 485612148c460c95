package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/aggregation"
	"github.com/RishiKendai/vigil/internal/metrics"
	"github.com/RishiKendai/vigil/internal/models"
	"github.com/RishiKendai/vigil/internal/realtime"
	"github.com/RishiKendai/vigil/internal/scoring"
	"github.com/RishiKendai/vigil/internal/worker"
)

// TrackMetrics scores one session snapshot, answers synchronously and leaves
// persistence and the metrics:update push to the worker pool.
func (h *Handler) TrackMetrics(c *gin.Context) {
	var req models.TrackMetricsRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	attempt, ok := h.authorizeAttempt(c, req.AttemptID, true)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	now := h.now()
	calc := scoring.Calculate(req.CodeMetrics(), req.SessionTime, now)
	risk := scoring.AssessRisk(calc)
	insights := scoring.GenerateInsights(calc, h.Aggregator.PreviousCalculation(ctx, req.AttemptID))

	if stats, err := h.CopyPaste.GetCopyPasteStats(ctx, req.AttemptID); err != nil {
		log.Warn().Err(err).Str("attemptId", req.AttemptID).Msg("Skipping copy/paste cross-check")
	} else if stats.TotalPastes > 0 {
		if insight, flagged := scoring.CrossCheckDependency(calc, stats.AICopyRate); flagged {
			insights = append(insights, insight)
		}
	}

	snapshot := models.MetricSnapshot{
		AttemptID:   req.AttemptID,
		UserID:      attempt.UserID,
		Calculation: calc,
		RiskLevel:   risk.Level,
		CreatedAt:   now,
	}
	event := models.MetricsUpdateEvent{
		AttemptID:      req.AttemptID,
		Metrics:        models.ValuesOf(calc),
		RiskAssessment: risk,
		Insights:       insights,
		Timestamp:      now,
	}
	h.dispatch(c.Request.Context(), h.recordJob(snapshot, event))

	metrics.MetricCalculations.WithLabelValues(string(risk.Level)).Inc()
	log.Debug().
		Str("attemptId", req.AttemptID).
		Float64("dependencyIndex", calc.DependencyIndex).
		Str("riskLevel", string(risk.Level)).
		Msg("Metrics calculated")

	c.JSON(http.StatusOK, models.TrackMetricsResponse{
		AttemptID:      req.AttemptID,
		Metrics:        calc,
		RiskAssessment: risk,
		Insights:       insights,
	})
}

func (h *Handler) recordJob(snapshot models.MetricSnapshot, event models.MetricsUpdateEvent) worker.Job {
	return worker.JobFunc(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, h.storeTimeout)
		defer cancel()

		if err := h.Aggregator.RecordSnapshot(ctx, snapshot); err != nil {
			log.Error().Err(err).Str("attemptId", snapshot.AttemptID).Msg("Failed to record metric snapshot")
			return err
		}
		if err := h.Hub.Publish(ctx, snapshot.UserID, models.EventMetricsUpdate, event); err != nil {
			log.Warn().Err(err).Str("userId", snapshot.UserID).Msg("Failed to publish metrics update")
		}
		return nil
	})
}

// dispatch hands the job to the pool, running it inline once the pool is closed.
func (h *Handler) dispatch(ctx context.Context, job worker.Job) {
	if err := h.Pool.Submit(job); err != nil {
		log.Warn().Err(err).Msg("Worker pool unavailable, running job inline")
		_ = job.Execute(context.WithoutCancel(ctx))
	}
}

func (h *Handler) SessionMetrics(c *gin.Context) {
	attemptID := c.Param("attemptId")
	if _, ok := h.authorizeAttempt(c, attemptID, false); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	snapshots, err := h.Aggregator.GetSessionMetrics(ctx, attemptID)
	if err != nil {
		log.Error().Err(err).Str("attemptId", attemptID).Msg("Failed to load session metrics")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to load session metrics")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attemptId": attemptID, "snapshots": snapshots})
}

func (h *Handler) Trends(c *gin.Context) {
	attemptID := c.Param("attemptId")
	window := aggregation.DefaultWindowSize
	if raw := c.Query("window"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, "window must be a positive integer")
			return
		}
		window = n
	}
	if _, ok := h.authorizeAttempt(c, attemptID, false); !ok {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	c.JSON(http.StatusOK, gin.H{
		"attemptId": attemptID,
		"trends":    h.Aggregator.CalculateTrends(ctx, attemptID, window),
	})
}

func (h *Handler) RefreshAverages(c *gin.Context) {
	userID := identityFrom(c).ID
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.storeTimeout)
	defer cancel()

	averages, err := h.Aggregator.UpdateUserAverages(ctx, userID)
	if err != nil {
		log.Error().Err(err).Str("userId", userID).Msg("Failed to update user averages")
		abortWithError(c, http.StatusInternalServerError, CodeInternalError, "Failed to update averages")
		return
	}
	c.JSON(http.StatusOK, gin.H{"userId": userID, "averages": averages})
}

func (h *Handler) StartStream(c *gin.Context) {
	var req models.StreamStartRequest
	if !bindJSON(c, &req) {
		return
	}
	attempt, ok := h.authorizeAttempt(c, req.AttemptID, true)
	if !ok {
		return
	}

	interval := time.Duration(req.Interval) * time.Millisecond
	key := realtime.StreamKey(attempt.UserID, req.AttemptID)
	err := h.Streams.Start(key, interval, h.streamTick(attempt.UserID, req.AttemptID))
	if errors.Is(err, realtime.ErrInvalidInterval) {
		abortWithError(c, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if err != nil {
		log.Error().Err(err).Str("attemptId", req.AttemptID).Msg("Failed to start metrics stream")
		abortWithError(c, http.StatusServiceUnavailable, CodeInternalError, "Streaming is unavailable")
		return
	}
	c.JSON(http.StatusOK, gin.H{"attemptId": req.AttemptID, "interval": req.Interval, "streaming": true})
}

// streamTick pushes metrics:stream while a latest snapshot is cached.
func (h *Handler) streamTick(userID, attemptID string) realtime.TickFunc {
	return func(ctx context.Context) error {
		snapshot, err := h.Aggregator.LatestSnapshot(ctx, attemptID)
		if err != nil {
			return err
		}
		if snapshot == nil {
			return nil
		}
		return h.Hub.Publish(ctx, userID, models.EventMetricsStream, models.MetricsStreamEvent{
			AttemptID: attemptID,
			Metrics:   models.ValuesOf(snapshot.Calculation),
			Trends:    h.Aggregator.CalculateTrends(ctx, attemptID, aggregation.DefaultWindowSize),
			Timestamp: h.now(),
		})
	}
}

func (h *Handler) StopStream(c *gin.Context) {
	var req models.StreamStopRequest
	if !bindJSON(c, &req) {
		return
	}
	stopped := h.Streams.Stop(realtime.StreamKey(identityFrom(c).ID, req.AttemptID))
	c.JSON(http.StatusOK, gin.H{"attemptId": req.AttemptID, "stopped": stopped})
}
