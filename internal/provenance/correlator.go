// Package provenance records copy and paste events and attributes each paste to
// recently copied content or to the learner.
package provenance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/metrics"
	"github.com/RishiKendai/vigil/internal/models"
)

const (
	DefaultWindow              = 5 * time.Minute
	DefaultSimilarityThreshold = 0.8

	copyKeyPrefix = "copypaste:"
)

// EventStore is the durable copy/paste log. Saves are upserts keyed by event ID.
type EventStore interface {
	SaveCodeEvent(ctx context.Context, event models.CopyPasteEvent) error
	DeleteCodeEvent(ctx context.Context, eventID string) error
	ListCodeEvents(ctx context.Context, attemptID string) ([]models.CopyPasteEvent, error)
	SaveAttribution(ctx context.Context, attribution models.PasteAttribution) error
	ListAttributions(ctx context.Context, attemptID string) ([]models.PasteAttribution, error)
}

type Correlator struct {
	cache     cache.Cache
	events    EventStore
	window    time.Duration
	threshold float64
	now       func() time.Time
}

func NewCorrelator(c cache.Cache, events EventStore, window time.Duration, threshold float64) *Correlator {
	if window <= 0 {
		window = DefaultWindow
	}
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultSimilarityThreshold
	}
	return &Correlator{
		cache:     c,
		events:    events,
		window:    window,
		threshold: threshold,
		now:       time.Now,
	}
}

func copyKeyPattern(userID, attemptID string) string {
	return fmt.Sprintf("%s%s:%s:copy:*", copyKeyPrefix, userID, attemptID)
}

func copyKey(userID, attemptID string, at time.Time) string {
	return fmt.Sprintf("%s%s:%s:copy:%d", copyKeyPrefix, userID, attemptID, at.UnixNano())
}

// TrackCopyPaste records one event. Copies open a window entry; pastes are matched
// against the window and return their attribution. A report carrying an EventID
// can be retried without being counted twice.
func (c *Correlator) TrackCopyPaste(ctx context.Context, userID string, report models.CopyPasteReport) (*models.PasteAttribution, error) {
	now := c.now()
	eventID := report.EventID
	if eventID == "" {
		eventID = uuid.New().String()
	}
	event := models.CopyPasteEvent{
		ID:        eventID,
		UserID:    userID,
		AttemptID: report.AttemptID,
		Action:    report.Action,
		Content:   report.Content,
		LineCount: lineCount(report),
		Timestamp: now,
	}

	switch report.Action {
	case models.ActionCopy:
		if err := c.events.SaveCodeEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to store copy event: %w", err)
		}
		if err := c.cache.Set(ctx, copyKey(userID, report.AttemptID, now), []byte(report.Content), c.window); err != nil {
			metrics.CacheFailures.WithLabelValues("copy_window_set").Inc()
			log.Warn().Err(err).Str("attemptId", report.AttemptID).Msg("Failed to cache copy event")
		}
		metrics.CopyPasteEvents.WithLabelValues(string(models.ActionCopy), "none").Inc()
		return nil, nil

	case models.ActionPaste:
		attribution, err := c.attribute(ctx, event)
		if err != nil {
			return nil, err
		}
		if err := c.events.SaveCodeEvent(ctx, event); err != nil {
			return nil, fmt.Errorf("failed to store paste event: %w", err)
		}
		if err := c.events.SaveAttribution(ctx, attribution); err != nil {
			// the paste only counts once both halves are stored
			if delErr := c.events.DeleteCodeEvent(context.WithoutCancel(ctx), event.ID); delErr != nil {
				log.Error().Err(delErr).Str("eventId", event.ID).Msg("Failed to roll back paste event")
			}
			return nil, fmt.Errorf("failed to store paste attribution: %w", err)
		}
		metrics.CopyPasteEvents.WithLabelValues(string(models.ActionPaste), string(attribution.Source)).Inc()
		log.Debug().
			Str("attemptId", event.AttemptID).
			Str("source", string(attribution.Source)).
			Str("matchType", string(attribution.MatchType)).
			Float64("similarity", attribution.Similarity).
			Msg("Paste attributed")
		return &attribution, nil
	}

	return nil, fmt.Errorf("unknown copy/paste action %q", report.Action)
}

// attribute scans the copy window for the closest match. A cache failure yields a
// self-authored attribution; only cancellation of ctx is an error.
func (c *Correlator) attribute(ctx context.Context, paste models.CopyPasteEvent) (models.PasteAttribution, error) {
	attribution := models.PasteAttribution{
		EventID:   paste.ID,
		UserID:    paste.UserID,
		AttemptID: paste.AttemptID,
		Source:    models.SourceTyped,
		MatchType: models.MatchNone,
		CreatedAt: paste.Timestamp,
	}

	if err := ctx.Err(); err != nil {
		return attribution, fmt.Errorf("paste attribution interrupted: %w", err)
	}
	keys, err := c.cache.Keys(ctx, copyKeyPattern(paste.UserID, paste.AttemptID))
	if err != nil {
		metrics.CacheFailures.WithLabelValues("copy_window_scan").Inc()
		log.Warn().Err(err).Str("attemptId", paste.AttemptID).Msg("Failed to scan copy window")
		return attribution, nil
	}

	var (
		bestScore float64
		bestType  = models.MatchNone
		bestAt    time.Time
	)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return attribution, fmt.Errorf("paste attribution interrupted: %w", err)
		}
		copiedAt, ok := copyTimestamp(key)
		if !ok || paste.Timestamp.Sub(copiedAt) > c.window {
			continue
		}
		raw, err := c.cache.Get(ctx, key)
		if errors.Is(err, cache.ErrMiss) {
			continue
		}
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to read copy event")
			continue
		}
		score, matchType := Similarity(string(raw), paste.Content)
		if score > bestScore || (score == bestScore && score > 0 && copiedAt.After(bestAt)) {
			bestScore, bestType, bestAt = score, matchType, copiedAt
		}
	}

	if bestScore == 0 {
		return attribution, nil
	}
	attribution.Similarity = math.Round(bestScore*10000) / 10000
	attribution.MatchType = bestType
	if bestType == models.MatchExact || bestType == models.MatchNormalized || bestScore >= c.threshold {
		attribution.Source = models.SourceExternal
		matchedAt := bestAt
		attribution.MatchedCopyAt = &matchedAt
	}
	return attribution, nil
}

// GetCopyPasteStats aggregates the attempt's durable events.
func (c *Correlator) GetCopyPasteStats(ctx context.Context, attemptID string) (models.CopyPasteStats, error) {
	stats := models.CopyPasteStats{AttemptID: attemptID}

	events, err := c.events.ListCodeEvents(ctx, attemptID)
	if err != nil {
		return stats, fmt.Errorf("failed to list code events: %w", err)
	}
	for _, e := range events {
		switch e.Action {
		case models.ActionCopy:
			stats.TotalCopies++
		case models.ActionPaste:
			stats.TotalPastes++
		}
	}

	attributions, err := c.events.ListAttributions(ctx, attemptID)
	if err != nil {
		return stats, fmt.Errorf("failed to list paste attributions: %w", err)
	}
	for _, a := range attributions {
		if a.Source == models.SourceExternal {
			stats.ExternalPastes++
		}
	}

	if stats.TotalPastes > 0 {
		stats.AICopyRate = math.Round(float64(stats.ExternalPastes)/float64(stats.TotalPastes)*10000) / 10000
	}
	return stats, nil
}

func copyTimestamp(key string) (time.Time, bool) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(key[idx+1:], 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

func lineCount(report models.CopyPasteReport) int {
	if report.LineCount > 0 || report.Content == "" {
		return report.LineCount
	}
	return strings.Count(report.Content, "\n") + 1
}
