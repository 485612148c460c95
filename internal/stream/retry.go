package stream

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// ErrDeadLettered marks a message that exhausted its retries and was moved to the dead letter stream.
var ErrDeadLettered = errors.New("message dead-lettered")

// RetryHandler retries a message handler with exponential backoff and moves
// messages that keep failing to a dead letter stream.
type RetryHandler struct {
	client        *redis.Client
	deadLetterKey string
	maxRetries    int
	baseDelay     time.Duration
	maxDelay      time.Duration
}

func NewRetryHandler(client *redis.Client, deadLetterKey string, maxRetries int, baseDelay time.Duration) *RetryHandler {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &RetryHandler{
		client:        client,
		deadLetterKey: deadLetterKey,
		maxRetries:    maxRetries,
		baseDelay:     baseDelay,
		maxDelay:      30 * time.Second,
	}
}

// RetryWithBackoff runs fn up to maxRetries times. When every attempt fails the
// message is dead-lettered and ErrDeadLettered wraps the last error.
func (h *RetryHandler) RetryWithBackoff(ctx context.Context, fn func() error, messageID string, fields map[string]interface{}) error {
	var lastErr error
	delay := h.baseDelay

	for attempt := 1; attempt <= h.maxRetries; attempt++ {
		if lastErr = fn(); lastErr == nil {
			return nil
		}
		log.Warn().
			Err(lastErr).
			Str("messageId", messageID).
			Int("attempt", attempt).
			Int("maxRetries", h.maxRetries).
			Msg("Message processing failed")

		if attempt == h.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, h.maxDelay)
	}

	if err := h.deadLetter(ctx, messageID, fields, lastErr); err != nil {
		return fmt.Errorf("failed to dead-letter message %s after %v: %w", messageID, lastErr, err)
	}
	return fmt.Errorf("%w: %v", ErrDeadLettered, lastErr)
}

func (h *RetryHandler) deadLetter(ctx context.Context, messageID string, fields map[string]interface{}, cause error) error {
	values := make(map[string]interface{}, len(fields)+3)
	for k, v := range fields {
		values[k] = v
	}
	values["originalId"] = messageID
	values["error"] = cause.Error()
	values["failedAt"] = time.Now().UTC().Format(time.RFC3339)

	if err := h.client.XAdd(ctx, &redis.XAddArgs{Stream: h.deadLetterKey, Values: values}).Err(); err != nil {
		return err
	}
	log.Error().
		Err(cause).
		Str("messageId", messageID).
		Str("deadLetterStream", h.deadLetterKey).
		Msg("Message moved to dead letter stream")
	return nil
}
