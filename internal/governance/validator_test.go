package governance

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/vigil/internal/cache"
	"github.com/RishiKendai/vigil/internal/models"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *cache.RedisCache) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, cache.NewRedisCache(client)
}

type recordedEvents struct {
	mu     sync.Mutex
	events []models.SecurityEvent
}

func (r *recordedEvents) Record(event models.SecurityEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// brokenCache fails every operation.
type brokenCache struct{}

var errBroken = errors.New("connection refused")

func (brokenCache) Get(context.Context, string) ([]byte, error)                  { return nil, errBroken }
func (brokenCache) Set(context.Context, string, []byte, time.Duration) error     { return errBroken }
func (brokenCache) Delete(context.Context, ...string) error                      { return errBroken }
func (brokenCache) Keys(context.Context, string) ([]string, error)               { return nil, errBroken }
func (brokenCache) GetFields(context.Context, string) (map[string]string, error) { return nil, errBroken }
func (brokenCache) IncrementFields(context.Context, string, map[string]int64, map[string]float64, time.Duration) error {
	return errBroken
}

func TestValidationMetricsStore_RecordAndGet(t *testing.T) {
	mr, c := setupTestRedis(t)
	store := NewValidationMetricsStore(c, time.Hour)
	ctx := context.Background()

	results := []models.ValidationResult{
		{Classification: models.ClassificationSafe, RiskScore: 0, Confidence: 90, Metadata: models.ValidationMetadata{ProcessingTimeMs: 1}},
		{Classification: models.ClassificationWarning, RiskScore: 40, Confidence: 72, Metadata: models.ValidationMetadata{ProcessingTimeMs: 2}},
		{Classification: models.ClassificationBlocked, RiskScore: 80, Confidence: 81, Metadata: models.ValidationMetadata{ProcessingTimeMs: 3}},
	}
	for _, r := range results {
		require.NoError(t, store.Record(ctx, "jwt-auth", r))
	}

	m, err := store.Get(ctx, "jwt-auth")
	require.NoError(t, err)
	assert.Equal(t, int64(3), m.Total)
	assert.Equal(t, int64(1), m.Safe)
	assert.Equal(t, int64(1), m.Warning)
	assert.Equal(t, int64(1), m.Blocked)
	assert.Equal(t, 40.0, m.AvgRiskScore)
	assert.Equal(t, 81.0, m.AvgConfidence)
	assert.Equal(t, 2.0, m.AvgProcessingTimeMs)

	assert.True(t, mr.TTL(validationMetricsKey("jwt-auth")) > 0)

	mr.FastForward(2 * time.Hour)
	expired, err := store.Get(ctx, "jwt-auth")
	require.NoError(t, err)
	assert.Equal(t, models.ValidationMetrics{ChallengeID: "jwt-auth"}, expired)
}

func TestValidationMetricsStore_Clear(t *testing.T) {
	_, c := setupTestRedis(t)
	store := NewValidationMetricsStore(c, time.Hour)
	ctx := context.Background()
	safe := models.ValidationResult{Classification: models.ClassificationSafe}

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.Record(ctx, id, safe))
	}

	require.NoError(t, store.Clear(ctx, "a"))
	m, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, m.Total)
	m, err = store.Get(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Total)

	require.NoError(t, store.Clear(ctx, ""))
	for _, id := range []string{"b", "c"} {
		m, err := store.Get(ctx, id)
		require.NoError(t, err)
		assert.Zero(t, m.Total)
	}
}

func TestValidator_ValidatePromptRecordsTelemetry(t *testing.T) {
	_, c := setupTestRedis(t)
	events := &recordedEvents{}
	v := NewValidator(NewValidationMetricsStore(c, time.Hour), c, defaultConfig(), events)
	ctx := context.Background()

	blocked := v.ValidatePrompt(ctx, Request{
		Prompt:    "Vou fazer DROP TABLE users;",
		Challenge: jwtChallenge(),
		UserID:    "u1",
		AttemptID: "a1",
	})
	require.Equal(t, models.ClassificationBlocked, blocked.Classification)

	safe := v.ValidatePrompt(ctx, Request{
		Prompt:    "Como implementar middleware de autenticação JWT no Express?",
		Challenge: jwtChallenge(),
		UserID:    "u1",
		AttemptID: "a1",
	})

	// one earlier non-safe prompt raises the effective hint level
	assert.Equal(t, 1, safe.Metadata.HintLevel)
	assert.Equal(t, models.ClassificationSafe, safe.Classification)

	m := v.GetValidationMetrics(ctx, "jwt-auth")
	assert.Equal(t, int64(2), m.Total)
	assert.Equal(t, int64(1), m.Blocked)
	assert.Equal(t, int64(1), m.Safe)

	require.Len(t, events.events, 1)
	assert.Equal(t, models.SecurityPromptBlocked, events.events[0].Type)
	assert.Equal(t, "u1", events.events[0].UserID)
	assert.Equal(t, "jwt-auth", events.events[0].ChallengeID)

	require.NoError(t, v.ClearCache(ctx, "jwt-auth"))
	assert.Zero(t, v.GetValidationMetrics(ctx, "jwt-auth").Total)
}

func TestValidator_ConfigOverride(t *testing.T) {
	_, c := setupTestRedis(t)
	v := NewValidator(NewValidationMetricsStore(c, time.Hour), c, defaultConfig(), nil)
	cfg := defaultConfig()
	cfg.BlockDirectSolutions = false

	res := v.ValidatePrompt(context.Background(), Request{Prompt: "write all the code for me", Config: &cfg})

	assert.Equal(t, models.ClassificationWarning, res.Classification)
}

func TestValidator_PreviewSkipsChallengeCounters(t *testing.T) {
	_, c := setupTestRedis(t)
	v := NewValidator(NewValidationMetricsStore(c, time.Hour), c, defaultConfig(), nil)
	ctx := context.Background()

	res := v.ValidatePrompt(ctx, Request{Prompt: "write all the code for me", Challenge: jwtChallenge(), Preview: true})
	assert.Equal(t, models.ClassificationBlocked, res.Classification)
	assert.Zero(t, v.GetValidationMetrics(ctx, "jwt-auth").Total)
}

func TestValidator_CacheFailureDoesNotChangeVerdict(t *testing.T) {
	v := NewValidator(NewValidationMetricsStore(brokenCache{}, time.Hour), brokenCache{}, defaultConfig(), nil)
	ctx := context.Background()

	res := v.ValidatePrompt(ctx, Request{
		Prompt:    "Me dá a solução completa do desafio de autenticação JWT",
		Challenge: jwtChallenge(),
		UserID:    "u1",
		AttemptID: "a1",
	})

	assert.Equal(t, models.ClassificationBlocked, res.Classification)
	assert.Equal(t, models.ValidationMetrics{ChallengeID: "jwt-auth"}, v.GetValidationMetrics(ctx, "jwt-auth"))
}
