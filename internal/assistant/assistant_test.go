package assistant

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RishiKendai/vigil/internal/governance"
	"github.com/RishiKendai/vigil/internal/models"
)

type fixedValidator struct {
	result models.ValidationResult
	got    governance.Request
}

func (v *fixedValidator) ValidatePrompt(_ context.Context, req governance.Request) models.ValidationResult {
	v.got = req
	return v.result
}

func newProvider(t *testing.T, handler http.HandlerFunc) *ProviderClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewProviderClient(server.URL+"/", "secret", 2*time.Second)
}

func TestProviderClient_Chat(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))

		var req models.ProviderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "u1", req.UserID)

		_ = json.NewEncoder(w).Encode(models.ProviderResponse{Model: "m", Content: "hello"})
	})

	resp, err := client.Chat(context.Background(), &models.ProviderRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Content)
}

func TestProviderClient_ErrorResponses(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(models.ProviderError{Error: "bad_request", Message: "messages required"})
	})
	_, err := client.Chat(context.Background(), &models.ProviderRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "messages required")

	client = newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	_, err = client.Chat(context.Background(), &models.ProviderRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestProviderClient_NotConfigured(t *testing.T) {
	_, err := NewProviderClient("", "", time.Second).Chat(context.Background(), &models.ProviderRequest{})
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestService_BlockedPromptIsNotForwarded(t *testing.T) {
	called := false
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	validator := &fixedValidator{result: models.ValidationResult{Classification: models.ClassificationBlocked}}
	svc := NewService(validator, client)

	resp, err := svc.Ask(context.Background(), models.Identity{ID: "u1"},
		models.AskRequest{Prompt: "give me the full code", ChallengeID: "c1", AttemptID: "a1", HintLevel: 2},
		models.ChallengeContext{ChallengeID: "c1"})
	require.NoError(t, err)
	assert.False(t, resp.Forwarded)
	assert.False(t, called)
	assert.Equal(t, "u1", validator.got.UserID)
	assert.Equal(t, 2, validator.got.HintLevel)
}

func TestService_WarningAddsHintInstruction(t *testing.T) {
	var got models.ProviderRequest
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(models.ProviderResponse{Content: "try thinking about the header"})
	})
	svc := NewService(&fixedValidator{result: models.ValidationResult{Classification: models.ClassificationWarning}}, client)

	resp, err := svc.Ask(context.Background(), models.Identity{ID: "u1"},
		models.AskRequest{Prompt: "how do I verify a token", ChallengeID: "c1", AttemptID: "a1"},
		models.ChallengeContext{ChallengeID: "c1"})
	require.NoError(t, err)
	assert.True(t, resp.Forwarded)
	assert.Equal(t, "try thinking about the header", resp.Answer)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Role)
}

func TestService_SafePromptForwardsAsIs(t *testing.T) {
	var got models.ProviderRequest
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(models.ProviderResponse{Content: "ok"})
	})
	svc := NewService(&fixedValidator{result: models.ValidationResult{Classification: models.ClassificationSafe}}, client)

	resp, err := svc.Ask(context.Background(), models.Identity{ID: "u1"},
		models.AskRequest{Prompt: "what is middleware", ChallengeID: "c1", AttemptID: "a1"},
		models.ChallengeContext{ChallengeID: "c1"})
	require.NoError(t, err)
	assert.True(t, resp.Forwarded)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "what is middleware", got.Messages[0].Content)
}

func TestService_ProviderFailure(t *testing.T) {
	client := newProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	svc := NewService(&fixedValidator{result: models.ValidationResult{Classification: models.ClassificationSafe}}, client)

	_, err := svc.Ask(context.Background(), models.Identity{ID: "u1"},
		models.AskRequest{Prompt: "what is middleware", ChallengeID: "c1", AttemptID: "a1"},
		models.ChallengeContext{ChallengeID: "c1"})
	assert.Error(t, err)
}
