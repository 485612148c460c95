package assistant

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/governance"
	"github.com/RishiKendai/vigil/internal/models"
)

const hintOnlyInstruction = "The learner is working on a graded challenge. Explain concepts and give hints only. " +
	"Do not write the complete solution or full working code."

// PromptValidator is satisfied by *governance.Validator.
type PromptValidator interface {
	ValidatePrompt(ctx context.Context, req governance.Request) models.ValidationResult
}

// Chatter is satisfied by *ProviderClient.
type Chatter interface {
	Chat(ctx context.Context, req *models.ProviderRequest) (*models.ProviderResponse, error)
}

// Service gates every assistant prompt through governance before it reaches the provider.
type Service struct {
	validator PromptValidator
	provider  Chatter
}

func NewService(validator PromptValidator, provider Chatter) *Service {
	return &Service{
		validator: validator,
		provider:  provider,
	}
}

// Ask validates the prompt and forwards it unless it was BLOCKED. A WARNING
// verdict still forwards, prefixed with a hint-only system instruction.
func (s *Service) Ask(ctx context.Context, identity models.Identity, req models.AskRequest, challenge models.ChallengeContext) (*models.AskResponse, error) {
	result := s.validator.ValidatePrompt(ctx, governance.Request{
		Prompt:    req.Prompt,
		Challenge: challenge,
		HintLevel: req.HintLevel,
		UserID:    identity.ID,
		AttemptID: req.AttemptID,
	})

	resp := &models.AskResponse{Validation: result}
	if result.Classification == models.ClassificationBlocked {
		log.Info().
			Str("userId", identity.ID).
			Str("attemptId", req.AttemptID).
			Str("blockedBy", result.Metadata.BlockedBy).
			Msg("Assistant prompt blocked")
		return resp, nil
	}

	messages := make([]models.ProviderMessage, 0, 2)
	if result.Classification == models.ClassificationWarning {
		messages = append(messages, models.ProviderMessage{Role: "system", Content: hintOnlyInstruction})
	}
	messages = append(messages, models.ProviderMessage{Role: "user", Content: req.Prompt})

	answer, err := s.provider.Chat(ctx, &models.ProviderRequest{
		UserID:    identity.ID,
		AttemptID: req.AttemptID,
		Messages:  messages,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to forward prompt: %w", err)
	}

	resp.Forwarded = true
	resp.Answer = answer.Content
	return resp, nil
}
