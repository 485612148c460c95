package models

// AskRequest is a learner's prompt routed through the assistant gateway.
type AskRequest struct {
	Prompt      string `json:"prompt" binding:"required,max=8000"`
	ChallengeID string `json:"challengeId" binding:"required"`
	AttemptID   string `json:"attemptId" binding:"required"`
	HintLevel   int    `json:"hintLevel" binding:"gte=0"`
}

type AskResponse struct {
	Forwarded  bool             `json:"forwarded"`
	Validation ValidationResult `json:"validation"`
	Answer     string           `json:"answer,omitempty"`
}

type ProviderMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProviderRequest is the body sent to the upstream AI provider.
type ProviderRequest struct {
	UserID    string            `json:"userId"`
	AttemptID string            `json:"attemptId"`
	Messages  []ProviderMessage `json:"messages"`
}

type ProviderResponse struct {
	Model   string `json:"model"`
	Content string `json:"content"`
}

// ProviderError represents an error response from the AI provider
type ProviderError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
