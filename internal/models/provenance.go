package models

import "time"

type CopyPasteAction string

const (
	ActionCopy  CopyPasteAction = "copy"
	ActionPaste CopyPasteAction = "paste"
)

// MaxCopyPasteContent bounds report content in characters; keep in step with the binding tag below.
const MaxCopyPasteContent = 20000

// CopyPasteEvent is immutable once recorded.
type CopyPasteEvent struct {
	ID        string          `json:"id" bson:"eventId"`
	UserID    string          `json:"userId" bson:"userId"`
	AttemptID string          `json:"attemptId" bson:"attemptId"`
	Action    CopyPasteAction `json:"action" bson:"action"`
	Content   string          `json:"content" bson:"content"`
	LineCount int             `json:"lineCount" bson:"lineCount"`
	Timestamp time.Time       `json:"timestamp" bson:"timestamp"`
}

type AttributionSource string

const (
	SourceExternal AttributionSource = "external"
	SourceTyped    AttributionSource = "self_authored"
)

type MatchType string

const (
	MatchExact         MatchType = "exact"
	MatchNormalized    MatchType = "normalized"
	MatchNearDuplicate MatchType = "near_duplicate"
	MatchNone          MatchType = "none"
)

// PasteAttribution is derived from a paste event and stored apart from it.
type PasteAttribution struct {
	EventID       string            `json:"eventId" bson:"eventId"`
	UserID        string            `json:"userId" bson:"userId"`
	AttemptID     string            `json:"attemptId" bson:"attemptId"`
	Source        AttributionSource `json:"source" bson:"source"`
	MatchType     MatchType         `json:"matchType" bson:"matchType"`
	Similarity    float64           `json:"similarity" bson:"similarity"`
	MatchedCopyAt *time.Time        `json:"matchedCopyAt,omitempty" bson:"matchedCopyAt,omitempty"`
	CreatedAt     time.Time         `json:"createdAt" bson:"createdAt"`
}

type CopyPasteStats struct {
	AttemptID      string  `json:"attemptId"`
	TotalCopies    int     `json:"totalCopies"`
	TotalPastes    int     `json:"totalPastes"`
	ExternalPastes int     `json:"externalPastes"`
	AICopyRate     float64 `json:"aiCopyRate"`
}

// CopyPasteReport is the client payload for one copy or paste. EventID is an
// optional idempotency key; retries carrying the same key are stored once.
type CopyPasteReport struct {
	EventID     string          `json:"eventId,omitempty" binding:"omitempty,max=128"`
	AttemptID   string          `json:"attemptId" binding:"required"`
	Action      CopyPasteAction `json:"action" binding:"required,oneof=copy paste"`
	Content     string          `json:"content" binding:"max=20000"`
	LineCount   int             `json:"lineCount" binding:"gte=0"`
	SourceLines []int           `json:"sourceLines,omitempty"`
	TargetLines []int           `json:"targetLines,omitempty"`
}
