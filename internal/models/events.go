package models

import "time"

const (
	EventMetricsUpdate = "metrics:update"
	EventMetricsStream = "metrics:stream"
)

type MetricValues struct {
	DI float64 `json:"DI"`
	PR float64 `json:"PR"`
	CS float64 `json:"CS"`
}

func ValuesOf(calc MetricCalculation) MetricValues {
	return MetricValues{DI: calc.DependencyIndex, PR: calc.PassRate, CS: calc.ChecklistScore}
}

type MetricsUpdateEvent struct {
	AttemptID      string         `json:"attemptId"`
	Metrics        MetricValues   `json:"metrics"`
	RiskAssessment RiskAssessment `json:"riskAssessment"`
	Insights       []string       `json:"insights"`
	Timestamp      time.Time      `json:"timestamp"`
}

type MetricsStreamEvent struct {
	AttemptID string        `json:"attemptId"`
	Metrics   MetricValues  `json:"metrics"`
	Trends    []MetricTrend `json:"trends"`
	Timestamp time.Time     `json:"timestamp"`
}

type SecurityEventType string

const (
	SecurityPromptBlocked   SecurityEventType = "prompt_blocked"
	SecurityAuthFailure     SecurityEventType = "auth_failure"
	SecurityAttemptMismatch SecurityEventType = "attempt_mismatch"
	SecurityPolicyOverride  SecurityEventType = "policy_override"
)

type SecurityEvent struct {
	ID          string            `json:"id"`
	Type        SecurityEventType `json:"type"`
	UserID      string            `json:"userId,omitempty"`
	AttemptID   string            `json:"attemptId,omitempty"`
	ChallengeID string            `json:"challengeId,omitempty"`
	RiskScore   float64           `json:"riskScore,omitempty"`
	Reasons     []string          `json:"reasons,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}
