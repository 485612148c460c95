package models

import "fmt"

// TrackMetricsRequest is the track-metrics call schema.
type TrackMetricsRequest struct {
	AttemptID        string          `json:"attemptId" binding:"required"`
	TotalLines       int             `json:"totalLines" binding:"gte=0"`
	LinesFromAI      int             `json:"linesFromAI" binding:"gte=0,ltefield=TotalLines"`
	LinesTyped       int             `json:"linesTyped" binding:"gte=0"`
	CopyPasteEvents  int             `json:"copyPasteEvents" binding:"gte=0"`
	DeleteEvents     int             `json:"deleteEvents" binding:"gte=0"`
	TestRuns         int             `json:"testRuns" binding:"gte=0"`
	TestsPassed      int             `json:"testsPassed" binding:"gte=0,ltefield=TestsTotal"`
	TestsTotal       int             `json:"testsTotal" binding:"gte=0"`
	ChecklistItems   []ChecklistItem `json:"checklistItems" binding:"dive"`
	SessionTime      int64           `json:"sessionTime" binding:"gte=0"`
	AIUsageTime      *int64          `json:"aiUsageTime,omitempty" binding:"omitempty,gte=0"`
	ManualCodingTime *int64          `json:"manualCodingTime,omitempty" binding:"omitempty,gte=0"`
	DebugTime        *int64          `json:"debugTime,omitempty" binding:"omitempty,gte=0"`
}

// Validate re-checks the constraints that do not depend on struct tags so the
// schema holds for callers that bypass HTTP binding.
func (r TrackMetricsRequest) Validate() error {
	if r.AttemptID == "" {
		return fmt.Errorf("attemptId is required")
	}
	if r.TotalLines < 0 || r.LinesFromAI < 0 || r.LinesTyped < 0 || r.CopyPasteEvents < 0 ||
		r.DeleteEvents < 0 || r.TestRuns < 0 || r.TestsPassed < 0 || r.TestsTotal < 0 || r.SessionTime < 0 {
		return fmt.Errorf("counters must be non-negative")
	}
	if r.LinesFromAI > r.TotalLines {
		return fmt.Errorf("linesFromAI (%d) cannot exceed totalLines (%d)", r.LinesFromAI, r.TotalLines)
	}
	if r.TestsPassed > r.TestsTotal {
		return fmt.Errorf("testsPassed (%d) cannot exceed testsTotal (%d)", r.TestsPassed, r.TestsTotal)
	}
	for _, item := range r.ChecklistItems {
		if item.Weight < 0 {
			return fmt.Errorf("checklist item %q has negative weight", item.ID)
		}
	}

	var breakdown int64
	for _, part := range []*int64{r.AIUsageTime, r.ManualCodingTime, r.DebugTime} {
		if part == nil {
			continue
		}
		if *part < 0 {
			return fmt.Errorf("time breakdown values must be non-negative")
		}
		breakdown += *part
	}
	if breakdown > r.SessionTime {
		return fmt.Errorf("time breakdown (%d) exceeds sessionTime (%d)", breakdown, r.SessionTime)
	}
	return nil
}

func (r TrackMetricsRequest) CodeMetrics() CodeMetrics {
	return CodeMetrics{
		TotalLines:      r.TotalLines,
		LinesFromAI:     r.LinesFromAI,
		LinesTyped:      r.LinesTyped,
		CopyPasteEvents: r.CopyPasteEvents,
		DeleteEvents:    r.DeleteEvents,
		TestRuns:        r.TestRuns,
		TestsPassed:     r.TestsPassed,
		TestsTotal:      r.TestsTotal,
		ChecklistItems:  r.ChecklistItems,
	}
}

type TrackMetricsResponse struct {
	AttemptID      string            `json:"attemptId"`
	Metrics        MetricCalculation `json:"metrics"`
	RiskAssessment RiskAssessment    `json:"riskAssessment"`
	Insights       []string          `json:"insights"`
}

type ValidatePromptRequest struct {
	Prompt      string            `json:"prompt" binding:"required,max=8000"`
	ChallengeID string            `json:"challengeId"`
	AttemptID   string            `json:"attemptId"`
	Context     *ChallengeContext `json:"context"`
	HintLevel   int               `json:"hintLevel" binding:"gte=0"`
	Config      *ValidationConfig `json:"config"`
}

type AnalyzePromptRequest struct {
	Prompt string `json:"prompt" binding:"required,max=8000"`
}

type StreamStartRequest struct {
	AttemptID string `json:"attemptId" binding:"required"`
	Interval  int    `json:"interval" binding:"required,gte=1000,lte=60000"`
}

type StreamStopRequest struct {
	AttemptID string `json:"attemptId" binding:"required"`
}
