package models

import "time"

type ChecklistCategory string

const (
	ChecklistValidation    ChecklistCategory = "validation"
	ChecklistSecurity      ChecklistCategory = "security"
	ChecklistTesting       ChecklistCategory = "testing"
	ChecklistDocumentation ChecklistCategory = "documentation"
)

type ChecklistItem struct {
	ID       string            `json:"id" bson:"id" binding:"required"`
	Label    string            `json:"label" bson:"label" binding:"required"`
	Checked  bool              `json:"checked" bson:"checked"`
	Weight   float64           `json:"weight" bson:"weight" binding:"gte=0"`
	Category ChecklistCategory `json:"category" bson:"category" binding:"required,oneof=validation security testing documentation"`
}

// CodeMetrics is one raw session snapshot reported by the tracking client.
type CodeMetrics struct {
	TotalLines      int             `json:"totalLines" bson:"totalLines"`
	LinesFromAI     int             `json:"linesFromAI" bson:"linesFromAI"`
	LinesTyped      int             `json:"linesTyped" bson:"linesTyped"`
	CopyPasteEvents int             `json:"copyPasteEvents" bson:"copyPasteEvents"`
	DeleteEvents    int             `json:"deleteEvents" bson:"deleteEvents"`
	TestRuns        int             `json:"testRuns" bson:"testRuns"`
	TestsPassed     int             `json:"testsPassed" bson:"testsPassed"`
	TestsTotal      int             `json:"testsTotal" bson:"testsTotal"`
	ChecklistItems  []ChecklistItem `json:"checklistItems" bson:"checklistItems"`
}

// MetricCalculation holds the indices derived from exactly one CodeMetrics snapshot.
type MetricCalculation struct {
	DependencyIndex float64   `json:"dependencyIndex" bson:"dependencyIndex"`
	PassRate        float64   `json:"passRate" bson:"passRate"`
	ChecklistScore  float64   `json:"checklistScore" bson:"checklistScore"`
	Timestamp       time.Time `json:"timestamp" bson:"timestamp"`
	SessionTime     int64     `json:"sessionTime" bson:"sessionTime"`
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskAssessment is always recomputed from a MetricCalculation.
type RiskAssessment struct {
	Level           RiskLevel `json:"level" bson:"level"`
	Factors         []string  `json:"factors" bson:"factors"`
	Recommendations []string  `json:"recommendations" bson:"recommendations"`
	Score           float64   `json:"score" bson:"score"`
}

type MetricName string

const (
	MetricDI MetricName = "DI"
	MetricPR MetricName = "PR"
	MetricCS MetricName = "CS"
)

type TrendDirection string

const (
	TrendImproving TrendDirection = "improving"
	TrendStable    TrendDirection = "stable"
	TrendDeclining TrendDirection = "declining"
)

type TrendPoint struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

type MetricTrend struct {
	Metric        MetricName     `json:"metric"`
	Values        []TrendPoint   `json:"values"`
	Trend         TrendDirection `json:"trend"`
	ChangePercent float64        `json:"changePercent"`
}

// MetricSnapshot is one entry of the durable per-attempt metric log.
type MetricSnapshot struct {
	AttemptID   string            `json:"attemptId" bson:"attemptId"`
	UserID      string            `json:"userId" bson:"userId"`
	Calculation MetricCalculation `json:"calculation" bson:"calculation"`
	RiskLevel   RiskLevel         `json:"riskLevel" bson:"riskLevel"`
	CreatedAt   time.Time         `json:"createdAt" bson:"createdAt"`
}

type UserAverages struct {
	UserID             string    `json:"userId" bson:"userId"`
	AvgDependencyIndex float64   `json:"avgDependencyIndex" bson:"avgDependencyIndex"`
	AvgPassRate        float64   `json:"avgPassRate" bson:"avgPassRate"`
	AvgChecklistScore  float64   `json:"avgChecklistScore" bson:"avgChecklistScore"`
	CompletedAttempts  int       `json:"completedAttempts" bson:"completedAttempts"`
	UpdatedAt          time.Time `json:"updatedAt" bson:"updatedAt"`
}

type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptAbandoned  AttemptStatus = "abandoned"
)

// Attempt is owned by the progression catalog; vigil only reads it.
type Attempt struct {
	ID           string             `json:"attemptId" bson:"attemptId"`
	UserID       string             `json:"userId" bson:"userId"`
	ChallengeID  string             `json:"challengeId" bson:"challengeId"`
	Status       AttemptStatus      `json:"status" bson:"status"`
	FinalMetrics *MetricCalculation `json:"finalMetrics,omitempty" bson:"finalMetrics,omitempty"`
	StartedAt    time.Time          `json:"startedAt" bson:"startedAt"`
	CompletedAt  *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}
