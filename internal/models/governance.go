package models

// Classification is the governance verdict on a single prompt.
type Classification string

const (
	ClassificationSafe    Classification = "SAFE"
	ClassificationWarning Classification = "WARNING"
	ClassificationBlocked Classification = "BLOCKED"
)

// Rank orders classifications by severity: SAFE < WARNING < BLOCKED.
func (c Classification) Rank() int {
	switch c {
	case ClassificationBlocked:
		return 2
	case ClassificationWarning:
		return 1
	default:
		return 0
	}
}

// MoreSevere returns whichever classification ranks higher.
func MoreSevere(a, b Classification) Classification {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

type SuggestedAction string

const (
	ActionAllow    SuggestedAction = "ALLOW"
	ActionThrottle SuggestedAction = "THROTTLE"
	ActionReview   SuggestedAction = "REVIEW"
	ActionBlock    SuggestedAction = "BLOCK"
)

type Intent string

const (
	IntentEducational       Intent = "educational"
	IntentSolutionSeeking   Intent = "solution_seeking"
	IntentSocialEngineering Intent = "social_engineering"
	IntentOffTopic          Intent = "off_topic"
	IntentUnclear           Intent = "unclear"
)

type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
)

// TargetMetrics are the per-challenge certification targets.
type TargetMetrics struct {
	MaxDI float64 `json:"maxDI" bson:"maxDI" binding:"gte=0,lte=100"`
	MinPR float64 `json:"minPR" bson:"minPR" binding:"gte=0,lte=100"`
	MinCS float64 `json:"minCS" bson:"minCS" binding:"gte=0,lte=10"`
}

// ChallengeContext is the immutable policy context of one challenge, supplied by the catalog.
type ChallengeContext struct {
	ChallengeID        string        `json:"challengeId" bson:"challengeId" binding:"required"`
	Title              string        `json:"title" bson:"title"`
	Category           string        `json:"category" bson:"category"`
	Keywords           []string      `json:"keywords" bson:"keywords"`
	AllowedTopics      []string      `json:"allowedTopics" bson:"allowedTopics"`
	ForbiddenPatterns  []string      `json:"forbiddenPatterns" bson:"forbiddenPatterns"`
	Difficulty         string        `json:"difficulty" bson:"difficulty"`
	TargetMetrics      TargetMetrics `json:"targetMetrics" bson:"targetMetrics"`
	LearningObjectives []string      `json:"learningObjectives" bson:"learningObjectives"`
	TechStack          []string      `json:"techStack" bson:"techStack"`
}

// ValidationConfig tunes detector thresholds; it never changes the detectors themselves.
type ValidationConfig struct {
	StrictMode                 bool    `json:"strictMode"`
	ContextSimilarityThreshold float64 `json:"contextSimilarityThreshold" binding:"gte=0,lte=1"`
	OffTopicThreshold          float64 `json:"offTopicThreshold" binding:"gte=0,lte=1"`
	BlockDirectSolutions       bool    `json:"blockDirectSolutions"`
	AllowedDeviationPercentage float64 `json:"allowedDeviationPercentage" binding:"gte=0,lte=100"`
	EnableSemanticAnalysis     bool    `json:"enableSemanticAnalysis"`
}

// PromptAnalysis is the structured reading of a raw prompt.
type PromptAnalysis struct {
	Intent                 Intent     `json:"intent"`
	Language               string     `json:"language"`
	Topics                 []string   `json:"topics"`
	Complexity             Complexity `json:"complexity"`
	HasCodeRequest         bool       `json:"hasCodeRequest"`
	SocialEngineeringScore float64    `json:"socialEngineeringScore"`
}

// StepResult records the outcome of one detector.
type StepResult struct {
	Detector     string         `json:"detector"`
	Triggered    bool           `json:"triggered"`
	Severity     Classification `json:"severity"`
	Contribution float64        `json:"contribution"`
	Reason       string         `json:"reason,omitempty"`
}

type ValidationMetadata struct {
	StepResults      []StepResult   `json:"stepResults"`
	ProcessingTimeMs float64        `json:"processingTimeMs"`
	Analysis         PromptAnalysis `json:"analysis"`
	Relevance        float64        `json:"relevance"`
	HintLevel        int            `json:"hintLevel"`
	BlockedBy        string         `json:"blockedBy,omitempty"`
	ShortCircuited   bool           `json:"shortCircuited"`
}

// ValidationResult is produced once per prompt and never mutated afterwards.
type ValidationResult struct {
	IsValid         bool               `json:"isValid"`
	Classification  Classification     `json:"classification"`
	SuggestedAction SuggestedAction    `json:"suggestedAction"`
	RiskScore       float64            `json:"riskScore"`
	Confidence      float64            `json:"confidence"`
	Reasons         []string           `json:"reasons"`
	Metadata        ValidationMetadata `json:"metadata"`
}

// ValidationMetrics aggregates classification outcomes for one challenge.
type ValidationMetrics struct {
	ChallengeID         string  `json:"challengeId"`
	Total               int64   `json:"total"`
	Safe                int64   `json:"safe"`
	Warning             int64   `json:"warning"`
	Blocked             int64   `json:"blocked"`
	AvgRiskScore        float64 `json:"avgRiskScore"`
	AvgConfidence       float64 `json:"avgConfidence"`
	AvgProcessingTimeMs float64 `json:"avgProcessingTimeMs"`
}
