package governance

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/models"
)

const (
	DetectorForbiddenPattern  = "forbidden_pattern"
	DetectorDirectSolution    = "direct_solution"
	DetectorSocialEngineering = "social_engineering"
	DetectorOffTopic          = "off_topic"
	DetectorContextRelevance  = "context_relevance"
	DetectorEscalation        = "escalation"
)

// evaluation carries one prompt through the detector chain.
type evaluation struct {
	features   *promptFeatures
	challenge  models.ChallengeContext
	cfg        models.ValidationConfig
	hintLevel  int
	relevance  float64
	hasContext bool
}

type detector struct {
	name string
	run  func(e *evaluation) models.StepResult
}

// detectorChain runs in this order; every detector sees every prompt.
var detectorChain = []detector{
	{DetectorDirectSolution, detectDirectSolution},
	{DetectorSocialEngineering, detectSocialEngineering},
	{DetectorForbiddenPattern, detectForbiddenPattern},
	{DetectorOffTopic, detectOffTopic},
	{DetectorContextRelevance, detectContextRelevance},
	{DetectorEscalation, detectEscalation},
}

func step(name string) models.StepResult {
	return models.StepResult{Detector: name, Severity: models.ClassificationSafe}
}

func hit(name string, severity models.Classification, contribution float64, reason string) models.StepResult {
	return models.StepResult{
		Detector:     name,
		Triggered:    true,
		Severity:     severity,
		Contribution: round2(contribution),
		Reason:       reason,
	}
}

var forbiddenCache sync.Map // pattern -> *regexp.Regexp, nil for invalid patterns

func compileForbidden(pattern string) *regexp.Regexp {
	if cached, ok := forbiddenCache.Load(pattern); ok {
		re, _ := cached.(*regexp.Regexp)
		return re
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		log.Warn().Err(err).Str("pattern", pattern).Msg("Skipping invalid forbidden pattern")
		forbiddenCache.Store(pattern, (*regexp.Regexp)(nil))
		return nil
	}
	forbiddenCache.Store(pattern, re)
	return re
}

func detectForbiddenPattern(e *evaluation) models.StepResult {
	for _, pattern := range e.challenge.ForbiddenPatterns {
		if strings.TrimSpace(pattern) == "" {
			continue
		}
		re := compileForbidden(pattern)
		if re == nil {
			continue
		}
		if re.MatchString(e.features.raw) || re.MatchString(e.features.normalized) {
			return hit(DetectorForbiddenPattern, models.ClassificationBlocked, 80,
				fmt.Sprintf("forbidden pattern matched: %s", pattern))
		}
	}
	return step(DetectorForbiddenPattern)
}

func detectDirectSolution(e *evaluation) models.StepResult {
	if e.features.directSolutionHit == "" {
		return step(DetectorDirectSolution)
	}
	reason := fmt.Sprintf("direct solution request detected: %q", e.features.directSolutionHit)
	if e.cfg.BlockDirectSolutions {
		return hit(DetectorDirectSolution, models.ClassificationBlocked, 75, reason)
	}
	return hit(DetectorDirectSolution, models.ClassificationWarning, 45, reason)
}

func detectSocialEngineering(e *evaluation) models.StepResult {
	score := e.features.analysis.SocialEngineeringScore
	switch {
	case score >= 1:
		return hit(DetectorSocialEngineering, models.ClassificationBlocked, 85, "social engineering attempt detected")
	case score > 0:
		return hit(DetectorSocialEngineering, models.ClassificationWarning, 25, "possible manipulation attempt detected")
	}
	return step(DetectorSocialEngineering)
}

func detectOffTopic(e *evaluation) models.StepResult {
	if !e.features.isOffTopic() {
		return step(DetectorOffTopic)
	}
	return hit(DetectorOffTopic, models.ClassificationWarning, 35, "off-topic content detected")
}

func detectContextRelevance(e *evaluation) models.StepResult {
	if !e.hasContext {
		return step(DetectorContextRelevance)
	}
	threshold := e.cfg.ContextSimilarityThreshold
	if e.relevance >= threshold || threshold <= 0 {
		return step(DetectorContextRelevance)
	}

	contribution := 30 * (threshold - e.relevance) / threshold
	result := hit(DetectorContextRelevance, models.ClassificationWarning, contribution,
		fmt.Sprintf("low relevance to challenge context (%.2f < %.2f)", e.relevance, threshold))
	if 1-e.relevance >= e.cfg.OffTopicThreshold && e.features.isOffTopic() {
		result.Severity = models.ClassificationBlocked
		result.Contribution = 40
		result.Reason = fmt.Sprintf("prompt unrelated to challenge context (relevance %.2f)", e.relevance)
	}
	if !e.cfg.EnableSemanticAnalysis {
		// reported in the step results only
		result.Triggered = false
		result.Severity = models.ClassificationSafe
		result.Contribution = 0
	}
	return result
}

func detectEscalation(e *evaluation) models.StepResult {
	score := math.Min(20, 4*float64(e.hintLevel))
	var reasons []string
	if e.hintLevel > 0 {
		reasons = append(reasons, fmt.Sprintf("escalating assistance requests (hint level %d)", e.hintLevel))
	}
	if e.features.analysis.Complexity == models.ComplexityComplex {
		score += 5
		reasons = append(reasons, "complex multi-topic request")
	}
	if score == 0 {
		return step(DetectorEscalation)
	}
	return hit(DetectorEscalation, models.ClassificationSafe, score, strings.Join(reasons, "; "))
}

// contextRelevance scores how much of the prompt vocabulary overlaps the challenge context.
// The second return is false when the challenge carries no usable context.
func contextRelevance(f *promptFeatures, c models.ChallengeContext) (float64, bool) {
	parts := []string{c.Title, c.Category}
	parts = append(parts, c.Keywords...)
	parts = append(parts, c.AllowedTopics...)
	parts = append(parts, c.TechStack...)
	parts = append(parts, c.LearningObjectives...)
	contextTerms := contentTerms(Tokenize(Normalize(strings.Join(parts, " "))))
	if len(contextTerms) == 0 {
		return 0, false
	}

	promptTerms := contentTerms(append(append([]string{}, f.tokens...), f.analysis.Topics...))
	if len(promptTerms) == 0 {
		return 0, true
	}

	matched := 0
	for _, p := range promptTerms {
		for _, ct := range contextTerms {
			if termsMatch(p, ct) {
				matched++
				break
			}
		}
	}
	coverage := float64(matched) / float64(len(promptTerms))
	anchor := math.Min(1, float64(matched)/3)
	return round2(0.5*coverage + 0.5*anchor), true
}

func termsMatch(a, b string) bool {
	if a == b {
		return true
	}
	if len(a) < 4 || len(b) < 4 {
		return false
	}
	return strings.HasPrefix(a, b) || strings.HasPrefix(b, a)
}
