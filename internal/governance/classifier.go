package governance

import (
	"math"
	"time"

	"github.com/RishiKendai/vigil/internal/models"
)

// Classify runs every detector over the prompt and folds their signals into one verdict.
// Order: forbidden pattern → direct solution → social engineering → off-topic → relevance → escalation.
// A BLOCK-grade signal fixes the classification, but the remaining detectors still run so
// that every triggered reason is reported.
func Classify(prompt string, challenge models.ChallengeContext, hintLevel int, cfg models.ValidationConfig) models.ValidationResult {
	started := time.Now()

	features := extractFeatures(prompt)
	relevance, hasContext := contextRelevance(features, challenge)
	eval := &evaluation{
		features:   features,
		challenge:  challenge,
		cfg:        cfg,
		hintLevel:  max(hintLevel, 0),
		relevance:  relevance,
		hasContext: hasContext,
	}

	meta := models.ValidationMetadata{
		StepResults: make([]models.StepResult, 0, len(detectorChain)),
		Analysis:    features.analysis,
		Relevance:   relevance,
		HintLevel:   eval.hintLevel,
	}

	classification := models.ClassificationSafe
	reasons := make([]string, 0)
	score := 0.0
	triggered := 0

	for i, d := range detectorChain {
		res := d.run(eval)
		meta.StepResults = append(meta.StepResults, res)
		if !res.Triggered {
			continue
		}
		triggered++
		score += res.Contribution
		if res.Reason != "" {
			reasons = append(reasons, res.Reason)
		}
		if res.Severity == models.ClassificationBlocked && meta.BlockedBy == "" {
			meta.BlockedBy = d.name
			meta.ShortCircuited = i < len(detectorChain)-1
		}
		classification = models.MoreSevere(classification, res.Severity)
	}

	score = clamp(score)
	if cfg.StrictMode && score > 0 {
		score = clamp(1.2*score + 5)
	}

	if classification == models.ClassificationSafe && score > cfg.AllowedDeviationPercentage {
		classification = models.ClassificationWarning
		reasons = append(reasons, "accumulated risk above allowed deviation")
	}

	meta.ProcessingTimeMs = round2(float64(time.Since(started).Microseconds()) / 1000)

	return models.ValidationResult{
		IsValid:         classification != models.ClassificationBlocked,
		Classification:  classification,
		SuggestedAction: suggestAction(classification, score, cfg.StrictMode),
		RiskScore:       round2(score),
		Confidence:      confidence(triggered, classification, relevance, hasContext),
		Reasons:         reasons,
		Metadata:        meta,
	}
}

func suggestAction(c models.Classification, score float64, strict bool) models.SuggestedAction {
	switch c {
	case models.ClassificationBlocked:
		return models.ActionBlock
	case models.ClassificationWarning:
		if strict || score >= 50 {
			return models.ActionReview
		}
		return models.ActionThrottle
	default:
		return models.ActionAllow
	}
}

func confidence(triggered int, c models.Classification, relevance float64, hasContext bool) float64 {
	if triggered == 0 {
		if !hasContext {
			relevance = 0.5
		}
		return round2(70 + 25*relevance)
	}
	conf := 60 + 12*float64(triggered)
	if c == models.ClassificationBlocked {
		conf += 10
	}
	return round2(math.Min(95, conf))
}

func clamp(score float64) float64 {
	return math.Max(0, math.Min(100, score))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
