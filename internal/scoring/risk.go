package scoring

import (
	"fmt"

	"github.com/RishiKendai/vigil/internal/models"
)

// AssessRisk adds up threshold penalties for each index and maps the sum to a level.
func AssessRisk(calc models.MetricCalculation) models.RiskAssessment {
	score := 0.0
	factors := make([]string, 0)
	recommendations := make([]string, 0)

	add := func(points float64, factor, recommendation string) {
		score += points
		factors = append(factors, factor)
		recommendations = append(recommendations, recommendation)
	}

	// Dependency index: higher is worse
	di := calc.DependencyIndex
	if di > 80 {
		add(40, fmt.Sprintf("extremely high dependency on AI (%.2f%%)", di),
			"write the core logic yourself before asking the assistant")
	} else if di > 60 {
		add(25, fmt.Sprintf("high dependency on AI (%.2f%%)", di),
			"use the assistant for hints and review rather than generating code")
	} else if di > 40 {
		add(10, fmt.Sprintf("moderate dependency on AI (%.2f%%)", di),
			"try solving the next step on your own before asking for help")
	}

	// Pass rate: lower is worse
	pr := calc.PassRate
	if pr < 30 {
		add(30, fmt.Sprintf("very low test pass rate (%.2f%%)", pr),
			"run the tests after every small change and fix failures one at a time")
	} else if pr < 50 {
		add(20, fmt.Sprintf("low test pass rate (%.2f%%)", pr),
			"read the failing test messages carefully before changing code")
	} else if pr < 70 {
		add(10, fmt.Sprintf("below-target test pass rate (%.2f%%)", pr),
			"review edge cases covered by the failing tests")
	}

	// Checklist score: lower is worse
	cs := calc.ChecklistScore
	if cs < 3 {
		add(30, fmt.Sprintf("most best-practice checklist items missing (%.2f/10)", cs),
			"work through the validation, security and testing checklist")
	} else if cs < 5 {
		add(20, fmt.Sprintf("incomplete best-practice checklist (%.2f/10)", cs),
			"complete the remaining checklist items before submitting")
	} else if cs < 7 {
		add(10, fmt.Sprintf("checklist partially complete (%.2f/10)", cs),
			"finish the remaining checklist items")
	}

	level := RiskLevelFor(score)
	if level == models.RiskLow && len(factors) == 0 {
		recommendations = append(recommendations, "keep up the good work: your session looks healthy")
	}

	return models.RiskAssessment{
		Level:           level,
		Factors:         factors,
		Recommendations: recommendations,
		Score:           score,
	}
}

// RiskLevelFor maps an additive risk score to a level.
func RiskLevelFor(score float64) models.RiskLevel {
	if score >= 70 {
		return models.RiskCritical
	} else if score >= 50 {
		return models.RiskHigh
	} else if score >= 30 {
		return models.RiskMedium
	}
	return models.RiskLow
}
