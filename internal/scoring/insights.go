package scoring

import (
	"fmt"
	"math"

	"github.com/RishiKendai/vigil/internal/models"
)

// Significance thresholds for snapshot-to-snapshot deltas.
const (
	diDeltaThreshold = 10.0
	prDeltaThreshold = 15.0
	csDeltaThreshold = 1.0
)

// crossCheckMargin is how far the attributed paste rate may exceed the reported DI.
const crossCheckMargin = 25.0

// GenerateInsights compares the current snapshot with the previous one. Without a
// previous snapshot it returns at most three positive observations.
func GenerateInsights(current models.MetricCalculation, previous *models.MetricCalculation) []string {
	insights := make([]string, 0, 3)

	if previous == nil {
		if current.DependencyIndex < 30 {
			insights = append(insights, "great autonomy: most of your code is written by you")
		}
		if current.PassRate >= 80 {
			insights = append(insights, "strong test results: most of your tests are passing")
		}
		if current.ChecklistScore >= 8 {
			insights = append(insights, "solid best practices: your checklist is nearly complete")
		}
		return insights
	}

	// DI improves when it goes down
	if delta := current.DependencyIndex - previous.DependencyIndex; math.Abs(delta) > diDeltaThreshold {
		if delta < 0 {
			insights = append(insights, fmt.Sprintf("AI dependency dropped by %.2f points", -delta))
		} else {
			insights = append(insights, fmt.Sprintf("AI dependency rose by %.2f points", delta))
		}
	}

	if delta := current.PassRate - previous.PassRate; math.Abs(delta) > prDeltaThreshold {
		if delta > 0 {
			insights = append(insights, fmt.Sprintf("pass rate improved by %.2f points", delta))
		} else {
			insights = append(insights, fmt.Sprintf("pass rate fell by %.2f points", -delta))
		}
	}

	if delta := current.ChecklistScore - previous.ChecklistScore; math.Abs(delta) > csDeltaThreshold {
		if delta > 0 {
			insights = append(insights, fmt.Sprintf("checklist score improved by %.2f", delta))
		} else {
			insights = append(insights, fmt.Sprintf("checklist score fell by %.2f", -delta))
		}
	}

	return insights
}

// CrossCheckDependency compares the reported DI with the share of pastes attributed to an
// external source. It returns an insight when the attribution suggests under-reported dependency.
func CrossCheckDependency(calc models.MetricCalculation, aiCopyRate float64) (string, bool) {
	attributed := round2(aiCopyRate * 100)
	if attributed-calc.DependencyIndex <= crossCheckMargin {
		return "", false
	}
	return fmt.Sprintf("%.2f%% of pastes match recently copied content while reported AI dependency is %.2f%%",
		attributed, calc.DependencyIndex), true
}
