// Package scoring turns one session snapshot into the DI/PR/CS indices,
// a risk assessment and human-readable insights. Everything here is pure.
package scoring

import (
	"math"
	"time"

	"github.com/RishiKendai/vigil/internal/models"
)

// Calculate derives the three indices from a single CodeMetrics snapshot.
func Calculate(m models.CodeMetrics, sessionTime int64, now time.Time) models.MetricCalculation {
	return models.MetricCalculation{
		DependencyIndex: DependencyIndex(m.LinesFromAI, m.TotalLines),
		PassRate:        PassRate(m.TestsPassed, m.TestsTotal),
		ChecklistScore:  ChecklistScore(m.ChecklistItems),
		Timestamp:       now,
		SessionTime:     sessionTime,
	}
}

// DependencyIndex is the percentage of lines attributed to AI; 0 when nothing was written.
func DependencyIndex(linesFromAI, totalLines int) float64 {
	if totalLines == 0 {
		return 0
	}
	return round2(float64(linesFromAI) / float64(totalLines) * 100)
}

// PassRate is the percentage of passing tests; full credit when no tests exist.
func PassRate(testsPassed, testsTotal int) float64 {
	if testsTotal == 0 {
		return 100
	}
	return round2(float64(testsPassed) / float64(testsTotal) * 100)
}

// ChecklistScore is the checked share of total item weight on a 0..10 scale.
// An empty checklist, or one whose weights sum to zero, scores 10.
func ChecklistScore(items []models.ChecklistItem) float64 {
	totalWeight := 0.0
	checkedWeight := 0.0
	for _, item := range items {
		w := math.Max(0, item.Weight)
		totalWeight += w
		if item.Checked {
			checkedWeight += w
		}
	}
	if totalWeight == 0 {
		return 10
	}
	return round2(checkedWeight / totalWeight * 10)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
