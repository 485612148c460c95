package aggregation

import (
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/RishiKendai/vigil/internal/models"
)

const (
	DefaultWindowSize = 5

	// changes within ±trendThreshold percent are stable
	trendThreshold = 5.0
)

var trendMetrics = []models.MetricName{models.MetricDI, models.MetricPR, models.MetricCS}

// ComputeTrends compares the average of the last windowSize values of each metric with
// the average of the windowSize values before them.
func ComputeTrends(series []models.MetricSnapshot, windowSize int) []models.MetricTrend {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	trends := make([]models.MetricTrend, 0, len(trendMetrics))
	if len(series) < 2 {
		for _, m := range trendMetrics {
			trends = append(trends, stableTrend(m))
		}
		return trends
	}

	ordered := make([]models.MetricSnapshot, len(series))
	copy(ordered, series)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Calculation.Timestamp.Before(ordered[j].Calculation.Timestamp)
	})

	for _, m := range trendMetrics {
		trends = append(trends, metricTrend(m, ordered, windowSize))
	}
	return trends
}

func stableTrend(metric models.MetricName) models.MetricTrend {
	return models.MetricTrend{
		Metric: metric,
		Values: []models.TrendPoint{},
		Trend:  models.TrendStable,
	}
}

// metricTrend never panics; a failure degrades this metric only.
func metricTrend(metric models.MetricName, series []models.MetricSnapshot, windowSize int) (trend models.MetricTrend) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("metric", string(metric)).Interface("panic", r).Msg("Trend computation failed")
			trend = stableTrend(metric)
		}
	}()

	points := make([]models.TrendPoint, 0, len(series))
	for _, s := range series {
		points = append(points, models.TrendPoint{
			Timestamp: s.Calculation.Timestamp,
			Value:     metricValue(metric, s.Calculation),
		})
	}

	trend = models.MetricTrend{Metric: metric, Values: points, Trend: models.TrendStable}

	n := len(points)
	if n <= windowSize {
		return trend
	}
	recent := points[n-windowSize:]
	older := points[max(0, n-2*windowSize) : n-windowSize]

	recentAvg := average(recent)
	olderAvg := average(older)

	var change float64
	if olderAvg == 0 {
		if recentAvg != 0 {
			change = math.Copysign(100, recentAvg)
		}
	} else {
		change = (recentAvg - olderAvg) / olderAvg * 100
	}
	trend.ChangePercent = round2(change)
	trend.Trend = direction(metric, trend.ChangePercent)
	return trend
}

func metricValue(metric models.MetricName, calc models.MetricCalculation) float64 {
	switch metric {
	case models.MetricDI:
		return calc.DependencyIndex
	case models.MetricPR:
		return calc.PassRate
	case models.MetricCS:
		return calc.ChecklistScore
	}
	panic(fmt.Sprintf("unknown metric %q", metric))
}

// direction interprets a change: lower DI is better, higher PR and CS are better.
func direction(metric models.MetricName, change float64) models.TrendDirection {
	if metric != models.MetricDI {
		change = -change
	}
	if change < -trendThreshold {
		return models.TrendImproving
	} else if change > trendThreshold {
		return models.TrendDeclining
	}
	return models.TrendStable
}

func average(points []models.TrendPoint) float64 {
	if len(points) == 0 {
		return 0
	}
	sum := 0.0
	for _, p := range points {
		sum += p.Value
	}
	return sum / float64(len(points))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
