package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PromptValidations counts prompt classifications by verdict
	PromptValidations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "prompt_validations_total",
			Help:      "Total number of prompt validations by classification",
		},
		[]string{"classification"},
	)

	// PromptValidationDuration measures pipeline latency
	PromptValidationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "vigil",
			Name:      "prompt_validation_duration_seconds",
			Help:      "Prompt validation pipeline duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		},
	)

	// MetricCalculations counts session metric calculations by risk level
	MetricCalculations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "metric_calculations_total",
			Help:      "Total number of session metric calculations by risk level",
		},
		[]string{"risk_level"},
	)

	// CopyPasteEvents counts tracked copy/paste events
	CopyPasteEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "copy_paste_events_total",
			Help:      "Total number of copy/paste events by action and attribution",
		},
		[]string{"action", "attribution"},
	)

	// ActiveStreams tracks running metric streams
	ActiveStreams = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "vigil",
			Name:      "active_metric_streams",
			Help:      "Number of active periodic metric streams",
		},
	)

	// CacheFailures counts swallowed cache errors
	CacheFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "cache_failures_total",
			Help:      "Total number of cache operations that failed and were ignored",
		},
		[]string{"operation"},
	)

	registerOnce sync.Once
)

// InitPrometheus registers all collectors with the default registry. Safe to call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PromptValidations)
		prometheus.MustRegister(PromptValidationDuration)
		prometheus.MustRegister(MetricCalculations)
		prometheus.MustRegister(CopyPasteEvents)
		prometheus.MustRegister(ActiveStreams)
		prometheus.MustRegister(CacheFailures)
	})
}

// Handler returns the Prometheus scrape handler
func Handler() http.Handler {
	return promhttp.Handler()
}
