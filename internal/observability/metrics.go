package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// aggregation and notification pipeline.
type Metrics struct {
	// Upstream adapter metrics.
	AdapterRequests *prometheus.CounterVec // labels: source, capability, outcome={success,error,empty}
	CacheLookups    *prometheus.CounterVec // labels: source, result={hit,miss}
	RateLimitHits   prometheus.Counter
	FallbackDepth   *prometheus.HistogramVec // labels: capability; adapters tried before success

	// Evaluation and notification metrics.
	Evaluations              prometheus.Counter
	EvaluationErrors         prometheus.Counter
	NotificationsDelivered   prometheus.Counter
	NotificationsSuppressed  *prometheus.CounterVec // labels: reason
	MonitorsActive           prometheus.Gauge
	EvaluationDuration       prometheus.Histogram
	NotificationSinkFailures prometheus.Counter
}

// NewMetrics creates and registers all metrics with the default Prometheus
// registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.AdapterRequests,
		m.CacheLookups,
		m.RateLimitHits,
		m.FallbackDepth,
		m.Evaluations,
		m.EvaluationErrors,
		m.NotificationsDelivered,
		m.NotificationsSuppressed,
		m.MonitorsActive,
		m.EvaluationDuration,
		m.NotificationSinkFailures,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		AdapterRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "adapter_requests_total",
			Help:      "Upstream adapter calls by source, capability, and outcome.",
		}, []string{"source", "capability", "outcome"}),
		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "cache_lookups_total",
			Help:      "Throttle cache lookups by source and result.",
		}, []string{"source", "result"}),
		RateLimitHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "rate_limit_hits_total",
			Help:      "HTTP 429 responses received from upstream sources.",
		}),
		FallbackDepth: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "stormwatch",
			Name:      "fallback_depth",
			Help:      "Number of adapters tried before one returned data.",
			Buckets:   []float64{0, 1, 2, 3, 4},
		}, []string{"capability"}),
		Evaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "evaluations_total",
			Help:      "Completed evaluation cycles.",
		}),
		EvaluationErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "evaluation_errors_total",
			Help:      "Evaluation cycles that failed and were treated as no condition.",
		}),
		NotificationsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "notifications_delivered_total",
			Help:      "Conditions delivered to the notification callback.",
		}),
		NotificationsSuppressed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "notifications_suppressed_total",
			Help:      "Candidate conditions suppressed, by reason.",
		}, []string{"reason"}),
		MonitorsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "stormwatch",
			Name:      "monitors_active",
			Help:      "Locations currently in the Monitoring state.",
		}),
		EvaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "stormwatch",
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a complete fetch-analyze evaluation cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		}),
		NotificationSinkFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stormwatch",
			Name:      "notification_sink_failures_total",
			Help:      "Failed publishes to the urgent-notification sink.",
		}),
	}
}
