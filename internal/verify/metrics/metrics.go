package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification pipeline.
type Metrics struct {
	// Attempt outcomes by verdict
	Outcomes *prometheus.CounterVec

	// Full attempt latency and the external inference share of it
	AttemptLatency   prometheus.Histogram
	InferenceLatency prometheus.Histogram

	// Result cache effectiveness
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Attempts rejected because one was already running
	BusyRejections prometheus.Counter
}

// New creates a new Metrics instance with all verification metrics registered.
func New() *Metrics {
	return &Metrics{
		Outcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signoff_verify_outcomes_total",
			Help: "Total verification outcomes by verdict",
		}, []string{"verdict"}), // verdict: "valid", "invalid", "unclear", "error"

		AttemptLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signoff_verify_attempt_duration_seconds",
			Help:    "Duration of full verification attempts including inference",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		InferenceLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signoff_verify_inference_duration_seconds",
			Help:    "Duration of the external inference call",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),

		CacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signoff_verify_cache_hits_total",
			Help: "Verification attempts answered from the result cache",
		}),

		CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signoff_verify_cache_misses_total",
			Help: "Verification attempts that had to call the model",
		}),

		BusyRejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signoff_verify_busy_rejections_total",
			Help: "Verification starts rejected because an attempt was in progress",
		}),
	}
}

// IncrementOutcome records a verification outcome.
func (m *Metrics) IncrementOutcome(verdict string) {
	if m != nil {
		m.Outcomes.WithLabelValues(verdict).Inc()
	}
}

// ObserveAttemptLatency records the duration of a full attempt.
func (m *Metrics) ObserveAttemptLatency(d time.Duration) {
	if m != nil {
		m.AttemptLatency.Observe(d.Seconds())
	}
}

// ObserveInferenceLatency records the duration of the external call.
func (m *Metrics) ObserveInferenceLatency(d time.Duration) {
	if m != nil {
		m.InferenceLatency.Observe(d.Seconds())
	}
}

// IncrementCacheHit records a result served from cache.
func (m *Metrics) IncrementCacheHit() {
	if m != nil {
		m.CacheHits.Inc()
	}
}

// IncrementCacheMiss records a result that required inference.
func (m *Metrics) IncrementCacheMiss() {
	if m != nil {
		m.CacheMisses.Inc()
	}
}

// IncrementBusyRejection records a start rejected while busy.
func (m *Metrics) IncrementBusyRejection() {
	if m != nil {
		m.BusyRejections.Inc()
	}
}
