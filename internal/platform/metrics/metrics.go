// Package metrics registers request-level Prometheus metrics shared by all
// HTTP handlers.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP metrics for the application.
type Metrics struct {
	Requests *prometheus.CounterVec
	Latency  *prometheus.HistogramVec
}

// New creates and registers all HTTP metrics.
func New() *Metrics {
	return &Metrics{
		Requests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signoff_http_requests_total",
			Help: "Total HTTP requests served, by method, route and status.",
		}, []string{"method", "route", "status"}),
		// Buckets reach past the 60s verification attempt timeout so slow
		// model calls still land in a bounded bucket.
		Latency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signoff_http_request_duration_seconds",
			Help:    "HTTP request latency, by method and route.",
			Buckets: []float64{0.005, 0.025, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 90},
		}, []string{"method", "route"}),
	}
}

// ObserveRequest records one served request.
func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.Latency.WithLabelValues(method, route).Observe(d.Seconds())
}
