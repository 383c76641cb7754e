package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the signatory registry.
type Metrics struct {
	// Roster mutations by operation
	Mutations *prometheus.CounterVec

	// Current roster size and entries whose reference image failed to load
	RosterSize       prometheus.Gauge
	BrokenReferences prometheus.Gauge

	// Registry save latency including backup and image persistence
	SaveLatency prometheus.Histogram

	// Failed backup copies; saves proceed regardless, so this is the only
	// trace a missed backup leaves besides the log line
	BackupFailures prometheus.Counter
}

// New creates a new Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		Mutations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "signoff_signatory_mutations_total",
			Help: "Total roster mutations by operation",
		}, []string{"op"}), // op: "upsert", "remove"

		RosterSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signoff_signatory_roster_size",
			Help: "Number of registered signatories at last load",
		}),

		BrokenReferences: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "signoff_signatory_broken_references",
			Help: "Registered signatories whose reference image failed to load",
		}),

		SaveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "signoff_signatory_save_duration_seconds",
			Help:    "Duration of registry saves including backup and image persistence",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		BackupFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "signoff_signatory_backup_failures_total",
			Help: "Registry backup copies that could not be written",
		}),
	}
}

// IncrementMutation records a roster mutation.
func (m *Metrics) IncrementMutation(op string) {
	if m != nil {
		m.Mutations.WithLabelValues(op).Inc()
	}
}

// ObserveRoster records the roster shape seen at load time.
func (m *Metrics) ObserveRoster(total, broken int) {
	if m != nil {
		m.RosterSize.Set(float64(total))
		m.BrokenReferences.Set(float64(broken))
	}
}

// ObserveSaveLatency records the duration of a registry save.
func (m *Metrics) ObserveSaveLatency(d time.Duration) {
	if m != nil {
		m.SaveLatency.Observe(d.Seconds())
	}
}

// IncrementBackupFailure records a backup copy that could not be written.
func (m *Metrics) IncrementBackupFailure() {
	if m != nil {
		m.BackupFailures.Inc()
	}
}
