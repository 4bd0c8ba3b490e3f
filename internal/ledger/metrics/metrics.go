package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the audit ledger.
type Metrics struct {
	// Appended records by verdict level
	Appends *prometheus.CounterVec

	// Chain verification runs by outcome
	Verifications *prometheus.CounterVec

	// Set to 1 once the ledger seals after a detected corruption
	Sealed prometheus.Gauge
}

// New creates a new Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		Appends: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "printtrace_ledger_appends_total",
			Help: "Total ledger records appended by verdict level",
		}, []string{"level"}),

		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "printtrace_ledger_verifications_total",
			Help: "Total chain verification runs by outcome",
		}, []string{"outcome"}), // outcome: "ok", "mismatch"

		Sealed: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "printtrace_ledger_sealed",
			Help: "1 when the ledger is sealed after a chain integrity failure",
		}),
	}
}

// IncAppend records a successful ledger append.
func (m *Metrics) IncAppend(level string) {
	if m != nil {
		m.Appends.WithLabelValues(level).Inc()
	}
}

// IncVerification records a chain verification run.
func (m *Metrics) IncVerification(outcome string) {
	if m != nil {
		m.Verifications.WithLabelValues(outcome).Inc()
	}
}

// MarkSealed flips the sealed gauge.
func (m *Metrics) MarkSealed() {
	if m != nil {
		m.Sealed.Set(1)
	}
}
