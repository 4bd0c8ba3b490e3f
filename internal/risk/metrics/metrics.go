package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the risk analysis module.
type Metrics struct {
	// Verdicts by level
	Verdicts *prometheus.CounterVec

	// Collaborator call latencies by source
	CollaboratorLatency *prometheus.HistogramVec

	// Analyses that proceeded without a quality assessment
	DegradedVerdicts prometheus.Counter

	// Overall evaluation latency including collaborators and ledger commit
	EvaluateLatency prometheus.Histogram
}

// New creates a new Metrics instance with all risk module metrics registered.
func New() *Metrics {
	return &Metrics{
		Verdicts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "printtrace_risk_verdicts_total",
			Help: "Total risk verdicts by level",
		}, []string{"level"}),

		CollaboratorLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "printtrace_risk_collaborator_duration_seconds",
			Help:    "Duration of collaborator calls by source",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"source"}), // source: "identity", "classifier"

		DegradedVerdicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "printtrace_risk_degraded_verdicts_total",
			Help: "Total verdicts produced without a quality assessment",
		}),

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "printtrace_risk_evaluate_duration_seconds",
			Help:    "Duration of full risk evaluation including ledger commit",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

// IncVerdict records a produced verdict.
func (m *Metrics) IncVerdict(level string) {
	if m != nil {
		m.Verdicts.WithLabelValues(level).Inc()
	}
}

// ObserveCollaboratorLatency records the duration of one collaborator call.
func (m *Metrics) ObserveCollaboratorLatency(source string, d time.Duration) {
	if m != nil {
		m.CollaboratorLatency.WithLabelValues(source).Observe(d.Seconds())
	}
}

// IncDegraded records a verdict produced without quality evidence.
func (m *Metrics) IncDegraded() {
	if m != nil {
		m.DegradedVerdicts.Inc()
	}
}

// ObserveEvaluateLatency records the total evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}
