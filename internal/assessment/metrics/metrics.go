package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the assessment progression module.
type Metrics struct {
	// Progression decisions by requested path and outcome
	DecisionOutcome *prometheus.CounterVec

	// Full guard evaluation latency including the record fetch
	EvaluateLatency prometheus.Histogram

	// Record fetches that failed for reasons other than not-found. These
	// distinguish outage from new-user state.
	RecordFetchFailures prometheus.Counter

	// Step submissions accepted, by step
	StepCompletions *prometheus.CounterVec

	// Step payloads found in neither recognized shape
	MalformedPayloads *prometheus.CounterVec
}

// New creates a Metrics instance with all assessment metrics registered.
func New() *Metrics {
	return &Metrics{
		DecisionOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_assessment_decisions_total",
			Help: "Progression decisions by requested path and outcome",
		}, []string{"path", "outcome"}), // outcome: "allow", "redirect"

		EvaluateLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "intake_assessment_evaluate_duration_seconds",
			Help:    "Duration of guard evaluation including the record fetch",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		RecordFetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "intake_assessment_record_fetch_failures_total",
			Help: "Record fetches that failed for reasons other than not-found",
		}),

		StepCompletions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_assessment_step_completions_total",
			Help: "Accepted step submissions by step id",
		}, []string{"step"}),

		MalformedPayloads: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "intake_assessment_malformed_payloads_total",
			Help: "Step payloads found in neither recognized shape",
		}, []string{"field"}),
	}
}

// IncrementDecision records a progression decision outcome.
func (m *Metrics) IncrementDecision(path, outcome string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(path, outcome).Inc()
	}
}

// ObserveEvaluateLatency records the total guard evaluation duration.
func (m *Metrics) ObserveEvaluateLatency(d time.Duration) {
	if m != nil {
		m.EvaluateLatency.Observe(d.Seconds())
	}
}

// IncrementRecordFetchFailure counts a store failure treated as absent-record.
func (m *Metrics) IncrementRecordFetchFailure() {
	if m != nil {
		m.RecordFetchFailures.Inc()
	}
}

// IncrementStepCompletion counts an accepted submission.
func (m *Metrics) IncrementStepCompletion(step string) {
	if m != nil {
		m.StepCompletions.WithLabelValues(step).Inc()
	}
}

// IncrementMalformedPayload counts a payload that failed shape normalization.
func (m *Metrics) IncrementMalformedPayload(field string) {
	if m != nil {
		m.MalformedPayloads.WithLabelValues(field).Inc()
	}
}
