// Package metrics exposes evaluation counters through Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "saturn"

// Metrics holds the collectors an engine updates while it runs. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	FactsDerived    prometheus.Counter
	RuleEvaluations prometheus.Counter
	TasksSubmitted  prometheus.Counter
	StrataCompleted prometheus.Counter
	EvalDuration    prometheus.Histogram
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		FactsDerived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_derived_total",
			Help:      "Distinct facts added to the fact store, including base facts.",
		}),
		RuleEvaluations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_evaluations_total",
			Help:      "Compiled rule plans evaluated against a new fact.",
		}),
		TasksSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_submitted_total",
			Help:      "Join tasks submitted to worker pools.",
		}),
		StrataCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strata_completed_total",
			Help:      "Strata that reached their fixpoint.",
		}),
		EvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "eval_duration_seconds",
			Help:      "Wall time from the start of evaluation to fixpoint.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.FactsDerived, m.RuleEvaluations, m.TasksSubmitted, m.StrataCompleted, m.EvalDuration)
	}
	return m
}

// FactDerived counts one new fact
func (m *Metrics) FactDerived() {
	if m != nil {
		m.FactsDerived.Inc()
	}
}

// RuleEvaluated counts one plan evaluation
func (m *Metrics) RuleEvaluated() {
	if m != nil {
		m.RuleEvaluations.Inc()
	}
}

// TaskSubmitted counts one pool submission
func (m *Metrics) TaskSubmitted() {
	if m != nil {
		m.TasksSubmitted.Inc()
	}
}

// StratumCompleted counts one finished stratum
func (m *Metrics) StratumCompleted() {
	if m != nil {
		m.StrataCompleted.Inc()
	}
}

// ObserveEval records an evaluation's duration in seconds
func (m *Metrics) ObserveEval(seconds float64) {
	if m != nil {
		m.EvalDuration.Observe(seconds)
	}
}
