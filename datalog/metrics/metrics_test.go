package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.FactDerived()
	m.RuleEvaluated()
	m.TaskSubmitted()
	m.StratumCompleted()
	m.ObserveEval(0.5)
}

func TestRegistered(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.FactDerived()
	m.FactDerived()
	m.TaskSubmitted()
	m.ObserveEval(0.01)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.FactsDerived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TasksSubmitted))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.StrataCompleted))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "saturn_facts_derived_total")
	assert.Contains(t, names, "saturn_eval_duration_seconds")

	assert.Panics(t, func() { New(reg) }, "registering twice")
}
