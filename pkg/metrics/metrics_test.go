package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOutcomes(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("cluster", 3, 0, nil)
	m.Observe("cluster", 1, 2, nil)
	m.Observe("merge", 0, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("cluster", OK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("cluster", Partial)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues("merge", Failed)))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.ItemsCreated.WithLabelValues("cluster")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.ItemsSkipped.WithLabelValues("cluster")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Observe("merge", 1, 0, nil)
}

func TestSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe("transform", 0, 0, nil)

	snap, err := Snapshot(reg)
	require.NoError(t, err)
	assert.Equal(t, 1.0, snap["pointyard_operations_total{op=transform,outcome=ok}"])
}
