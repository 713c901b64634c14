package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func newTestRegistry() *Registry {
	return newWith(prometheus.NewRegistry())
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestRecordProgressSetsRatioAndIncrementsCounter(t *testing.T) {
	r := newTestRegistry()
	r.RecordProgress("run-1", 5, 10, 5)
	require.InDelta(t, 0.5, gaugeValue(t, r.OptimizeProgressRatio.WithLabelValues("run-1")), 1e-9)
	require.InDelta(t, 5.0, counterValue(t, r.OptimizeCombinations.WithLabelValues("run-1")), 1e-9)

	r.RecordProgress("run-1", 10, 10, 5)
	require.InDelta(t, 1.0, gaugeValue(t, r.OptimizeProgressRatio.WithLabelValues("run-1")), 1e-9)
	require.InDelta(t, 10.0, counterValue(t, r.OptimizeCombinations.WithLabelValues("run-1")), 1e-9)
}

func TestRecordProgressZeroTotalYieldsZeroRatio(t *testing.T) {
	r := newTestRegistry()
	r.RecordProgress("run-2", 0, 0, 0)
	require.Equal(t, 0.0, gaugeValue(t, r.OptimizeProgressRatio.WithLabelValues("run-2")))
}
