// Package metrics exposes Prometheus collectors for optimizer progress and
// backtest duration, grounded on the teacher's MetricsRegistry shape
// (HistogramVec/GaugeVec/CounterVec construction, bundled registration).
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry bundles every collector the engine exposes.
type Registry struct {
	BacktestDuration      *prometheus.HistogramVec
	OptimizeProgressRatio *prometheus.GaugeVec
	OptimizeCombinations  *prometheus.CounterVec
	OptimizeDuration      *prometheus.HistogramVec
}

// New builds and registers every collector against the default Prometheus
// registry.
func New() *Registry {
	return newWith(prometheus.DefaultRegisterer)
}

func newWith(reg prometheus.Registerer) *Registry {
	r := &Registry{
		BacktestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtestengine_backtest_duration_seconds",
				Help:    "Duration of a single backtest run in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		OptimizeProgressRatio: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "backtestengine_optimize_progress_ratio",
				Help: "Fraction of parameter combinations completed in the current sweep (0.0-1.0)",
			},
			[]string{"run_id"},
		),
		OptimizeCombinations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "backtestengine_optimize_combinations_total",
				Help: "Total parameter combinations evaluated",
			},
			[]string{"run_id"},
		),
		OptimizeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "backtestengine_optimize_sweep_duration_seconds",
				Help:    "Duration of a full parameter sweep in seconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300, 900},
			},
			[]string{"run_id"},
		),
	}

	reg.MustRegister(
		r.BacktestDuration,
		r.OptimizeProgressRatio,
		r.OptimizeCombinations,
		r.OptimizeDuration,
	)
	return r
}

// RecordProgress sets the progress gauge to processed/total and increments
// the combinations counter by delta (the number of combinations completed
// since the previous call), for a running sweep identified by runID.
func (r *Registry) RecordProgress(runID string, processed, total, delta int) {
	ratio := 0.0
	if total > 0 {
		ratio = float64(processed) / float64(total)
	}
	r.OptimizeProgressRatio.WithLabelValues(runID).Set(ratio)
	if delta > 0 {
		r.OptimizeCombinations.WithLabelValues(runID).Add(float64(delta))
	}
}

// Handler returns the standard Prometheus scrape handler.
func (r *Registry) Handler() http.Handler {
	return promhttp.Handler()
}
