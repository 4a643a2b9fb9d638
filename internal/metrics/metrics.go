// Package metrics exposes Prometheus metrics for cleaning runs.
//
// A Collector owns its registry so tests and embedded uses never collide with
// the process-wide default registerer.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JonMunkholm/listingclean/internal/cleaner"
)

const namespace = "listingclean"

// Collector records pipeline activity. It implements cleaner.Reporter so a
// run's step reports flow straight into the row counters.
type Collector struct {
	registry *prometheus.Registry

	stepRowsIn     *prometheus.CounterVec
	stepRowsOut    *prometheus.CounterVec
	stepDropped    *prometheus.CounterVec
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	warehouseRows  prometheus.Counter
	runsInProgress prometheus.Gauge
}

// NewCollector creates a collector with its own registry. Go runtime and
// process metrics are registered alongside the pipeline metrics.
func NewCollector() *Collector {
	c := &Collector{registry: prometheus.NewRegistry()}

	c.stepRowsIn = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_rows_in_total",
			Help:      "Rows entering each cleaning step",
		},
		[]string{"step"},
	)
	c.stepRowsOut = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_rows_out_total",
			Help:      "Rows leaving each cleaning step",
		},
		[]string{"step"},
	)
	c.stepDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_rows_dropped_total",
			Help:      "Rows removed by each cleaning step",
		},
		[]string{"step"},
	)
	c.runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Pipeline runs by trigger and outcome",
		},
		[]string{"trigger", "status"},
	)
	c.runDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)
	c.warehouseRows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "warehouse_rows_loaded_total",
		Help:      "Rows copied into the warehouse",
	})
	c.runsInProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "runs_in_progress",
		Help:      "Pipeline runs currently executing",
	})

	c.registry.MustRegister(
		c.stepRowsIn,
		c.stepRowsOut,
		c.stepDropped,
		c.runsTotal,
		c.runDuration,
		c.warehouseRows,
		c.runsInProgress,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return c
}

// Report implements cleaner.Reporter.
func (c *Collector) Report(r cleaner.StepReport) {
	c.stepRowsIn.WithLabelValues(r.Step).Add(float64(r.RowsBefore))
	c.stepRowsOut.WithLabelValues(r.Step).Add(float64(r.RowsAfter))
	c.stepDropped.WithLabelValues(r.Step).Add(float64(r.Dropped()))
}

// RunStarted marks a run as in progress. Call the returned function with the
// run's error when it finishes.
func (c *Collector) RunStarted(trigger string) func(err error) {
	start := time.Now()
	c.runsInProgress.Inc()

	return func(err error) {
		c.runsInProgress.Dec()
		status := "success"
		if err != nil {
			status = "failure"
		}
		c.runsTotal.WithLabelValues(trigger, status).Inc()
		c.runDuration.WithLabelValues(trigger).Observe(time.Since(start).Seconds())
	}
}

// RowsLoaded adds n to the warehouse row counter.
func (c *Collector) RowsLoaded(n int64) {
	c.warehouseRows.Add(float64(n))
}

// Handler serves the collector's registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		Registry: c.registry,
	})
}

// Registry returns the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

var _ cleaner.Reporter = (*Collector)(nil)
