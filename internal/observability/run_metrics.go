package observability

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/intercept-simulator/sim"
)

// RunCollector exposes per-run engagement metrics. It implements
// sim.RunRecorder so engines report into it directly.
type RunCollector struct {
	gatherer prometheus.Gatherer

	RunsTotal    *prometheus.CounterVec
	RunSteps     *prometheus.HistogramVec
	MissDistance *prometheus.HistogramVec
	RunDuration  *prometheus.HistogramVec
	BatchPending prometheus.Gauge
}

// NewRunCollector registers the run metrics with reg, or with the default
// registry when reg is nil.
func NewRunCollector(reg prometheus.Registerer) (*RunCollector, error) {
	reg, gatherer := resolveRegistry(reg)
	c := &RunCollector{gatherer: gatherer}

	var err error
	if c.RunsTotal, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sim_runs_total",
		Help: "Completed engine runs, labeled by guidance law and outcome.",
	}, []string{"guidance", "outcome"})); err != nil {
		return nil, err
	}
	if c.RunSteps, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_run_steps",
		Help:    "Integrated steps per run.",
		Buckets: prometheus.ExponentialBuckets(10, 10, 8),
	}, []string{"guidance"})); err != nil {
		return nil, err
	}
	if c.MissDistance, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_miss_distance_meters",
		Help:    "Closest approach per run in metres.",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"guidance"})); err != nil {
		return nil, err
	}
	if c.RunDuration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sim_run_duration_seconds",
		Help:    "Wall-clock time spent per run.",
		Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
	}, []string{"guidance"})); err != nil {
		return nil, err
	}
	if c.BatchPending, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sim_batch_jobs_pending",
		Help: "Batch jobs not yet finished.",
	})); err != nil {
		return nil, err
	}
	return c, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *RunCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// RecordRun implements sim.RunRecorder.
func (c *RunCollector) RecordRun(r sim.RunReport) {
	if c == nil {
		return
	}
	if c.RunsTotal != nil {
		c.RunsTotal.WithLabelValues(r.Law, r.Outcome.String()).Inc()
	}
	if c.RunSteps != nil {
		c.RunSteps.WithLabelValues(r.Law).Observe(float64(r.Steps))
	}
	// an empty run never saw a separation
	if c.MissDistance != nil && r.Steps > 0 {
		c.MissDistance.WithLabelValues(r.Law).Observe(r.MissDistance)
	}
	if c.RunDuration != nil {
		c.RunDuration.WithLabelValues(r.Law).Observe(r.WallDuration.Seconds())
	}
}

// SetBatchPending updates the pending batch job gauge.
func (c *RunCollector) SetBatchPending(n int) {
	if c == nil || c.BatchPending == nil {
		return
	}
	c.BatchPending.Set(float64(max(n, 0)))
}
