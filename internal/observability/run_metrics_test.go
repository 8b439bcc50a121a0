package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/signalsfoundry/intercept-simulator/sim"
)

func TestRunCollectorRecordsReports(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}

	c.RecordRun(sim.RunReport{Law: "PPN", Outcome: sim.OutcomeHit, Steps: 1000, MissDistance: 0.4, WallDuration: 3 * time.Millisecond})
	c.RecordRun(sim.RunReport{Law: "PPN", Outcome: sim.OutcomeHit, Steps: 900, MissDistance: 0.2})
	c.RecordRun(sim.RunReport{Law: "PP", Outcome: sim.OutcomeDiverging, Steps: 50, MissDistance: 800})

	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("PPN", "hit")); got != 2 {
		t.Fatalf("sim_runs_total{PPN,hit} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.RunsTotal.WithLabelValues("PP", "diverging")); got != 1 {
		t.Fatalf("sim_runs_total{PP,diverging} = %v, want 1", got)
	}
	if count := histogramSampleCount(t, reg, "sim_miss_distance_meters", map[string]string{"guidance": "PPN"}); count != 2 {
		t.Fatalf("sim_miss_distance_meters{PPN} sample_count = %d, want 2", count)
	}
	if count := histogramSampleCount(t, reg, "sim_run_steps", map[string]string{"guidance": "PP"}); count != 1 {
		t.Fatalf("sim_run_steps{PP} sample_count = %d, want 1", count)
	}
}

func TestRunCollectorSkipsMissForEmptyRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	c.RecordRun(sim.RunReport{Law: "TPN", Outcome: sim.OutcomeHit, Steps: 0})

	if count := histogramSampleCount(t, reg, "sim_miss_distance_meters", map[string]string{"guidance": "TPN"}); count != 0 {
		t.Fatalf("sim_miss_distance_meters sample_count = %d, want 0", count)
	}
}

func TestRunCollectorReRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("first NewRunCollector: %v", err)
	}
	second, err := NewRunCollector(reg)
	if err != nil {
		t.Fatalf("second NewRunCollector: %v", err)
	}

	second.RecordRun(sim.RunReport{Law: "APN(0.50)", Outcome: sim.OutcomeTimeout, Steps: 10})
	if got := testutil.ToFloat64(first.RunsTotal.WithLabelValues("APN(0.50)", "timeout")); got != 1 {
		t.Fatalf("shared counter = %v, want 1", got)
	}
}

func TestRunCollectorBatchPending(t *testing.T) {
	c, err := NewRunCollector(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewRunCollector: %v", err)
	}
	c.SetBatchPending(12)
	if got := testutil.ToFloat64(c.BatchPending); got != 12 {
		t.Fatalf("sim_batch_jobs_pending = %v, want 12", got)
	}
	c.SetBatchPending(-1)
	if got := testutil.ToFloat64(c.BatchPending); got != 0 {
		t.Fatalf("sim_batch_jobs_pending = %v, want 0", got)
	}

	var nilCollector *RunCollector
	nilCollector.RecordRun(sim.RunReport{})
	nilCollector.SetBatchPending(1)
}
