// Package batch fans (scenario, guidance law) jobs out over a bounded set
// of workers. Each job owns its engine; the only shared state is the
// summary sink and the progress counters.
package batch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/internal/observability"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

const tracerName = "github.com/signalsfoundry/intercept-simulator/internal/batch"

// ErrJobPanicked wraps a panic recovered from a worker.
var ErrJobPanicked = errors.New("batch job panicked")

// Job is one engine run.
type Job struct {
	Scenario *sim.Scenario
	Law      guidance.Law
}

// Jobs is the cross product of scenarios and laws, scenario-major.
func Jobs(scenarios []*sim.Scenario, laws []guidance.Law) []Job {
	jobs := make([]Job, 0, len(scenarios)*len(laws))
	for _, s := range scenarios {
		for _, l := range laws {
			jobs = append(jobs, Job{Scenario: s, Law: l})
		}
	}
	return jobs
}

// Stats summarises a finished batch.
type Stats struct {
	Total  int
	Done   int
	Hits   int
	Failed int
	Wall   time.Duration
}

// Runner executes jobs in parallel.
type Runner struct {
	// Workers bounds concurrency; <= 0 means GOMAXPROCS.
	Workers int
	Sink    Sink
	Log     logging.Logger
	// Collector, when set, receives every run report and tracks pending jobs.
	Collector *observability.RunCollector
	// Recorder receives every run report in addition to Collector.
	Recorder sim.RunRecorder
	// EngineOptions are applied to every engine.
	EngineOptions []sim.EngineOption
	// ProgressEvery logs progress after this many completed jobs; <= 0
	// disables progress logging.
	ProgressEvery int
	// OnProgress is called after every completed job.
	OnProgress func(done, total int)
}

// Run executes every job and writes one row per successful run. A failed
// job is logged, reported to Sentry when it panicked, and counted; it
// does not stop the batch. A sink error or context cancellation does.
func (r *Runner) Run(ctx context.Context, jobs []Job) (Stats, error) {
	log := r.Log
	if log == nil {
		log = logging.Noop()
	}
	workers := r.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, "batch.Run")
	span.SetAttributes(attribute.Int("jobs", len(jobs)), attribute.Int("workers", workers))
	defer span.End()

	engineOpts := append([]sim.EngineOption{}, r.EngineOptions...)
	if rec := r.recorder(); rec != nil {
		engineOpts = append(engineOpts, sim.WithRecorder(rec))
	}

	total := len(jobs)
	start := time.Now()
	var done, hits, failed atomic.Int64
	var errMu sync.Mutex
	var jobErrs []error

	r.Collector.SetBatchPending(total)
	log.Info(ctx, "batch starting", logging.Int("jobs", total), logging.Int("workers", workers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			row, err := r.runJob(gctx, job, engineOpts)

			n := int(done.Add(1))
			r.Collector.SetBatchPending(total - n)
			if r.OnProgress != nil {
				r.OnProgress(n, total)
			}
			if r.ProgressEvery > 0 && (n%r.ProgressEvery == 0 || n == total) {
				log.Info(gctx, "batch progress", logging.Int("done", n), logging.Int("total", total))
			}

			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				log.Error(gctx, "batch job failed",
					logging.String("scenario", job.Scenario.Name()),
					logging.String("law", job.Law.String()),
					logging.Err(err),
				)
				errMu.Lock()
				jobErrs = append(jobErrs, err)
				errMu.Unlock()
				return nil
			}
			if row.Hit {
				hits.Add(1)
			}
			if r.Sink != nil {
				return r.Sink.Write(row)
			}
			return nil
		})
	}

	runErr := g.Wait()
	if runErr == nil {
		runErr = ctx.Err()
	}
	stats := Stats{
		Total:  total,
		Done:   int(done.Load()),
		Hits:   int(hits.Load()),
		Failed: int(failed.Load()),
		Wall:   time.Since(start),
	}

	span.SetAttributes(attribute.Int("done", stats.Done), attribute.Int("hits", stats.Hits), attribute.Int("failed", stats.Failed))
	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		return stats, fmt.Errorf("batch aborted after %d of %d jobs: %w", stats.Done, total, runErr)
	}

	log.Info(ctx, "batch finished",
		logging.Int("jobs", total),
		logging.Int("hits", stats.Hits),
		logging.Int("failed", stats.Failed),
		logging.Duration("wall", stats.Wall),
	)
	return stats, errors.Join(jobErrs...)
}

func (r *Runner) runJob(ctx context.Context, job Job, opts []sim.EngineOption) (row Row, err error) {
	hub := sentry.CurrentHub().Clone()
	hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("scenario", job.Scenario.Name())
		scope.SetTag("guidance_law", job.Law.String())
	})
	defer func() {
		if p := recover(); p != nil {
			hub.Recover(p)
			err = fmt.Errorf("%w: %s/%s: %v", ErrJobPanicked, job.Scenario.Name(), job.Law, p)
		}
	}()

	e, err := job.Scenario.NewEngine(opts...)
	if err != nil {
		return Row{}, err
	}
	m, err := e.RunContext(ctx, job.Law)
	if err != nil {
		return Row{}, err
	}
	return Row{
		Scenario:     job.Scenario.Name(),
		Law:          job.Law.String(),
		Duration:     m.Duration(),
		MissDistance: m.MissDistance,
		Hit:          m.Hit,
		Timesteps:    m.Len(),
		Outcome:      e.Outcome().String(),
		Fingerprint:  job.Scenario.Fingerprint(),
	}, nil
}

func (r *Runner) recorder() sim.RunRecorder {
	switch {
	case r.Collector != nil && r.Recorder != nil:
		return multiRecorder{r.Collector, r.Recorder}
	case r.Collector != nil:
		return r.Collector
	default:
		return r.Recorder
	}
}

type multiRecorder []sim.RunRecorder

func (m multiRecorder) RecordRun(rep sim.RunReport) {
	for _, r := range m {
		r.RecordRun(rep)
	}
}
