package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/guidance"
	"github.com/signalsfoundry/intercept-simulator/internal/logging"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

const tracerName = "github.com/signalsfoundry/intercept-simulator/sim"

// DefaultPreallocCap bounds how many samples Run reserves up front. Runs
// longer than this still complete; the series simply grows past it.
const DefaultPreallocCap = 1 << 20

// Divergence heuristic: separation growing by more than divergenceMargin
// metres across divergenceWindow samples ends the run as a miss. The
// window is counted in samples, so its time span scales with dt.
const (
	divergenceWindow = 10
	divergenceMargin = 500.0
)

// cancelCheckInterval is how many steps RunContext takes between context
// checks when no pacer is installed.
const cancelCheckInterval = 1024

// ErrEngineSpent is returned when Run is called on an engine that has
// already run. Build another with Scenario.NewEngine.
var ErrEngineSpent = errors.New("engine has already run")

// Outcome is how a run terminated.
type Outcome int

const (
	OutcomeRunning Outcome = iota
	OutcomeHit
	OutcomeTimeout
	OutcomeDiverging
	OutcomeCancelled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeRunning:
		return "running"
	case OutcomeHit:
		return "hit"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeDiverging:
		return "diverging"
	case OutcomeCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// StepEvent is passed to step listeners after each integrated step. The
// interceptor and target are live: a listener may change the target's
// velocity to steer it externally.
type StepEvent struct {
	Step         int
	Time         float64
	Acceleration mgl64.Vec3
	Interceptor  *core.Interceptor
	Target       *core.Target
}

// StepListener observes or drives an engine between steps.
type StepListener func(StepEvent)

// RunReport summarises a finished run for recorders.
type RunReport struct {
	RunID        string
	Scenario     string
	Law          string
	Outcome      Outcome
	Steps        int
	SimDuration  float64
	MissDistance float64
	Hit          bool
	WallDuration time.Duration
}

// RunRecorder receives a report after every run. Implementations must be
// safe for concurrent use when engines run in parallel.
type RunRecorder interface {
	RecordRun(RunReport)
}

// EngineOption customises an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l logging.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithRecorder reports every finished run to r.
func WithRecorder(r RunRecorder) EngineOption {
	return func(e *Engine) { e.recorder = r }
}

// WithPreallocCap overrides DefaultPreallocCap. n <= 0 disables
// preallocation.
func WithPreallocCap(n int) EngineOption {
	return func(e *Engine) { e.preallocCap = n }
}

// WithKinematics selects the implementation used for recorded LOS rate and
// closing speed. Guidance laws choose their own.
func WithKinematics(k core.Kinematics) EngineOption {
	return func(e *Engine) { e.kin = k }
}

// WithPacer throttles RunContext to wall-clock time. A pacer may be reused
// by engines run one after another, not by concurrent ones.
func WithPacer(p *timectrl.Pacer) EngineOption {
	return func(e *Engine) { e.pacer = p }
}

// WithStepListener registers fn as if by OnStep.
func WithStepListener(fn StepListener) EngineOption {
	return func(e *Engine) { e.OnStep(fn) }
}

// Engine integrates one engagement under one guidance law.
type Engine struct {
	scenario    *Scenario
	interceptor *core.Interceptor
	target      *core.Target
	clock       *timectrl.Clock

	dt           float64
	maxTime      float64
	hitThreshold float64
	maxSteps     int

	outcome Outcome
	ran     bool

	log         logging.Logger
	recorder    RunRecorder
	preallocCap int
	kin         core.Kinematics
	pacer       *timectrl.Pacer
	listeners   []StepListener
}

func newEngine(s *Scenario, motion core.TargetMotion, opts ...EngineOption) *Engine {
	e := &Engine{
		scenario:     s,
		interceptor:  core.NewInterceptor(s.missile),
		target:       core.NewTarget(s.target),
		clock:        timectrl.NewClock(s.target.Epoch),
		dt:           s.timing.DT,
		maxTime:      s.timing.TotalTime,
		hitThreshold: s.timing.HitThreshold,
		maxSteps:     s.MaxSteps(),
		log:          logging.Noop(),
		preallocCap:  DefaultPreallocCap,
		kin:          core.ScalarKinematics,
	}
	if _, constant := motion.(core.ConstantMotion); !constant {
		e.OnStep(func(ev StepEvent) { motion.Apply(e.clock, ev.Target) })
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// OnStep registers a listener called after every step, in registration
// order. Listeners must be registered before Run.
func (e *Engine) OnStep(fn StepListener) {
	if fn != nil {
		e.listeners = append(e.listeners, fn)
	}
}

// Interceptor returns the live interceptor.
func (e *Engine) Interceptor() *core.Interceptor { return e.interceptor }

// Target returns the live target.
func (e *Engine) Target() *core.Target { return e.target }

// Clock exposes simulation time. It is not synchronised: read it from the
// goroutine running the engine, such as inside a step listener.
func (e *Engine) Clock() timectrl.SimClock { return e.clock }

// Outcome returns how the last run ended, or OutcomeRunning.
func (e *Engine) Outcome() Outcome { return e.outcome }

// Steps returns the number of integrated steps.
func (e *Engine) Steps() int { return e.clock.Steps() }

// Run integrates law until hit, timeout or divergence and returns the
// finalized metrics.
func (e *Engine) Run(law guidance.Law) (*Metrics, error) {
	return e.RunContext(context.Background(), law)
}

// RunContext is Run with cancellation and optional pacing. On
// cancellation the partial metrics are finalized and returned together
// with the context error.
func (e *Engine) RunContext(ctx context.Context, law guidance.Law) (*Metrics, error) {
	if e.ran {
		return nil, ErrEngineSpent
	}
	e.ran = true

	runID := logging.RunIDFromContext(ctx)
	if runID == "" {
		runID = logging.NewRunID()
		ctx = logging.ContextWithRunID(ctx, runID)
	}
	log := e.log.With(
		logging.String("scenario", e.scenario.name),
		logging.String("law", law.String()),
	)

	ctx, span := otel.Tracer(tracerName).Start(ctx, "sim.Run")
	span.SetAttributes(
		attribute.String("run_id", runID),
		attribute.String("scenario", e.scenario.name),
		attribute.String("guidance_law", law.String()),
		attribute.Float64("dt", e.dt),
		attribute.Float64("total_time", e.maxTime),
	)
	defer span.End()

	log.Debug(ctx, "run starting",
		logging.Float("dt", e.dt),
		logging.Float("total_time", e.maxTime),
		logging.Int("max_steps", e.maxSteps),
	)
	wallStart := time.Now()
	if e.pacer != nil {
		e.pacer.Reset()
	}

	m := NewMetrics()
	if e.preallocCap > 0 {
		m.Reserve(min(e.maxSteps, e.preallocCap))
	}
	e.record(m, 0)

	var runErr error
	for !e.shouldTerminate(m) {
		e.step(law, m)

		if e.pacer != nil {
			if err := e.pacer.Wait(ctx, e.clock.Now()); err != nil {
				runErr = err
			}
		} else if e.clock.Steps()%cancelCheckInterval == 0 {
			runErr = ctx.Err()
		}
		if runErr != nil {
			e.outcome = OutcomeCancelled
			break
		}
	}

	if err := m.Finalize(e.hitThreshold); err != nil {
		return nil, err
	}

	report := RunReport{
		RunID:        runID,
		Scenario:     e.scenario.name,
		Law:          law.String(),
		Outcome:      e.outcome,
		Steps:        e.clock.Steps(),
		SimDuration:  m.Duration(),
		MissDistance: m.MissDistance,
		Hit:          m.Hit,
		WallDuration: time.Since(wallStart),
	}
	if e.recorder != nil {
		e.recorder.RecordRun(report)
	}

	span.SetAttributes(
		attribute.String("outcome", e.outcome.String()),
		attribute.Int("steps", e.clock.Steps()),
		attribute.Float64("miss_distance", m.MissDistance),
	)

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		log.Warn(ctx, "run cancelled", logging.Int("steps", e.clock.Steps()), logging.Err(runErr))
		return m, fmt.Errorf("run %s: %w", runID, runErr)
	}

	log.Info(ctx, "run finished",
		logging.String("outcome", e.outcome.String()),
		logging.Int("steps", e.clock.Steps()),
		logging.Float("duration", report.SimDuration),
		logging.Float("miss_distance", m.MissDistance),
		logging.Bool("hit", m.Hit),
		logging.Duration("wall", report.WallDuration),
	)
	return m, nil
}

// step advances one dt: guidance, integration, clock, record, listeners.
func (e *Engine) step(law guidance.Law, m *Metrics) {
	a := law.Acceleration(e.interceptor, e.target)
	e.interceptor.Update(a, e.dt)
	e.target.Update(e.dt)
	now := e.clock.Advance(e.dt)

	e.record(m, a.Len())

	if len(e.listeners) == 0 {
		return
	}
	ev := StepEvent{
		Step:         e.clock.Steps(),
		Time:         now,
		Acceleration: a,
		Interceptor:  e.interceptor,
		Target:       e.target,
	}
	for _, fn := range e.listeners {
		fn(ev)
	}
}

func (e *Engine) record(m *Metrics, accel float64) {
	ms, ts := e.interceptor.State, e.target.State
	m.Record(Sample{
		Time:            e.clock.Now(),
		MissilePosition: ms.Position,
		MissileVelocity: ms.Velocity,
		TargetPosition:  ts.Position,
		TargetVelocity:  ts.Velocity,
		Distance:        core.Distance(ms.Position, ts.Position),
		Acceleration:    accel,
		LOSRate:         e.kin.LOSRate(ms.Position, ms.Velocity, ts.Position, ts.Velocity).Len(),
		ClosingSpeed:    e.kin.ClosingSpeed(ms.Position, ms.Velocity, ts.Position, ts.Velocity),
	})
}

// shouldTerminate sets the outcome and reports true once the run is over.
func (e *Engine) shouldTerminate(m *Metrics) bool {
	if e.clock.Now() >= e.maxTime || e.clock.Steps() >= e.maxSteps {
		e.outcome = OutcomeTimeout
		return true
	}

	d := m.Distances
	last := d[len(d)-1]
	if last < e.hitThreshold {
		e.outcome = OutcomeHit
		return true
	}
	if len(d) > divergenceWindow && last > d[len(d)-divergenceWindow]+divergenceMargin {
		e.outcome = OutcomeDiverging
		return true
	}
	return false
}
