// Package sim runs a single interceptor against a single target: an
// immutable Scenario describes the engagement, and every Engine it builds
// integrates one guidance law to termination while recording Metrics.
package sim

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/model"
)

var (
	// ErrMissingMissileConfig is returned when a scenario has no interceptor.
	ErrMissingMissileConfig = errors.New("missile configuration is required")
	// ErrMissingTargetConfig is returned when a scenario has no target.
	ErrMissingTargetConfig = errors.New("target configuration is required")
	// ErrInvalidTiming is returned for a timestep or duration that would not
	// terminate, or a negative hit threshold.
	ErrInvalidTiming = errors.New("invalid scenario timing")
	// ErrInvalidAcceleration is returned for a negative or non-finite
	// interceptor acceleration limit.
	ErrInvalidAcceleration = errors.New("invalid missile acceleration limit")
)

// Scenario is an immutable engagement definition.
type Scenario struct {
	name    string
	missile model.MissileConfig
	target  model.TargetConfig
	timing  model.Timing
}

// ScenarioOption customises scenario construction.
type ScenarioOption func(*scenarioConfig)

type scenarioConfig struct {
	name    string
	missile *model.MissileConfig
	target  *model.TargetConfig
	timing  model.Timing
}

// WithName labels the scenario in logs, metrics and summaries.
func WithName(name string) ScenarioOption {
	return func(c *scenarioConfig) { c.name = name }
}

// WithMissile sets the interceptor configuration.
func WithMissile(cfg model.MissileConfig) ScenarioOption {
	return func(c *scenarioConfig) { c.missile = &cfg }
}

// WithTarget sets the target configuration.
func WithTarget(cfg model.TargetConfig) ScenarioOption {
	return func(c *scenarioConfig) { c.target = &cfg }
}

// WithTimestep sets dt in seconds.
func WithTimestep(dt float64) ScenarioOption {
	return func(c *scenarioConfig) { c.timing.DT = dt }
}

// WithDuration sets the maximum simulated time in seconds.
func WithDuration(total float64) ScenarioOption {
	return func(c *scenarioConfig) { c.timing.TotalTime = total }
}

// WithHitThreshold sets the separation in metres that counts as a hit.
func WithHitThreshold(threshold float64) ScenarioOption {
	return func(c *scenarioConfig) { c.timing.HitThreshold = threshold }
}

// WithTiming replaces all three timing parameters at once.
func WithTiming(t model.Timing) ScenarioOption {
	return func(c *scenarioConfig) { c.timing = t }
}

// NewScenario validates and freezes an engagement. Timing not set through
// options falls back to model.DefaultTiming.
func NewScenario(opts ...ScenarioOption) (*Scenario, error) {
	cfg := scenarioConfig{timing: model.DefaultTiming()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}

	if cfg.missile == nil {
		return nil, ErrMissingMissileConfig
	}
	if cfg.target == nil {
		return nil, ErrMissingTargetConfig
	}
	if a := cfg.missile.MaxAcceleration; !(a >= 0) || math.IsInf(a, 0) {
		return nil, fmt.Errorf("%w: must be non-negative and finite, got %v", ErrInvalidAcceleration, a)
	}
	if err := validateTiming(cfg.timing); err != nil {
		return nil, err
	}
	if _, err := core.NewTargetMotion(*cfg.target); err != nil {
		return nil, fmt.Errorf("scenario %q: %w", cfg.name, err)
	}

	return &Scenario{
		name:    cfg.name,
		missile: *cfg.missile,
		target:  *cfg.target,
		timing:  cfg.timing,
	}, nil
}

func validateTiming(t model.Timing) error {
	switch {
	case !(t.DT > 0) || math.IsInf(t.DT, 0):
		return fmt.Errorf("%w: dt must be positive and finite, got %v", ErrInvalidTiming, t.DT)
	case !(t.TotalTime > 0) || math.IsInf(t.TotalTime, 0):
		return fmt.Errorf("%w: total time must be positive and finite, got %v", ErrInvalidTiming, t.TotalTime)
	case math.IsNaN(t.HitThreshold) || t.HitThreshold < 0:
		return fmt.Errorf("%w: hit threshold must be non-negative, got %v", ErrInvalidTiming, t.HitThreshold)
	}
	return nil
}

func (s *Scenario) Name() string                 { return s.name }
func (s *Scenario) Missile() model.MissileConfig { return s.missile }
func (s *Scenario) Target() model.TargetConfig   { return s.target }
func (s *Scenario) Timing() model.Timing         { return s.timing }
func (s *Scenario) Timestep() float64            { return s.timing.DT }
func (s *Scenario) Duration() float64            { return s.timing.TotalTime }
func (s *Scenario) HitThreshold() float64        { return s.timing.HitThreshold }

// MaxSteps is the number of steps after which a run is forced to time out.
func (s *Scenario) MaxSteps() int {
	return int(math.Ceil(s.timing.TotalTime/s.timing.DT)) + 1
}

// Fingerprint hashes every initial condition, excluding the name, so two
// scenarios with the same fingerprint produce identical runs.
func (s *Scenario) Fingerprint() uint64 {
	buf := make([]byte, 0, 256)
	f := func(v float64) {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}

	m := s.missile
	for _, v := range [...]float64{
		m.Position[0], m.Position[1], m.Position[2],
		m.Velocity[0], m.Velocity[1], m.Velocity[2],
		m.MaxAcceleration, m.NavigationConstant, m.MaxClosingSpeed,
	} {
		f(v)
	}

	t := s.target
	for _, v := range [...]float64{
		t.Position[0], t.Position[1], t.Position[2],
		t.Velocity[0], t.Velocity[1], t.Velocity[2],
	} {
		f(v)
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(t.MotionSource))
	if t.MotionSource == model.MotionSourceSpacetrack {
		buf = append(buf, t.TLELine1...)
		buf = append(buf, t.TLELine2...)
		buf = binary.LittleEndian.AppendUint64(buf, uint64(t.Epoch.UnixNano()))
	}

	f(s.timing.DT)
	f(s.timing.TotalTime)
	f(s.timing.HitThreshold)

	return xxh3.Hash(buf)
}

// NewEngine builds a fresh engine with its own interceptor, target and
// clock. Engines never share state, so each may run on its own goroutine.
func (s *Scenario) NewEngine(opts ...EngineOption) (*Engine, error) {
	motion, err := core.NewTargetMotion(s.target)
	if err != nil {
		return nil, fmt.Errorf("scenario %q: %w", s.name, err)
	}
	return newEngine(s, motion, opts...), nil
}
