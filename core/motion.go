package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

// ErrMissingEpoch is returned when an orbital target has no reference epoch.
var ErrMissingEpoch = errors.New("orbital target requires an epoch")

// TargetMotion overrides a target's velocity between engine steps. It is
// the hook external drivers use; the core itself never maneuvers a target.
type TargetMotion interface {
	Apply(clock timectrl.SimClock, t *Target)
}

// ConstantMotion leaves the target's velocity unchanged.
type ConstantMotion struct{}

// Apply for constant motion does nothing.
func (ConstantMotion) Apply(timectrl.SimClock, *Target) {}

// OrbitalSGP4Motion follows a TLE-defined orbit. Positions and velocities
// are TEME/ECI metres and m/s.
//
// Propagation has whole-second resolution, so the commanded velocity is
// piecewise constant per wall-clock second. Instances cache the last
// propagated second and must not be shared between engines.
type OrbitalSGP4Motion struct {
	sat satellite.Satellite

	cachedSecond int64
	cached       KinematicState
	hasCache     bool
}

// NewOrbitalMotionFromTLE constructs an orbital driver from TLE lines.
func NewOrbitalMotionFromTLE(line1, line2 string) *OrbitalSGP4Motion {
	return &OrbitalSGP4Motion{sat: satellite.TLEToSat(line1, line2, satellite.GravityWGS72)}
}

// StateAt propagates the orbit to at, truncated to the whole second.
// go-satellite works in kilometres; the simulator uses metres.
func (m *OrbitalSGP4Motion) StateAt(at time.Time) KinematicState {
	at = at.UTC().Truncate(time.Second)
	second := at.Unix()
	if m.hasCache && second == m.cachedSecond {
		return m.cached
	}

	year, month, day := at.Date()
	hour, min, sec := at.Clock()
	pos, vel := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)

	const kmToM = 1000.0
	m.cached = KinematicState{
		Position: mgl64.Vec3{pos.X * kmToM, pos.Y * kmToM, pos.Z * kmToM},
		Velocity: mgl64.Vec3{vel.X * kmToM, vel.Y * kmToM, vel.Z * kmToM},
	}
	m.cachedSecond = second
	m.hasCache = true
	return m.cached
}

// Apply sets the target's velocity to the orbital velocity at the clock's
// wall time. Position is left to the integrator.
func (m *OrbitalSGP4Motion) Apply(clock timectrl.SimClock, t *Target) {
	t.State.Velocity = m.StateAt(clock.Wall()).Velocity
}

// NewTargetMotion chooses a TargetMotion for the configured motion source.
// Spacetrack with both TLE lines uses SGP4, otherwise constant velocity.
func NewTargetMotion(cfg model.TargetConfig) (TargetMotion, error) {
	if cfg.MotionSource != model.MotionSourceSpacetrack || cfg.TLELine1 == "" || cfg.TLELine2 == "" {
		return ConstantMotion{}, nil
	}
	if cfg.Epoch.IsZero() {
		return nil, fmt.Errorf("NewTargetMotion: %w", ErrMissingEpoch)
	}
	return NewOrbitalMotionFromTLE(cfg.TLELine1, cfg.TLELine2), nil
}
