package guidance

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// purePursuit turns the heading toward the target's current position with
// no line-of-sight awareness.
func purePursuit(m *core.Interceptor, t *core.Target) mgl64.Vec3 {
	rangeUnit, rng := core.Unit(t.State.Position.Sub(m.State.Position), core.RangeEpsilon)
	if rng < core.RangeEpsilon {
		return core.Zero
	}
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return rangeUnit.Mul(m.MaxAcceleration)
	}
	vhat := m.State.Velocity.Mul(1 / speed)
	return turnToward(m, rangeUnit, vhat, speed, 1)
}

// Closing-ratio breakpoints and the aggression applied below each.
const (
	slowClosingRatio     = 0.2
	moderateClosingRatio = 0.5

	slowClosingGain     = 1.6
	moderateClosingGain = 1.3
	openingGain         = 2.0

	deviatedDampingFloor = 0.3
)

// deviatedPursuit is pure pursuit with its gain raised when closing is
// slow or negative, and damped inside the last kilometre.
func deviatedPursuit(m *core.Interceptor, t *core.Target) mgl64.Vec3 {
	rangeUnit, rng := core.Unit(t.State.Position.Sub(m.State.Position), core.RangeEpsilon)
	if rng < core.RangeEpsilon {
		return core.Zero
	}
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return rangeUnit.Mul(m.MaxAcceleration)
	}
	vhat := m.State.Velocity.Mul(1 / speed)

	vc := core.ClosingSpeed(m.State.Position, m.State.Velocity, t.State.Position, t.State.Velocity)
	gain := closingGain(vc, speed) * rangeDamping(rng, deviatedDampingFloor)
	return turnToward(m, rangeUnit, vhat, speed, gain)
}

func closingGain(vc, speed float64) float64 {
	if vc <= 0 {
		return openingGain
	}
	switch ratio := vc / speed; {
	case ratio < slowClosingRatio:
		return slowClosingGain
	case ratio < moderateClosingRatio:
		return moderateClosingGain
	default:
		return 1
	}
}
