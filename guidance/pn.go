package guidance

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// purePN commands N·|v|·|ω| along the LOS rate projected orthogonal to
// the interceptor's heading.
func purePN(m *core.Interceptor, t *core.Target) mgl64.Vec3 {
	if core.Distance(t.State.Position, m.State.Position) < core.RangeEpsilon {
		return core.Zero
	}
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return seek(m, t.State.Position)
	}

	omega := core.LOSRate(m.State.Position, m.State.Velocity, t.State.Position, t.State.Velocity)
	return proportional(m, t, omega, speed, speed)
}

// truePN is PN driven by closing speed instead of own speed. Closing speed
// is held within [1, MaxClosingSpeed]; a MaxClosingSpeed of 1 or less only
// enforces the lower bound.
func truePN(m *core.Interceptor, t *core.Target) mgl64.Vec3 {
	if core.Distance(t.State.Position, m.State.Position) < core.RangeEpsilon {
		return core.Zero
	}
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return seek(m, t.State.Position)
	}

	omega := core.LOSRateLanes(m.State.Position, m.State.Velocity, t.State.Position, t.State.Velocity)
	vc := core.ClosingSpeedLanes(m.State.Position, m.State.Velocity, t.State.Position, t.State.Velocity)
	return proportional(m, t, omega, speed, effectiveClosingSpeed(vc, m.MaxClosingSpeed))
}

func effectiveClosingSpeed(vc, limit float64) float64 {
	vc = max(vc, -vc)
	if limit > 1 {
		return mgl64.Clamp(vc, 1, limit)
	}
	return max(vc, 1)
}

func proportional(m *core.Interceptor, t *core.Target, omega mgl64.Vec3, speed, effectiveSpeed float64) mgl64.Vec3 {
	omegaUnit, omegaMag := core.Unit(omega, core.AlignEpsilon)
	if omegaMag < core.AlignEpsilon {
		return core.Zero
	}
	dir, ok := pnDirection(m, omegaUnit, speed)
	if !ok {
		return seek(m, t.State.Position)
	}
	mag := m.NavigationConstant * effectiveSpeed * omegaMag
	return dir.Mul(min(mag, m.MaxAcceleration))
}

// pnDirection projects the LOS-rate unit vector orthogonal to the heading.
// ok is false when the two are parallel.
func pnDirection(m *core.Interceptor, omegaUnit mgl64.Vec3, speed float64) (mgl64.Vec3, bool) {
	vhat := m.State.Velocity.Mul(1 / speed)
	dir, n := core.Unit(core.RejectFrom(omegaUnit, vhat), core.AlignEpsilon)
	return dir, n >= core.AlignEpsilon
}
