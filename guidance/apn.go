package guidance

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// Time-to-go bounds for the zero-effort-miss prediction (seconds).
const (
	minTimeToGo = 0.1
	maxTimeToGo = 5.0
)

// augmentedPN adds a zero-effort-miss term to pure PN:
//
//	a = a_PN + ZEM/τ · N/2
//
// where ZEM is the separation both bodies would have after time-to-go if
// neither maneuvered. The sum, not each term, is capped.
func augmentedPN(m *core.Interceptor, t *core.Target, timeConstant float64) mgl64.Vec3 {
	if core.Distance(t.State.Position, m.State.Position) < core.RangeEpsilon {
		return core.Zero
	}
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return seek(m, t.State.Position)
	}

	pm, vm := m.State.Position, m.State.Velocity
	pt, vt := t.State.Position, t.State.Velocity

	omegaUnit, omegaMag := core.Unit(core.LOSRate(pm, vm, pt, vt), core.AlignEpsilon)
	if omegaMag < core.AlignEpsilon {
		// on a collision course; no PN and no ZEM correction
		return core.Zero
	}
	dir, ok := pnDirection(m, omegaUnit, speed)
	if !ok {
		return seek(m, pt)
	}
	pn := dir.Mul(m.NavigationConstant * speed * omegaMag)

	zem := zeroEffortMissAccel(m, t, timeConstant)
	return core.ClampMagnitude(pn.Add(zem), m.MaxAcceleration)
}

func zeroEffortMissAccel(m *core.Interceptor, t *core.Target, timeConstant float64) mgl64.Vec3 {
	pm, vm := m.State.Position, m.State.Velocity
	pt, vt := t.State.Position, t.State.Velocity

	vc := core.ClosingSpeed(pm, vm, pt, vt)
	if vc <= core.SpeedEpsilon {
		return core.Zero
	}
	tgo := mgl64.Clamp(core.Distance(pt, pm)/vc, minTimeToGo, maxTimeToGo)

	zem := pt.Add(vt.Mul(tgo)).Sub(pm.Add(vm.Mul(tgo)))
	return zem.Mul(1 / timeConstant * (m.NavigationConstant * 0.5))
}
