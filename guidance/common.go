package guidance

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

// seek accelerates at full capability straight at aim. Used whenever the
// interceptor has no usable heading or is already pointed at the aim point.
func seek(m *core.Interceptor, aim mgl64.Vec3) mgl64.Vec3 {
	dir, rng := core.Unit(aim.Sub(m.State.Position), core.RangeEpsilon)
	if rng < core.RangeEpsilon {
		return core.Zero
	}
	return dir.Mul(m.MaxAcceleration)
}

// turnToward returns the lateral command steering heading vhat toward the
// unit aim direction: N·speed·|lateral|·gain, capped at max acceleration.
// An aligned heading falls back to full acceleration along aimUnit.
func turnToward(m *core.Interceptor, aimUnit, vhat mgl64.Vec3, speed, gain float64) mgl64.Vec3 {
	lateral := core.RejectFrom(aimUnit, vhat)
	lateralUnit, lateralNorm := core.Unit(lateral, core.AlignEpsilon)
	if lateralNorm < core.AlignEpsilon {
		return aimUnit.Mul(m.MaxAcceleration)
	}
	mag := m.NavigationConstant * speed * lateralNorm * gain
	return lateralUnit.Mul(min(mag, m.MaxAcceleration))
}

// rangeDamping ramps linearly from 0 to 1 over the first kilometre, held
// within [floor, 1].
func rangeDamping(rng, floor float64) float64 {
	if rng >= 1000 {
		return 1
	}
	return mgl64.Clamp(rng/1000, floor, 1)
}
