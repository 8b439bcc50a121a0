package guidance

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/core"
)

const (
	minInterceptTime = 0.1
	leadDampingFloor = 0.1
	quadraticEpsilon = 1e-6
)

// leadPursuit pursues the point where the target will be when a
// constant-speed interceptor could reach it.
func leadPursuit(m *core.Interceptor, t *core.Target, leadTime float64) mgl64.Vec3 {
	speed := m.State.Speed()
	if speed < core.SpeedEpsilon {
		return seek(m, t.State.Position)
	}
	rangeVec := t.State.Position.Sub(m.State.Position)
	if rangeVec.Len() < core.RangeEpsilon {
		return core.Zero
	}

	tIntercept := interceptTime(rangeVec, t.State.Velocity, speed, leadTime)
	aim := t.State.Position.Add(t.State.Velocity.Mul(tIntercept))

	aimUnit, aimRange := core.Unit(aim.Sub(m.State.Position), core.RangeEpsilon)
	if aimRange < core.RangeEpsilon {
		return core.Zero
	}
	vhat := m.State.Velocity.Mul(1 / speed)
	return turnToward(m, aimUnit, vhat, speed, rangeDamping(aimRange, leadDampingFloor))
}

// interceptTime solves |r + vt·t| = |vm|·t for the earliest positive t:
//
//	(|vt|² − |vm|²)t² + 2(r·vt)t + |r|² = 0
//
// Quadratic roots are clamped to [0.1, 2·lead]; the equal-speed linear root
// is only capped at 2·lead. With no positive solution the configured lead
// time is used as is.
func interceptTime(rangeVec, targetVel mgl64.Vec3, speed, leadTime float64) float64 {
	a := targetVel.LenSqr() - speed*speed
	b := 2 * rangeVec.Dot(targetVel)
	c := rangeVec.LenSqr()

	clamp := func(t float64) float64 {
		return math.Max(math.Min(t, 2*leadTime), minInterceptTime)
	}

	if math.Abs(a) > quadraticEpsilon {
		disc := b*b - 4*a*c
		if disc < 0 {
			return leadTime
		}
		sqrtDisc := math.Sqrt(disc)
		t1 := (-b + sqrtDisc) / (2 * a)
		t2 := (-b - sqrtDisc) / (2 * a)
		switch {
		case t1 > 0 && t2 > 0:
			return clamp(math.Min(t1, t2))
		case t1 > 0:
			return clamp(t1)
		case t2 > 0:
			return clamp(t2)
		default:
			return clamp(leadTime)
		}
	}

	// equal speeds: the quadratic degenerates to a linear equation
	if math.Abs(b) > quadraticEpsilon {
		if tl := -c / b; tl > 0 {
			return math.Min(tl, 2*leadTime)
		}
	}
	return leadTime
}
