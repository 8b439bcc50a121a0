package core

import "github.com/go-gl/mathgl/mgl64"

// Kinematics is a pair of relative-motion evaluators. Both provided sets
// produce the same results within floating-point rounding; they differ
// only in how the arithmetic is laid out.
type Kinematics struct {
	Name         string
	LOSRate      func(pm, vm, pt, vt mgl64.Vec3) mgl64.Vec3
	ClosingSpeed func(pm, vm, pt, vt mgl64.Vec3) float64
}

var (
	// ScalarKinematics evaluates component-wise on 3-vectors.
	ScalarKinematics = Kinematics{Name: "scalar", LOSRate: LOSRate, ClosingSpeed: ClosingSpeed}
	// LaneKinematics evaluates on 4-wide lanes with the fourth lane pinned to zero.
	LaneKinematics = Kinematics{Name: "lanes", LOSRate: LOSRateLanes, ClosingSpeed: ClosingSpeedLanes}
)

// LOSRate returns the line-of-sight rate vector (rad/s) of a target at
// pt/vt as seen from an interceptor at pm/vm: the tangential part of the
// relative velocity divided by range. Coincident bodies yield zero.
func LOSRate(pm, vm, pt, vt mgl64.Vec3) mgl64.Vec3 {
	rangeVec := pt.Sub(pm)
	rng := rangeVec.Len()
	if rng < RangeEpsilon {
		return Zero
	}
	rangeUnit := rangeVec.Mul(1 / rng)
	relVel := vt.Sub(vm)
	tangential := relVel.Sub(rangeUnit.Mul(relVel.Dot(rangeUnit)))
	return tangential.Mul(1 / rng)
}

// ClosingSpeed returns the rate at which range decreases (m/s). Positive
// means the bodies are approaching. Coincident bodies yield zero.
func ClosingSpeed(pm, vm, pt, vt mgl64.Vec3) float64 {
	rangeVec := pt.Sub(pm)
	rng := rangeVec.Len()
	if rng < RangeEpsilon {
		return 0
	}
	rangeUnit := rangeVec.Mul(1 / rng)
	return vm.Sub(vt).Dot(rangeUnit)
}
