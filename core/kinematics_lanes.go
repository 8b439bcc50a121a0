package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// The lane path packs each 3-vector into a Vec4 with w = 0 so every
// operation runs over a fixed four-element array the compiler can keep in
// registers. The zero lane never contributes to dot products or norms.

func lanes(v mgl64.Vec3) mgl64.Vec4 { return v.Vec4(0) }

// norm3 ignores the w lane explicitly so a stray non-zero w can never leak
// into a range computation.
func norm3(v mgl64.Vec4) float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// LOSRateLanes is the lane-packed form of LOSRate.
func LOSRateLanes(pm, vm, pt, vt mgl64.Vec3) mgl64.Vec3 {
	rangeVec := lanes(pt).Sub(lanes(pm))
	rng := norm3(rangeVec)
	if rng < RangeEpsilon {
		return Zero
	}
	inv := 1 / rng
	rangeUnit := rangeVec.Mul(inv)
	relVel := lanes(vt).Sub(lanes(vm))
	radial := relVel.Dot(rangeUnit)
	tangential := relVel.Sub(rangeUnit.Mul(radial))
	return tangential.Mul(inv).Vec3()
}

// ClosingSpeedLanes is the lane-packed form of ClosingSpeed.
func ClosingSpeedLanes(pm, vm, pt, vt mgl64.Vec3) float64 {
	rangeVec := lanes(pt).Sub(lanes(pm))
	rng := norm3(rangeVec)
	if rng < RangeEpsilon {
		return 0
	}
	rangeUnit := rangeVec.Mul(1 / rng)
	return lanes(vm).Sub(lanes(vt)).Dot(rangeUnit)
}
