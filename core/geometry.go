package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Degeneracy thresholds shared by the kinematics and guidance layers.
const (
	// RangeEpsilon is the separation (m) below which two bodies are treated
	// as coincident.
	RangeEpsilon = 1e-6
	// SpeedEpsilon is the speed (m/s) below which a body has no usable heading.
	SpeedEpsilon = 1e-6
	// AlignEpsilon is the norm below which a lateral or LOS-rate component
	// is treated as zero.
	AlignEpsilon = 1e-12
)

// Zero is the zero vector.
var Zero = mgl64.Vec3{}

// Distance returns the straight-line distance between two points.
func Distance(a, b mgl64.Vec3) float64 {
	return a.Sub(b).Len()
}

// Unit returns v/|v| and |v|. A vector shorter than eps yields the zero
// vector and its (tiny) norm so callers can branch on the norm.
func Unit(v mgl64.Vec3, eps float64) (mgl64.Vec3, float64) {
	n := v.Len()
	if n < eps {
		return Zero, n
	}
	return v.Mul(1 / n), n
}

// RejectFrom returns the component of v orthogonal to the unit vector axis.
func RejectFrom(v, axis mgl64.Vec3) mgl64.Vec3 {
	return v.Sub(axis.Mul(axis.Dot(v)))
}

// ClampMagnitude rescales v to exactly limit when |v| exceeds it,
// preserving direction.
func ClampMagnitude(v mgl64.Vec3, limit float64) mgl64.Vec3 {
	n := v.Len()
	if n > limit && n > 0 {
		return v.Mul(limit / n)
	}
	return v
}

// IsFinite reports whether every component of v is a finite number.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
