package guidance

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestPurePursuit_TurnsTowardTarget(t *testing.T) {
	m := interceptor(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{100, 0, 0})
	tg := target(mgl64.Vec3{1000, 1000, 0}, mgl64.Vec3{0, 0, 0})

	a := NewPP().Acceleration(m, tg)

	// lateral = u - vhat(vhat·u) = (0, 0.7071, 0); mag = 3·100·0.7071 → capped at 30
	if !a.ApproxEqualThreshold(mgl64.Vec3{0, 30, 0}, 1e-9) {
		t.Fatalf("PP acceleration = %v, want (0,30,0)", a)
	}
}

func TestPurePursuit_UnsaturatedMagnitude(t *testing.T) {
	m := interceptor(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 0, 0})
	tg := target(mgl64.Vec3{1000, 100, 0}, mgl64.Vec3{0, 0, 0})

	a := NewPP().Acceleration(m, tg)

	u := tg.State.Position.Normalize()
	lateral := u.Sub(mgl64.Vec3{1, 0, 0}.Mul(u.X()))
	want := 3 * 10 * lateral.Len()
	if math.Abs(a.Len()-want) > 1e-9 {
		t.Fatalf("|PP| = %v, want %v", a.Len(), want)
	}
	if math.Abs(a.X()) > 1e-12 {
		t.Fatalf("PP acceleration has an along-track component: %v", a)
	}
}

func TestPursuitLaws_AlignedAccelerateForward(t *testing.T) {
	m := interceptor(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{100, 0, 0})
	tg := target(mgl64.Vec3{5000, 0, 0}, mgl64.Vec3{0, 0, 0})

	for _, law := range []Law{NewPP(), NewDP(), NewLP(1)} {
		a := law.Acceleration(m, tg)
		if !a.ApproxEqualThreshold(mgl64.Vec3{30, 0, 0}, 1e-9) {
			t.Fatalf("%s aligned acceleration = %v, want (30,0,0)", law.Name(), a)
		}
	}
}

func TestClosingGain(t *testing.T) {
	tests := []struct {
		name      string
		vc, speed float64
		want      float64
	}{
		{"opening", -10, 100, 2.0},
		{"zero closing", 0, 100, 2.0},
		{"slow", 10, 100, 1.6},
		{"moderate", 30, 100, 1.3},
		{"good", 80, 100, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := closingGain(tt.vc, tt.speed); got != tt.want {
				t.Fatalf("closingGain(%v, %v) = %v, want %v", tt.vc, tt.speed, got, tt.want)
			}
		})
	}
}

func TestRangeDamping(t *testing.T) {
	tests := []struct {
		rng, floor, want float64
	}{
		{5000, 0.3, 1},
		{1000, 0.3, 1},
		{500, 0.3, 0.5},
		{100, 0.3, 0.3},
		{50, 0.1, 0.1},
		{200, 0.1, 0.2},
	}
	for _, tt := range tests {
		if got := rangeDamping(tt.rng, tt.floor); math.Abs(got-tt.want) > 1e-12 {
			t.Fatalf("rangeDamping(%v, %v) = %v, want %v", tt.rng, tt.floor, got, tt.want)
		}
	}
}

func TestDeviatedPursuit_ScalesPurePursuit(t *testing.T) {
	// Slow interceptor far away: PP and DP differ only by closing gain.
	m := interceptor(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 0, 0})
	m.MaxAcceleration = 1e6
	tg := target(mgl64.Vec3{2000, 2000, 0}, mgl64.Vec3{0, 0, 0})

	pp := NewPP().Acceleration(m, tg)
	dp := NewDP().Acceleration(m, tg)

	// closing ratio = cos(45°) ≈ 0.707 → gain 1.0, range > 1 km → damping 1.0
	if !dp.ApproxEqualThreshold(pp, 1e-9) {
		t.Fatalf("DP = %v, want PP %v", dp, pp)
	}

	// receding target doubles the gain
	tg.State.Velocity = mgl64.Vec3{10, 10, 0}
	dp = NewDP().Acceleration(m, tg)
	if math.Abs(dp.Len()-2*pp.Len()) > 1e-9 {
		t.Fatalf("|DP| opening = %v, want %v", dp.Len(), 2*pp.Len())
	}
}
