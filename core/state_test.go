package core

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/model"
)

func TestKinematicStateUpdate_ZeroAccelerationIsTranslation(t *testing.T) {
	s := KinematicState{
		Position: mgl64.Vec3{10, -20, 30},
		Velocity: mgl64.Vec3{100, 5, -7},
	}
	const dt = 0.25
	wantPos := s.Position.Add(s.Velocity.Mul(dt))
	wantVel := s.Velocity

	s.Update(Zero, dt)

	if !s.Position.ApproxEqual(wantPos) {
		t.Fatalf("Position = %v, want %v", s.Position, wantPos)
	}
	if s.Velocity != wantVel {
		t.Fatalf("Velocity = %v, want %v", s.Velocity, wantVel)
	}
}

func TestKinematicStateUpdate_SemiImplicit(t *testing.T) {
	s := KinematicState{}
	s.Update(mgl64.Vec3{2, 0, 0}, 1)

	// velocity is updated first, so position uses the new velocity
	if s.Velocity != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("Velocity = %v, want (2,0,0)", s.Velocity)
	}
	if s.Position != (mgl64.Vec3{2, 0, 0}) {
		t.Fatalf("Position = %v, want (2,0,0)", s.Position)
	}
}

func TestInterceptorUpdate_ClampsAcceleration(t *testing.T) {
	m := NewInterceptor(model.MissileConfig{
		Velocity:        mgl64.Vec3{0, 0, 0},
		MaxAcceleration: 30,
	})
	m.Update(mgl64.Vec3{0, 300, 400}, 1)

	if got := m.State.Velocity.Len(); math.Abs(got-30) > 1e-9 {
		t.Fatalf("|velocity| after 1s = %v, want 30", got)
	}
	dir := m.State.Velocity.Normalize()
	if !dir.ApproxEqual(mgl64.Vec3{0, 0.6, 0.8}) {
		t.Fatalf("direction = %v, want (0,0.6,0.8)", dir)
	}
}

func TestInterceptorUpdate_BelowLimitUnchanged(t *testing.T) {
	m := NewInterceptor(model.MissileConfig{MaxAcceleration: 30})
	m.Update(mgl64.Vec3{0, 10, 0}, 1)
	if m.State.Velocity != (mgl64.Vec3{0, 10, 0}) {
		t.Fatalf("Velocity = %v, want (0,10,0)", m.State.Velocity)
	}
}

func TestTargetUpdate_ConstantVelocity(t *testing.T) {
	tgt := NewTarget(model.TargetConfig{
		Position: mgl64.Vec3{1000, 0, 0},
		Velocity: mgl64.Vec3{-50, 10, 0},
	})
	for i := 0; i < 100; i++ {
		tgt.Update(0.01)
	}
	want := mgl64.Vec3{950, 10, 0}
	if tgt.State.Position.Sub(want).Len() > 1e-9 {
		t.Fatalf("Position = %v, want %v", tgt.State.Position, want)
	}
	if tgt.State.Velocity != (mgl64.Vec3{-50, 10, 0}) {
		t.Fatalf("Velocity changed to %v", tgt.State.Velocity)
	}
}

func TestNewInterceptor_DoesNotAliasConfig(t *testing.T) {
	cfg := model.MissileConfig{Position: mgl64.Vec3{1, 2, 3}, MaxAcceleration: 10}
	a := NewInterceptor(cfg)
	b := NewInterceptor(cfg)
	a.Update(mgl64.Vec3{1, 0, 0}, 1)
	if b.State.Position != cfg.Position {
		t.Fatalf("second interceptor mutated through first: %v", b.State.Position)
	}
}
