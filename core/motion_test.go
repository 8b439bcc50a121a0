package core

import (
	"errors"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/timectrl"
)

const (
	issTLE1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issTLE2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

var issEpoch = time.Date(2021, 10, 2, 14, 10, 0, 0, time.UTC)

func TestConstantMotion_NoOp(t *testing.T) {
	tgt := &Target{State: KinematicState{Velocity: mgl64.Vec3{1, 2, 3}}}
	clock := timectrl.NewClock(issEpoch)
	clock.Advance(12.5)
	ConstantMotion{}.Apply(clock, tgt)
	if tgt.State.Velocity != (mgl64.Vec3{1, 2, 3}) {
		t.Fatalf("Velocity = %v, want unchanged", tgt.State.Velocity)
	}
}

func TestOrbitalMotion_LowEarthOrbitState(t *testing.T) {
	m := NewOrbitalMotionFromTLE(issTLE1, issTLE2)
	s := m.StateAt(issEpoch)

	// ISS: radius ~6.7e6 m, speed ~7.66 km/s.
	if r := s.Position.Len(); r < 6.6e6 || r > 6.9e6 {
		t.Fatalf("orbital radius = %v m, want LEO", r)
	}
	if v := s.Velocity.Len(); v < 7400 || v > 7900 {
		t.Fatalf("orbital speed = %v m/s, want ~7660", v)
	}
}

func TestOrbitalMotion_ApplyChangesVelocityOverTime(t *testing.T) {
	m := NewOrbitalMotionFromTLE(issTLE1, issTLE2)
	clock := timectrl.NewClock(issEpoch)
	tgt := &Target{}

	clock.Advance(0.4)
	m.Apply(clock, tgt)
	first := tgt.State.Velocity
	clock.Advance(0.5)
	m.Apply(clock, tgt)
	if tgt.State.Velocity != first {
		t.Fatalf("velocity changed within the same propagated second")
	}
	clock.Advance(59.1)
	m.Apply(clock, tgt)
	if tgt.State.Velocity == first {
		t.Fatalf("expected orbital velocity to rotate after 60s")
	}
}

func TestOrbitalMotion_PropagatesAtClockWallTime(t *testing.T) {
	clock := timectrl.NewClock(issEpoch)
	clock.Advance(90.7)

	tgt := &Target{}
	NewOrbitalMotionFromTLE(issTLE1, issTLE2).Apply(clock, tgt)

	want := NewOrbitalMotionFromTLE(issTLE1, issTLE2).StateAt(issEpoch.Add(90 * time.Second)).Velocity
	if tgt.State.Velocity != want {
		t.Fatalf("Apply velocity = %v, want state at epoch+90s %v", tgt.State.Velocity, want)
	}
}

func TestNewTargetMotion(t *testing.T) {
	m, err := NewTargetMotion(model.TargetConfig{})
	if err != nil {
		t.Fatalf("NewTargetMotion(constant) error: %v", err)
	}
	if _, ok := m.(ConstantMotion); !ok {
		t.Fatalf("NewTargetMotion(constant) = %T, want ConstantMotion", m)
	}

	_, err = NewTargetMotion(model.TargetConfig{
		MotionSource: model.MotionSourceSpacetrack,
		TLELine1:     issTLE1,
		TLELine2:     issTLE2,
	})
	if !errors.Is(err, ErrMissingEpoch) {
		t.Fatalf("NewTargetMotion without epoch error = %v, want ErrMissingEpoch", err)
	}

	m, err = NewTargetMotion(model.TargetConfig{
		MotionSource: model.MotionSourceSpacetrack,
		TLELine1:     issTLE1,
		TLELine2:     issTLE2,
		Epoch:        issEpoch,
	})
	if err != nil {
		t.Fatalf("NewTargetMotion(spacetrack) error: %v", err)
	}
	if _, ok := m.(*OrbitalSGP4Motion); !ok {
		t.Fatalf("NewTargetMotion(spacetrack) = %T, want *OrbitalSGP4Motion", m)
	}
}
