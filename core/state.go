package core

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/model"
)

// KinematicState is a point mass position (m) and velocity (m/s).
type KinematicState struct {
	Position mgl64.Vec3
	Velocity mgl64.Vec3
}

// Update integrates one step with semi-implicit Euler: velocity first,
// then position using the updated velocity.
func (s *KinematicState) Update(acceleration mgl64.Vec3, dt float64) {
	s.Velocity = s.Velocity.Add(acceleration.Mul(dt))
	s.Position = s.Position.Add(s.Velocity.Mul(dt))
}

// Speed returns |velocity|.
func (s *KinematicState) Speed() float64 {
	return s.Velocity.Len()
}

// Interceptor is a guided body whose commanded acceleration is capped.
type Interceptor struct {
	State              KinematicState
	MaxAcceleration    float64
	NavigationConstant float64
	MaxClosingSpeed    float64
}

// NewInterceptor builds an interceptor from its configuration.
func NewInterceptor(cfg model.MissileConfig) *Interceptor {
	return &Interceptor{
		State: KinematicState{
			Position: cfg.Position,
			Velocity: cfg.Velocity,
		},
		MaxAcceleration:    cfg.MaxAcceleration,
		NavigationConstant: cfg.NavigationConstant,
		MaxClosingSpeed:    cfg.MaxClosingSpeed,
	}
}

// Update clamps the command to MaxAcceleration, preserving direction, and
// integrates one step.
func (m *Interceptor) Update(acceleration mgl64.Vec3, dt float64) {
	m.State.Update(ClampMagnitude(acceleration, m.MaxAcceleration), dt)
}

// Target is an unguided body. It is always integrated with zero
// acceleration; anything that changes its velocity does so from outside
// between steps.
type Target struct {
	State KinematicState
}

// NewTarget builds a target from its configuration.
func NewTarget(cfg model.TargetConfig) *Target {
	return &Target{
		State: KinematicState{
			Position: cfg.Position,
			Velocity: cfg.Velocity,
		},
	}
}

// Update advances the target one step at constant velocity.
func (t *Target) Update(dt float64) {
	t.State.Update(Zero, dt)
}
