package model

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// MotionSource indicates how a target's velocity is determined between steps.
type MotionSource int

const (
	MotionSourceConstant   MotionSource = iota
	MotionSourceSpacetrack              // TLE-based orbit propagation
)

// MissileConfig is the initial state and capability set of an interceptor.
// Positions are metres, velocities m/s, accelerations m/s².
type MissileConfig struct {
	Position           mgl64.Vec3 `json:"position"`
	Velocity           mgl64.Vec3 `json:"velocity"`
	MaxAcceleration    float64    `json:"max_acceleration"`
	NavigationConstant float64    `json:"navigation_constant"`
	MaxClosingSpeed    float64    `json:"max_closing_speed"` // only used by closing-speed based laws
}

// TargetConfig is the initial state of a target.
type TargetConfig struct {
	Position mgl64.Vec3 `json:"position"`
	Velocity mgl64.Vec3 `json:"velocity"`

	// Optional external driver. The core never maneuvers a target on its own.
	MotionSource MotionSource `json:"motion_source,omitempty"`
	TLELine1     string       `json:"tle_line1,omitempty"`
	TLELine2     string       `json:"tle_line2,omitempty"`
	Epoch        time.Time    `json:"epoch,omitempty"` // wall time at simulation t=0
}
