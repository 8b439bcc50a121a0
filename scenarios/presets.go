// Package scenarios supplies ready-made engagements: a fixed preset
// catalog, a seeded random generator for bulk data runs, and an orbital
// target preset.
package scenarios

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

const (
	presetDT           = 1e-4
	presetHitThreshold = 5.0
)

type preset struct {
	name     string
	missile  model.MissileConfig
	target   model.TargetConfig
	duration float64
}

var presets = []preset{
	{
		name: "Perpendicular-Intercept",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{500, 0, 0},
			Velocity:           mgl64.Vec3{0, 0, 700},
			MaxAcceleration:    1200,
			NavigationConstant: 4,
			MaxClosingSpeed:    800,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{-5000, 0, 2000},
			Velocity: mgl64.Vec3{500, 0, 0},
		},
		duration: 30,
	},
	{
		name: "VTOL-Urban-Strike",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{-800, 50, 0},
			Velocity:           mgl64.Vec3{500, 200, 0},
			MaxAcceleration:    1800,
			NavigationConstant: 5,
			MaxClosingSpeed:    1000,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{1500, 300, 0},
			Velocity: mgl64.Vec3{-350, -50, 100},
		},
		duration: 15,
	},
	{
		name: "Jet-Head-On-Intercept",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{0, 0, 1000},
			Velocity:           mgl64.Vec3{0, 600, -100},
			MaxAcceleration:    2200,
			NavigationConstant: 5,
			MaxClosingSpeed:    1400,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{0, 3500, 1200},
			Velocity: mgl64.Vec3{0, -700, -50},
		},
		duration: 10,
	},
	{
		name: "Ground-Attack-Intercept",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{-2000, 0, 500},
			Velocity:           mgl64.Vec3{400, 100, -50},
			MaxAcceleration:    1600,
			NavigationConstant: 4.5,
			MaxClosingSpeed:    950,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{2500, 1500, 800},
			Velocity: mgl64.Vec3{-500, -200, -100},
		},
		duration: 12,
	},
	{
		name: "Spiral-Evasion",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{0, 0, 0},
			Velocity:           mgl64.Vec3{400, 750, 0},
			MaxAcceleration:    2800,
			NavigationConstant: 7,
			MaxClosingSpeed:    1500,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{1200, 1800, 0},
			Velocity: mgl64.Vec3{200, 400, 300},
		},
		duration: 15,
	},
	{
		name: "Terrain-Hugging-Chase",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{-500, 0, 250},
			Velocity:           mgl64.Vec3{500, 750, 0},
			MaxAcceleration:    2200,
			NavigationConstant: 6,
			MaxClosingSpeed:    1300,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{1500, 1200, 50},
			Velocity: mgl64.Vec3{300, 400, -10},
		},
		duration: 10,
	},
	{
		name: "Hypersonic-Intercept",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{0, 0, 2000},
			Velocity:           mgl64.Vec3{0, 1200, -300},
			MaxAcceleration:    4000,
			NavigationConstant: 7,
			MaxClosingSpeed:    2500,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{0, 4500, 2200},
			Velocity: mgl64.Vec3{0, -900, -100},
		},
		duration: 8,
	},
	{
		name: "Cinematic-Perpendicular",
		missile: model.MissileConfig{
			Position:           mgl64.Vec3{-3000, 0, 500},
			Velocity:           mgl64.Vec3{600, 0, -50},
			MaxAcceleration:    1900,
			NavigationConstant: 5,
			MaxClosingSpeed:    1300,
		},
		target: model.TargetConfig{
			Position: mgl64.Vec3{0, 3000, 500},
			Velocity: mgl64.Vec3{0, -550, 0},
		},
		duration: 12,
	},
}

// Presets returns the preset catalog in a fixed order. Every call builds
// new scenarios.
func Presets() []*sim.Scenario {
	out := make([]*sim.Scenario, 0, len(presets))
	for _, p := range presets {
		out = append(out, p.scenario())
	}
	return out
}

// PresetNames lists preset names in catalog order.
func PresetNames() []string {
	names := make([]string, len(presets))
	for i, p := range presets {
		names[i] = p.name
	}
	return names
}

func (p preset) scenario() *sim.Scenario {
	return mustScenario(
		sim.WithName(p.name),
		sim.WithMissile(p.missile),
		sim.WithTarget(p.target),
		sim.WithTimestep(presetDT),
		sim.WithDuration(p.duration),
		sim.WithHitThreshold(presetHitThreshold),
	)
}

// mustScenario is for compiled-in definitions only; they are valid by
// construction.
func mustScenario(opts ...sim.ScenarioOption) *sim.Scenario {
	s, err := sim.NewScenario(opts...)
	if err != nil {
		panic(err)
	}
	return s
}
