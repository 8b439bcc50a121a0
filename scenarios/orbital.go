package scenarios

import (
	"fmt"
	"time"

	"github.com/signalsfoundry/intercept-simulator/core"
	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

// ISS element set used by the built-in orbital preset.
const (
	DefaultTLELine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	DefaultTLELine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

// DefaultTLEEpoch pins simulation t=0 for the built-in orbital preset.
var DefaultTLEEpoch = time.Date(2021, 10, 2, 14, 10, 0, 0, time.UTC)

// Orbital chase geometry: the interceptor starts trailing the target
// along its orbit and overtakes it.
const (
	orbitalTrail        = 20000.0 // m behind the target
	orbitalOvertake     = 800.0   // m/s faster than the target
	orbitalMaxAccel     = 400.0
	orbitalNav          = 4.0
	orbitalMaxClosing   = 2000.0
	orbitalDT           = 0.01
	orbitalDuration     = 60.0
	orbitalHitThreshold = 10.0
)

// Orbital is the built-in orbital-target preset.
func Orbital() *sim.Scenario {
	s, err := OrbitalFromTLE("Orbital-Overtake", DefaultTLELine1, DefaultTLELine2, DefaultTLEEpoch)
	if err != nil {
		panic(err)
	}
	return s
}

// OrbitalFromTLE builds an overtaking intercept against the object the
// element set describes. Target velocity is re-propagated with SGP4 after
// every engine step.
func OrbitalFromTLE(name, line1, line2 string, epoch time.Time) (*sim.Scenario, error) {
	start := core.NewOrbitalMotionFromTLE(line1, line2).StateAt(epoch)
	along, speed := core.Unit(start.Velocity, core.SpeedEpsilon)
	if speed < core.SpeedEpsilon || !core.IsFinite(start.Position) || !core.IsFinite(start.Velocity) {
		return nil, fmt.Errorf("OrbitalFromTLE %q: element set does not propagate", name)
	}

	return sim.NewScenario(
		sim.WithName(name),
		sim.WithMissile(model.MissileConfig{
			Position:           start.Position.Sub(along.Mul(orbitalTrail)),
			Velocity:           start.Velocity.Add(along.Mul(orbitalOvertake)),
			MaxAcceleration:    orbitalMaxAccel,
			NavigationConstant: orbitalNav,
			MaxClosingSpeed:    orbitalMaxClosing,
		}),
		sim.WithTarget(model.TargetConfig{
			Position:     start.Position,
			Velocity:     start.Velocity,
			MotionSource: model.MotionSourceSpacetrack,
			TLELine1:     line1,
			TLELine2:     line2,
			Epoch:        epoch,
		}),
		sim.WithTimestep(orbitalDT),
		sim.WithDuration(orbitalDuration),
		sim.WithHitThreshold(orbitalHitThreshold),
	)
}

// All returns the presets followed by the orbital preset.
func All() []*sim.Scenario {
	return append(Presets(), Orbital())
}
