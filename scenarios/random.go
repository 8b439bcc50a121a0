package scenarios

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/signalsfoundry/intercept-simulator/model"
	"github.com/signalsfoundry/intercept-simulator/sim"
)

// Ranges for generated engagements. Altitude is the y axis.
const (
	randomDT           = 1e-4
	randomDuration     = 30.0
	randomHitThreshold = 10.0
	randomMaxClosing   = 8000.0

	launchSpan   = 2000.0 // missile x,z drawn from [-launchSpan, launchSpan)
	minAltitude  = 500.0
	maxAltitude  = 3000.0
	minSep       = 3000.0
	maxSep       = 10000.0
	minMslSpeed  = 800.0
	maxMslSpeed  = 2500.0
	mslElevation = 0.5
	minTgtSpeed  = 300.0
	maxTgtSpeed  = 1500.0
	tgtElevation = 0.3
	minMaxAccel  = 1000.0
	maxMaxAccel  = 3000.0
	minNav       = 3.0
	maxNav       = 7.0
)

// pcgStream decorrelates seeds that differ in a single bit.
const pcgStream = 0x9e3779b97f4a7c15

// Random builds the engagement named train_<seed>. The same seed always
// yields the same scenario.
func Random(seed uint64) *sim.Scenario {
	r := rand.New(rand.NewPCG(seed, seed^pcgStream))
	uniform := func(lo, hi float64) float64 { return lo + r.Float64()*(hi-lo) }

	mPos := mgl64.Vec3{
		uniform(-launchSpan, launchSpan),
		uniform(minAltitude, maxAltitude),
		uniform(-launchSpan, launchSpan),
	}
	mVel := heading(
		uniform(minMslSpeed, maxMslSpeed),
		uniform(0, 2*math.Pi),
		uniform(-mslElevation, mslElevation),
	)

	sep := uniform(minSep, maxSep)
	bearing := uniform(0, 2*math.Pi)
	tPos := mgl64.Vec3{
		mPos.X() + sep*math.Cos(bearing),
		uniform(minAltitude, maxAltitude),
		mPos.Z() + sep*math.Sin(bearing),
	}
	tVel := heading(
		uniform(minTgtSpeed, maxTgtSpeed),
		uniform(0, 2*math.Pi),
		uniform(-tgtElevation, tgtElevation),
	)

	return mustScenario(
		sim.WithName(fmt.Sprintf("train_%d", seed)),
		sim.WithMissile(model.MissileConfig{
			Position:           mPos,
			Velocity:           mVel,
			MaxAcceleration:    uniform(minMaxAccel, maxMaxAccel),
			NavigationConstant: uniform(minNav, maxNav),
			MaxClosingSpeed:    randomMaxClosing,
		}),
		sim.WithTarget(model.TargetConfig{Position: tPos, Velocity: tVel}),
		sim.WithTimestep(randomDT),
		sim.WithDuration(randomDuration),
		sim.WithHitThreshold(randomHitThreshold),
	)
}

// RandomSet returns train_0 through train_<n-1>.
func RandomSet(n int) []*sim.Scenario {
	out := make([]*sim.Scenario, 0, max(n, 0))
	for seed := 0; seed < n; seed++ {
		out = append(out, Random(uint64(seed)))
	}
	return out
}

// heading converts speed, azimuth in the x-z plane and elevation toward +y
// into a velocity vector.
func heading(speed, azimuth, elevation float64) mgl64.Vec3 {
	return mgl64.Vec3{
		speed * math.Cos(azimuth) * math.Cos(elevation),
		speed * math.Sin(elevation),
		speed * math.Sin(azimuth) * math.Cos(elevation),
	}
}
