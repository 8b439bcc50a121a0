package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrAlreadyFinalized is returned by a second call to Finalize.
var ErrAlreadyFinalized = errors.New("metrics already finalized")

// Metrics is the time series of one run. Every slice is indexed by step
// and all slices always have the same length.
type Metrics struct {
	Times             []float64
	MissilePositions  []mgl64.Vec3
	MissileVelocities []mgl64.Vec3
	TargetPositions   []mgl64.Vec3
	TargetVelocities  []mgl64.Vec3
	Distances         []float64
	Accelerations     []float64
	LOSRates          []float64
	ClosingSpeeds     []float64

	// MissDistance is the smallest separation seen so far.
	MissDistance float64
	// Hit is set by Finalize.
	Hit bool

	finalized bool
}

// Sample is one aligned tuple appended by Record.
type Sample struct {
	Time            float64
	MissilePosition mgl64.Vec3
	MissileVelocity mgl64.Vec3
	TargetPosition  mgl64.Vec3
	TargetVelocity  mgl64.Vec3
	Distance        float64
	Acceleration    float64
	LOSRate         float64
	ClosingSpeed    float64
}

// NewMetrics returns an empty series with MissDistance at +Inf.
func NewMetrics() *Metrics {
	return &Metrics{MissDistance: math.Inf(1)}
}

// Reserve grows every slice's capacity to at least n samples.
func (m *Metrics) Reserve(n int) {
	if n <= cap(m.Times) {
		return
	}
	m.Times = grow(m.Times, n)
	m.MissilePositions = grow(m.MissilePositions, n)
	m.MissileVelocities = grow(m.MissileVelocities, n)
	m.TargetPositions = grow(m.TargetPositions, n)
	m.TargetVelocities = grow(m.TargetVelocities, n)
	m.Distances = grow(m.Distances, n)
	m.Accelerations = grow(m.Accelerations, n)
	m.LOSRates = grow(m.LOSRates, n)
	m.ClosingSpeeds = grow(m.ClosingSpeeds, n)
}

func grow[T any](s []T, n int) []T {
	out := make([]T, len(s), n)
	copy(out, s)
	return out
}

// Record appends one sample and updates the running miss distance.
func (m *Metrics) Record(s Sample) {
	m.Times = append(m.Times, s.Time)
	m.MissilePositions = append(m.MissilePositions, s.MissilePosition)
	m.MissileVelocities = append(m.MissileVelocities, s.MissileVelocity)
	m.TargetPositions = append(m.TargetPositions, s.TargetPosition)
	m.TargetVelocities = append(m.TargetVelocities, s.TargetVelocity)
	m.Distances = append(m.Distances, s.Distance)
	m.Accelerations = append(m.Accelerations, s.Acceleration)
	m.LOSRates = append(m.LOSRates, s.LOSRate)
	m.ClosingSpeeds = append(m.ClosingSpeeds, s.ClosingSpeed)

	if s.Distance < m.MissDistance {
		m.MissDistance = s.Distance
	}
}

// Finalize sets Hit from the miss distance. It may be called once.
func (m *Metrics) Finalize(hitThreshold float64) error {
	if m.finalized {
		return ErrAlreadyFinalized
	}
	m.Hit = m.MissDistance < hitThreshold
	m.finalized = true
	return nil
}

// Finalized reports whether Finalize has run.
func (m *Metrics) Finalized() bool { return m.finalized }

// Len is the number of recorded samples.
func (m *Metrics) Len() int { return len(m.Times) }

// Duration is the last recorded time, or 0 for an empty series.
func (m *Metrics) Duration() float64 {
	if len(m.Times) == 0 {
		return 0
	}
	return m.Times[len(m.Times)-1]
}

// Summary is the one-line console report.
func (m *Metrics) Summary() string {
	hit := 0
	if m.Hit {
		hit = 1
	}
	return fmt.Sprintf("Travel Duration: %.2f | Miss Distance: %.2f | Hit: %d", m.Duration(), m.MissDistance, hit)
}
