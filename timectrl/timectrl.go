// Package timectrl owns simulation time for an engagement: a fixed-step
// clock measured in seconds since launch, plus an optional wall-clock pacer
// used when a run is replayed at real speed.
package timectrl

import (
	"context"
	"time"
)

// SimClock is the read side of simulation time. Step listeners and motion
// drivers depend on it rather than on a concrete Clock.
type SimClock interface {
	// Now returns elapsed simulation seconds since launch.
	Now() float64
	// Wall maps the current simulation time onto an absolute instant.
	Wall() time.Time
}

// Mode describes how a Pacer maps simulation time to wall-clock time.
type Mode int

const (
	// Accelerated runs as fast as the loop can step.
	Accelerated Mode = iota
	// RealTime holds each step until the matching wall-clock time has passed.
	RealTime
)

func (m Mode) String() string {
	switch m {
	case RealTime:
		return "realtime"
	case Accelerated:
		return "accelerated"
	default:
		return "unknown"
	}
}

// Clock is a fixed-step simulation clock. Time only moves through Advance,
// so a run is reproducible regardless of how fast the host executes it.
//
// A Clock belongs to one engine and is read and advanced on that engine's
// goroutine only; it does no locking.
type Clock struct {
	epoch time.Time
	now   float64
	steps int
}

// NewClock constructs a clock at t=0. The epoch anchors simulation seconds
// to absolute time for drivers that need it (orbital propagation).
func NewClock(epoch time.Time) *Clock {
	return &Clock{epoch: epoch.UTC()}
}

// Now returns elapsed simulation seconds. Implements SimClock.
func (c *Clock) Now() float64 { return c.now }

// Wall returns epoch + Now. Implements SimClock.
func (c *Clock) Wall() time.Time {
	return c.epoch.Add(time.Duration(c.now * float64(time.Second)))
}

// Steps returns how many times Advance has been called.
func (c *Clock) Steps() int { return c.steps }

// Advance moves simulation time forward by dt seconds and returns the new
// time.
func (c *Clock) Advance(dt float64) float64 {
	c.now += dt
	c.steps++
	return c.now
}

// Pacer throttles playback so that simulation time does not outrun wall
// time by more than Speed allows.
type Pacer struct {
	Mode Mode
	// Speed scales playback in RealTime mode: 2 plays twice as fast.
	// Values <= 0 are treated as 1.
	Speed float64

	start time.Time
	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// NewPacer constructs a pacer. Wall-clock timing starts at the first Wait.
func NewPacer(mode Mode, speed float64) *Pacer {
	return &Pacer{
		Mode:  mode,
		Speed: speed,
		sleep: sleepCtx,
		now:   time.Now,
	}
}

// Wait blocks until wall time has caught up with simTime seconds. It
// returns immediately in Accelerated mode and returns ctx.Err() if the
// context is cancelled while waiting.
func (p *Pacer) Wait(ctx context.Context, simTime float64) error {
	if p.Mode != RealTime {
		return ctx.Err()
	}
	if p.start.IsZero() {
		p.start = p.now()
	}
	speed := p.Speed
	if speed <= 0 {
		speed = 1
	}
	due := p.start.Add(time.Duration(simTime / speed * float64(time.Second)))
	if d := due.Sub(p.now()); d > 0 {
		return p.sleep(ctx, d)
	}
	return ctx.Err()
}

// Reset restarts wall-clock timing at the next Wait.
func (p *Pacer) Reset() {
	p.start = time.Time{}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
