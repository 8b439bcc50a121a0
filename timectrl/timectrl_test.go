package timectrl

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"
)

func TestClockAdvance(t *testing.T) {
	epoch := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	c := NewClock(epoch)

	var last float64
	for i := 0; i < 4; i++ {
		last = c.Advance(0.25)
	}

	if last != 1 || c.Now() != 1 {
		t.Fatalf("Advance() = %v, Now() = %v, want 1", last, c.Now())
	}
	if got := c.Steps(); got != 4 {
		t.Fatalf("Steps() = %d, want 4", got)
	}
	if want := epoch.Add(time.Second); !c.Wall().Equal(want) {
		t.Fatalf("Wall() = %v, want %v", c.Wall(), want)
	}
}

func TestClockWallIsUTC(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	epoch := time.Date(2025, time.March, 10, 15, 0, 0, 0, loc)
	c := NewClock(epoch)
	c.Advance(90)

	got := c.Wall()
	if got.Location() != time.UTC {
		t.Fatalf("Wall() location = %v, want UTC", got.Location())
	}
	if want := time.Date(2025, time.March, 10, 12, 1, 30, 0, time.UTC); !got.Equal(want) {
		t.Fatalf("Wall() = %v, want %v", got, want)
	}
}

func TestClockAccumulatesSmallSteps(t *testing.T) {
	c := NewClock(time.Time{})
	for i := 0; i < 1000; i++ {
		c.Advance(0.001)
	}
	if got := c.Now(); math.Abs(got-1) > 1e-9 {
		t.Fatalf("Now() = %v, want ~1", got)
	}
}

func TestPacerAcceleratedDoesNotSleep(t *testing.T) {
	p := NewPacer(Accelerated, 1)
	p.sleep = func(context.Context, time.Duration) error {
		t.Fatal("accelerated pacer slept")
		return nil
	}
	if err := p.Wait(context.Background(), 100); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
}

func TestPacerRealTimeSleepsUntilDue(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := start

	p := NewPacer(RealTime, 2)
	p.now = func() time.Time { return now }

	var slept time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	// first call pins the start
	if err := p.Wait(context.Background(), 0); err != nil {
		t.Fatalf("Wait(0) error = %v", err)
	}

	now = start.Add(200 * time.Millisecond)
	if err := p.Wait(context.Background(), 1); err != nil {
		t.Fatalf("Wait(1) error = %v", err)
	}
	// 1 s at 2x speed is due 500 ms after start
	if slept != 300*time.Millisecond {
		t.Fatalf("slept %v, want 300ms", slept)
	}
}

func TestPacerCancelled(t *testing.T) {
	p := NewPacer(RealTime, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Wait(ctx, 10)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Wait() error = %v, want context.Canceled", err)
	}
}

func TestPacerResetRestartsTiming(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	now := start

	p := NewPacer(RealTime, 1)
	p.now = func() time.Time { return now }
	var slept time.Duration
	p.sleep = func(_ context.Context, d time.Duration) error {
		slept = d
		return nil
	}

	_ = p.Wait(context.Background(), 0)
	now = start.Add(10 * time.Second)

	p.Reset()
	_ = p.Wait(context.Background(), 0)
	if err := p.Wait(context.Background(), 2); err != nil {
		t.Fatalf("Wait(2) error = %v", err)
	}
	if slept != 2*time.Second {
		t.Fatalf("slept %v after Reset, want 2s", slept)
	}
}
