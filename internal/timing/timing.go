// Package timing tracks frame delta time and frames per second.
package timing

import "time"

// Clock returns the current time. Tests swap it for a fake.
type Clock func() time.Time

// Time is the per-tick delta resource. The engine updates it at the start of
// every tick, before any system runs.
type Time struct {
	clock Clock
	last  time.Time
	delta time.Duration
}

// NewTime starts measuring from now.
func NewTime(clock Clock) *Time {
	if clock == nil {
		clock = time.Now
	}
	return &Time{clock: clock, last: clock()}
}

// Update records the time elapsed since the previous call.
func (t *Time) Update() {
	now := t.clock()
	t.delta = now.Sub(t.last)
	t.last = now
}

// Delta returns the last tick's delta.
func (t *Time) Delta() time.Duration {
	return t.delta
}

// DeltaSeconds returns the last tick's delta in seconds.
func (t *Time) DeltaSeconds() float64 {
	return t.delta.Seconds()
}

// FPSInfo is published into the resource registry each time the counter
// completes a measurement window.
type FPSInfo struct {
	FPS float64
}

// FPSCounter averages frame rate over windows of at least one second and
// five frames.
type FPSCounter struct {
	clock   Clock
	begin   time.Time
	elapsed time.Duration
	frames  int
	fps     float64
}

const (
	minWindow = time.Second
	minFrames = 5
)

// NewFPSCounter returns a counter using clock.
func NewFPSCounter(clock Clock) *FPSCounter {
	if clock == nil {
		clock = time.Now
	}
	return &FPSCounter{clock: clock, begin: clock()}
}

// BeginFrame marks the start of a frame.
func (c *FPSCounter) BeginFrame() {
	c.begin = c.clock()
}

// EndFrame closes the frame and reports whether a new FPS value is ready.
func (c *FPSCounter) EndFrame() bool {
	c.elapsed += c.clock().Sub(c.begin)
	c.frames++
	if c.elapsed < minWindow || c.frames < minFrames {
		return false
	}
	c.fps = float64(c.frames) / c.elapsed.Seconds()
	c.frames = 0
	c.elapsed = 0
	return true
}

// FPS returns the last completed measurement.
func (c *FPSCounter) FPS() float64 {
	return c.fps
}
