package testutil

import (
	"sync"
	"time"
)

// SteppingClock is a deterministic wall clock for tests. Every call to Now
// advances it by Step.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type SteppingClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	n     int64
}

// NewSteppingClock creates a clock whose first Now returns start+step.
// A zero step defaults to one second.
func NewSteppingClock(start time.Time, step time.Duration) *SteppingClock {
	if step == 0 {
		step = time.Second
	}
	return &SteppingClock{start: start.UTC(), step: step}
}

// Now advances the clock and returns the new time.
func (c *SteppingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n++
	return c.start.Add(time.Duration(c.n) * c.step)
}

// Ticks returns how many times Now has been called.
func (c *SteppingClock) Ticks() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

// Reset rewinds the clock so the next Now returns start+step again.
func (c *SteppingClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.n = 0
}
