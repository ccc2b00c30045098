package engine

import "sync/atomic"

// Clock is a monotonic logical counter used to tag issued requests.
//
// Ordering is by generation, never by wall-clock or arrival time: a response
// tagged with generation g is current only while Current() == g.
//
// Clock is safe for concurrent use, although views only call Next from their
// loop goroutine.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0. The first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next increments the clock and returns the new generation.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the latest issued generation.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// IsCurrent reports whether gen is still the latest issued generation.
func (c *Clock) IsCurrent(gen int64) bool {
	return c.seq.Load() == gen
}
