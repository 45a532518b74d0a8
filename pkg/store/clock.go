package store

import (
	"sync/atomic"
	"time"
)

// Clock is wall time plus an offset that only tests move. Token issue times
// and order dates read it, so a test can age a JWT without sleeping.
type Clock struct {
	offset atomic.Int64
}

// NewClock returns a clock showing real time.
func NewClock() *Clock {
	return &Clock{}
}

func (c *Clock) Now() time.Time {
	return time.Now().Add(c.Offset())
}

// Advance moves the clock by d.
func (c *Clock) Advance(d time.Duration) {
	c.offset.Add(int64(d))
}

// Reset returns the clock to real time.
func (c *Clock) Reset() {
	c.offset.Store(0)
}

func (c *Clock) Offset() time.Duration {
	return time.Duration(c.offset.Load())
}
