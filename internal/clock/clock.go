// Package clock provides the logical time sources ArborVote runs against.
package clock

import (
	"sync"
	"sync/atomic"
	"time"
)

// System reads unix seconds from the wall clock and never goes backwards,
// even if the host clock is adjusted.
type System struct {
	last atomic.Uint64
}

func NewSystem() *System {
	return &System{}
}

func (c *System) Now() uint64 {
	now := uint64(time.Now().Unix())
	for {
		last := c.last.Load()
		if now <= last {
			return last
		}
		if c.last.CompareAndSwap(last, now) {
			return now
		}
	}
}

// Manual is a logical clock moved explicitly by its owner.
type Manual struct {
	mu  sync.Mutex
	now uint64
}

func NewManual(start uint64) *Manual {
	return &Manual{now: start}
}

func (c *Manual) Now() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d seconds and returns the new time.
func (c *Manual) Advance(d uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += d
	return c.now
}

// Set moves the clock to t. Attempts to move it backwards are ignored.
func (c *Manual) Set(t uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.now {
		c.now = t
	}
	return c.now
}
