package engine

import (
	"sync"
	"time"
)

// Clock supplies the current unix timestamp in seconds.
type Clock interface {
	Now() uint64
}

// SystemClock reads wall-clock time.
type SystemClock struct{}

func (SystemClock) Now() uint64 {
	return uint64(time.Now().Unix())
}

// ManualClock is a settable clock for replays and tests.
type ManualClock struct {
	mu  sync.RWMutex
	now uint64
}

func NewManualClock(start uint64) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Set moves the clock to ts. Moving backwards is ignored.
func (c *ManualClock) Set(ts uint64) {
	c.mu.Lock()
	if ts > c.now {
		c.now = ts
	}
	c.mu.Unlock()
}

// Advance moves the clock forward by seconds.
func (c *ManualClock) Advance(seconds uint64) {
	c.mu.Lock()
	c.now += seconds
	c.mu.Unlock()
}
