package timex

import (
	"sync"
	"time"
)

// Clock abstracts the wall clock so sync code can be driven by tests.
type Clock interface {
	Now() time.Time
}

// SystemClock reads time.Now, truncated to milliseconds.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return Trunc(time.Now()) }

// ManualClock is a settable clock. Every Now call advances it by Step,
// which keeps successive stamps strictly increasing when Step > 0.
type ManualClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: Trunc(start), Step: time.Millisecond}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// Set moves the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = Trunc(t)
	c.mu.Unlock()
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
