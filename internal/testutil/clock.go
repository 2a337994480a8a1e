// Package testutil provides shared helpers for tests.
package testutil

import (
	"sync"
	"time"
)

// FixedClock is a thread-safe clock pinned to a configurable instant.
//
// Unlike engine.SystemClock, FixedClock only moves when a test tells it to.
// This makes time-dependent rule outcomes (on-time checks, elapsed hours)
// deterministic and repeatable.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock pinned to t.
func NewFixedClock(t time.Time) *FixedClock {
	return &FixedClock{now: t}
}

// Now returns the pinned instant.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set pins the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
