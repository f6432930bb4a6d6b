// Package agenttest provides deterministic fakes for testing agent
// runtimes without a browser or a real clock.
package agenttest

import (
	"context"
	"sync"
	"time"

	"github.com/mavrell/drumbeat/pkg/agent"
)

// FakeClock is a deterministic Clock for tests. Sleep advances the
// clock instantly instead of blocking.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

var _ agent.Clock = (*FakeClock)(nil)

// NewFakeClock returns a FakeClock starting at the given time
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now implements agent.Clock
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep implements agent.Clock by advancing the fake time
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

// After implements agent.Clock by advancing the fake time. The
// returned channel fires after a brief real delay so goroutines
// racing the timeout get scheduled before it expires.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.Advance(d)

	ch := make(chan time.Time, 1)
	time.AfterFunc(time.Millisecond, func() { ch <- c.Now() })
	return ch
}

// Advance moves time forward by d
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Set sets the current clock time
func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}
