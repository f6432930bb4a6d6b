package agent

import (
	"context"
	"time"
)

// Clock provides a testable time source for the runtime's timed
// transitions (rotation deadline, preload deadline, inter-send delay).
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is cancelled, returning ctx.Err()
	// in the latter case.
	Sleep(ctx context.Context, d time.Duration) error
	// After returns a channel that fires once d has elapsed
	After(d time.Duration) <-chan time.Time
}

// RealClock is a production Clock backed by the runtime timer
type RealClock struct{}

// Now implements Clock
func (RealClock) Now() time.Time { return time.Now() }

// After implements Clock
func (RealClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// Sleep implements Clock
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
