package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRealClock(t *testing.T) {
	clock := RealClock{}

	t.Run("sleep honors cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := clock.Sleep(ctx, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("sleep with nonpositive duration returns immediately", func(t *testing.T) {
		require.NoError(t, clock.Sleep(context.Background(), 0))
	})

	t.Run("after fires", func(t *testing.T) {
		select {
		case <-clock.After(time.Millisecond):
		case <-time.After(time.Second):
			t.Fatal("after never fired")
		}
	})
}
