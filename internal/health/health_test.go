package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckerTripsAfterThreshold(t *testing.T) {
	boom := errors.New("probe failed")
	check := func(context.Context) error { return boom }

	var unhealthy int
	var lastErr error
	c := NewChecker(Config{Threshold: 3}, check)
	c.OnUnhealthy = func(err error) {
		unhealthy++
		lastErr = err
	}

	ctx := context.Background()
	c.CheckNow(ctx)
	c.CheckNow(ctx)
	assert.Zero(t, unhealthy, "two failures must not trip a threshold of three")

	c.CheckNow(ctx)
	assert.Equal(t, 1, unhealthy)
	assert.ErrorIs(t, lastErr, boom)

	// Staying unhealthy does not refire the callback.
	c.CheckNow(ctx)
	c.CheckNow(ctx)
	assert.Equal(t, 1, unhealthy)
}

func TestCheckerRecovers(t *testing.T) {
	var fail atomic.Bool
	fail.Store(true)
	check := func(context.Context) error {
		if fail.Load() {
			return errors.New("probe failed")
		}
		return nil
	}

	var unhealthy, recovered int
	c := NewChecker(Config{Threshold: 2}, check)
	c.OnUnhealthy = func(error) { unhealthy++ }
	c.OnRecovered = func() { recovered++ }

	ctx := context.Background()
	c.CheckNow(ctx)
	c.CheckNow(ctx)
	require.Equal(t, 1, unhealthy)

	fail.Store(false)
	c.CheckNow(ctx)
	assert.Equal(t, 1, recovered)

	// A healthy check without a preceding trip stays silent.
	c.CheckNow(ctx)
	assert.Equal(t, 1, recovered)

	// The failure counter restarted from zero.
	fail.Store(true)
	c.CheckNow(ctx)
	assert.Equal(t, 1, unhealthy)
	c.CheckNow(ctx)
	assert.Equal(t, 2, unhealthy)
}

func TestCheckerSingleFlakeDoesNotTrip(t *testing.T) {
	calls := 0
	check := func(context.Context) error {
		calls++
		if calls == 1 {
			return errors.New("flake")
		}
		return nil
	}

	var unhealthy int
	c := NewChecker(Config{Threshold: 2}, check)
	c.OnUnhealthy = func(error) { unhealthy++ }

	ctx := context.Background()
	c.CheckNow(ctx)
	c.CheckNow(ctx)
	c.CheckNow(ctx)
	assert.Zero(t, unhealthy)
}

func TestCheckerRunHonorsContext(t *testing.T) {
	var calls atomic.Int32
	check := func(context.Context) error {
		calls.Add(1)
		return nil
	}

	c := NewChecker(Config{Interval: 5 * time.Millisecond}, check)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return calls.Load() >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
