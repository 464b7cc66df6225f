package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryFixedSucceedsFirstAttempt(t *testing.T) {
	calls := 0
	err := retryFixed(context.Background(), func() error {
		calls++
		return nil
	}, 3, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRetryFixedRecoversWithinBudget(t *testing.T) {
	calls := 0
	err := retryFixed(context.Background(), func() error {
		calls++
		if calls < 3 {
			return errors.New("not yet")
		}
		return nil
	}, 4, time.Millisecond, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryFixedExhaustsAttemptsExactly(t *testing.T) {
	boom := errors.New("always")
	calls := 0
	attempts := 0
	err := retryFixed(context.Background(), func() error {
		calls++
		return boom
	}, 4, time.Millisecond, func() { attempts++ })
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "maxAttempts bounds the calls")
	assert.Equal(t, 4, attempts, "onAttempt fires once per call")
}

func TestRetryFixedRejectsNonPositiveAttempts(t *testing.T) {
	err := retryFixed(context.Background(), func() error { return nil }, 0, time.Millisecond, nil)
	require.ErrorIs(t, err, ErrInvalidMaxAttempts)
}

func TestRetryFixedStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := retryFixed(ctx, func() error {
		calls++
		return errors.New("never reached")
	}, 3, time.Millisecond, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls, "a dead context prevents the first attempt")
}

func TestRetryFixedCancelDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := retryFixed(ctx, func() error {
		calls++
		return errors.New("fail")
	}, 10, time.Minute, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls, "cancellation during the delay stops further attempts")
}
