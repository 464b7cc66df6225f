package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/loom/core"
	provmock "github.com/poiesic/loom/provider/mock"
)

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := fastConfig()
	cfg.MaxConcurrentRuns = 0
	_, err := New(cfg)
	require.Error(t, err)

	cfg = fastConfig()
	cfg.QueueCapacity = 0
	_, err = New(cfg)
	require.Error(t, err)

	cfg = fastConfig()
	cfg.MaxRetries = -1
	_, err = New(cfg)
	require.Error(t, err)
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestRunRejectsNilGraph(t *testing.T) {
	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	_, err = e.Run(context.Background(), nil)
	require.Error(t, err)
}

func TestRunAdmissionRejectsBeyondCapacity(t *testing.T) {
	release := make(chan struct{})
	source := provmock.NewSource()
	source.ForEachFunc = func(ctx context.Context, fn func(items []core.Item) error) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	fx := buildLinearGraph(t, source, provmock.NewSink())

	cfg := fastConfig()
	cfg.MaxConcurrentRuns = 1
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	first := make(chan *RunOutcome, 1)
	go func() {
		outcome, err := e.Run(context.Background(), fx.graph)
		require.NoError(t, err)
		first <- outcome
	}()

	// Wait for the first run to occupy the only slot
	require.Eventually(t, func() bool { return e.Running() == 1 }, 5*time.Second, time.Millisecond)

	_, err = e.Run(context.Background(), fx.graph)
	require.ErrorIs(t, err, ErrTooManyRuns, "a full engine rejects, it does not queue")

	close(release)
	outcome := <-first
	assert.Equal(t, RunCompleted, outcome.State)

	// The slot is free again
	require.Eventually(t, func() bool { return e.Running() == 0 }, 5*time.Second, time.Millisecond)
	outcome, err = e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, outcome.State)
}
