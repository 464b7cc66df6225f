package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/loom/compile"
	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
	provmock "github.com/poiesic/loom/provider/mock"
)

// fastConfig keeps retry pauses out of the test clock.
func fastConfig() Config {
	return Config{
		MaxConcurrentRuns: 2,
		DefaultTimeout:    30 * time.Second,
		MaxRetries:        2,
		RetryDelay:        time.Millisecond,
		QueueCapacity:     4,
	}
}

type graphFixture struct {
	graph  *compile.Graph
	inID   core.NodeID
	trID   core.NodeID
	outID  core.NodeID
	source *provmock.Source
	sink   *provmock.Sink
}

// buildLinearGraph compiles source -> partition(none) -> sink over the
// given mocks.
func buildLinearGraph(t *testing.T, source *provmock.Source, sink *provmock.Sink) *graphFixture {
	t.Helper()

	inFactory := provmock.NewFactory(core.BackendS3)
	inFactory.ConnectFunc = func(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
		return source, nil
	}
	outFactory := provmock.NewFactory(core.BackendLocal)
	outFactory.ConnectFunc = func(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
		return sink, nil
	}
	factories, err := provider.NewFactories(inFactory, outFactory)
	require.NoError(t, err)

	registry := provider.NewRegistry(map[string]provider.Credentials{"cred": {}})

	def := core.NewDefinition("linear")
	in := def.AddProviderInput(core.ProviderParams{Backend: core.BackendS3, CredentialRef: "cred", Prefix: "in/"})
	tr := def.AddTransform(core.TransformDef{Type: core.TransformPartition})
	out := def.AddProviderOutput(core.ProviderParams{Backend: core.BackendLocal, CredentialRef: "cred"})
	def.Connect(in, tr)
	def.Connect(tr, out)

	graph, err := compile.Compile(context.Background(), def, factories, registry)
	require.NoError(t, err)
	t.Cleanup(func() { graph.Close() })

	return &graphFixture{graph: graph, inID: in, trID: tr, outID: out, source: source, sink: sink}
}

func items(keys ...string) []core.Item {
	out := make([]core.Item, len(keys))
	for i, k := range keys {
		out[i] = core.Item{Key: k, Data: []byte("payload-" + k)}
	}
	return out
}

func TestRunCompletesAndPreservesOrder(t *testing.T) {
	source := provmock.NewSource(items("a", "b", "c")...)
	source.BatchSize = 1
	sink := provmock.NewSink()
	fx := buildLinearGraph(t, source, sink)

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, outcome.State)
	assert.True(t, outcome.State.Terminal())
	assert.False(t, outcome.Finished.Before(outcome.Started))

	written := sink.Written()
	require.Len(t, written, 3)
	for i, key := range []string{"a", "b", "c"} {
		assert.Equal(t, key, written[i].Key, "wire delivery keeps emission order")
		assert.Equal(t, []byte("payload-"+key), written[i].Data, "payload bytes survive pass-through")
	}

	assert.Equal(t, 1, outcome.Attempts[fx.inID], "clean run needs one attempt per operation")
	assert.Equal(t, 3, outcome.Attempts[fx.trID], "one attempt per delivered batch")
	assert.Equal(t, 3, outcome.Attempts[fx.outID])
}

func TestRunEmptySourceCompletes(t *testing.T) {
	fx := buildLinearGraph(t, provmock.NewSource(), provmock.NewSink())

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, outcome.State)
	assert.Empty(t, fx.sink.Written())
}

func TestRunRetriesTransientFailure(t *testing.T) {
	source := provmock.NewSource(items("a")...)
	sink := provmock.NewSink()

	var mu sync.Mutex
	var delivered []core.Item
	failures := 2
	sink.WriteFunc = func(ctx context.Context, batch []core.Item) error {
		mu.Lock()
		defer mu.Unlock()
		if failures > 0 {
			failures--
			return errors.New("transient write failure")
		}
		delivered = append(delivered, core.CloneItems(batch)...)
		return nil
	}

	fx := buildLinearGraph(t, source, sink)

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunCompleted, outcome.State, "two failures fit inside MaxRetries=2")
	assert.Equal(t, 3, outcome.Attempts[fx.outID], "two failed attempts plus the success")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, delivered, 1)
	assert.Equal(t, "a", delivered[0].Key)
}

func TestRunFailsAfterRetriesExhausted(t *testing.T) {
	source := provmock.NewSource(items("a")...)
	sink := provmock.NewSink()
	boom := errors.New("disk full")
	sink.WriteFunc = func(ctx context.Context, batch []core.Item) error {
		return boom
	}

	fx := buildLinearGraph(t, source, sink)

	cfg := fastConfig()
	cfg.MaxRetries = 3
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, outcome.State)
	assert.Equal(t, fx.outID, outcome.FailedNode)
	assert.Contains(t, outcome.Message, "disk full")
	assert.Equal(t, 4, outcome.Attempts[fx.outID], "1 + MaxRetries attempts, no more")
}

func TestRunSourceFailureFailsRun(t *testing.T) {
	source := provmock.NewSource()
	boom := errors.New("bucket gone")
	source.ForEachFunc = func(ctx context.Context, fn func(items []core.Item) error) error {
		return boom
	}
	fx := buildLinearGraph(t, source, provmock.NewSink())

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunFailed, outcome.State)
	assert.Equal(t, fx.inID, outcome.FailedNode)
	assert.Equal(t, 3, outcome.Attempts[fx.inID])
}

func TestRunTimesOut(t *testing.T) {
	source := provmock.NewSource()
	source.ForEachFunc = func(ctx context.Context, fn func(items []core.Item) error) error {
		<-ctx.Done()
		return ctx.Err()
	}
	fx := buildLinearGraph(t, source, provmock.NewSink())

	cfg := fastConfig()
	cfg.DefaultTimeout = 50 * time.Millisecond
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	start := time.Now()
	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunTimedOut, outcome.State)
	assert.Less(t, time.Since(start), 5*time.Second, "timeout cuts the run short")
}

func TestRunCancelled(t *testing.T) {
	source := provmock.NewSource()
	source.ForEachFunc = func(ctx context.Context, fn func(items []core.Item) error) error {
		<-ctx.Done()
		return ctx.Err()
	}
	fx := buildLinearGraph(t, source, provmock.NewSink())

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	outcome, err := e.Run(ctx, fx.graph)
	require.NoError(t, err)
	assert.Equal(t, RunCancelled, outcome.State)
	assert.Empty(t, outcome.FailedNode, "cancellation is not a node failure")
}

func TestRunCacheSlotFanOut(t *testing.T) {
	source := provmock.NewSource(items("a", "b")...)
	sinkA := provmock.NewSink()
	sinkB := provmock.NewSink()

	inFactory := provmock.NewFactory(core.BackendS3)
	inFactory.ConnectFunc = func(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
		return source, nil
	}
	sinks := []*provmock.Sink{sinkA, sinkB}
	var next int
	outFactory := provmock.NewFactory(core.BackendLocal)
	outFactory.ConnectFunc = func(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
		s := sinks[next]
		next++
		return s, nil
	}
	factories, err := provider.NewFactories(inFactory, outFactory)
	require.NoError(t, err)
	registry := provider.NewRegistry(map[string]provider.Credentials{"cred": {}})

	def := core.NewDefinition("fanout")
	in := def.AddProviderInput(core.ProviderParams{Backend: core.BackendS3, CredentialRef: "cred", Prefix: "in/"})
	producer := def.AddCacheOutput("docs", 0)
	def.Connect(in, producer)

	consumerA := def.AddCacheInput("docs", 0)
	outA := def.AddProviderOutput(core.ProviderParams{Backend: core.BackendLocal, CredentialRef: "cred"})
	def.Connect(consumerA, outA)

	consumerB := def.AddCacheInput("docs", 0)
	outB := def.AddProviderOutput(core.ProviderParams{Backend: core.BackendLocal, CredentialRef: "cred"})
	def.Connect(consumerB, outB)

	graph, err := compile.Compile(context.Background(), def, factories, registry)
	require.NoError(t, err)
	defer graph.Close()

	e, err := New(fastConfig())
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), graph)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, outcome.State)

	for _, sink := range sinks {
		written := sink.Written()
		require.Len(t, written, 2, "every consumer of a slot sees all items")
		assert.Equal(t, "a", written[0].Key)
		assert.Equal(t, "b", written[1].Key)
	}
}

func TestRunBackpressureDoesNotDrop(t *testing.T) {
	n := 50
	keys := make([]string, n)
	for i := range keys {
		keys[i] = string(rune('a' + i%26))
	}
	source := provmock.NewSource(items(keys...)...)
	source.BatchSize = 1

	sink := provmock.NewSink()
	var count int
	var mu sync.Mutex
	sink.WriteFunc = func(ctx context.Context, batch []core.Item) error {
		time.Sleep(time.Millisecond) // slow consumer
		mu.Lock()
		count += len(batch)
		mu.Unlock()
		return nil
	}

	fx := buildLinearGraph(t, source, sink)

	cfg := fastConfig()
	cfg.QueueCapacity = 1
	e, err := New(cfg)
	require.NoError(t, err)
	defer e.Close()

	outcome, err := e.Run(context.Background(), fx.graph)
	require.NoError(t, err)
	require.Equal(t, RunCompleted, outcome.State)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, n, count, "backpressure blocks senders, it never drops batches")
}
