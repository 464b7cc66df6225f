package mock

import (
	"context"
	"sync/atomic"

	"github.com/poiesic/loom/core"
)

// Source is a test double for provider.Source. By default it streams
// Items in a single batch; set BatchSize to split, or ForEachFunc to
// replace the behavior entirely.
type Source struct {
	Backend   core.Backend
	Items     []core.Item
	BatchSize int

	// ForEachFunc is called by ForEach if set.
	ForEachFunc func(ctx context.Context, fn func(items []core.Item) error) error

	readCalls  atomic.Int64
	closeCalls atomic.Int64
}

// NewSource creates a source streaming the given items.
func NewSource(items ...core.Item) *Source {
	return &Source{Backend: core.BackendLocal, Items: items}
}

func (s *Source) Kind() core.Backend {
	if s.Backend == "" {
		return core.BackendLocal
	}
	return s.Backend
}

func (s *Source) ForEach(ctx context.Context, fn func(items []core.Item) error) error {
	s.readCalls.Add(1)

	if s.ForEachFunc != nil {
		return s.ForEachFunc(ctx, fn)
	}

	size := s.BatchSize
	if size <= 0 {
		size = len(s.Items)
	}
	if size == 0 {
		return nil
	}

	for start := 0; start < len(s.Items); start += size {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := min(start+size, len(s.Items))
		if err := fn(core.CloneItems(s.Items[start:end])); err != nil {
			return err
		}
	}
	return nil
}

func (s *Source) Close() error {
	s.closeCalls.Add(1)
	return nil
}

// ReadCalls returns how many times ForEach was invoked.
func (s *Source) ReadCalls() int {
	return int(s.readCalls.Load())
}

// CloseCalls returns how many times Close was invoked.
func (s *Source) CloseCalls() int {
	return int(s.closeCalls.Load())
}
