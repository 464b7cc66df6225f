package mock

import (
	"context"
	"sync"

	"github.com/poiesic/loom/core"
)

// Sink is a test double for provider.Sink. By default it accumulates
// written items in memory; set WriteFunc to inject behavior.
type Sink struct {
	Backend core.Backend

	// WriteFunc is called by Write if set.
	WriteFunc func(ctx context.Context, items []core.Item) error

	mu         sync.Mutex
	written    []core.Item
	writeCalls int
	closeCalls int
}

// NewSink creates an in-memory sink.
func NewSink() *Sink {
	return &Sink{Backend: core.BackendLocal}
}

func (s *Sink) Kind() core.Backend {
	if s.Backend == "" {
		return core.BackendLocal
	}
	return s.Backend
}

func (s *Sink) Write(ctx context.Context, items []core.Item) error {
	s.mu.Lock()
	s.writeCalls++
	s.mu.Unlock()

	if s.WriteFunc != nil {
		return s.WriteFunc(ctx, items)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	s.written = append(s.written, core.CloneItems(items)...)
	s.mu.Unlock()
	return nil
}

func (s *Sink) Close() error {
	s.mu.Lock()
	s.closeCalls++
	s.mu.Unlock()
	return nil
}

// Written returns a copy of everything written so far.
func (s *Sink) Written() []core.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return core.CloneItems(s.written)
}

// WriteCalls returns how many times Write was invoked.
func (s *Sink) WriteCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeCalls
}

// CloseCalls returns how many times Close was invoked.
func (s *Sink) CloseCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeCalls
}
