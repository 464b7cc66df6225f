package mock

import (
	"context"
	"sync"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

// Factory is a test double for provider.Factory. By default Connect
// returns a fresh Source when the params carry an Object or Prefix and a
// fresh Sink otherwise; set ConnectFunc to take over.
type Factory struct {
	Backend core.Backend

	// ConnectFunc is called by Connect if set.
	ConnectFunc func(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error)

	// VerifyFunc is called by Verify if set. Default verifies nothing.
	VerifyFunc func(ctx context.Context, creds provider.Credentials) error

	mu          sync.Mutex
	connectedTo []core.ProviderParams
	verifyCalls int
}

var _ provider.Factory = (*Factory)(nil)

// NewFactory creates a factory for the given backend kind.
func NewFactory(backend core.Backend) *Factory {
	return &Factory{Backend: backend}
}

func (f *Factory) Kind() core.Backend {
	if f.Backend == "" {
		return core.BackendLocal
	}
	return f.Backend
}

func (f *Factory) Connect(ctx context.Context, params core.ProviderParams, creds provider.Credentials) (provider.Client, error) {
	f.mu.Lock()
	f.connectedTo = append(f.connectedTo, params)
	f.mu.Unlock()

	if f.ConnectFunc != nil {
		return f.ConnectFunc(ctx, params, creds)
	}

	if params.Object != "" || params.Prefix != "" {
		src := NewSource()
		src.Backend = f.Kind()
		return src, nil
	}
	sink := NewSink()
	sink.Backend = f.Kind()
	return sink, nil
}

func (f *Factory) Verify(ctx context.Context, creds provider.Credentials) error {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()

	if f.VerifyFunc != nil {
		return f.VerifyFunc(ctx, creds)
	}
	return nil
}

// Connections returns the params of every Connect call so far.
func (f *Factory) Connections() []core.ProviderParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.ProviderParams, len(f.connectedTo))
	copy(out, f.connectedTo)
	return out
}

// VerifyCalls returns how many times Verify was invoked.
func (f *Factory) VerifyCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyCalls
}
