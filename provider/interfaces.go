package provider

import (
	"context"

	"github.com/poiesic/loom/core"
)

// Client is a connected handle to one external backend. Clients are owned
// by the compiled graph that created them and are closed when the graph
// is closed. Implementations must be safe for concurrent use by the node
// tasks of a single run.
type Client interface {
	// Kind returns the backend this client talks to.
	Kind() core.Backend

	// Close releases the underlying connection. The client must not be
	// used after Close.
	Close() error
}

// Source is a client that can stream items out of its backend.
type Source interface {
	Client

	// ForEach streams items in batches, calling fn for each batch in
	// backend order. Iteration stops on the first error from fn or from
	// the backend. Context cancellation is checked between batches.
	ForEach(ctx context.Context, fn func(items []core.Item) error) error
}

// Sink is a client that can persist items into its backend.
type Sink interface {
	Client

	// Write persists a batch of items. Write must be idempotent for
	// identical batches: the engine may re-deliver a batch after a
	// failed attempt, and providers upsert by item key.
	Write(ctx context.Context, items []core.Item) error
}

// Factory produces connected clients for one backend kind.
type Factory interface {
	// Kind returns the backend this factory serves.
	Kind() core.Backend

	// Connect combines params and credentials into a connected client.
	// Connection failures are reported as *ConnectionError.
	Connect(ctx context.Context, params core.ProviderParams, creds Credentials) (Client, error)

	// Verify performs a lightweight reachability check with the given
	// credentials, without building a full client.
	Verify(ctx context.Context, creds Credentials) error
}
