package transform

import (
	"context"

	"github.com/poiesic/loom/core"
)

// Processor is the executable behavior behind a transform node.
// Implementations must be safe for use by a single node task at a time;
// one processor instance is never shared between nodes.
type Processor interface {
	// Process transforms a batch of items. It may enrich items in place,
	// split them into more items, or filter them. Calling Process again
	// with the same input after a failure must not repeat side effects
	// that already succeeded.
	Process(ctx context.Context, items []core.Item) ([]core.Item, error)
}
