package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/vectorstores"

	"github.com/poiesic/loom/core"
	"github.com/poiesic/loom/provider"
)

// Sink adapts a langchaingo vector store to the provider boundary.
type Sink struct {
	backend core.Backend
	store   vectorstores.VectorStore
	embed   *precomputedEmbedder
	closeFn func() error
}

var _ provider.Sink = (*Sink)(nil)

func newSink(backend core.Backend, store vectorstores.VectorStore, embed *precomputedEmbedder, closeFn func() error) *Sink {
	return &Sink{backend: backend, store: store, embed: embed, closeFn: closeFn}
}

func (s *Sink) Kind() core.Backend {
	return s.backend
}

func (s *Sink) Close() error {
	if s.closeFn != nil {
		return s.closeFn()
	}
	return nil
}

// Write stores one document per item. Every item must carry a vector.
func (s *Sink) Write(ctx context.Context, items []core.Item) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]schema.Document, len(items))
	vectors := make([][]float32, len(items))
	for i := range items {
		if len(items[i].Vector) == 0 {
			return fmt.Errorf("%s: item %q has no vector; add an embedding transform upstream", s.backend, items[i].Key)
		}
		vectors[i] = items[i].Vector

		meta := map[string]any{"key": items[i].Key}
		for k, v := range items[i].Metadata {
			meta[k] = v
		}
		text := items[i].Text
		if text == "" {
			text = string(items[i].Data)
		}
		docs[i] = schema.Document{PageContent: text, Metadata: meta}
	}

	s.embed.queue(vectors)
	if _, err := s.store.AddDocuments(ctx, docs); err != nil {
		return provider.NewConnectionError(s.backend, err)
	}
	return nil
}

// precomputedEmbedder satisfies embeddings.Embedder by replaying vectors
// queued just before AddDocuments. Vector stores call EmbedDocuments on
// write; routing the pipeline's own vectors through keeps embedding a
// transform concern instead of a sink concern.
type precomputedEmbedder struct {
	mu      sync.Mutex
	pending [][]float32
}

var _ embeddings.Embedder = (*precomputedEmbedder)(nil)

func (p *precomputedEmbedder) queue(vectors [][]float32) {
	p.mu.Lock()
	p.pending = vectors
	p.mu.Unlock()
}

func (p *precomputedEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.pending) != len(texts) {
		return nil, fmt.Errorf("expected %d queued vectors, have %d", len(texts), len(p.pending))
	}
	out := p.pending
	p.pending = nil
	return out, nil
}

func (p *precomputedEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return nil, fmt.Errorf("query embedding is not supported by a write-only sink")
}
