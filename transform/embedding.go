// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/loom/ai"
	"github.com/poiesic/loom/core"
)

// DefaultEmbeddingBatchSize bounds how many texts go to the model per call.
const DefaultEmbeddingBatchSize = 16

// Embedding populates item vectors through an ai.Embedder. Items that
// already carry a vector are skipped, so a retried batch does not
// re-embed (or re-bill) work that succeeded before the failure.
type Embedding struct {
	embedder  ai.Embedder
	batchSize int
	logger    *slog.Logger
}

var _ Processor = (*Embedding)(nil)

// NewEmbedding creates an embedding processor.
func NewEmbedding(cfg *core.EmbeddingConfig, embedder ai.Embedder) (*Embedding, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}

	return &Embedding{
		embedder:  embedder,
		batchSize: batchSize,
		logger:    slog.Default().With("processor", "embedding", "model", cfg.Model),
	}, nil
}

// Process embeds every item that does not yet have a vector. Vectors
// are written into the batch itself: the engine hands the same batch
// back on retry, so items embedded before a failure are not re-sent.
func (e *Embedding) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	out := items

	// Collect indexes of items still waiting for a vector
	pending := make([]int, 0, len(out))
	for i := range out {
		if len(out[i].Vector) == 0 {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return out, nil
	}

	e.logger.Debug("embedding items", "pending", len(pending), "total", len(items))

	for start := 0; start < len(pending); start += e.batchSize {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		end := min(start+e.batchSize, len(pending))
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for j, idx := range batch {
			texts[j] = out[idx].Text
			if texts[j] == "" {
				texts[j] = string(out[idx].Data)
			}
		}

		vectors, err := e.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
		}

		for j, idx := range batch {
			out[idx].Vector = vectors[j]
		}
	}
	return out, nil
}
