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

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/loom/core"
)

const (
	// DefaultChunkSize is the chunk size used when the config leaves it zero.
	DefaultChunkSize = 512
	// DefaultChunkOverlap is the overlap used when the config leaves it zero.
	DefaultChunkOverlap = 64
)

// Chunk splits item text into overlapping chunks sized for embedding.
type Chunk struct {
	splitter textsplitter.RecursiveCharacter
}

var _ Processor = (*Chunk)(nil)

// NewChunk creates a chunk processor. A nil config uses the defaults.
func NewChunk(cfg *core.ChunkConfig) (*Chunk, error) {
	size := DefaultChunkSize
	overlap := DefaultChunkOverlap
	var separators []string
	if cfg != nil {
		if cfg.Size > 0 {
			size = cfg.Size
		}
		if cfg.Overlap > 0 {
			overlap = cfg.Overlap
		}
		separators = cfg.Separators
	}
	if overlap >= size {
		return nil, fmt.Errorf("chunk overlap %d must be smaller than size %d", overlap, size)
	}

	opts := []textsplitter.Option{
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	}
	if len(separators) > 0 {
		opts = append(opts, textsplitter.WithSeparators(separators))
	}

	return &Chunk{splitter: textsplitter.NewRecursiveCharacter(opts...)}, nil
}

// Process splits each item into one item per chunk. Chunk items drop the
// raw payload and carry chunk provenance in their metadata.
func (c *Chunk) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	var out []core.Item
	for i := range items {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		text := items[i].Text
		if text == "" {
			text = string(items[i].Data)
		}

		chunks, err := c.splitter.SplitText(text)
		if err != nil {
			return nil, fmt.Errorf("split %q: %w", items[i].Key, err)
		}

		for n, chunk := range chunks {
			child := items[i].Clone()
			child.Key = fmt.Sprintf("%s#%04d", items[i].Key, n)
			child.Data = nil
			child.Text = chunk
			if child.Metadata == nil {
				child.Metadata = make(map[string]string, 2)
			}
			child.Metadata["parent"] = items[i].Key
			child.Metadata["chunk"] = fmt.Sprintf("%d", n)
			out = append(out, child)
		}
	}
	return out, nil
}
