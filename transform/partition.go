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
	"strings"

	"github.com/poiesic/loom/core"
)

// Partition strategies.
const (
	PartitionNone       = "none"
	PartitionLines      = "lines"
	PartitionParagraphs = "paragraphs"
)

// Partition turns raw payloads into text elements. Strategy "none"
// passes each item through with Text populated from Data; "lines" and
// "paragraphs" split the text into one item per element. Payload bytes
// are preserved only by "none", so a pure copy pipeline stays
// byte-exact.
type Partition struct {
	strategy string
}

var _ Processor = (*Partition)(nil)

// NewPartition creates a partition processor. A nil config or empty
// strategy means "none".
func NewPartition(cfg *core.PartitionConfig) (*Partition, error) {
	strategy := PartitionNone
	if cfg != nil && cfg.Strategy != "" {
		strategy = cfg.Strategy
	}
	switch strategy {
	case PartitionNone, PartitionLines, PartitionParagraphs:
	default:
		return nil, fmt.Errorf("unknown partition strategy %q", strategy)
	}
	return &Partition{strategy: strategy}, nil
}

// Process partitions each item according to the configured strategy.
func (p *Partition) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	if p.strategy == PartitionNone {
		out := make([]core.Item, len(items))
		for i := range items {
			out[i] = items[i].Clone()
			if out[i].Text == "" {
				out[i].Text = string(out[i].Data)
			}
		}
		return out, nil
	}

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

		for n, element := range p.split(text) {
			child := items[i].Clone()
			child.Key = fmt.Sprintf("%s#%d", items[i].Key, n)
			child.Data = nil
			child.Text = element
			if child.Metadata == nil {
				child.Metadata = make(map[string]string, 2)
			}
			child.Metadata["parent"] = items[i].Key
			child.Metadata["element"] = fmt.Sprintf("%d", n)
			out = append(out, child)
		}
	}
	return out, nil
}

func (p *Partition) split(text string) []string {
	var sep string
	switch p.strategy {
	case PartitionLines:
		sep = "\n"
	case PartitionParagraphs:
		sep = "\n\n"
	}

	var elements []string
	for _, part := range strings.Split(text, sep) {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			elements = append(elements, trimmed)
		}
	}
	return elements
}
