package transform

import (
	"context"
	"log/slog"

	"github.com/slongfield/pyfmt"

	"github.com/poiesic/loom/ai"
	"github.com/poiesic/loom/core"
)

// Enrich asks a generator one question per item and stores the answer
// under a metadata field. The prompt is a template with access to
// {text}, {key}, and every existing metadata field. Items that already
// carry the target field are skipped, which keeps retried batches from
// re-billing completed calls.
type Enrich struct {
	generator ai.Generator
	prompt    string
	field     string
	logger    *slog.Logger
}

var _ Processor = (*Enrich)(nil)

// NewEnrich creates an enrich processor.
func NewEnrich(cfg *core.EnrichConfig, generator ai.Generator) (*Enrich, error) {
	if cfg == nil {
		return nil, ErrConfigRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	return &Enrich{
		generator: generator,
		prompt:    cfg.Prompt,
		field:     cfg.Field,
		logger:    slog.Default().With("processor", "enrich", "field", cfg.Field),
	}, nil
}

// Process enriches every item missing the target field.
func (e *Enrich) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	for i := range items {
		if _, done := items[i].Metadata[e.field]; done {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		prompt, err := renderTemplate(e.prompt, &items[i])
		if err != nil {
			return nil, err
		}

		answer, err := e.generator.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}

		if items[i].Metadata == nil {
			items[i].Metadata = make(map[string]string, 1)
		}
		items[i].Metadata[e.field] = answer
	}
	return items, nil
}

// renderTemplate expands a {name}-style template with the item's text,
// key, and metadata.
func renderTemplate(template string, item *core.Item) (string, error) {
	args := make(map[string]any, len(item.Metadata)+2)
	for k, v := range item.Metadata {
		args[k] = v
	}
	args["key"] = item.Key
	text := item.Text
	if text == "" {
		text = string(item.Data)
	}
	args["text"] = text

	return pyfmt.Fmt(template, args)
}
