package transform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/loom/core"
)

// Derive computes a metadata field from a template without any model
// call. It is deterministic and safe to re-run.
type Derive struct {
	field    string
	template string
	logger   *slog.Logger
}

var _ Processor = (*Derive)(nil)

func NewDerive(cfg *core.DeriveConfig) (*Derive, error) {
	if cfg == nil || cfg.Field == "" || cfg.Template == "" {
		return nil, ErrConfigRequired
	}
	return &Derive{
		field:    cfg.Field,
		template: cfg.Template,
		logger:   slog.Default().With("processor", "derive"),
	}, nil
}

// Process renders the template for every item and stores the result
// under the configured metadata field, overwriting any previous value.
func (d *Derive) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	for i := range items {
		rendered, err := renderTemplate(d.template, &items[i])
		if err != nil {
			return nil, fmt.Errorf("derive %q: %w", items[i].Key, err)
		}
		if items[i].Metadata == nil {
			items[i].Metadata = make(map[string]string, 1)
		}
		items[i].Metadata[d.field] = rendered
	}
	return items, nil
}
