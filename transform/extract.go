package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/loom/ai"
	"github.com/poiesic/loom/core"
)

const extractPromptTemplate = `Extract the following fields from the text below: %s.
Respond with a single JSON object whose keys are exactly those field names and whose values are strings. Use "" for a field the text does not answer.

Text:
%s`

// Extract asks a generator for structured fields and merges them into
// item metadata. Items that already carry every requested field are
// skipped on retry.
type Extract struct {
	generator ai.Generator
	fields    []string
	prompt    string
	logger    *slog.Logger
}

var _ Processor = (*Extract)(nil)

// NewExtract creates an extract processor. cfg.Prompt, when set,
// replaces the built-in extraction prompt and is rendered with the same
// template arguments as enrich prompts.
func NewExtract(cfg *core.ExtractConfig, generator ai.Generator) (*Extract, error) {
	if cfg == nil || len(cfg.Fields) == 0 {
		return nil, ErrConfigRequired
	}
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	return &Extract{
		generator: generator,
		fields:    cfg.Fields,
		prompt:    cfg.Prompt,
		logger:    slog.Default().With("processor", "extract"),
	}, nil
}

// Process extracts the configured fields for every item missing any of
// them.
func (e *Extract) Process(ctx context.Context, items []core.Item) ([]core.Item, error) {
	for i := range items {
		if e.complete(&items[i]) {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		prompt, err := e.buildPrompt(&items[i])
		if err != nil {
			return nil, err
		}

		answer, err := e.generator.Generate(ctx, prompt)
		if err != nil {
			return nil, err
		}

		extracted, err := parseFields(answer)
		if err != nil {
			return nil, fmt.Errorf("extract %q: %w", items[i].Key, err)
		}

		if items[i].Metadata == nil {
			items[i].Metadata = make(map[string]string, len(e.fields))
		}
		for _, field := range e.fields {
			if value, ok := extracted[field]; ok {
				items[i].Metadata[field] = value
			}
		}
	}
	return items, nil
}

func (e *Extract) complete(item *core.Item) bool {
	for _, field := range e.fields {
		if _, ok := item.Metadata[field]; !ok {
			return false
		}
	}
	return true
}

func (e *Extract) buildPrompt(item *core.Item) (string, error) {
	if e.prompt != "" {
		return renderTemplate(e.prompt, item)
	}
	text := item.Text
	if text == "" {
		text = string(item.Data)
	}
	return fmt.Sprintf(extractPromptTemplate, strings.Join(e.fields, ", "), text), nil
}

// parseFields decodes the model's JSON answer, tolerating a markdown
// code fence and non-string values.
func parseFields(answer string) (map[string]string, error) {
	cleaned := strings.TrimSpace(answer)
	if after, found := strings.CutPrefix(cleaned, "```json"); found {
		cleaned = after
	} else if after, found := strings.CutPrefix(cleaned, "```"); found {
		cleaned = after
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")

	var raw map[string]any
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return nil, fmt.Errorf("model did not return a JSON object: %w", err)
	}

	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		} else {
			out[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}
