package mock

import (
	"context"
	"sync"
)

// Generator is a test double for ai.Generator. Without a GenerateFunc
// it echoes a fixed Response, or "ok" if none is set.
type Generator struct {
	// GenerateFunc is called by Generate if set.
	GenerateFunc func(ctx context.Context, prompt string) (string, error)

	// Response is returned by default Generate calls.
	Response string

	mu      sync.Mutex
	prompts []string
}

// NewGenerator creates a mock generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate records the prompt and returns the configured response.
func (m *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.GenerateFunc != nil {
		return m.GenerateFunc(ctx, prompt)
	}
	if m.Response != "" {
		return m.Response, nil
	}
	return "ok", nil
}

// Prompts returns every prompt seen so far.
func (m *Generator) Prompts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.prompts))
	copy(out, m.prompts)
	return out
}

// CallCount returns the number of Generate calls.
func (m *Generator) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}
