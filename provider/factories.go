package provider

import (
	"fmt"

	"github.com/poiesic/loom/core"
)

// Factories is the set of backend factories handed to the compiler.
// It is read-only after construction.
type Factories struct {
	byKind map[core.Backend]Factory
}

// NewFactories builds a factory set. Registering two factories for the
// same backend kind is a programming error and fails.
func NewFactories(factories ...Factory) (*Factories, error) {
	byKind := make(map[core.Backend]Factory, len(factories))
	for _, f := range factories {
		if _, dup := byKind[f.Kind()]; dup {
			return nil, fmt.Errorf("duplicate factory for backend %q", f.Kind())
		}
		byKind[f.Kind()] = f
	}
	return &Factories{byKind: byKind}, nil
}

// Lookup returns the factory for a backend kind.
// Returns ErrNoFactory (wrapped with the kind) if none is registered.
func (f *Factories) Lookup(kind core.Backend) (Factory, error) {
	factory, ok := f.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoFactory, kind)
	}
	return factory, nil
}

// Kinds returns the registered backend kinds.
func (f *Factories) Kinds() []core.Backend {
	kinds := make([]core.Backend, 0, len(f.byKind))
	for k := range f.byKind {
		kinds = append(kinds, k)
	}
	return kinds
}
