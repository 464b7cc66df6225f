package transform

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedding processor is
	// built without an embedder.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrGeneratorRequired is returned when an enrich or extract
	// processor is built without a generator.
	ErrGeneratorRequired = errors.New("generator required")

	// ErrConfigRequired is returned when a processor is built without
	// its config.
	ErrConfigRequired = errors.New("transform config required")
)
