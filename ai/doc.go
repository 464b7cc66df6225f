// Package ai defines the model handles used by pipeline transforms.
//
// Transforms that need a model (embedding, enrich, extract) receive an
// Embedder or Generator built from the transform's model selection and
// its resolved credentials. The interfaces here keep transforms testable
// against the doubles in ai/mock; ai/openai provides the production
// implementations for OpenAI-compatible services.
package ai
