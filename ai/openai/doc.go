// Package openai implements the ai interfaces against OpenAI-compatible
// services (OpenAI itself, Ollama, LocalAI, vLLM).
package openai
