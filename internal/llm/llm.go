// Package llm provides the language-model completion boundary used by the
// research pipeline. Callers get a single fallible Complete call; every call
// site in the pipeline carries its own deterministic fallback, so a broken or
// unconfigured model degrades behaviour instead of failing requests.
package llm

import (
	"context"
	"fmt"

	"github.com/mohammad-safakhou/deepscout/config"
)

// Client is the completion contract. Implementations are expected to be safe
// for concurrent use.
type Client interface {
	// Complete sends a single-turn prompt and returns the raw model text.
	Complete(ctx context.Context, prompt string) (string, error)
	// Model returns the configured model identifier, for diagnostics.
	Model() string
}

// New creates a client for the configured backend. The backend is resolved
// exactly once here; nothing downstream switches on model names.
func New(cfg config.LLMConfig) (Client, error) {
	switch cfg.Backend {
	case "gemini":
		return NewGeminiClient(cfg), nil
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported LLM backend: %s", cfg.Backend)
	}
}
