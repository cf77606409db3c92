// Package llm provides clients for language model backends.
//
// All backends implement the Client interface so the rest of the service
// never depends on a concrete provider. Backend selection happens once at
// startup (see services/orchestrator).
package llm

import (
	"context"
	"errors"
	"fmt"
)

// GenerationParams carries optional sampling parameters for a single call.
// Nil pointers mean "use the backend default".
type GenerationParams struct {
	Temperature *float32 `json:"temperature"`
	TopP        *float32 `json:"top_p"`
	MaxTokens   *int     `json:"max_tokens"`
	Stop        []string `json:"stop"`
}

// Client defines the standard interface for any LLM backend.
type Client interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

// EmbeddingProvider converts text into a dense vector representation for
// semantic search. Implementations must be safe for concurrent use.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationError wraps a failure from an LLM backend. The Backend field
// names the provider so operators can tell providers apart in logs.
type GenerationError struct {
	Backend string
	Err     error
}

// Error implements the error interface for GenerationError.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Backend, e.Err)
}

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// IsGenerationError reports whether err is (or wraps) a *GenerationError.
func IsGenerationError(err error) bool {
	var ge *GenerationError
	return errors.As(err, &ge)
}
