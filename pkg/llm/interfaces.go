// Package llm provides the language-model clients used for SQL generation.
package llm

import (
	"context"
)

// Completer turns a prompt into raw generated text. Implementations make exactly
// one remote call per Complete, bounded by their configured timeout, and never
// retry; retry policy belongs to the caller.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)

	// GetModel returns the configured model name.
	GetModel() string

	// GetEndpoint returns the configured endpoint.
	GetEndpoint() string
}

var (
	_ Completer = (*Client)(nil)
	_ Completer = (*AnthropicClient)(nil)
	_ Completer = (*BreakerCompleter)(nil)
	_ Completer = (*MockCompleter)(nil)
)
