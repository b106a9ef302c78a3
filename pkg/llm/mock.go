package llm

import (
	"context"
	"sync"
)

// MockCompleter is a configurable Completer for tests.
type MockCompleter struct {
	// CompleteFunc is called when Complete is invoked.
	// If nil, Complete returns Response.
	CompleteFunc func(ctx context.Context, prompt string) (string, error)

	// Response is returned when CompleteFunc is nil.
	Response string

	// Model is returned by GetModel. Defaults to "mock-model".
	Model string

	// Endpoint is returned by GetEndpoint. Defaults to "http://mock-endpoint".
	Endpoint string

	mu      sync.Mutex
	calls   int
	prompts []string
}

// NewMockCompleter creates a mock that answers every prompt with response.
func NewMockCompleter(response string) *MockCompleter {
	return &MockCompleter{
		Response: response,
		Model:    "mock-model",
		Endpoint: "http://mock-endpoint",
	}
}

// Complete implements Completer.
func (m *MockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.mu.Lock()
	m.calls++
	m.prompts = append(m.prompts, prompt)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, prompt)
	}
	return m.Response, nil
}

// Calls returns how many times Complete was invoked.
func (m *MockCompleter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// LastPrompt returns the prompt of the most recent call.
func (m *MockCompleter) LastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// GetModel implements Completer.
func (m *MockCompleter) GetModel() string {
	return m.Model
}

// GetEndpoint implements Completer.
func (m *MockCompleter) GetEndpoint() string {
	return m.Endpoint
}
