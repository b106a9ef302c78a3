package llm

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
)

// NewCompleter builds the configured provider's client behind a circuit breaker.
func NewCompleter(cfg config.LLMConfig, logger *zap.Logger) (*BreakerCompleter, error) {
	clientCfg := &Config{
		Endpoint:    cfg.Endpoint,
		Model:       cfg.Model,
		APIKey:      cfg.APIKey,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}

	var (
		next Completer
		err  error
	)
	switch cfg.Provider {
	case "openai", "":
		next, err = NewClient(clientCfg, logger)
	case "anthropic":
		next, err = NewAnthropicClient(clientCfg, logger)
	default:
		return nil, fmt.Errorf("unsupported llm provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("create %s client: %w", cfg.Provider, err)
	}

	breaker := NewCircuitBreaker(CircuitBreakerConfig{
		Threshold:  cfg.CircuitThreshold,
		ResetAfter: cfg.CircuitReset,
	})
	return NewBreakerCompleter(next, breaker), nil
}
