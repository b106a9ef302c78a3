package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantType  ErrorType
		retryable bool
	}{
		{"deadline", fmt.Errorf("post: %w", context.DeadlineExceeded), ErrorTypeTimeout, true},
		{"canceled", context.Canceled, ErrorTypeEndpoint, false},
		{"openai 401", &openai.APIError{HTTPStatusCode: 401, Message: "bad key"}, ErrorTypeAuth, false},
		{"openai 429", &openai.APIError{HTTPStatusCode: 429, Message: "slow down"}, ErrorTypeRateLimit, true},
		{"request 502", &openai.RequestError{HTTPStatusCode: 502, Err: errors.New("bad gateway")}, ErrorTypeEndpoint, true},
		{"model missing", errors.New("the model `foo` does not exist"), ErrorTypeModel, false},
		{"refused", errors.New("dial tcp 127.0.0.1:1234: connect: connection refused"), ErrorTypeEndpoint, true},
		{"other", errors.New("something odd"), ErrorTypeUnknown, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClassifyError(tt.err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}

func TestClassifyError_Nil(t *testing.T) {
	assert.Nil(t, ClassifyError(nil))
}

func TestClassifyError_PassesThroughStructured(t *testing.T) {
	orig := NewError(ErrorTypeEmpty, "empty completion", false, nil)
	got := ClassifyError(fmt.Errorf("wrapped: %w", orig))
	assert.Same(t, orig, got)
}

func TestError_MessageShowsHostOnly(t *testing.T) {
	e := NewError(ErrorTypeAuth, "authentication failed", false, nil)
	e.StatusCode = 401
	e.Model = "gpt-4o"
	e.Endpoint = "https://user:pw@api.example.com/v1"

	msg := e.Error()
	assert.Contains(t, msg, "HTTP 401")
	assert.Contains(t, msg, "model=gpt-4o")
	assert.Contains(t, msg, "endpoint=api.example.com")
	assert.NotContains(t, msg, "pw")
}

func TestGetErrorType_PlainError(t *testing.T) {
	assert.Equal(t, ErrorTypeUnknown, GetErrorType(errors.New("x")))
	assert.False(t, IsRetryable(errors.New("x")))
}
