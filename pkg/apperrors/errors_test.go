package apperrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCode(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")

	tests := []struct {
		err     error
		code    string
		isFatal bool
	}{
		{nil, "ok", false},
		{ErrEmptyQuestion, "empty_question", true},
		{fmt.Errorf("%w: %w", ErrSchemaUnavailable, cause), "schema_unavailable", true},
		{fmt.Errorf("%w: %w", ErrGenerationUnavailable, cause), "generation_unavailable", true},
		{fmt.Errorf("%w: no SELECT", ErrUnsafeStatement), "unsafe_statement", true},
		{fmt.Errorf("%w: %w", ErrExecutionFailed, cause), "execution_failed", false},
		{cause, "internal_error", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.code, Code(tt.err))
		assert.Equal(t, tt.isFatal, IsFatal(tt.err), "IsFatal(%v)", tt.err)
	}
}
