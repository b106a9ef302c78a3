package apperrors

import "errors"

// Pipeline failure conditions. The first three are fatal to a request and are
// reported as the envelope's top-level error; ErrExecutionFailed is reported
// inside the query result.
var (
	ErrSchemaUnavailable     = errors.New("schema unavailable")
	ErrGenerationUnavailable = errors.New("generation unavailable")
	ErrUnsafeStatement       = errors.New("unsafe statement")
	ErrExecutionFailed       = errors.New("execution failed")
)

var (
	ErrEmptyQuestion = errors.New("query cannot be empty")
	ErrNotConnected  = errors.New("datasource not connected")
)

// IsFatal reports whether err short-circuits the pipeline before execution.
func IsFatal(err error) bool {
	return errors.Is(err, ErrSchemaUnavailable) ||
		errors.Is(err, ErrGenerationUnavailable) ||
		errors.Is(err, ErrUnsafeStatement) ||
		errors.Is(err, ErrEmptyQuestion)
}

// Code returns a stable machine-readable code for err, used in metrics labels
// and JSON error responses.
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrEmptyQuestion):
		return "empty_question"
	case errors.Is(err, ErrSchemaUnavailable):
		return "schema_unavailable"
	case errors.Is(err, ErrGenerationUnavailable):
		return "generation_unavailable"
	case errors.Is(err, ErrUnsafeStatement):
		return "unsafe_statement"
	case errors.Is(err, ErrExecutionFailed):
		return "execution_failed"
	default:
		return "internal_error"
	}
}
