package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/ekaya-inc/ekaya-askdb/pkg/llm"
)

// RequestIDHeader is read from inbound requests and echoed on responses.
const RequestIDHeader = "X-Request-Id"

// maxRequestIDLen bounds caller-supplied IDs before they reach logs.
const maxRequestIDLen = 128

// RequestID attaches a request ID to the request context, reusing the caller's
// X-Request-Id when present. The model client forwards the same ID upstream.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(llm.WithRequestID(r.Context(), id)))
	})
}
