package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// Answerer answers a natural-language question. Implemented by *services.QueryPipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) *models.ResponseEnvelope
}

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryHandler serves natural-language questions.
type QueryHandler struct {
	answerer Answerer
	logger   *zap.Logger
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(answerer Answerer, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{answerer: answerer, logger: logger}
}

// RegisterRoutes registers the query handler's routes on the given mux.
func (h *QueryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /query", h.Query)
}

// Query handles POST /query. The envelope is returned with 200 whatever the
// pipeline outcome; only malformed requests get 400.
func (h *QueryHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req QueryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_request", "Request body must be JSON: {\"query\": \"...\"}"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		if err := ErrorResponse(w, http.StatusBadRequest, "empty_question", services.EmptyQuestionMessage); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	envelope := h.answerer.Answer(r.Context(), req.Query)
	if err := WriteJSON(w, http.StatusOK, envelope); err != nil {
		h.logger.Error("Failed to encode query response", zap.Error(err))
	}
}
