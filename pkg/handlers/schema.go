package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// SchemaResponse is returned by GET /schema and POST /schema/refresh.
type SchemaResponse struct {
	Schema string `json:"schema"`
	Tables *int   `json:"tables,omitempty"`
}

// SchemaHandler exposes the cached schema description.
type SchemaHandler struct {
	schema services.SchemaService
	logger *zap.Logger
}

// NewSchemaHandler creates a new SchemaHandler.
func NewSchemaHandler(schema services.SchemaService, logger *zap.Logger) *SchemaHandler {
	return &SchemaHandler{schema: schema, logger: logger}
}

// RegisterRoutes registers the schema handler's routes on the given mux.
func (h *SchemaHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /schema", h.Get)
	mux.HandleFunc("POST /schema/refresh", h.Refresh)
}

// Get handles GET /schema.
func (h *SchemaHandler) Get(w http.ResponseWriter, r *http.Request) {
	text, err := h.schema.GetSchemaText(r.Context())
	if err != nil {
		h.unavailable(w, err)
		return
	}
	if err := WriteJSON(w, http.StatusOK, SchemaResponse{Schema: text}); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

// Refresh handles POST /schema/refresh: the cache is dropped and rebuilt.
func (h *SchemaHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.schema.Refresh(r.Context())
	if err != nil {
		h.unavailable(w, err)
		return
	}
	tables := len(snapshot.Tables)
	if err := WriteJSON(w, http.StatusOK, SchemaResponse{Schema: snapshot.Render(), Tables: &tables}); err != nil {
		h.logger.Error("Failed to encode schema response", zap.Error(err))
	}
}

func (h *SchemaHandler) unavailable(w http.ResponseWriter, err error) {
	if err := ErrorResponse(w, http.StatusServiceUnavailable, "schema_unavailable", logging.SanitizeError(err)); err != nil {
		h.logger.Error("Failed to write error response", zap.Error(err))
	}
}
