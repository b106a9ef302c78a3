package handlers

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/config"
	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
)

// datasourcePingTimeout bounds the reachability check done by /ping.
const datasourcePingTimeout = 3 * time.Second

// Pinger reports whether the datasource is reachable.
type Pinger interface {
	TestConnection(ctx context.Context) error
}

// DatasourceStatus is the datasource section of the ping response.
type DatasourceStatus struct {
	Type      string `json:"type"`
	Reachable bool   `json:"reachable"`
	Error     string `json:"error,omitempty"`
}

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string                      `json:"status"`
	Version     string                      `json:"version"`
	Service     string                      `json:"service"`
	GoVersion   string                      `json:"go_version"`
	Hostname    string                      `json:"hostname"`
	Environment string                      `json:"environment"`
	Model       string                      `json:"model"`
	Datasource  DatasourceStatus            `json:"datasource"`
	Connections *datasource.ConnectionStats `json:"connections,omitempty"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg     *config.Config
	pinger  Pinger
	connMgr *datasource.ConnectionManager
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. connMgr may be nil.
func NewHealthHandler(cfg *config.Config, pinger Pinger, connMgr *datasource.ConnectionManager, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, pinger: pinger, connMgr: connMgr, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("GET /ping", h.Ping)
}

// Health handles GET /health requests.
// Returns a simple "ok" status for liveness checks; it never touches the datasource.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests.
// Returns service information and whether the datasource currently answers.
// An unreachable datasource reports status "degraded" with 200.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	response := PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "ekaya-askdb",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
		Model:       h.cfg.LLM.Model,
		Datasource:  DatasourceStatus{Type: h.cfg.Database.Type},
	}

	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), datasourcePingTimeout)
		err := h.pinger.TestConnection(ctx)
		cancel()
		if err != nil {
			response.Status = "degraded"
			response.Datasource.Error = logging.SanitizeError(err)
		} else {
			response.Datasource.Reachable = true
		}
	}

	if h.connMgr != nil {
		stats := h.connMgr.GetStats()
		response.Connections = &stats
	}

	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to encode ping response", zap.Error(err))
	}
}
