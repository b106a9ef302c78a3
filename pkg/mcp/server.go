// Package mcp exposes the question answering pipeline as MCP tools.
package mcp

import (
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/mcp/tools"
	"github.com/ekaya-inc/ekaya-askdb/pkg/middleware"
)

// Server wraps the mcp-go MCPServer.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer creates a new MCP server instance.
func NewServer(name, version string, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		name,
		version,
		server.WithToolCapabilities(true),
	)

	return &Server{
		mcp:    mcpServer,
		logger: logger.Named("mcp"),
	}
}

// MCP returns the underlying MCPServer for tool registration.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// RegisterTool is a convenience wrapper for registering a tool.
func (s *Server) RegisterTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcp.AddTool(tool, handler)
}

// RegisterAll registers every askdb tool.
func (s *Server) RegisterAll(version string, ask *tools.AskToolDeps, schema *tools.SchemaToolDeps) {
	tools.RegisterHealthTool(s.mcp, version)
	tools.RegisterAskTool(s.mcp, ask)
	tools.RegisterSchemaTools(s.mcp, schema)
}

// NewStreamableHTTPServer creates a stateless HTTP transport server wrapping this MCP server.
// The HTTP mux handles routing to /mcp, so no endpoint path is configured here.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}

// RegisterRoutes mounts the streamable HTTP transport at /mcp with request logging.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/mcp", middleware.MCPRequestLogger(s.logger)(s.NewStreamableHTTPServer()))
}
