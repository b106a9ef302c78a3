package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/logging"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// SchemaToolDeps contains dependencies for schema tools.
type SchemaToolDeps struct {
	SchemaService services.SchemaService
	Logger        *zap.Logger
}

type refreshSchemaResult struct {
	Tables int    `json:"tables"`
	Schema string `json:"schema"`
}

// RegisterSchemaTools registers get_schema and refresh_schema.
func RegisterSchemaTools(s *server.MCPServer, deps *SchemaToolDeps) {
	registerGetSchemaTool(s, deps)
	registerRefreshSchemaTool(s, deps)
}

func registerGetSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"get_schema",
		mcp.WithDescription(
			"Get the database schema used for SQL generation: tables, columns with types and key flags, "+
				"and a few sample rows per table.",
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := deps.SchemaService.GetSchemaText(ctx)
		if err != nil {
			deps.Logger.Warn("get_schema failed", zap.Error(err))
			return NewErrorResult("schema_unavailable", logging.SanitizeError(err)), nil
		}
		return mcp.NewToolResultText(text), nil
	})
}

func registerRefreshSchemaTool(s *server.MCPServer, deps *SchemaToolDeps) {
	tool := mcp.NewTool(
		"refresh_schema",
		mcp.WithDescription("Re-read the database schema after tables or columns have changed."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		snapshot, err := deps.SchemaService.Refresh(ctx)
		if err != nil {
			deps.Logger.Warn("refresh_schema failed", zap.Error(err))
			return NewErrorResult("schema_unavailable", logging.SanitizeError(err)), nil
		}
		return newJSONResult(refreshSchemaResult{Tables: len(snapshot.Tables), Schema: snapshot.Render()})
	})
}
