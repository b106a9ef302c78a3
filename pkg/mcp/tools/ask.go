package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
	"github.com/ekaya-inc/ekaya-askdb/pkg/services"
)

// Answerer answers a natural-language question. Implemented by *services.QueryPipeline.
type Answerer interface {
	Answer(ctx context.Context, question string) *models.ResponseEnvelope
}

// AskToolDeps contains dependencies for the ask_database tool.
type AskToolDeps struct {
	Answerer Answerer
	Logger   *zap.Logger
}

// RegisterAskTool registers ask_database, which runs the full pipeline and
// returns the response envelope as JSON.
func RegisterAskTool(s *server.MCPServer, deps *AskToolDeps) {
	tool := mcp.NewTool(
		"ask_database",
		mcp.WithDescription(
			"Answer a natural-language question about the energy market database. "+
				"The question is translated into a single read-only SQL query, executed, and the result returned "+
				"together with the generated SQL. Write statements are never executed.",
		),
		mcp.WithString(
			"question",
			mcp.Required(),
			mcp.Description("The question in plain language, e.g. \"What was the maximum MCP for Solar yesterday?\""),
		),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return NewErrorResult("empty_question", services.EmptyQuestionMessage), nil
		}

		envelope := deps.Answerer.Answer(ctx, question)
		result, err := newJSONResult(envelope)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal response envelope: %w", err)
		}
		if envelope.Failed() {
			deps.Logger.Debug("ask_database returned an error envelope", zap.String("error", envelope.Error))
			result.IsError = true
		}
		return result, nil
	})
}
