package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

func newTestServer() *server.MCPServer {
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool executes an MCP tool via the server's HandleMessage method.
func callTool(t *testing.T, s *server.MCPServer, toolName string, arguments map[string]any) *mcp.CallToolResult {
	t.Helper()

	reqBytes, err := json.Marshal(map[string]any{
		"jsonrpc": "2.0",
		"method":  "tools/call",
		"id":      1,
		"params": map[string]any{
			"name":      toolName,
			"arguments": arguments,
		},
	})
	require.NoError(t, err)

	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), reqBytes))
	require.NoError(t, err)

	var response struct {
		Result *mcp.CallToolResult `json:"result,omitempty"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error,omitempty"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))
	require.Nil(t, response.Error, "unexpected JSON-RPC error")
	require.NotNil(t, response.Result)
	return response.Result
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func listToolNames(t *testing.T, s *server.MCPServer) []string {
	t.Helper()
	resultBytes, err := json.Marshal(s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`)))
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(resultBytes, &response))

	names := make([]string, len(response.Result.Tools))
	for i, tool := range response.Result.Tools {
		names[i] = tool.Name
	}
	return names
}

type mockAnswerer struct {
	envelope  *models.ResponseEnvelope
	questions []string
}

func (m *mockAnswerer) Answer(ctx context.Context, question string) *models.ResponseEnvelope {
	m.questions = append(m.questions, question)
	if m.envelope != nil {
		return m.envelope
	}
	return &models.ResponseEnvelope{NaturalQuery: question}
}

type mockSchemaService struct {
	snapshot  *models.SchemaSnapshot
	err       error
	refreshed int
}

func (m *mockSchemaService) GetSchema(ctx context.Context) (*models.SchemaSnapshot, error) {
	return m.snapshot, m.err
}

func (m *mockSchemaService) GetSchemaText(ctx context.Context) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	return m.snapshot.Render(), nil
}

func (m *mockSchemaService) Refresh(ctx context.Context) (*models.SchemaSnapshot, error) {
	m.refreshed++
	return m.snapshot, m.err
}

func (m *mockSchemaService) Invalidate() {}
