package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

// ToolHandler is the signature shared by every tool handler
type ToolHandler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)

// CallTool invokes handler with arguments decoded from a JSON object
func CallTool(t *testing.T, handler ToolHandler, name, arguments string) *mcp.CallToolResult {
	t.Helper()

	var args map[string]any
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		t.Fatalf("invalid test arguments for %s: %v", name, err)
	}

	var req mcp.CallToolRequest
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := handler(context.Background(), req)
	if err != nil {
		t.Fatalf("%s returned a protocol error: %v", name, err)
	}
	if result == nil {
		t.Fatalf("%s returned no result", name)
	}
	return result
}

// AssertErrorCode checks that result is an error result carrying an MCPError with code
func AssertErrorCode(t *testing.T, result *mcp.CallToolResult, code ErrorCode) {
	t.Helper()
	if !result.IsError {
		t.Fatalf("expected %s error, got success: %s", code, ResultText(result))
	}
	var mcpErr MCPError
	if err := ParseResultJSON(result, &mcpErr); err != nil {
		t.Fatalf("error result is not an MCPError: %s", ResultText(result))
	}
	if mcpErr.Code != string(code) {
		t.Errorf("error code = %s, want %s (%s)", mcpErr.Code, code, mcpErr.Message)
	}
}

// AssertSuccessResult checks that a result is a success result and fails the test if not
func AssertSuccessResult(t *testing.T, result *mcp.CallToolResult, message string) {
	t.Helper()
	if result.IsError {
		t.Fatalf("%s. Got error: %s", message, ResultText(result))
	}
}

// ResultText returns the first text content of a result
func ResultText(result *mcp.CallToolResult) string {
	for _, c := range result.Content {
		if text, ok := c.(mcp.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

// ParseResultJSON parses the JSON content from a CallToolResult
func ParseResultJSON(result *mcp.CallToolResult, out interface{}) error {
	return json.Unmarshal([]byte(ResultText(result)), out)
}
