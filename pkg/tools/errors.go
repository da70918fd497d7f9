package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorCode defines standard error codes for MCP tools
type ErrorCode string

// Standard error codes
const (
	// Input validation errors
	ErrInvalidInput     ErrorCode = "INVALID_INPUT"
	ErrMissingParameter ErrorCode = "MISSING_PARAMETER"
	ErrInvalidChange    ErrorCode = "INVALID_CHANGE"
	ErrInvalidKind      ErrorCode = "INVALID_KIND"

	// Base store errors
	ErrStoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	ErrNotFound         ErrorCode = "NOT_FOUND"

	// Merge errors
	ErrCancelled     ErrorCode = "CANCELLED"
	ErrInternalError ErrorCode = "INTERNAL_ERROR"
)

// Guidance messages
const (
	GuidanceChangeFormat = "Each change needs type (ADD or REMOVE), kind, id and, for ADD, an after view with at least one field."
	GuidanceNoStore      = "Start the server with a base store (-store) or set use_store to false."
	GuidanceGeneral      = "Please correct the parameters and try again."
)

// MCPError represents a detailed error structure for MCP tool responses
type MCPError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions,omitempty"`
	Guidance    string   `json:"guidance,omitempty"`
}

// Error implements the error interface
func (e *MCPError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s. %s", e.Code, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewError creates a new MCPError with the given code and message
func NewError(code ErrorCode, message string) *MCPError {
	return &MCPError{
		Code:    string(code),
		Message: message,
	}
}

// NewValidationError creates an error for invalid tool input
func NewValidationError(code ErrorCode, message string) *MCPError {
	return NewError(code, message).WithGuidance(GuidanceGeneral)
}

// WithGuidance adds guidance information to the error
func (e *MCPError) WithGuidance(guidance string) *MCPError {
	e.Guidance = guidance
	return e
}

// WithSuggestions adds suggestions to the error
func (e *MCPError) WithSuggestions(suggestions ...string) *MCPError {
	e.Suggestions = append(e.Suggestions, suggestions...)
	return e
}

// ToMCPResult converts the error to an MCP tool result
func (e *MCPError) ToMCPResult() *mcp.CallToolResult {
	errorJSON, err := json.Marshal(e)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("ERROR: %s - %s", e.Code, e.Message))
	}
	return mcp.NewToolResultError(string(errorJSON))
}

// ErrorResponse returns a plain error result
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// GetToolUsageExample returns an example JSON snippet for using a specific tool.
// It is attached to validation errors as a suggestion.
func GetToolUsageExample(toolName string) string {
	examples := map[string]string{
		"merge_feature_changes": `{
  "changes": [
    {"type": "ADD", "kind": "Point", "id": 7, "after": {"tags": {"name": "Cafe"}}},
    {"type": "ADD", "kind": "Point", "id": 7, "after": {"location": "52.52,13.405"}}
  ],
  "use_store": true
}`,
		"validate_feature_change": `{
  "change": {"type": "REMOVE", "kind": "Edge", "id": 5}
}`,
		"get_base_entity": `{
  "kind": "Node",
  "id": 1
}`,
	}

	if example, exists := examples[toolName]; exists {
		return example
	}
	return "{}"
}
