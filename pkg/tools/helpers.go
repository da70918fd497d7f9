package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmdelta/pkg/monitoring"
)

// InputParser is a generic function to parse request arguments into a strongly typed struct
func InputParser[T any](req mcp.CallToolRequest) (T, *mcp.CallToolResult, error) {
	var input T

	inputJSON, err := json.Marshal(req.Params.Arguments)
	if err != nil {
		return input, ErrorResponse(fmt.Sprintf("Invalid input format: %v", err)), err
	}

	if err := json.Unmarshal(inputJSON, &input); err != nil {
		return input, NewValidationError(ErrInvalidInput, fmt.Sprintf("Failed to parse input: %v", err)).
			WithSuggestions(GetToolUsageExample(req.Params.Name)).
			ToMCPResult(), err
	}

	return input, nil, nil
}

// WithParsedInput is a higher-order function that handles request parsing and error handling.
// Handler errors of type *MCPError are returned to the client as is.
func WithParsedInput[T any](
	handlerName string,
	handler func(ctx context.Context, input T, logger *slog.Logger) (interface{}, error),
) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		logger := slog.Default().With("tool", handlerName)

		input, errResult, err := InputParser[T](req)
		if err != nil {
			logger.Warn("failed to parse input", "error", err)
			monitoring.RecordError("tools", string(ErrInvalidInput))
			return errResult, nil
		}

		result, err := handler(ctx, input, logger)
		if err != nil {
			var mcpErr *MCPError
			if errors.As(err, &mcpErr) {
				logger.Warn("request rejected", "code", mcpErr.Code, "error", mcpErr.Message)
				monitoring.RecordError("tools", mcpErr.Code)
				return mcpErr.ToMCPResult(), nil
			}
			logger.Error("handler error", "error", err)
			monitoring.RecordError("tools", string(ErrInternalError))
			return ErrorResponse(fmt.Sprintf("Failed to process request: %v", err)), nil
		}

		resultBytes, err := json.Marshal(result)
		if err != nil {
			logger.Error("failed to marshal result", "error", err)
			return ErrorResponse("Failed to generate result"), nil
		}

		return mcp.NewToolResultText(string(resultBytes)), nil
	}
}
