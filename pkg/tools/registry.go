// Package tools exposes the change merge engine as MCP tools.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
	"github.com/NERVsystems/osmdelta/pkg/store"
	"github.com/NERVsystems/osmdelta/pkg/tracing"
)

// Registry contains all tool definitions and handlers
type Registry struct {
	logger *slog.Logger
	store  store.Store
	merger *change.BatchMerger
}

// NewRegistry creates a new tool registry. The store may be nil, in which
// case tools that need base graph context report STORE_UNAVAILABLE.
func NewRegistry(logger *slog.Logger, s store.Store, merger *change.BatchMerger) *Registry {
	if merger == nil {
		merger = change.NewBatchMerger(change.WithLogger(logger))
	}
	return &Registry{
		logger: logger,
		store:  s,
		merger: merger,
	}
}

// ToolDefinition represents an MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns the list of all available tools.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	return []ToolDefinition{
		{
			Name:        "get_version",
			Description: "Get the version information for this service",
			Tool:        GetVersionTool(),
			Handler:     HandleGetVersion,
		},
		{
			Name:        "merge_feature_changes",
			Description: "Merge a batch of feature changes into one change per entity and change type. Parameters: changes (array of change records), use_store (boolean)",
			Tool:        MergeFeatureChangesTool(),
			Handler:     r.HandleMergeFeatureChanges,
		},
		{
			Name:        "validate_feature_change",
			Description: "Validate a single feature change and return its normalized form. Parameters: change (change record), use_store (boolean)",
			Tool:        ValidateFeatureChangeTool(),
			Handler:     r.HandleValidateFeatureChange,
		},
		{
			Name:        "get_base_entity",
			Description: "Get an entity of the base graph as a complete view. Parameters: kind (string), id (number)",
			Tool:        GetBaseEntityTool(),
			Handler:     r.HandleGetBaseEntity,
		},
	}
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, r.wrapWithTracing(def.Name, def.Handler))
	}
}

// RegisterPrompts registers all prompts with the MCP server.
func (r *Registry) RegisterPrompts(mcpServer *server.MCPServer) {
	r.logger.Info("registering change document prompt")
	prompt := mcp.NewPrompt("change_document",
		mcp.WithPromptDescription("Instructions for writing feature change documents"),
	)
	mcpServer.AddPrompt(prompt, func(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		return mcp.NewGetPromptResult(
			"Feature Change Documents",
			[]mcp.PromptMessage{
				mcp.NewPromptMessage(mcp.RoleAssistant, mcp.NewTextContent(ChangeDocumentPrompt())),
			},
		), nil
	})
}

// RegisterAll registers all tools and prompts with the MCP server.
func (r *Registry) RegisterAll(mcpServer *server.MCPServer) {
	r.RegisterTools(mcpServer)
	r.RegisterPrompts(mcpServer)
}

// GetToolNames returns a list of all tool names.
func (r *Registry) GetToolNames() []string {
	defs := r.GetToolDefinitions()
	names := make([]string, len(defs))
	for i, def := range defs {
		names[i] = def.Name
	}
	return names
}

// wrapWithTracing wraps a tool handler with a span and request metrics
func (r *Registry) wrapWithTracing(toolName string, handler func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := tracing.StartSpan(ctx, fmt.Sprintf("mcp.tool.%s", toolName),
			trace.WithAttributes(attribute.String(tracing.AttrMCPToolName, toolName)),
		)
		defer span.End()

		startTime := time.Now()
		result, err := handler(ctx, req)
		duration := time.Since(startTime)

		// Tool errors travel in the result, not in err
		status := tracing.StatusSuccess
		if err != nil || (result != nil && result.IsError) {
			status = tracing.StatusError
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}

		resultSize := 0
		if result != nil && result.Content != nil {
			if data, marshalErr := json.Marshal(result.Content); marshalErr == nil {
				resultSize = len(data)
			}
		}

		span.SetAttributes(attribute.String(tracing.AttrMCPToolStatus, status))
		monitoring.RecordToolRequest(toolName, duration, status == tracing.StatusSuccess)

		r.logger.Debug("tool execution traced",
			"tool", toolName,
			"duration_ms", duration.Milliseconds(),
			"status", status,
			"result_size", resultSize,
		)

		return result, err
	}
}
