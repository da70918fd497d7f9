package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/codec"
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/overlay"
	"github.com/NERVsystems/osmdelta/pkg/store"
)

// MergeFeatureChangesInput is the input of merge_feature_changes
type MergeFeatureChangesInput struct {
	Changes  []codec.ChangeRecord `json:"changes"`
	UseStore bool                 `json:"use_store,omitempty"`
}

// ValidateFeatureChangeInput is the input of validate_feature_change
type ValidateFeatureChangeInput struct {
	Change   *codec.ChangeRecord `json:"change"`
	UseStore bool                `json:"use_store,omitempty"`
}

// ValidationResult reports whether a change record is well formed. Change
// holds the normalized record, including any before view derived from the
// base store.
type ValidationResult struct {
	Valid  bool                `json:"valid"`
	Entity string              `json:"entity"`
	Change *codec.ChangeRecord `json:"change,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// GetBaseEntityInput is the input of get_base_entity
type GetBaseEntityInput struct {
	Kind string `json:"kind"`
	ID   int64  `json:"id"`
}

// BaseEntityResult is a complete view of one base graph entity
type BaseEntityResult struct {
	Entity string               `json:"entity"`
	View   *codec.OverlayRecord `json:"view"`
}

// MergeFeatureChangesTool returns a tool definition for merging change batches
func MergeFeatureChangesTool() mcp.Tool {
	return mcp.NewTool("merge_feature_changes",
		mcp.WithDescription("Merge feature changes that touch the same entity into one change per entity and change type"),
		mcp.WithArray("changes",
			mcp.Required(),
			mcp.Description("Change records: {type, kind, id, after, before}"),
		),
		mcp.WithBoolean("use_store",
			mcp.Description("Derive missing before views from the base store"),
		),
	)
}

// ValidateFeatureChangeTool returns a tool definition for validating one change
func ValidateFeatureChangeTool() mcp.Tool {
	return mcp.NewTool("validate_feature_change",
		mcp.WithDescription("Check that a change record is well formed and return its normalized form"),
		mcp.WithObject("change",
			mcp.Required(),
			mcp.Description("Change record: {type, kind, id, after, before}"),
		),
		mcp.WithBoolean("use_store",
			mcp.Description("Derive the before view from the base store"),
		),
	)
}

// GetBaseEntityTool returns a tool definition for base graph lookups
func GetBaseEntityTool() mcp.Tool {
	return mcp.NewTool("get_base_entity",
		mcp.WithDescription("Look up an entity of the base graph"),
		mcp.WithString("kind",
			mcp.Required(),
			mcp.Description("Entity kind: Node, Edge, Area, Line, Point or Relation"),
		),
		mcp.WithNumber("id",
			mcp.Required(),
			mcp.Description("Entity identifier"),
		),
	)
}

// HandleMergeFeatureChanges merges a batch and returns a codec.Report
func (r *Registry) HandleMergeFeatureChanges(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("merge_feature_changes", r.mergeFeatureChanges)(ctx, req)
}

func (r *Registry) mergeFeatureChanges(ctx context.Context, input MergeFeatureChangesInput, logger *slog.Logger) (interface{}, error) {
	if len(input.Changes) == 0 {
		return nil, NewValidationError(ErrMissingParameter, "changes must hold at least one change record").
			WithSuggestions(GetToolUsageExample("merge_feature_changes"))
	}

	changes, err := codec.Decode(codec.Document{Changes: input.Changes})
	if err != nil {
		return nil, NewError(ErrInvalidChange, err.Error()).WithGuidance(GuidanceChangeFormat)
	}

	if input.UseStore {
		if changes, err = r.withStoreContext(changes); err != nil {
			return nil, err
		}
	}

	merged, err := r.merger.Merge(ctx, changes)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, NewError(ErrCancelled, ctxErr.Error())
	}

	report := codec.NewReport(merged, err)
	logger.Info("merged feature changes",
		"changes", len(changes),
		"merged", len(report.Changes),
		"failures", len(report.Errors))
	return report, nil
}

// HandleValidateFeatureChange validates one change record
func (r *Registry) HandleValidateFeatureChange(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("validate_feature_change", r.validateFeatureChange)(ctx, req)
}

func (r *Registry) validateFeatureChange(ctx context.Context, input ValidateFeatureChangeInput, logger *slog.Logger) (interface{}, error) {
	if input.Change == nil {
		return nil, NewValidationError(ErrMissingParameter, "change is required").
			WithSuggestions(GetToolUsageExample("validate_feature_change"))
	}

	result := ValidationResult{
		Entity: entity.Key{ID: input.Change.ID, Kind: input.Change.Kind}.String(),
	}

	c, err := codec.DecodeChange(*input.Change)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}

	if input.UseStore {
		contextual, err := r.withStoreContext([]*change.FeatureChange{c})
		if err != nil {
			var mcpErr *MCPError
			if errors.As(err, &mcpErr) && mcpErr.Code == string(ErrStoreUnavailable) {
				return nil, err
			}
			result.Error = err.Error()
			return result, nil
		}
		c = contextual[0]
	}

	rec := codec.EncodeChange(c)
	result.Valid = true
	result.Change = &rec
	logger.Debug("validated feature change", "change", c.String())
	return result, nil
}

// HandleGetBaseEntity returns a full view of a base graph entity
func (r *Registry) HandleGetBaseEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return WithParsedInput("get_base_entity", r.getBaseEntity)(ctx, req)
}

func (r *Registry) getBaseEntity(ctx context.Context, input GetBaseEntityInput, logger *slog.Logger) (interface{}, error) {
	if r.store == nil {
		return nil, NewError(ErrStoreUnavailable, "no base store is configured").WithGuidance(GuidanceNoStore)
	}

	kind, err := entity.ParseItemKind(input.Kind)
	if err != nil {
		return nil, NewValidationError(ErrInvalidKind, err.Error()).
			WithSuggestions(GetToolUsageExample("get_base_entity"))
	}
	key := entity.Key{ID: input.ID, Kind: kind}

	e, err := r.store.Entity(key)
	if errors.Is(err, store.ErrNotFound) {
		return nil, NewError(ErrNotFound, fmt.Sprintf("%s is not in the base store", key))
	}
	if err != nil {
		return nil, err
	}

	view, err := overlay.FullCopy(e)
	if err != nil {
		return nil, err
	}
	logger.Debug("looked up base entity", "entity", key.String())
	return BaseEntityResult{Entity: key.String(), View: codec.EncodeOverlay(view)}, nil
}

// withStoreContext derives before views from the base store
func (r *Registry) withStoreContext(changes []*change.FeatureChange) ([]*change.FeatureChange, error) {
	if r.store == nil {
		return nil, NewError(ErrStoreUnavailable, "no base store is configured").WithGuidance(GuidanceNoStore)
	}
	out, err := change.WithStoreContextAll(changes, r.store)
	if err != nil {
		return nil, NewError(ErrInvalidChange, err.Error()).WithGuidance(GuidanceChangeFormat)
	}
	return out, nil
}
