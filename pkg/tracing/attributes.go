package tracing

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys for merge operations
const (
	// Entity attributes
	AttrEntityID   = "osm.entity.id"
	AttrEntityKind = "osm.entity.kind"
	AttrChangeType = "osm.change.type"

	// Batch attributes
	AttrBatchID         = "osm.batch.id"
	AttrBatchSize       = "osm.batch.size"
	AttrBatchPartitions = "osm.batch.partitions"
	AttrBatchFailures   = "osm.batch.failures"

	// Conflict attributes
	AttrConflictField = "osm.conflict.field"
	AttrConflictKind  = "osm.conflict.kind"

	// MCP tool attributes
	AttrMCPToolName   = "mcp.tool.name"
	AttrMCPToolStatus = "mcp.tool.status"

	// HTTP transport attributes
	AttrHTTPMethod     = "http.method"
	AttrHTTPPath       = "http.path"
	AttrHTTPStatusCode = "http.status_code"
	AttrHTTPSessionID  = "mcp.session.id"
	AttrRequestID      = "http.request_id"

	// Error attributes
	AttrErrorType    = "error.type"
	AttrErrorMessage = "error.message"
)

// Status values
const (
	StatusSuccess  = "success"
	StatusError    = "error"
	StatusConflict = "conflict"
)

// EntityAttributes returns attributes identifying a feature change
func EntityAttributes(id int64, kind, changeType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64(AttrEntityID, id),
		attribute.String(AttrEntityKind, kind),
		attribute.String(AttrChangeType, changeType),
	}
}

// BatchAttributes returns attributes for a batch merge
func BatchAttributes(batchID string, size, partitions int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrBatchID, batchID),
		attribute.Int(AttrBatchSize, size),
		attribute.Int(AttrBatchPartitions, partitions),
	}
}

// ConflictAttributes returns attributes for a field conflict
func ConflictAttributes(field, kind string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrConflictField, field),
		attribute.String(AttrConflictKind, kind),
	}
}

// ErrorAttributes returns attributes for errors
func ErrorAttributes(err error) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.String(AttrErrorType, "error"),
		attribute.String(AttrErrorMessage, err.Error()),
	}
}
