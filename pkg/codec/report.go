package codec

import (
	"errors"

	"github.com/NERVsystems/osmdelta/pkg/change"
	"github.com/NERVsystems/osmdelta/pkg/merge"
)

// Report is the result of merging a batch: the merged changes plus one
// entry per failed partition or invalid input
type Report struct {
	Changes []ChangeRecord `json:"changes"`
	Errors  []ErrorRecord  `json:"errors,omitempty"`
}

// ErrorRecord describes one failure. Conflict fields are set when the
// failure is a field conflict.
type ErrorRecord struct {
	Entity     string   `json:"entity,omitempty"`
	ChangeType string   `json:"changeType,omitempty"`
	Conflict   string   `json:"conflict,omitempty"`
	Field      string   `json:"field,omitempty"`
	Keys       []string `json:"keys,omitempty"`
	Message    string   `json:"message"`
}

// NewReport builds a report from the output of a batch merge
func NewReport(merged []*change.FeatureChange, err error) Report {
	return Report{
		Changes: Encode(merged).Changes,
		Errors:  ErrorRecords(err),
	}
}

// ErrorRecords flattens a joined error into one record per failure
func ErrorRecords(err error) []ErrorRecord {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []ErrorRecord
		for _, e := range joined.Unwrap() {
			out = append(out, ErrorRecords(e)...)
		}
		return out
	}

	rec := ErrorRecord{Message: err.Error()}
	var pe *change.PartitionError
	if errors.As(err, &pe) {
		rec.Entity = pe.Key.String()
		rec.ChangeType = pe.ChangeType.String()
	}
	var ce *merge.ConflictError
	if errors.As(err, &ce) {
		rec.Conflict = string(ce.Kind)
		rec.Field = ce.Field
		rec.Keys = ce.Keys
	}
	return []ErrorRecord{rec}
}
