package merge

import (
	"fmt"
	"strings"
)

// ConflictKind classifies a field merge failure
type ConflictKind string

const (
	// Both sides hold a before view of the field and they disagree
	ConflictBeforeDiverged ConflictKind = "BEFORE_VIEW_DIVERGED"
	// One side removed a key or element the other added or modified
	ConflictAddRemove ConflictKind = "ADD_REMOVE_COLLISION"
	// Both sides added the same key with different values
	ConflictAddAdd ConflictKind = "ADD_ADD_COLLISION"
	// The field has no automatic merge and the values differ
	ConflictUnmergeable ConflictKind = "UNMERGEABLE_FIELD"
	// The values differ and no strategy applies without a before view
	ConflictNoStrategy ConflictKind = "NO_MERGE_STRATEGY"
)

// ConflictError describes why a field could not be merged. Before, Left and
// Right hold the competing values when known.
type ConflictError struct {
	Kind   ConflictKind
	Field  string
	Before any
	Left   any
	Right  any
	Keys   []string
	Err    error
}

func (e *ConflictError) Error() string {
	var sb strings.Builder
	if e.Field != "" {
		sb.WriteString(e.Field)
		sb.WriteString(": ")
	}
	sb.WriteString(string(e.Kind))
	if len(e.Keys) > 0 {
		fmt.Fprintf(&sb, " on %s", strings.Join(e.Keys, ", "))
	}
	if e.Before != nil {
		fmt.Fprintf(&sb, "; before=%v", e.Before)
	}
	if e.Left != nil || e.Right != nil {
		fmt.Fprintf(&sb, "; left=%v right=%v", e.Left, e.Right)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *ConflictError) Unwrap() error {
	return e.Err
}
