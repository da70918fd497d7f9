// Package merge implements field-level merging of two edits to the same
// entity field.
//
// A Strategy pairs an optional simple merge, used when no before view is
// available, with an optional three-way merge relative to the common before
// value. Strategy.Merge applies the shared resolution rules and reports
// failures as *ConflictError.
package merge

import (
	"errors"
)

// Strategy merges one field. Equal is required; Simple and Diff are optional.
// Differences, when set, names what differs between two values for error
// reporting.
type Strategy[T any] struct {
	Field       string
	Equal       func(a, b T) bool
	Simple      func(left, right T) (T, error)
	Diff        func(before, left, right T) (T, error)
	Differences func(left, right T) []string
}

// Result is the merged before and after view of one field
type Result[T any] struct {
	Before Optional[T]
	After  Optional[T]
}

// Merge resolves one field from the before and after views of both sides.
//
// Before views must agree when both are present. After views are taken as is
// when only one side sets them or both agree; otherwise the three-way merge
// is used when both before views are present, then the simple merge, and
// the field conflicts when neither applies.
func (s Strategy[T]) Merge(beforeLeft, afterLeft, beforeRight, afterRight Optional[T]) (Result[T], error) {
	var result Result[T]

	bl, hasBL := beforeLeft.Get()
	br, hasBR := beforeRight.Get()
	switch {
	case hasBL && hasBR:
		if !s.Equal(bl, br) {
			return result, s.conflict(ConflictBeforeDiverged, nil, nil, bl, br)
		}
		result.Before = beforeLeft
	case hasBL:
		result.Before = beforeLeft
	case hasBR:
		result.Before = beforeRight
	}

	al, hasAL := afterLeft.Get()
	ar, hasAR := afterRight.Get()
	switch {
	case !hasAL && !hasAR:
		return result, nil
	case !hasAR:
		result.After = afterLeft
		return result, nil
	case !hasAL:
		result.After = afterRight
		return result, nil
	case s.Equal(al, ar):
		result.After = afterLeft
		return result, nil
	}

	var (
		merged T
		err    error
	)
	switch {
	case hasBL && hasBR && s.Diff != nil:
		merged, err = s.Diff(bl, al, ar)
		if err != nil {
			return result, s.wrap(err, bl, al, ar)
		}
	case s.Simple != nil:
		merged, err = s.Simple(al, ar)
		if err != nil {
			return result, s.wrap(err, nil, al, ar)
		}
	default:
		var keys []string
		if s.Differences != nil {
			keys = s.Differences(al, ar)
		}
		return result, s.conflict(ConflictNoStrategy, keys, nil, al, ar)
	}
	result.After = Some(merged)
	return result, nil
}

// conflict takes before, left and right in the same order as wrap
func (s Strategy[T]) conflict(kind ConflictKind, keys []string, before, left, right any) *ConflictError {
	return &ConflictError{
		Kind:   kind,
		Field:  s.Field,
		Before: before,
		Left:   left,
		Right:  right,
		Keys:   keys,
	}
}

// wrap names the field on a strategy failure and fills in the competing
// values. Errors that are not conflicts are reported as unmergeable.
func (s Strategy[T]) wrap(err error, before, left, right any) error {
	var ce *ConflictError
	if !errors.As(err, &ce) {
		ce = &ConflictError{Kind: ConflictUnmergeable, Err: err}
	}
	out := *ce
	out.Field = s.Field
	if out.Before == nil {
		out.Before = before
	}
	if out.Left == nil && out.Right == nil {
		out.Left, out.Right = left, right
	}
	return &out
}
