package entity

import (
	"slices"
	"strconv"
	"strings"
)

// IDSet is a set of entity identifiers. Sets are treated as values: the
// helpers below always return new sets and never modify their receivers.
type IDSet map[int64]struct{}

// NewIDSet creates a non-nil set holding ids
func NewIDSet(ids ...int64) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a member
func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of members
func (s IDSet) Len() int {
	return len(s)
}

// Sorted returns the members in ascending order
func (s IDSet) Sorted() []int64 {
	out := make([]int64, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Clone returns an independent copy; nil stays nil
func (s IDSet) Clone() IDSet {
	if s == nil {
		return nil
	}
	out := make(IDSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Union returns the members of either set
func (s IDSet) Union(other IDSet) IDSet {
	out := make(IDSet, len(s)+len(other))
	for id := range s {
		out[id] = struct{}{}
	}
	for id := range other {
		out[id] = struct{}{}
	}
	return out
}

// Minus returns the members of s not in other
func (s IDSet) Minus(other IDSet) IDSet {
	out := make(IDSet, len(s))
	for id := range s {
		if !other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Intersect returns the members of both sets
func (s IDSet) Intersect(other IDSet) IDSet {
	out := make(IDSet)
	for id := range s {
		if other.Contains(id) {
			out[id] = struct{}{}
		}
	}
	return out
}

// Equal reports whether both sets hold the same members
func (s IDSet) Equal(other IDSet) bool {
	if len(s) != len(other) {
		return false
	}
	for id := range s {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// String returns the sorted members, e.g. "[1 2 3]"
func (s IDSet) String() string {
	sorted := s.Sorted()
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
