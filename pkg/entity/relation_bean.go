package entity

import (
	"fmt"
	"slices"
	"strings"
)

// RelationMember is one (identifier, kind, role) entry of a relation
type RelationMember struct {
	Identifier int64    `json:"id" yaml:"id"`
	Kind       ItemKind `json:"kind" yaml:"kind"`
	Role       string   `json:"role" yaml:"role"`
}

// String returns "Kind:id[role]"
func (m RelationMember) String() string {
	return fmt.Sprintf("%s:%d[%s]", m.Kind, m.Identifier, m.Role)
}

func (m RelationMember) compare(other RelationMember) int {
	switch {
	case m.Kind != other.Kind:
		return int(m.Kind) - int(other.Kind)
	case m.Identifier < other.Identifier:
		return -1
	case m.Identifier > other.Identifier:
		return 1
	default:
		return strings.Compare(m.Role, other.Role)
	}
}

// RelationBean is the ordered member list of a relation together with the
// members an edit explicitly removed. Exclusions survive merges so that a
// removal on one side is not undone by the other side's stale member list.
type RelationBean struct {
	members  []RelationMember
	excluded []RelationMember
}

// NewRelationBean creates a bean holding members in the given order
func NewRelationBean(members ...RelationMember) RelationBean {
	return RelationBean{members: slices.Clone(members)}
}

// NewRelationBeanWithExclusions creates a bean whose excluded members are
// removed from the member list and recorded as explicit exclusions
func NewRelationBeanWithExclusions(members, excluded []RelationMember) RelationBean {
	b := NewRelationBean(members...)
	for _, m := range excluded {
		b = b.WithExplicitExclusion(m)
	}
	return b
}

// Members returns a copy of the ordered member list
func (b RelationBean) Members() []RelationMember {
	return slices.Clone(b.members)
}

// ExplicitlyExcluded returns a copy of the exclusion list, sorted
func (b RelationBean) ExplicitlyExcluded() []RelationMember {
	return slices.Clone(b.excluded)
}

// Len returns the number of members
func (b RelationBean) Len() int {
	return len(b.members)
}

// IsExplicitlyExcluded reports whether m was explicitly removed
func (b RelationBean) IsExplicitlyExcluded(m RelationMember) bool {
	return slices.Contains(b.excluded, m)
}

// WithMember returns a bean with m appended
func (b RelationBean) WithMember(m RelationMember) RelationBean {
	return RelationBean{
		members:  append(slices.Clone(b.members), m),
		excluded: slices.Clone(b.excluded),
	}
}

// WithExplicitExclusion returns a bean where every occurrence of m is removed
// and m is recorded as explicitly excluded
func (b RelationBean) WithExplicitExclusion(m RelationMember) RelationBean {
	out := RelationBean{
		members:  make([]RelationMember, 0, len(b.members)),
		excluded: slices.Clone(b.excluded),
	}
	for _, existing := range b.members {
		if existing != m {
			out.members = append(out.members, existing)
		}
	}
	if !slices.Contains(out.excluded, m) {
		out.excluded = append(out.excluded, m)
		slices.SortFunc(out.excluded, RelationMember.compare)
	}
	return out
}

// WithRemovalsSince returns b with every member of before that b no longer
// lists recorded as an explicit exclusion
func (b RelationBean) WithRemovalsSince(before RelationBean) RelationBean {
	out := b
	for _, m := range before.members {
		if !slices.Contains(b.members, m) && !out.IsExplicitlyExcluded(m) {
			out = out.WithExplicitExclusion(m)
		}
	}
	return out
}

// Equal compares member order and the exclusion set
func (b RelationBean) Equal(other RelationBean) bool {
	return slices.Equal(b.members, other.members) && slices.Equal(b.excluded, other.excluded)
}

// Merge combines two beans structurally. Members keep the receiver's order,
// followed by the other bean's members that are not already present; a member
// listed n times on one side and m times on the other appears max(n, m) times.
// Exclusions from either side are unioned and win over listed members.
func (b RelationBean) Merge(other RelationBean) RelationBean {
	leftCounts := make(map[RelationMember]int, len(b.members))
	for _, m := range b.members {
		leftCounts[m]++
	}

	excluded := slices.Clone(b.excluded)
	for _, m := range other.excluded {
		if !slices.Contains(excluded, m) {
			excluded = append(excluded, m)
		}
	}
	slices.SortFunc(excluded, RelationMember.compare)

	out := RelationBean{excluded: excluded}
	for _, m := range b.members {
		if !slices.Contains(excluded, m) {
			out.members = append(out.members, m)
		}
	}

	rightSeen := make(map[RelationMember]int, len(other.members))
	for _, m := range other.members {
		rightSeen[m]++
		if rightSeen[m] <= leftCounts[m] || slices.Contains(excluded, m) {
			continue
		}
		out.members = append(out.members, m)
	}
	return out
}

// String lists the members followed by the exclusions
func (b RelationBean) String() string {
	parts := make([]string, len(b.members))
	for i, m := range b.members {
		parts[i] = m.String()
	}
	s := "[" + strings.Join(parts, ", ") + "]"
	if len(b.excluded) > 0 {
		ex := make([]string, len(b.excluded))
		for i, m := range b.excluded {
			ex[i] = m.String()
		}
		s += " excluded[" + strings.Join(ex, ", ") + "]"
	}
	return s
}
