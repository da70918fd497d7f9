// Package overlay implements sparse stand-ins for graph entities.
//
// An overlay carries only what an edit says about an entity. Every field
// other than the identifier is independently present or absent, and an
// absent field is distinct from a present empty one. Overlays are values:
// the With methods return updated copies and never modify the receiver or
// their arguments.
//
// Each overlay tracks two rectangles. GeometryBounds is the bounds of the
// geometry last assigned and is replaced on every geometry update. Bounds is
// the union of every geometry and rectangle ever assigned and never shrinks.
package overlay

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Overlay is one of Node, Edge, Area, Line, Point or Relation
type Overlay interface {
	entity.Reference
	Tags() (map[string]string, bool)
	ParentRelations() (entity.IDSet, bool)
	Bounds() geo.BoundingBox
	GeometryBounds() geo.BoundingBox
	IsSuperShallow() bool
	Equal(other Overlay) bool
	String() string

	sealed()
}

// Common lists the With methods every overlay type provides, for code that
// fills shared fields generically
type Common[O any] interface {
	Overlay
	WithTags(tags map[string]string) O
	WithParentRelations(ids entity.IDSet) O
	WithBoundsExtendedBy(box geo.BoundingBox) O
}

// Bounded is anything with an identity and bounds, store entities and
// overlays alike
type Bounded interface {
	entity.Reference
	Bounds() geo.BoundingBox
}

type common struct {
	id        int64
	tags      map[string]string
	relations entity.IDSet
	bounds    geo.BoundingBox
	geometry  geo.BoundingBox
}

func newCommon(id int64) common {
	return common{
		id:       id,
		bounds:   *geo.NewBoundingBox(),
		geometry: *geo.NewBoundingBox(),
	}
}

// Identifier returns the entity identifier
func (c common) Identifier() int64 { return c.id }

// Tags returns a copy of the tags and whether they are present
func (c common) Tags() (map[string]string, bool) {
	if c.tags == nil {
		return nil, false
	}
	return maps.Clone(c.tags), true
}

// Tag returns a single tag value
func (c common) Tag(key string) (string, bool) {
	v, ok := c.tags[key]
	return v, ok
}

// ParentRelations returns a copy of the parent relation set and whether it
// is present
func (c common) ParentRelations() (entity.IDSet, bool) {
	if c.relations == nil {
		return nil, false
	}
	return c.relations.Clone(), true
}

// Bounds returns the union of every geometry and rectangle assigned so far
func (c common) Bounds() geo.BoundingBox { return c.bounds }

// GeometryBounds returns the bounds of the current geometry
func (c common) GeometryBounds() geo.BoundingBox { return c.geometry }

func (c common) withTags(tags map[string]string) common {
	c.tags = presentTags(tags)
	return c
}

func (c common) withRelations(ids entity.IDSet) common {
	c.relations = presentSet(ids)
	return c
}

func (c common) withGeometry(box geo.BoundingBox) common {
	c.geometry = box
	c.bounds = c.bounds.Union(box)
	return c
}

func (c common) extendedBy(box geo.BoundingBox) common {
	c.bounds = c.bounds.Union(box)
	return c
}

func (c common) shallow() bool {
	return c.tags == nil && c.relations == nil
}

func (c common) equal(other common) bool {
	return c.id == other.id &&
		equalTags(c.tags, other.tags) &&
		equalSets(c.relations, other.relations)
}

func (c common) describe(kind entity.ItemKind, fields ...string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%d", kind, c.id)
	if c.tags != nil {
		keys := slices.Sorted(maps.Keys(c.tags))
		pairs := make([]string, len(keys))
		for i, k := range keys {
			pairs[i] = k + "=" + c.tags[k]
		}
		fmt.Fprintf(&sb, " tags={%s}", strings.Join(pairs, ","))
	}
	if c.relations != nil {
		fmt.Fprintf(&sb, " relations=%s", c.relations)
	}
	for _, f := range fields {
		if f != "" {
			sb.WriteString(" ")
			sb.WriteString(f)
		}
	}
	sb.WriteString("]")
	return sb.String()
}

// presentTags clones tags, mapping nil to a present empty map
func presentTags(tags map[string]string) map[string]string {
	if tags == nil {
		return map[string]string{}
	}
	return maps.Clone(tags)
}

func presentSet(ids entity.IDSet) entity.IDSet {
	if ids == nil {
		return entity.NewIDSet()
	}
	return ids.Clone()
}

func equalTags(a, b map[string]string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return maps.Equal(a, b)
}

func equalSets(a, b entity.IDSet) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a.Equal(b)
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func describeSet(name string, ids entity.IDSet) string {
	if ids == nil {
		return ""
	}
	return name + "=" + ids.String()
}

func describePtr[T any](name string, v *T) string {
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%s=%v", name, *v)
}

// New creates a shallow overlay of the given kind holding only id
func New(kind entity.ItemKind, id int64) (Overlay, error) {
	switch kind {
	case entity.KindNode:
		return NewNode(id), nil
	case entity.KindEdge:
		return NewEdge(id), nil
	case entity.KindArea:
		return NewArea(id), nil
	case entity.KindLine:
		return NewLine(id), nil
	case entity.KindPoint:
		return NewPoint(id), nil
	case entity.KindRelation:
		return NewRelation(id), nil
	}
	return nil, fmt.Errorf("unknown item kind %d", int(kind))
}

// ShallowCopy creates an overlay holding only the identity and bounds of src
func ShallowCopy(src Bounded) (Overlay, error) {
	o, err := New(src.Kind(), src.Identifier())
	if err != nil {
		return nil, err
	}
	return ExtendBounds(o, src.Bounds()), nil
}

// FullCopy creates an overlay with every field populated from e
func FullCopy(e entity.Entity) (Overlay, error) {
	var (
		o  Overlay
		ok bool
	)
	switch e.Kind() {
	case entity.KindNode:
		var n entity.Node
		if n, ok = e.(entity.Node); ok {
			o = NodeFrom(n)
		}
	case entity.KindEdge:
		var ed entity.Edge
		if ed, ok = e.(entity.Edge); ok {
			o = EdgeFrom(ed)
		}
	case entity.KindArea:
		var a entity.Area
		if a, ok = e.(entity.Area); ok {
			o = AreaFrom(a)
		}
	case entity.KindLine:
		var l entity.Line
		if l, ok = e.(entity.Line); ok {
			o = LineFrom(l)
		}
	case entity.KindPoint:
		var p entity.Point
		if p, ok = e.(entity.Point); ok {
			o = PointFrom(p)
		}
	case entity.KindRelation:
		var r entity.Relation
		if r, ok = e.(entity.Relation); ok {
			o = RelationFrom(r)
		}
	}
	if !ok {
		return nil, fmt.Errorf("%s: entity %T does not implement its kind", entity.KeyOf(e), e)
	}
	return o, nil
}

// ExtendBounds returns o with its aggregate bounds extended by box
func ExtendBounds(o Overlay, box geo.BoundingBox) Overlay {
	switch v := o.(type) {
	case Node:
		return v.WithBoundsExtendedBy(box)
	case Edge:
		return v.WithBoundsExtendedBy(box)
	case Area:
		return v.WithBoundsExtendedBy(box)
	case Line:
		return v.WithBoundsExtendedBy(box)
	case Point:
		return v.WithBoundsExtendedBy(box)
	case Relation:
		return v.WithBoundsExtendedBy(box)
	}
	panic(fmt.Sprintf("overlay: unexpected type %T", o))
}
