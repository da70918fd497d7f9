package change

import (
	"errors"
	"fmt"
	"time"

	"github.com/NERVsystems/osmdelta/pkg/merge"
	"github.com/NERVsystems/osmdelta/pkg/monitoring"
	"github.com/NERVsystems/osmdelta/pkg/overlay"
)

// Merge combines two changes to the same entity into a new change. Both must
// share identifier, kind and change type, and either both or neither must
// carry a before view. REMOVE changes carry no payload, so merging two of
// them returns the receiver.
//
// Field conflicts are reported as *merge.ConflictError wrapped with the
// entity key. Neither operand is modified.
func (c *FeatureChange) Merge(other *FeatureChange) (*FeatureChange, error) {
	start := time.Now()
	merged, err := c.merge(other)

	monitoring.RecordMerge(c.Kind().String(), c.changeType.String(), time.Since(start), err == nil)
	var ce *merge.ConflictError
	if errors.As(err, &ce) {
		monitoring.RecordConflict(ce.Field, string(ce.Kind))
	}
	return merged, err
}

func (c *FeatureChange) merge(other *FeatureChange) (*FeatureChange, error) {
	if other == nil {
		return nil, fmt.Errorf("%w: cannot merge %s with nil", ErrIncompatible, c.Key())
	}
	if c.Key() != other.Key() {
		return nil, fmt.Errorf("%w: %s and %s are different entities", ErrIncompatible, c.Key(), other.Key())
	}
	if c.changeType != other.changeType {
		return nil, fmt.Errorf("%w: %s is %s on one side and %s on the other",
			ErrIncompatible, c.Key(), c.changeType, other.changeType)
	}
	if (c.before == nil) != (other.before == nil) {
		return nil, fmt.Errorf("%w: %s has a before view on one side only", ErrIncompatible, c.Key())
	}

	if c.changeType == ChangeRemove {
		return c, nil
	}

	after, before, err := mergeOverlays(c, other)
	if err != nil {
		return nil, fmt.Errorf("merge %s: %w", c.Key(), err)
	}
	return New(ChangeAdd, after, before)
}

func mergeOverlays(left, right *FeatureChange) (overlay.Overlay, overlay.Overlay, error) {
	switch left.after.(type) {
	case overlay.Node:
		return mergeKind(left, right, nodeFields)
	case overlay.Edge:
		return mergeKind(left, right, edgeFields)
	case overlay.Area:
		return mergeKind(left, right, areaFields)
	case overlay.Line:
		return mergeKind(left, right, lineFields)
	case overlay.Point:
		return mergeKind(left, right, pointFields)
	case overlay.Relation:
		return mergeKind(left, right, relationFields)
	}
	return nil, nil, fmt.Errorf("unexpected overlay type %T", left.after)
}

// side is one operand with its overlays narrowed to the concrete kind
type side[O overlay.Overlay] struct {
	after     O
	before    O
	hasBefore bool
}

func sideOf[O overlay.Overlay](c *FeatureChange) (side[O], error) {
	var s side[O]
	after, ok := c.after.(O)
	if !ok {
		return s, fmt.Errorf("after view %T is not %T", c.after, s.after)
	}
	s.after = after
	if c.before != nil {
		before, ok := c.before.(O)
		if !ok {
			return s, fmt.Errorf("before view %T is not %T", c.before, s.before)
		}
		s.before, s.hasBefore = before, true
	}
	return s, nil
}

// assembly accumulates the merged overlays field by field. The first
// conflict stops it.
type assembly[O overlay.Overlay] struct {
	left, right side[O]
	after       O
	before      O
	err         error
}

func mergeKind[O overlay.Overlay](left, right *FeatureChange, fields func(*assembly[O])) (overlay.Overlay, overlay.Overlay, error) {
	l, err := sideOf[O](left)
	if err != nil {
		return nil, nil, err
	}
	r, err := sideOf[O](right)
	if err != nil {
		return nil, nil, err
	}

	asm := &assembly[O]{left: l, right: r}
	initial, err := overlay.New(l.after.Kind(), l.after.Identifier())
	if err != nil {
		return nil, nil, err
	}
	initial = overlay.ExtendBounds(initial, l.after.Bounds())
	asm.after = overlay.ExtendBounds(initial, r.after.Bounds()).(O)
	if l.hasBefore {
		shallow, err := overlay.ShallowCopy(l.before)
		if err != nil {
			return nil, nil, err
		}
		asm.before = shallow.(O)
	}

	fields(asm)
	if asm.err != nil {
		return nil, nil, asm.err
	}
	if !l.hasBefore {
		return asm.after, nil, nil
	}
	return asm.after, asm.before, nil
}

// apply merges one field of both sides with s and writes the merged values
// with set
func apply[O overlay.Overlay, T any](asm *assembly[O], get func(O) (T, bool), s merge.Strategy[T], set func(O, T) O) {
	if asm.err != nil {
		return
	}
	bl, br := merge.None[T](), merge.None[T]()
	if asm.left.hasBefore {
		bl = view(get, asm.left.before)
	}
	if asm.right.hasBefore {
		br = view(get, asm.right.before)
	}
	al := view(get, asm.left.after)
	ar := view(get, asm.right.after)

	res, err := s.Merge(bl, al, br, ar)
	if err != nil {
		asm.err = err
		return
	}
	if v, ok := res.After.Get(); ok {
		asm.after = set(asm.after, v)
	}
	if v, ok := res.Before.Get(); ok && asm.left.hasBefore {
		asm.before = set(asm.before, v)
	}
}

func view[O overlay.Overlay, T any](get func(O) (T, bool), o O) merge.Optional[T] {
	v, ok := get(o)
	return merge.From(v, ok)
}

var (
	parentRelations = merge.IDs(merge.FieldParentRelations)
	inEdges         = merge.IDs(merge.FieldInEdges)
	outEdges        = merge.IDs(merge.FieldOutEdges)
	sameOSMIDs      = merge.IDs(merge.FieldSameOSMRelations)
	members         = merge.Members(merge.FieldMembers)
	allKnownMembers = merge.Members(merge.FieldAllKnownMembers)
)

func nodeFields(asm *assembly[overlay.Node]) {
	apply(asm, overlay.Node.Tags, merge.Tags, overlay.Node.WithTags)
	apply(asm, overlay.Node.ParentRelations, parentRelations, overlay.Node.WithParentRelations)
	apply(asm, overlay.Node.Location, merge.Location, overlay.Node.WithLocation)
	apply(asm, overlay.Node.InEdges, inEdges, overlay.Node.WithInEdges)
	apply(asm, overlay.Node.OutEdges, outEdges, overlay.Node.WithOutEdges)
}

func edgeFields(asm *assembly[overlay.Edge]) {
	apply(asm, overlay.Edge.Tags, merge.Tags, overlay.Edge.WithTags)
	apply(asm, overlay.Edge.ParentRelations, parentRelations, overlay.Edge.WithParentRelations)
	apply(asm, overlay.Edge.PolyLine, merge.PolyLine, overlay.Edge.WithPolyLine)
	apply(asm, overlay.Edge.StartNode, merge.StartNode, overlay.Edge.WithStartNode)
	apply(asm, overlay.Edge.EndNode, merge.EndNode, overlay.Edge.WithEndNode)
}

func areaFields(asm *assembly[overlay.Area]) {
	apply(asm, overlay.Area.Tags, merge.Tags, overlay.Area.WithTags)
	apply(asm, overlay.Area.ParentRelations, parentRelations, overlay.Area.WithParentRelations)
	apply(asm, overlay.Area.Polygon, merge.Polygon, overlay.Area.WithPolygon)
}

func lineFields(asm *assembly[overlay.Line]) {
	apply(asm, overlay.Line.Tags, merge.Tags, overlay.Line.WithTags)
	apply(asm, overlay.Line.ParentRelations, parentRelations, overlay.Line.WithParentRelations)
	apply(asm, overlay.Line.PolyLine, merge.PolyLine, overlay.Line.WithPolyLine)
}

func pointFields(asm *assembly[overlay.Point]) {
	apply(asm, overlay.Point.Tags, merge.Tags, overlay.Point.WithTags)
	apply(asm, overlay.Point.ParentRelations, parentRelations, overlay.Point.WithParentRelations)
	apply(asm, overlay.Point.Location, merge.Location, overlay.Point.WithLocation)
}

func relationFields(asm *assembly[overlay.Relation]) {
	apply(asm, overlay.Relation.Tags, merge.Tags, overlay.Relation.WithTags)
	apply(asm, overlay.Relation.ParentRelations, parentRelations, overlay.Relation.WithParentRelations)
	apply(asm, overlay.Relation.Members, members, overlay.Relation.WithMembers)
	apply(asm, overlay.Relation.OSMRelationIdentifier, merge.OSMIdentifier, overlay.Relation.WithOSMRelationIdentifier)
	apply(asm, overlay.Relation.AllRelationsWithSameOSMIdentifier, sameOSMIDs, overlay.Relation.WithAllRelationsWithSameOSMIdentifier)
	apply(asm, overlay.Relation.AllKnownOSMMembers, allKnownMembers, overlay.Relation.WithAllKnownOSMMembers)
}
