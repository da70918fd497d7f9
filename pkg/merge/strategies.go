package merge

import (
	"maps"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Field names used in conflict reports
const (
	FieldTags             = "tags"
	FieldParentRelations  = "parentRelations"
	FieldLocation         = "location"
	FieldInEdges          = "inEdges"
	FieldOutEdges         = "outEdges"
	FieldPolyLine         = "polyLine"
	FieldPolygon          = "polygon"
	FieldStartNode        = "startNode"
	FieldEndNode          = "endNode"
	FieldMembers          = "members"
	FieldOSMIdentifier    = "osmRelationIdentifier"
	FieldSameOSMRelations = "allRelationsWithSameOSMIdentifier"
	FieldAllKnownMembers  = "allKnownOSMMembers"
)

// Tags merges tag maps with a three-way diff only
var Tags = Strategy[map[string]string]{
	Field:       FieldTags,
	Equal:       maps.Equal[map[string]string, map[string]string],
	Diff:        DiffTags,
	Differences: TagDifferences,
}

// IDs merges a derived identifier set: three-way diff when a before view is
// available, loose union otherwise
func IDs(field string) Strategy[entity.IDSet] {
	return Strategy[entity.IDSet]{
		Field:       field,
		Equal:       entity.IDSet.Equal,
		Simple:      UnionIDs,
		Diff:        DiffIDs,
		Differences: IDDifferences,
	}
}

// Unmergeable returns a strategy under which any two differing values
// conflict
func Unmergeable[T any](field string, equal func(a, b T) bool) Strategy[T] {
	return Strategy[T]{
		Field: field,
		Equal: equal,
		Simple: func(left, right T) (T, error) {
			var zero T
			return zero, &ConflictError{Kind: ConflictUnmergeable}
		},
	}
}

func equalComparable[T comparable](a, b T) bool { return a == b }

var (
	Location  = Unmergeable(FieldLocation, equalComparable[geo.Location])
	PolyLine  = Unmergeable(FieldPolyLine, geo.PolyLine.Equal)
	Polygon   = Unmergeable(FieldPolygon, geo.Polygon.Equal)
	StartNode = Unmergeable(FieldStartNode, equalComparable[int64])
	EndNode   = Unmergeable(FieldEndNode, equalComparable[int64])

	OSMIdentifier = Unmergeable(FieldOSMIdentifier, equalComparable[int64])
)

// Members merges relation member lists structurally. Exclusions recorded on
// either side win. Without a before view a member dropped from one list
// without an exclusion is restored by the other list; with one, members
// missing from a side's list count as excluded by that side.
func Members(field string) Strategy[entity.RelationBean] {
	return Strategy[entity.RelationBean]{
		Field: field,
		Equal: entity.RelationBean.Equal,
		Simple: func(left, right entity.RelationBean) (entity.RelationBean, error) {
			return left.Merge(right), nil
		},
		Diff: func(before, left, right entity.RelationBean) (entity.RelationBean, error) {
			return left.WithRemovalsSince(before).Merge(right.WithRemovalsSince(before)), nil
		},
	}
}
