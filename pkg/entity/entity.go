// Package entity defines the typed map graph model shared by the base store,
// the overlays and the change records.
package entity

import (
	"fmt"
	"strings"

	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// ItemKind identifies one of the six graph item kinds
type ItemKind int

const (
	KindNode ItemKind = iota
	KindEdge
	KindArea
	KindLine
	KindPoint
	KindRelation
)

// Kinds lists every item kind in declaration order
var Kinds = []ItemKind{KindNode, KindEdge, KindArea, KindLine, KindPoint, KindRelation}

// String returns the kind name
func (k ItemKind) String() string {
	switch k {
	case KindNode:
		return "Node"
	case KindEdge:
		return "Edge"
	case KindArea:
		return "Area"
	case KindLine:
		return "Line"
	case KindPoint:
		return "Point"
	case KindRelation:
		return "Relation"
	default:
		return fmt.Sprintf("ItemKind(%d)", int(k))
	}
}

// Valid reports whether k is one of the six known kinds
func (k ItemKind) Valid() bool {
	return k >= KindNode && k <= KindRelation
}

// ParseItemKind parses a kind name, ignoring case
func ParseItemKind(s string) (ItemKind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(s, k.String()) {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown item kind: %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (k ItemKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("unknown item kind: %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *ItemKind) UnmarshalText(text []byte) error {
	parsed, err := ParseItemKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Key identifies an entity. Identifiers are scoped to their kind.
type Key struct {
	ID   int64
	Kind ItemKind
}

// String returns "Kind:id"
func (k Key) String() string {
	return fmt.Sprintf("%s:%d", k.Kind, k.ID)
}

// Less orders keys by kind, then identifier
func (k Key) Less(other Key) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.ID < other.ID
}

// Reference is anything that names an entity
type Reference interface {
	Identifier() int64
	Kind() ItemKind
}

// KeyOf returns the key of a reference
func KeyOf(r Reference) Key {
	return Key{ID: r.Identifier(), Kind: r.Kind()}
}

// Entity is a complete, store-backed graph item. Implementations are read-only.
type Entity interface {
	Reference
	Tags() map[string]string
	ParentRelations() IDSet
	Bounds() geo.BoundingBox
}

// Node is a graph vertex with its connected edges
type Node interface {
	Entity
	Location() geo.Location
	InEdges() IDSet
	OutEdges() IDSet
}

// Edge is a directed, navigable way section between two nodes
type Edge interface {
	Entity
	PolyLine() geo.PolyLine
	StartNode() int64
	EndNode() int64
}

// Area is a closed polygonal feature
type Area interface {
	Entity
	Polygon() geo.Polygon
}

// Line is a non-navigable linear feature
type Line interface {
	Entity
	PolyLine() geo.PolyLine
}

// Point is a standalone located feature
type Point interface {
	Entity
	Location() geo.Location
}

// Relation groups other entities under roles
type Relation interface {
	Entity
	Members() RelationBean
	OSMRelationIdentifier() int64
	AllRelationsWithSameOSMIdentifier() IDSet
	AllKnownOSMMembers() RelationBean
}
