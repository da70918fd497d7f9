package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Node is the overlay of a graph vertex
type Node struct {
	common
	location *geo.Location
	in, out  entity.IDSet
}

// NewNode creates a node overlay holding only its identifier
func NewNode(id int64) Node {
	return Node{common: newCommon(id)}
}

// NodeFrom copies every field of a store node
func NodeFrom(n entity.Node) Node {
	return NewNode(n.Identifier()).
		WithTags(n.Tags()).
		WithParentRelations(n.ParentRelations()).
		WithLocation(n.Location()).
		WithInEdges(n.InEdges()).
		WithOutEdges(n.OutEdges()).
		WithBoundsExtendedBy(n.Bounds())
}

func (Node) Kind() entity.ItemKind { return entity.KindNode }

func (n Node) Location() (geo.Location, bool) {
	if n.location == nil {
		return geo.Location{}, false
	}
	return *n.location, true
}

func (n Node) InEdges() (entity.IDSet, bool) {
	return n.in.Clone(), n.in != nil
}

func (n Node) OutEdges() (entity.IDSet, bool) {
	return n.out.Clone(), n.out != nil
}

func (n Node) WithTags(tags map[string]string) Node {
	n.common = n.withTags(tags)
	return n
}

func (n Node) WithParentRelations(ids entity.IDSet) Node {
	n.common = n.withRelations(ids)
	return n
}

func (n Node) WithBoundsExtendedBy(box geo.BoundingBox) Node {
	n.common = n.extendedBy(box)
	return n
}

// WithLocation sets the location and replaces the geometry bounds
func (n Node) WithLocation(loc geo.Location) Node {
	n.location = &loc
	n.common = n.withGeometry(loc.Bounds())
	return n
}

func (n Node) WithInEdges(ids entity.IDSet) Node {
	n.in = presentSet(ids)
	return n
}

func (n Node) WithOutEdges(ids entity.IDSet) Node {
	n.out = presentSet(ids)
	return n
}

func (n Node) IsSuperShallow() bool {
	return n.shallow() && n.location == nil && n.in == nil && n.out == nil
}

func (n Node) Equal(other Overlay) bool {
	o, ok := other.(Node)
	return ok && n.equal(o.common) &&
		equalPtr(n.location, o.location) &&
		equalSets(n.in, o.in) &&
		equalSets(n.out, o.out)
}

func (n Node) String() string {
	return n.describe(entity.KindNode,
		describePtr("location", n.location),
		describeSet("in", n.in),
		describeSet("out", n.out))
}

func (Node) sealed() {}
