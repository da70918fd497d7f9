package store

import (
	"maps"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// parented is implemented by every snapshot entity; it is only called while
// the snapshot is being built.
type parented interface {
	addParent(id int64)
}

type base struct {
	id        int64
	tags      map[string]string
	relations entity.IDSet
	bounds    geo.BoundingBox
}

func newBase(id int64, tags map[string]string, bounds geo.BoundingBox) base {
	if tags == nil {
		tags = map[string]string{}
	}
	return base{
		id:        id,
		tags:      maps.Clone(tags),
		relations: entity.NewIDSet(),
		bounds:    bounds,
	}
}

func (b *base) addParent(id int64) { b.relations[id] = struct{}{} }

func (b *base) Identifier() int64             { return b.id }
func (b *base) Tags() map[string]string       { return maps.Clone(b.tags) }
func (b *base) ParentRelations() entity.IDSet { return b.relations.Clone() }
func (b *base) Bounds() geo.BoundingBox       { return b.bounds }

type node struct {
	base
	location geo.Location
	in, out  entity.IDSet
}

func (n *node) Kind() entity.ItemKind  { return entity.KindNode }
func (n *node) Location() geo.Location { return n.location }
func (n *node) InEdges() entity.IDSet  { return n.in.Clone() }
func (n *node) OutEdges() entity.IDSet { return n.out.Clone() }

type edge struct {
	base
	polyLine   geo.PolyLine
	start, end int64
}

func (e *edge) Kind() entity.ItemKind  { return entity.KindEdge }
func (e *edge) PolyLine() geo.PolyLine { return e.polyLine.Clone() }
func (e *edge) StartNode() int64       { return e.start }
func (e *edge) EndNode() int64         { return e.end }

type area struct {
	base
	polygon geo.Polygon
}

func (a *area) Kind() entity.ItemKind { return entity.KindArea }
func (a *area) Polygon() geo.Polygon  { return a.polygon.Clone() }

type line struct {
	base
	polyLine geo.PolyLine
}

func (l *line) Kind() entity.ItemKind  { return entity.KindLine }
func (l *line) PolyLine() geo.PolyLine { return l.polyLine.Clone() }

type point struct {
	base
	location geo.Location
}

func (p *point) Kind() entity.ItemKind  { return entity.KindPoint }
func (p *point) Location() geo.Location { return p.location }

type relation struct {
	base
	members  entity.RelationBean
	osmID    int64
	siblings entity.IDSet
	allKnown entity.RelationBean
}

func (r *relation) Kind() entity.ItemKind                           { return entity.KindRelation }
func (r *relation) Members() entity.RelationBean                    { return r.members }
func (r *relation) OSMRelationIdentifier() int64                    { return r.osmID }
func (r *relation) AllRelationsWithSameOSMIdentifier() entity.IDSet { return r.siblings.Clone() }
func (r *relation) AllKnownOSMMembers() entity.RelationBean         { return r.allKnown }

var (
	_ entity.Node     = (*node)(nil)
	_ entity.Edge     = (*edge)(nil)
	_ entity.Area     = (*area)(nil)
	_ entity.Line     = (*line)(nil)
	_ entity.Point    = (*point)(nil)
	_ entity.Relation = (*relation)(nil)
)
