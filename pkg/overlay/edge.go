package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Edge is the overlay of a navigable way section
type Edge struct {
	common
	polyLine   geo.PolyLine
	start, end *int64
}

// NewEdge creates an edge overlay holding only its identifier
func NewEdge(id int64) Edge {
	return Edge{common: newCommon(id)}
}

// EdgeFrom copies every field of a store edge
func EdgeFrom(e entity.Edge) Edge {
	return NewEdge(e.Identifier()).
		WithTags(e.Tags()).
		WithParentRelations(e.ParentRelations()).
		WithPolyLine(e.PolyLine()).
		WithStartNode(e.StartNode()).
		WithEndNode(e.EndNode()).
		WithBoundsExtendedBy(e.Bounds())
}

func (Edge) Kind() entity.ItemKind { return entity.KindEdge }

func (e Edge) PolyLine() (geo.PolyLine, bool) {
	return e.polyLine.Clone(), e.polyLine != nil
}

func (e Edge) StartNode() (int64, bool) {
	if e.start == nil {
		return 0, false
	}
	return *e.start, true
}

func (e Edge) EndNode() (int64, bool) {
	if e.end == nil {
		return 0, false
	}
	return *e.end, true
}

func (e Edge) WithTags(tags map[string]string) Edge {
	e.common = e.withTags(tags)
	return e
}

func (e Edge) WithParentRelations(ids entity.IDSet) Edge {
	e.common = e.withRelations(ids)
	return e
}

func (e Edge) WithBoundsExtendedBy(box geo.BoundingBox) Edge {
	e.common = e.extendedBy(box)
	return e
}

// WithPolyLine sets the geometry and replaces the geometry bounds
func (e Edge) WithPolyLine(pl geo.PolyLine) Edge {
	e.polyLine = presentPolyLine(pl)
	e.common = e.withGeometry(pl.Bounds())
	return e
}

func (e Edge) WithStartNode(id int64) Edge {
	e.start = &id
	return e
}

func (e Edge) WithEndNode(id int64) Edge {
	e.end = &id
	return e
}

func (e Edge) IsSuperShallow() bool {
	return e.shallow() && e.polyLine == nil && e.start == nil && e.end == nil
}

func (e Edge) Equal(other Overlay) bool {
	o, ok := other.(Edge)
	return ok && e.equal(o.common) &&
		equalPolyLines(e.polyLine, o.polyLine) &&
		equalPtr(e.start, o.start) &&
		equalPtr(e.end, o.end)
}

func (e Edge) String() string {
	return e.describe(entity.KindEdge,
		describePolyLine("polyline", e.polyLine),
		describePtr("start", e.start),
		describePtr("end", e.end))
}

func (Edge) sealed() {}

func presentPolyLine(pl geo.PolyLine) geo.PolyLine {
	if pl == nil {
		return geo.PolyLine{}
	}
	return pl.Clone()
}

func equalPolyLines(a, b geo.PolyLine) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a.Equal(b)
}

func describePolyLine(name string, pl geo.PolyLine) string {
	if pl == nil {
		return ""
	}
	return name + "=" + pl.String()
}
