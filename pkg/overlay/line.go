package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Line is the overlay of a non-navigable linear feature
type Line struct {
	common
	polyLine geo.PolyLine
}

// NewLine creates a line overlay holding only its identifier
func NewLine(id int64) Line {
	return Line{common: newCommon(id)}
}

// LineFrom copies every field of a store line
func LineFrom(l entity.Line) Line {
	return NewLine(l.Identifier()).
		WithTags(l.Tags()).
		WithParentRelations(l.ParentRelations()).
		WithPolyLine(l.PolyLine()).
		WithBoundsExtendedBy(l.Bounds())
}

func (Line) Kind() entity.ItemKind { return entity.KindLine }

func (l Line) PolyLine() (geo.PolyLine, bool) {
	return l.polyLine.Clone(), l.polyLine != nil
}

func (l Line) WithTags(tags map[string]string) Line {
	l.common = l.withTags(tags)
	return l
}

func (l Line) WithParentRelations(ids entity.IDSet) Line {
	l.common = l.withRelations(ids)
	return l
}

func (l Line) WithBoundsExtendedBy(box geo.BoundingBox) Line {
	l.common = l.extendedBy(box)
	return l
}

// WithPolyLine sets the geometry and replaces the geometry bounds
func (l Line) WithPolyLine(pl geo.PolyLine) Line {
	l.polyLine = presentPolyLine(pl)
	l.common = l.withGeometry(pl.Bounds())
	return l
}

func (l Line) IsSuperShallow() bool {
	return l.shallow() && l.polyLine == nil
}

func (l Line) Equal(other Overlay) bool {
	o, ok := other.(Line)
	return ok && l.equal(o.common) && equalPolyLines(l.polyLine, o.polyLine)
}

func (l Line) String() string {
	return l.describe(entity.KindLine, describePolyLine("polyline", l.polyLine))
}

func (Line) sealed() {}
