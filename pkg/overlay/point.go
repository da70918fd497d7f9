package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Point is the overlay of a standalone located feature
type Point struct {
	common
	location *geo.Location
}

// NewPoint creates a point overlay holding only its identifier
func NewPoint(id int64) Point {
	return Point{common: newCommon(id)}
}

// PointFrom copies every field of a store point
func PointFrom(p entity.Point) Point {
	return NewPoint(p.Identifier()).
		WithTags(p.Tags()).
		WithParentRelations(p.ParentRelations()).
		WithLocation(p.Location()).
		WithBoundsExtendedBy(p.Bounds())
}

func (Point) Kind() entity.ItemKind { return entity.KindPoint }

func (p Point) Location() (geo.Location, bool) {
	if p.location == nil {
		return geo.Location{}, false
	}
	return *p.location, true
}

func (p Point) WithTags(tags map[string]string) Point {
	p.common = p.withTags(tags)
	return p
}

func (p Point) WithParentRelations(ids entity.IDSet) Point {
	p.common = p.withRelations(ids)
	return p
}

func (p Point) WithBoundsExtendedBy(box geo.BoundingBox) Point {
	p.common = p.extendedBy(box)
	return p
}

// WithLocation sets the location and replaces the geometry bounds
func (p Point) WithLocation(loc geo.Location) Point {
	p.location = &loc
	p.common = p.withGeometry(loc.Bounds())
	return p
}

func (p Point) IsSuperShallow() bool {
	return p.shallow() && p.location == nil
}

func (p Point) Equal(other Overlay) bool {
	o, ok := other.(Point)
	return ok && p.equal(o.common) && equalPtr(p.location, o.location)
}

func (p Point) String() string {
	return p.describe(entity.KindPoint, describePtr("location", p.location))
}

func (Point) sealed() {}
