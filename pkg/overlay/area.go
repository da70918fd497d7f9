package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Area is the overlay of a closed polygonal feature
type Area struct {
	common
	polygon geo.Polygon
}

// NewArea creates an area overlay holding only its identifier
func NewArea(id int64) Area {
	return Area{common: newCommon(id)}
}

// AreaFrom copies every field of a store area
func AreaFrom(a entity.Area) Area {
	return NewArea(a.Identifier()).
		WithTags(a.Tags()).
		WithParentRelations(a.ParentRelations()).
		WithPolygon(a.Polygon()).
		WithBoundsExtendedBy(a.Bounds())
}

func (Area) Kind() entity.ItemKind { return entity.KindArea }

func (a Area) Polygon() (geo.Polygon, bool) {
	return a.polygon.Clone(), a.polygon != nil
}

func (a Area) WithTags(tags map[string]string) Area {
	a.common = a.withTags(tags)
	return a
}

func (a Area) WithParentRelations(ids entity.IDSet) Area {
	a.common = a.withRelations(ids)
	return a
}

func (a Area) WithBoundsExtendedBy(box geo.BoundingBox) Area {
	a.common = a.extendedBy(box)
	return a
}

// WithPolygon sets the geometry and replaces the geometry bounds
func (a Area) WithPolygon(p geo.Polygon) Area {
	if p == nil {
		p = geo.Polygon{}
	}
	a.polygon = p.Clone()
	a.common = a.withGeometry(p.Bounds())
	return a
}

func (a Area) IsSuperShallow() bool {
	return a.shallow() && a.polygon == nil
}

func (a Area) Equal(other Overlay) bool {
	o, ok := other.(Area)
	if !ok || !a.equal(o.common) || (a.polygon == nil) != (o.polygon == nil) {
		return false
	}
	return a.polygon.Equal(o.polygon)
}

func (a Area) String() string {
	var polygon string
	if a.polygon != nil {
		polygon = "polygon=" + a.polygon.String()
	}
	return a.describe(entity.KindArea, polygon)
}

func (Area) sealed() {}
