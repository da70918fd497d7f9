// Package geo provides the geometry value types carried by map graph entities.
//
// Geometry here is data only: locations, polylines, polygons and their bounding
// boxes. No spatial predicates are computed beyond bounds accumulation.
package geo

import (
	"fmt"
	"math"
	"strings"
)

// Location is a WGS84 coordinate in decimal degrees
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}

// String returns the location as "lat,lon"
func (l Location) String() string {
	return fmt.Sprintf("%.7f,%.7f", l.Latitude, l.Longitude)
}

// Valid reports whether the location is within WGS84 ranges
func (l Location) Valid() bool {
	return l.Latitude >= -90 && l.Latitude <= 90 &&
		l.Longitude >= -180 && l.Longitude <= 180
}

// Bounds returns the degenerate bounding box around the location
func (l Location) Bounds() BoundingBox {
	return BoundingBox{
		MinLat: l.Latitude,
		MinLon: l.Longitude,
		MaxLat: l.Latitude,
		MaxLon: l.Longitude,
	}
}

// BoundingBox is an axis-aligned rectangle in decimal degrees.
// The zero value from NewBoundingBox is empty and absorbs the first extension.
type BoundingBox struct {
	MinLat float64 `json:"minLat"`
	MinLon float64 `json:"minLon"`
	MaxLat float64 `json:"maxLat"`
	MaxLon float64 `json:"maxLon"`
}

// NewBoundingBox creates a new empty bounding box
func NewBoundingBox() *BoundingBox {
	return &BoundingBox{
		MinLat: math.Inf(1),
		MinLon: math.Inf(1),
		MaxLat: math.Inf(-1),
		MaxLon: math.Inf(-1),
	}
}

// IsEmpty reports whether the box has never been extended
func (b BoundingBox) IsEmpty() bool {
	return b.MinLat > b.MaxLat || b.MinLon > b.MaxLon
}

// ExtendWithPoint grows the box to include the given coordinate
func (b *BoundingBox) ExtendWithPoint(lat, lon float64) {
	b.MinLat = math.Min(b.MinLat, lat)
	b.MinLon = math.Min(b.MinLon, lon)
	b.MaxLat = math.Max(b.MaxLat, lat)
	b.MaxLon = math.Max(b.MaxLon, lon)
}

// Union returns the smallest box containing both b and other
func (b BoundingBox) Union(other BoundingBox) BoundingBox {
	if b.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return b
	}
	return BoundingBox{
		MinLat: math.Min(b.MinLat, other.MinLat),
		MinLon: math.Min(b.MinLon, other.MinLon),
		MaxLat: math.Max(b.MaxLat, other.MaxLat),
		MaxLon: math.Max(b.MaxLon, other.MaxLon),
	}
}

// Contains reports whether other lies fully inside b
func (b BoundingBox) Contains(other BoundingBox) bool {
	if other.IsEmpty() {
		return true
	}
	if b.IsEmpty() {
		return false
	}
	return b.MinLat <= other.MinLat && b.MinLon <= other.MinLon &&
		b.MaxLat >= other.MaxLat && b.MaxLon >= other.MaxLon
}

// String returns the box as "minLat,minLon:maxLat,maxLon"
func (b BoundingBox) String() string {
	if b.IsEmpty() {
		return "EMPTY"
	}
	return fmt.Sprintf("%.7f,%.7f:%.7f,%.7f", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}

// PolyLine is an ordered list of locations
type PolyLine []Location

// Bounds returns the bounding box of every vertex
func (p PolyLine) Bounds() BoundingBox {
	box := NewBoundingBox()
	for _, l := range p {
		box.ExtendWithPoint(l.Latitude, l.Longitude)
	}
	return *box
}

// Equal compares two polylines vertex by vertex
func (p PolyLine) Equal(other PolyLine) bool {
	if len(p) != len(other) {
		return false
	}
	for i := range p {
		if p[i] != other[i] {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the polyline
func (p PolyLine) Clone() PolyLine {
	if p == nil {
		return nil
	}
	out := make(PolyLine, len(p))
	copy(out, p)
	return out
}

// String returns the vertices separated by spaces
func (p PolyLine) String() string {
	parts := make([]string, len(p))
	for i, l := range p {
		parts[i] = l.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Polygon is a ring of locations. The closing vertex is implicit.
type Polygon []Location

// Bounds returns the bounding box of every vertex
func (p Polygon) Bounds() BoundingBox {
	return PolyLine(p).Bounds()
}

// Equal compares two polygons vertex by vertex
func (p Polygon) Equal(other Polygon) bool {
	return PolyLine(p).Equal(PolyLine(other))
}

// Clone returns an independent copy of the polygon
func (p Polygon) Clone() Polygon {
	return Polygon(PolyLine(p).Clone())
}

// String returns the ring vertices separated by spaces
func (p Polygon) String() string {
	return PolyLine(p).String()
}
