package codec

import (
	"fmt"
	"slices"

	"github.com/NERVsystems/osmdelta/pkg/coords"
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
	"github.com/NERVsystems/osmdelta/pkg/overlay"
)

// OverlayRecord is the wire form of an overlay of any kind. Only the fields
// of the record's kind may be set.
type OverlayRecord struct {
	Tags            *map[string]string   `json:"tags,omitempty"`
	ParentRelations *[]int64             `json:"parentRelations,omitempty"`
	Location        *coords.Coordinate   `json:"location,omitempty"`
	InEdges         *[]int64             `json:"inEdges,omitempty"`
	OutEdges        *[]int64             `json:"outEdges,omitempty"`
	PolyLine        *[]coords.Coordinate `json:"polyline,omitempty"`
	Polygon         *[]coords.Coordinate `json:"polygon,omitempty"`
	StartNode       *int64               `json:"startNode,omitempty"`
	EndNode         *int64               `json:"endNode,omitempty"`
	Members         *BeanRecord          `json:"members,omitempty"`
	OSMRelationID   *int64               `json:"osmRelationId,omitempty"`
	SameOSMIDs      *[]int64             `json:"sameOsmRelations,omitempty"`
	AllKnownMembers *BeanRecord          `json:"allKnownMembers,omitempty"`
	Bounds          *geo.BoundingBox     `json:"bounds,omitempty"`
}

// BeanRecord is the wire form of a relation member bean
type BeanRecord struct {
	Members  []entity.RelationMember `json:"members"`
	Excluded []entity.RelationMember `json:"excluded,omitempty"`
}

var kindFields = map[entity.ItemKind][]string{
	entity.KindNode:     {"location", "inEdges", "outEdges"},
	entity.KindEdge:     {"polyline", "startNode", "endNode"},
	entity.KindArea:     {"polygon"},
	entity.KindLine:     {"polyline"},
	entity.KindPoint:    {"location"},
	entity.KindRelation: {"members", "osmRelationId", "sameOsmRelations", "allKnownMembers"},
}

func (r *OverlayRecord) kindSpecific() map[string]bool {
	return map[string]bool{
		"location":         r.Location != nil,
		"inEdges":          r.InEdges != nil,
		"outEdges":         r.OutEdges != nil,
		"polyline":         r.PolyLine != nil,
		"polygon":          r.Polygon != nil,
		"startNode":        r.StartNode != nil,
		"endNode":          r.EndNode != nil,
		"members":          r.Members != nil,
		"osmRelationId":    r.OSMRelationID != nil,
		"sameOsmRelations": r.SameOSMIDs != nil,
		"allKnownMembers":  r.AllKnownMembers != nil,
	}
}

func (r *OverlayRecord) check(kind entity.ItemKind) error {
	allowed := kindFields[kind]
	var bad []string
	for name, set := range r.kindSpecific() {
		if set && !slices.Contains(allowed, name) {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		slices.Sort(bad)
		return fmt.Errorf("fields %v do not apply to %s", bad, kind)
	}
	return nil
}

// DecodeOverlay builds the overlay described by r. A nil record yields the
// shallow overlay.
func DecodeOverlay(kind entity.ItemKind, id int64, r *OverlayRecord) (overlay.Overlay, error) {
	if r == nil {
		return overlay.New(kind, id)
	}
	if err := r.check(kind); err != nil {
		return nil, err
	}

	switch kind {
	case entity.KindNode:
		o := decodeCommon(overlay.NewNode(id), r)
		if r.Location != nil {
			o = o.WithLocation(r.Location.Location)
		}
		if r.InEdges != nil {
			o = o.WithInEdges(entity.NewIDSet(*r.InEdges...))
		}
		if r.OutEdges != nil {
			o = o.WithOutEdges(entity.NewIDSet(*r.OutEdges...))
		}
		return o, nil

	case entity.KindEdge:
		o := decodeCommon(overlay.NewEdge(id), r)
		if r.PolyLine != nil {
			o = o.WithPolyLine(coords.Locations(*r.PolyLine))
		}
		if r.StartNode != nil {
			o = o.WithStartNode(*r.StartNode)
		}
		if r.EndNode != nil {
			o = o.WithEndNode(*r.EndNode)
		}
		return o, nil

	case entity.KindArea:
		o := decodeCommon(overlay.NewArea(id), r)
		if r.Polygon != nil {
			o = o.WithPolygon(coords.Locations(*r.Polygon))
		}
		return o, nil

	case entity.KindLine:
		o := decodeCommon(overlay.NewLine(id), r)
		if r.PolyLine != nil {
			o = o.WithPolyLine(coords.Locations(*r.PolyLine))
		}
		return o, nil

	case entity.KindPoint:
		o := decodeCommon(overlay.NewPoint(id), r)
		if r.Location != nil {
			o = o.WithLocation(r.Location.Location)
		}
		return o, nil

	case entity.KindRelation:
		o := decodeCommon(overlay.NewRelation(id), r)
		if r.Members != nil {
			o = o.WithMembers(r.Members.bean())
		}
		if r.OSMRelationID != nil {
			o = o.WithOSMRelationIdentifier(*r.OSMRelationID)
		}
		if r.SameOSMIDs != nil {
			o = o.WithAllRelationsWithSameOSMIdentifier(entity.NewIDSet(*r.SameOSMIDs...))
		}
		if r.AllKnownMembers != nil {
			o = o.WithAllKnownOSMMembers(r.AllKnownMembers.bean())
		}
		return o, nil
	}
	return nil, fmt.Errorf("unknown item kind %d", int(kind))
}

func decodeCommon[O overlay.Common[O]](o O, r *OverlayRecord) O {
	if r.Tags != nil {
		o = o.WithTags(*r.Tags)
	}
	if r.ParentRelations != nil {
		o = o.WithParentRelations(entity.NewIDSet(*r.ParentRelations...))
	}
	if r.Bounds != nil {
		o = o.WithBoundsExtendedBy(*r.Bounds)
	}
	return o
}

func (b *BeanRecord) bean() entity.RelationBean {
	return entity.NewRelationBeanWithExclusions(b.Members, b.Excluded)
}

func encodeBean(bean entity.RelationBean) *BeanRecord {
	members := bean.Members()
	if members == nil {
		members = []entity.RelationMember{}
	}
	return &BeanRecord{Members: members, Excluded: bean.ExplicitlyExcluded()}
}

// EncodeOverlay converts an overlay to its wire form
func EncodeOverlay(o overlay.Overlay) *OverlayRecord {
	r := &OverlayRecord{}
	if tags, ok := o.Tags(); ok {
		r.Tags = &tags
	}
	if ids, ok := o.ParentRelations(); ok {
		r.ParentRelations = sortedIDs(ids)
	}
	if b := o.Bounds(); !b.IsEmpty() {
		r.Bounds = &b
	}

	switch v := o.(type) {
	case overlay.Node:
		if loc, ok := v.Location(); ok {
			c := coords.Of(loc)
			r.Location = &c
		}
		if ids, ok := v.InEdges(); ok {
			r.InEdges = sortedIDs(ids)
		}
		if ids, ok := v.OutEdges(); ok {
			r.OutEdges = sortedIDs(ids)
		}
	case overlay.Edge:
		if pl, ok := v.PolyLine(); ok {
			r.PolyLine = coordinates(pl)
		}
		if id, ok := v.StartNode(); ok {
			r.StartNode = &id
		}
		if id, ok := v.EndNode(); ok {
			r.EndNode = &id
		}
	case overlay.Area:
		if p, ok := v.Polygon(); ok {
			r.Polygon = coordinates(p)
		}
	case overlay.Line:
		if pl, ok := v.PolyLine(); ok {
			r.PolyLine = coordinates(pl)
		}
	case overlay.Point:
		if loc, ok := v.Location(); ok {
			c := coords.Of(loc)
			r.Location = &c
		}
	case overlay.Relation:
		if bean, ok := v.Members(); ok {
			r.Members = encodeBean(bean)
		}
		if id, ok := v.OSMRelationIdentifier(); ok {
			r.OSMRelationID = &id
		}
		if ids, ok := v.AllRelationsWithSameOSMIdentifier(); ok {
			r.SameOSMIDs = sortedIDs(ids)
		}
		if bean, ok := v.AllKnownOSMMembers(); ok {
			r.AllKnownMembers = encodeBean(bean)
		}
	}
	return r
}

func sortedIDs(ids entity.IDSet) *[]int64 {
	sorted := ids.Sorted()
	return &sorted
}

func coordinates(locs []geo.Location) *[]coords.Coordinate {
	out := coords.Coordinates(locs)
	if out == nil {
		out = []coords.Coordinate{}
	}
	return &out
}
