package overlay

import (
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Relation is the overlay of a relation. Relations carry no geometry of their
// own; their bounds come from WithBoundsExtendedBy.
type Relation struct {
	common
	members  *entity.RelationBean
	osmID    *int64
	siblings entity.IDSet
	allKnown *entity.RelationBean
}

// NewRelation creates a relation overlay holding only its identifier
func NewRelation(id int64) Relation {
	return Relation{common: newCommon(id)}
}

// RelationFrom copies every field of a store relation
func RelationFrom(r entity.Relation) Relation {
	return NewRelation(r.Identifier()).
		WithTags(r.Tags()).
		WithParentRelations(r.ParentRelations()).
		WithMembers(r.Members()).
		WithOSMRelationIdentifier(r.OSMRelationIdentifier()).
		WithAllRelationsWithSameOSMIdentifier(r.AllRelationsWithSameOSMIdentifier()).
		WithAllKnownOSMMembers(r.AllKnownOSMMembers()).
		WithBoundsExtendedBy(r.Bounds())
}

func (Relation) Kind() entity.ItemKind { return entity.KindRelation }

func (r Relation) Members() (entity.RelationBean, bool) {
	if r.members == nil {
		return entity.RelationBean{}, false
	}
	return *r.members, true
}

func (r Relation) OSMRelationIdentifier() (int64, bool) {
	if r.osmID == nil {
		return 0, false
	}
	return *r.osmID, true
}

func (r Relation) AllRelationsWithSameOSMIdentifier() (entity.IDSet, bool) {
	return r.siblings.Clone(), r.siblings != nil
}

func (r Relation) AllKnownOSMMembers() (entity.RelationBean, bool) {
	if r.allKnown == nil {
		return entity.RelationBean{}, false
	}
	return *r.allKnown, true
}

func (r Relation) WithTags(tags map[string]string) Relation {
	r.common = r.withTags(tags)
	return r
}

func (r Relation) WithParentRelations(ids entity.IDSet) Relation {
	r.common = r.withRelations(ids)
	return r
}

func (r Relation) WithBoundsExtendedBy(box geo.BoundingBox) Relation {
	r.common = r.extendedBy(box)
	return r
}

func (r Relation) WithMembers(bean entity.RelationBean) Relation {
	r.members = &bean
	return r
}

func (r Relation) WithOSMRelationIdentifier(id int64) Relation {
	r.osmID = &id
	return r
}

func (r Relation) WithAllRelationsWithSameOSMIdentifier(ids entity.IDSet) Relation {
	r.siblings = presentSet(ids)
	return r
}

func (r Relation) WithAllKnownOSMMembers(bean entity.RelationBean) Relation {
	r.allKnown = &bean
	return r
}

func (r Relation) IsSuperShallow() bool {
	return r.shallow() && r.members == nil && r.osmID == nil &&
		r.siblings == nil && r.allKnown == nil
}

func (r Relation) Equal(other Overlay) bool {
	o, ok := other.(Relation)
	return ok && r.equal(o.common) &&
		equalBeans(r.members, o.members) &&
		equalPtr(r.osmID, o.osmID) &&
		equalSets(r.siblings, o.siblings) &&
		equalBeans(r.allKnown, o.allKnown)
}

func (r Relation) String() string {
	return r.describe(entity.KindRelation,
		describeBean("members", r.members),
		describePtr("osmId", r.osmID),
		describeSet("siblings", r.siblings),
		describeBean("allKnown", r.allKnown))
}

func (Relation) sealed() {}

func describeBean(name string, b *entity.RelationBean) string {
	if b == nil {
		return ""
	}
	return name + "=" + b.String()
}

func equalBeans(a, b *entity.RelationBean) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
