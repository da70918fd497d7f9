package store

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/NERVsystems/osmdelta/pkg/coords"
	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

// Snapshot is the raw content of a base graph. Derived links (parent
// relations, node in/out edges, same-OSM-id siblings) are computed by
// NewMemoryStore and are not part of the snapshot.
type Snapshot struct {
	Nodes     []NodeRecord     `yaml:"nodes" json:"nodes"`
	Edges     []EdgeRecord     `yaml:"edges" json:"edges"`
	Areas     []AreaRecord     `yaml:"areas" json:"areas"`
	Lines     []LineRecord     `yaml:"lines" json:"lines"`
	Points    []PointRecord    `yaml:"points" json:"points"`
	Relations []RelationRecord `yaml:"relations" json:"relations"`
}

type NodeRecord struct {
	ID       int64             `yaml:"id" json:"id"`
	Tags     map[string]string `yaml:"tags" json:"tags"`
	Location coords.Coordinate `yaml:"location" json:"location"`
}

type EdgeRecord struct {
	ID       int64               `yaml:"id" json:"id"`
	Tags     map[string]string   `yaml:"tags" json:"tags"`
	PolyLine []coords.Coordinate `yaml:"polyline" json:"polyline"`
	Start    int64               `yaml:"start" json:"start"`
	End      int64               `yaml:"end" json:"end"`
}

type AreaRecord struct {
	ID      int64               `yaml:"id" json:"id"`
	Tags    map[string]string   `yaml:"tags" json:"tags"`
	Polygon []coords.Coordinate `yaml:"polygon" json:"polygon"`
}

type LineRecord struct {
	ID       int64               `yaml:"id" json:"id"`
	Tags     map[string]string   `yaml:"tags" json:"tags"`
	PolyLine []coords.Coordinate `yaml:"polyline" json:"polyline"`
}

type PointRecord struct {
	ID       int64             `yaml:"id" json:"id"`
	Tags     map[string]string `yaml:"tags" json:"tags"`
	Location coords.Coordinate `yaml:"location" json:"location"`
}

// RelationRecord is a relation. OSMID defaults to ID when zero.
type RelationRecord struct {
	ID      int64                   `yaml:"id" json:"id"`
	Tags    map[string]string       `yaml:"tags" json:"tags"`
	OSMID   int64                   `yaml:"osmId" json:"osmId"`
	Members []entity.RelationMember `yaml:"members" json:"members"`
}

// MemoryStore is an immutable in-memory snapshot
type MemoryStore struct {
	entities map[entity.Key]entity.Entity
	bounds   geo.BoundingBox
}

// NewMemoryStore indexes a snapshot and derives its cross-entity links
func NewMemoryStore(snap Snapshot) (*MemoryStore, error) {
	s := &MemoryStore{
		entities: make(map[entity.Key]entity.Entity),
		bounds:   *geo.NewBoundingBox(),
	}

	nodes := make(map[int64]*node, len(snap.Nodes))
	for _, r := range snap.Nodes {
		loc := r.Location.Location
		n := &node{
			base:     newBase(r.ID, r.Tags, loc.Bounds()),
			location: loc,
			in:       entity.NewIDSet(),
			out:      entity.NewIDSet(),
		}
		if err := s.put(entity.KindNode, r.ID, n); err != nil {
			return nil, err
		}
		nodes[r.ID] = n
	}

	for _, r := range snap.Edges {
		if len(r.PolyLine) < 2 {
			return nil, fmt.Errorf("edge %d: polyline needs at least 2 locations, got %d", r.ID, len(r.PolyLine))
		}
		start, ok := nodes[r.Start]
		if !ok {
			return nil, fmt.Errorf("edge %d: start node %d: %w", r.ID, r.Start, ErrNotFound)
		}
		end, ok := nodes[r.End]
		if !ok {
			return nil, fmt.Errorf("edge %d: end node %d: %w", r.ID, r.End, ErrNotFound)
		}
		pl := geo.PolyLine(coords.Locations(r.PolyLine))
		e := &edge{
			base:     newBase(r.ID, r.Tags, pl.Bounds()),
			polyLine: pl,
			start:    r.Start,
			end:      r.End,
		}
		if err := s.put(entity.KindEdge, r.ID, e); err != nil {
			return nil, err
		}
		start.out[r.ID] = struct{}{}
		end.in[r.ID] = struct{}{}
	}

	for _, r := range snap.Areas {
		if len(r.Polygon) < 3 {
			return nil, fmt.Errorf("area %d: polygon needs at least 3 locations, got %d", r.ID, len(r.Polygon))
		}
		poly := geo.Polygon(coords.Locations(r.Polygon))
		if err := s.put(entity.KindArea, r.ID, &area{base: newBase(r.ID, r.Tags, poly.Bounds()), polygon: poly}); err != nil {
			return nil, err
		}
	}

	for _, r := range snap.Lines {
		if len(r.PolyLine) < 2 {
			return nil, fmt.Errorf("line %d: polyline needs at least 2 locations, got %d", r.ID, len(r.PolyLine))
		}
		pl := geo.PolyLine(coords.Locations(r.PolyLine))
		if err := s.put(entity.KindLine, r.ID, &line{base: newBase(r.ID, r.Tags, pl.Bounds()), polyLine: pl}); err != nil {
			return nil, err
		}
	}

	for _, r := range snap.Points {
		loc := r.Location.Location
		if err := s.put(entity.KindPoint, r.ID, &point{base: newBase(r.ID, r.Tags, loc.Bounds()), location: loc}); err != nil {
			return nil, err
		}
	}

	relations := make([]*relation, 0, len(snap.Relations))
	for _, r := range snap.Relations {
		osmID := r.OSMID
		if osmID == 0 {
			osmID = r.ID
		}
		rel := &relation{
			base:    newBase(r.ID, r.Tags, *geo.NewBoundingBox()),
			members: entity.NewRelationBean(r.Members...),
			osmID:   osmID,
		}
		if err := s.put(entity.KindRelation, r.ID, rel); err != nil {
			return nil, err
		}
		relations = append(relations, rel)
	}

	s.linkRelations(relations)

	for _, e := range s.entities {
		s.bounds = s.bounds.Union(e.Bounds())
	}
	return s, nil
}

func (s *MemoryStore) put(kind entity.ItemKind, id int64, e entity.Entity) error {
	key := entity.Key{ID: id, Kind: kind}
	if _, exists := s.entities[key]; exists {
		return fmt.Errorf("duplicate %s", key)
	}
	s.entities[key] = e
	return nil
}

// linkRelations fills parent relation sets, relation bounds and the
// same-OSM-id sibling data. Members missing from the snapshot are kept in the
// member list but contribute nothing else.
func (s *MemoryStore) linkRelations(relations []*relation) {
	byOSM := make(map[int64][]*relation)
	for _, rel := range relations {
		for _, m := range rel.members.Members() {
			if member, ok := s.entities[entity.Key{ID: m.Identifier, Kind: m.Kind}]; ok {
				member.(parented).addParent(rel.id)
			}
		}
		byOSM[rel.osmID] = append(byOSM[rel.osmID], rel)
	}

	for _, rel := range relations {
		rel.bounds = s.relationBounds(rel, map[int64]bool{})
	}

	for _, group := range byOSM {
		slices.SortFunc(group, func(a, b *relation) int { return cmp.Compare(a.id, b.id) })
		known := entity.NewRelationBean()
		for _, rel := range group {
			known = known.Merge(rel.members)
		}
		for _, rel := range group {
			rel.siblings = entity.NewIDSet()
			for _, other := range group {
				if other.id != rel.id {
					rel.siblings[other.id] = struct{}{}
				}
			}
			rel.allKnown = known
		}
	}
}

func (s *MemoryStore) relationBounds(rel *relation, visiting map[int64]bool) geo.BoundingBox {
	box := *geo.NewBoundingBox()
	if visiting[rel.id] {
		return box
	}
	visiting[rel.id] = true
	defer delete(visiting, rel.id)

	for _, m := range rel.members.Members() {
		member, ok := s.entities[entity.Key{ID: m.Identifier, Kind: m.Kind}]
		if !ok {
			continue
		}
		if child, isRelation := member.(*relation); isRelation {
			box = box.Union(s.relationBounds(child, visiting))
			continue
		}
		box = box.Union(member.Bounds())
	}
	return box
}

// Entity returns the entity for key or ErrNotFound
func (s *MemoryStore) Entity(key entity.Key) (entity.Entity, error) {
	e, ok := s.entities[key]
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	return e, nil
}

// Bounds returns the union of every entity's bounds
func (s *MemoryStore) Bounds() geo.BoundingBox {
	return s.bounds
}

// Len returns the number of entities
func (s *MemoryStore) Len() int {
	return len(s.entities)
}

// Keys returns every key ordered by kind, then identifier
func (s *MemoryStore) Keys() []entity.Key {
	keys := slices.Collect(maps.Keys(s.entities))
	slices.SortFunc(keys, func(a, b entity.Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})
	return keys
}
