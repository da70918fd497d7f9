package overlay

import (
	"strings"
	"testing"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

func box(minLat, minLon, maxLat, maxLon float64) geo.BoundingBox {
	return geo.BoundingBox{MinLat: minLat, MinLon: minLon, MaxLat: maxLat, MaxLon: maxLon}
}

func TestNewIsSuperShallow(t *testing.T) {
	for _, kind := range entity.Kinds {
		o, err := New(kind, 7)
		if err != nil {
			t.Fatalf("New(%s): %v", kind, err)
		}
		if o.Kind() != kind || o.Identifier() != 7 {
			t.Errorf("New(%s) produced %s:%d", kind, o.Kind(), o.Identifier())
		}
		if !o.IsSuperShallow() {
			t.Errorf("New(%s) should be super shallow: %s", kind, o)
		}
		if !o.Bounds().IsEmpty() {
			t.Errorf("New(%s) should have empty bounds", kind)
		}
	}

	if _, err := New(entity.ItemKind(42), 1); err == nil {
		t.Errorf("expected error for unknown kind")
	}
}

func TestSuperShallowPerField(t *testing.T) {
	tests := []struct {
		name string
		o    Overlay
	}{
		{"tags", NewNode(1).WithTags(map[string]string{})},
		{"parent relations", NewPoint(1).WithParentRelations(nil)},
		{"node in edges", NewNode(1).WithInEdges(entity.NewIDSet())},
		{"edge start", NewEdge(1).WithStartNode(4)},
		{"edge polyline", NewEdge(1).WithPolyLine(geo.PolyLine{{Latitude: 1, Longitude: 1}})},
		{"area polygon", NewArea(1).WithPolygon(geo.Polygon{})},
		{"line polyline", NewLine(1).WithPolyLine(nil)},
		{"point location", NewPoint(1).WithLocation(geo.Location{})},
		{"relation members", NewRelation(1).WithMembers(entity.NewRelationBean())},
		{"relation osm id", NewRelation(1).WithOSMRelationIdentifier(9)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.o.IsSuperShallow() {
				t.Errorf("%s should not be super shallow", tt.o)
			}
		})
	}

	if !NewArea(1).WithBoundsExtendedBy(box(0, 0, 1, 1)).IsSuperShallow() {
		t.Errorf("bounds alone must not count as a field")
	}
}

func TestAbsenceIsNotEmpty(t *testing.T) {
	absent := NewNode(1)
	empty := NewNode(1).WithTags(map[string]string{})

	if _, ok := absent.Tags(); ok {
		t.Errorf("tags should be absent")
	}
	tags, ok := empty.Tags()
	if !ok || len(tags) != 0 {
		t.Errorf("expected present empty tags, got %v, %v", tags, ok)
	}
	if absent.Equal(empty) || empty.Equal(absent) {
		t.Errorf("absent and empty tags must not be equal")
	}

	if NewEdge(1).WithParentRelations(nil).Equal(NewEdge(1)) {
		t.Errorf("absent and empty parent relations must not be equal")
	}
}

func TestWithDoesNotAlias(t *testing.T) {
	tags := map[string]string{"highway": "primary"}
	base := NewEdge(3).WithTags(tags)
	tags["highway"] = "secondary"

	if v, _ := base.Tag("highway"); v != "primary" {
		t.Errorf("overlay aliased caller map: %q", v)
	}

	got, _ := base.Tags()
	got["name"] = "High Street"
	if _, ok := base.Tag("name"); ok {
		t.Errorf("accessor returned an aliased map")
	}

	updated := base.WithTags(map[string]string{"highway": "tertiary"})
	if v, _ := base.Tag("highway"); v != "primary" {
		t.Errorf("With modified the receiver: %q", v)
	}
	if v, _ := updated.Tag("highway"); v != "tertiary" {
		t.Errorf("expected updated value, got %q", v)
	}

	ids := entity.NewIDSet(1)
	n := NewNode(1).WithOutEdges(ids)
	ids[2] = struct{}{}
	if out, _ := n.OutEdges(); out.Contains(2) {
		t.Errorf("overlay aliased caller set")
	}
}

func TestEqualIgnoresBounds(t *testing.T) {
	loc := geo.Location{Latitude: 52.5, Longitude: 13.4}
	a := NewPoint(5).WithLocation(loc)
	b := NewPoint(5).WithLocation(loc).WithBoundsExtendedBy(box(50, 10, 55, 15))

	if !a.Equal(b) {
		t.Errorf("bounds must not take part in equality")
	}
	if a.Equal(NewPoint(6).WithLocation(loc)) {
		t.Errorf("different identifiers must not be equal")
	}
	if a.Equal(NewNode(5).WithLocation(loc)) {
		t.Errorf("different kinds must not be equal")
	}
	if a.Equal(NewPoint(5).WithLocation(geo.Location{Latitude: 1})) {
		t.Errorf("different locations must not be equal")
	}
}

func TestEqualPerKind(t *testing.T) {
	pl := geo.PolyLine{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}
	bean := entity.NewRelationBean(entity.RelationMember{Identifier: 1, Kind: entity.KindEdge, Role: "outer"})

	tests := []struct {
		name  string
		a, b  Overlay
		equal bool
	}{
		{"edge same", NewEdge(1).WithPolyLine(pl).WithStartNode(1), NewEdge(1).WithPolyLine(pl.Clone()).WithStartNode(1), true},
		{"edge endpoint", NewEdge(1).WithEndNode(1), NewEdge(1).WithEndNode(2), false},
		{"edge endpoint absent", NewEdge(1).WithEndNode(0), NewEdge(1), false},
		{"line geometry", NewLine(1).WithPolyLine(pl), NewLine(1).WithPolyLine(pl[:1]), false},
		{"area same", NewArea(1).WithPolygon(geo.Polygon(pl)), NewArea(1).WithPolygon(geo.Polygon(pl)), true},
		{"node in edges", NewNode(1).WithInEdges(entity.NewIDSet(1, 2)), NewNode(1).WithInEdges(entity.NewIDSet(2, 1)), true},
		{"node in vs out", NewNode(1).WithInEdges(entity.NewIDSet(1)), NewNode(1).WithOutEdges(entity.NewIDSet(1)), false},
		{"relation members", NewRelation(1).WithMembers(bean), NewRelation(1).WithMembers(bean), true},
		{"relation members absent", NewRelation(1).WithMembers(entity.NewRelationBean()), NewRelation(1), false},
		{"relation osm id", NewRelation(1).WithOSMRelationIdentifier(3), NewRelation(1).WithOSMRelationIdentifier(4), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("%s.Equal(%s) = %v, want %v", tt.a, tt.b, got, tt.equal)
			}
			if got := tt.b.Equal(tt.a); got != tt.equal {
				t.Errorf("equality is not symmetric for %s and %s", tt.a, tt.b)
			}
		})
	}
}

func TestGeometryBoundsReplaceAndAccumulate(t *testing.T) {
	first := geo.PolyLine{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}
	second := geo.PolyLine{{Latitude: 5, Longitude: 5}, {Latitude: 6, Longitude: 6}}

	l := NewLine(1).WithPolyLine(first).WithPolyLine(second)

	if l.GeometryBounds() != second.Bounds() {
		t.Errorf("geometry bounds should be replaced, got %s", l.GeometryBounds())
	}
	if want := box(0, 0, 6, 6); l.Bounds() != want {
		t.Errorf("aggregate bounds should accumulate, got %s want %s", l.Bounds(), want)
	}
}

func TestBoundsMonotonic(t *testing.T) {
	loc := geo.Location{Latitude: 10, Longitude: 10}
	r1 := box(0, 0, 1, 1)
	r2 := box(20, 20, 21, 21)

	p := NewPoint(1).WithLocation(loc)
	original := p.Bounds()
	p = p.WithBoundsExtendedBy(r1).WithBoundsExtendedBy(r2)

	want := original.Union(r1).Union(r2)
	if p.Bounds() != want {
		t.Errorf("expected %s, got %s", want, p.Bounds())
	}
	if p.GeometryBounds() != loc.Bounds() {
		t.Errorf("extending bounds must not change geometry bounds")
	}

	shrunk := p.WithBoundsExtendedBy(box(10, 10, 10, 10))
	if !shrunk.Bounds().Contains(want) {
		t.Errorf("bounds shrank to %s", shrunk.Bounds())
	}
}

type fakeNode struct{}

func (fakeNode) Identifier() int64             { return 2 }
func (fakeNode) Kind() entity.ItemKind         { return entity.KindNode }
func (fakeNode) Tags() map[string]string       { return map[string]string{"barrier": "gate"} }
func (fakeNode) ParentRelations() entity.IDSet { return entity.NewIDSet() }
func (fakeNode) Bounds() geo.BoundingBox       { return box(1, 2, 1, 2) }
func (fakeNode) Location() geo.Location        { return geo.Location{Latitude: 1, Longitude: 2} }
func (fakeNode) InEdges() entity.IDSet         { return entity.NewIDSet(10) }
func (fakeNode) OutEdges() entity.IDSet        { return entity.NewIDSet(11) }

type notANode struct{ fakeNode }

func (notANode) Kind() entity.ItemKind { return entity.KindEdge }

func TestFullCopy(t *testing.T) {
	o, err := FullCopy(fakeNode{})
	if err != nil {
		t.Fatalf("FullCopy: %v", err)
	}
	n, ok := o.(Node)
	if !ok {
		t.Fatalf("expected Node, got %T", o)
	}
	if loc, ok := n.Location(); !ok || loc.Latitude != 1 {
		t.Errorf("location not copied: %v %v", loc, ok)
	}
	if in, ok := n.InEdges(); !ok || !in.Equal(entity.NewIDSet(10)) {
		t.Errorf("in edges not copied: %s", in)
	}
	if rel, ok := n.ParentRelations(); !ok || rel.Len() != 0 {
		t.Errorf("empty parent relations should be present: %v %v", rel, ok)
	}
	if n.Bounds() != box(1, 2, 1, 2) {
		t.Errorf("bounds not copied: %s", n.Bounds())
	}

	if _, err := FullCopy(notANode{}); err == nil {
		t.Errorf("expected error when entity does not implement its kind")
	}
}

func TestShallowCopy(t *testing.T) {
	full := NodeFrom(fakeNode{})
	o, err := ShallowCopy(full)
	if err != nil {
		t.Fatalf("ShallowCopy: %v", err)
	}
	if !o.IsSuperShallow() {
		t.Errorf("shallow copy should only hold identity: %s", o)
	}
	if o.Kind() != entity.KindNode || o.Identifier() != 2 {
		t.Errorf("identity not copied: %s", o)
	}
	if o.Bounds() != full.Bounds() {
		t.Errorf("bounds not copied: %s", o.Bounds())
	}
}

func TestString(t *testing.T) {
	s := NewEdge(4).
		WithTags(map[string]string{"b": "2", "a": "1"}).
		WithStartNode(1).
		String()
	if !strings.HasPrefix(s, "Edge[4 tags={a=1,b=2}") || !strings.Contains(s, "start=1") {
		t.Errorf("unexpected description %q", s)
	}
	if strings.Contains(s, "end=") {
		t.Errorf("absent fields should be omitted: %q", s)
	}
}

func TestRelationString(t *testing.T) {
	member := entity.RelationMember{Identifier: 5, Kind: entity.KindEdge, Role: "outer"}
	known := entity.RelationMember{Identifier: 6, Kind: entity.KindEdge, Role: "inner"}

	tests := []struct {
		name    string
		rel     Relation
		want    []string
		missing []string
	}{
		{
			name:    "members only",
			rel:     NewRelation(9).WithMembers(entity.NewRelationBean(member)),
			want:    []string{"members=[Edge:5[outer]]"},
			missing: []string{"allKnown="},
		},
		{
			name: "all known members",
			rel: NewRelation(9).
				WithMembers(entity.NewRelationBean(member)).
				WithAllKnownOSMMembers(entity.NewRelationBean(member, known)),
			want: []string{"members=[Edge:5[outer]]", "allKnown=[Edge:5[outer], Edge:6[inner]]"},
		},
		{
			name:    "absent beans",
			rel:     NewRelation(9).WithOSMRelationIdentifier(90),
			want:    []string{"osmId=90"},
			missing: []string{"members=", "allKnown="},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := tt.rel.String()
			for _, w := range tt.want {
				if !strings.Contains(s, w) {
					t.Errorf("%q does not contain %q", s, w)
				}
			}
			for _, m := range tt.missing {
				if strings.Contains(s, m) {
					t.Errorf("%q should not contain %q", s, m)
				}
			}
		})
	}
}
