package merge

import (
	"errors"
	"maps"
	"slices"
	"testing"

	"github.com/NERVsystems/osmdelta/pkg/entity"
	"github.com/NERVsystems/osmdelta/pkg/geo"
)

type tags = map[string]string

func TestDiffTags(t *testing.T) {
	tests := []struct {
		name              string
		before, left, rgt tags
		want              tags
		kind              ConflictKind
		keys              []string
	}{
		{
			name:   "independent edits",
			before: tags{"a": "1", "b": "2"},
			left:   tags{"a": "1", "c": "3"},
			rgt:    tags{"a": "1", "b": "2", "d": "4"},
			want:   tags{"a": "1", "c": "3", "d": "4"},
		},
		{
			name:   "same addition on both sides",
			before: tags{"a": "1"},
			left:   tags{"a": "1", "b": "2"},
			rgt:    tags{"a": "1", "b": "2"},
			want:   tags{"a": "1", "b": "2"},
		},
		{
			name:   "same removal on both sides",
			before: tags{"a": "1", "b": "2"},
			left:   tags{"a": "1"},
			rgt:    tags{"a": "1"},
			want:   tags{"a": "1"},
		},
		{
			name:   "modification on one side",
			before: tags{"a": "1", "b": "2"},
			left:   tags{"a": "5", "b": "2"},
			rgt:    tags{"a": "1", "b": "2", "c": "3"},
			want:   tags{"a": "5", "b": "2", "c": "3"},
		},
		{
			name:   "remove against modify",
			before: tags{"a": "1"},
			left:   tags{},
			rgt:    tags{"a": "9"},
			kind:   ConflictAddRemove,
			keys:   []string{"a"},
		},
		{
			name:   "remove against re-add",
			before: tags{"a": "1", "b": "2"},
			left:   tags{"b": "2"},
			rgt:    tags{"a": "7", "b": "2"},
			kind:   ConflictAddRemove,
			keys:   []string{"a"},
		},
		{
			name:   "add with different values",
			before: tags{},
			left:   tags{"x": "1", "y": "1"},
			rgt:    tags{"x": "2", "y": "1"},
			kind:   ConflictAddAdd,
			keys:   []string{"x"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DiffTags(tt.before, tt.left, tt.rgt)
			if tt.kind != "" {
				var ce *ConflictError
				if !errors.As(err, &ce) {
					t.Fatalf("expected conflict %s, got %v", tt.kind, err)
				}
				if ce.Kind != tt.kind || !slices.Equal(ce.Keys, tt.keys) {
					t.Errorf("expected %s on %v, got %s on %v", tt.kind, tt.keys, ce.Kind, ce.Keys)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !maps.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestDiffTagsCommutative(t *testing.T) {
	before := tags{"a": "1", "b": "2"}
	left := tags{"a": "1", "c": "3"}
	right := tags{"a": "1", "b": "2", "d": "4"}

	lr, err := DiffTags(before, left, right)
	if err != nil {
		t.Fatal(err)
	}
	rl, err := DiffTags(before, right, left)
	if err != nil {
		t.Fatal(err)
	}
	if !maps.Equal(lr, rl) {
		t.Errorf("merge is order dependent: %v vs %v", lr, rl)
	}
}

func TestDiffIDs(t *testing.T) {
	ids := entity.NewIDSet

	got, err := DiffIDs(ids(1, 2, 3), ids(1, 2, 4), ids(2, 3, 5))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := ids(2, 4, 5); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}

	// Removed on one side, kept on the other
	got, err = DiffIDs(ids(1), ids(), ids(1, 2))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := ids(2); !got.Equal(want) {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestUnionIDs(t *testing.T) {
	got, err := UnionIDs(entity.NewIDSet(1, 2), entity.NewIDSet(2, 3))
	if err != nil {
		t.Fatalf("union never fails: %v", err)
	}
	if !got.Equal(entity.NewIDSet(1, 2, 3)) {
		t.Errorf("expected [1 2 3], got %s", got)
	}
}

func TestStrategyMergeBeforeViews(t *testing.T) {
	s := IDs(FieldParentRelations)
	one := Some(entity.NewIDSet(1))
	two := Some(entity.NewIDSet(2))
	none := None[entity.IDSet]()

	res, err := s.Merge(one, none, none, none)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, ok := res.Before.Get(); !ok || !b.Equal(entity.NewIDSet(1)) {
		t.Errorf("expected left before view, got %v", b)
	}
	if res.After.Present() {
		t.Errorf("after should stay absent")
	}

	res, err = s.Merge(none, none, two, none)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if b, _ := res.Before.Get(); !b.Equal(entity.NewIDSet(2)) {
		t.Errorf("expected right before view, got %s", b)
	}

	_, err = s.Merge(one, none, two, none)
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Kind != ConflictBeforeDiverged {
		t.Fatalf("expected diverged before views, got %v", err)
	}
	if ce.Field != FieldParentRelations {
		t.Errorf("expected field %q, got %q", FieldParentRelations, ce.Field)
	}
	left, lok := ce.Left.(entity.IDSet)
	right, rok := ce.Right.(entity.IDSet)
	if !lok || !rok || !left.Equal(entity.NewIDSet(1)) || !right.Equal(entity.NewIDSet(2)) {
		t.Errorf("expected the diverging before views as left and right, got %v and %v", ce.Left, ce.Right)
	}
	if ce.Before != nil {
		t.Errorf("diverged before views have no common value, got %v", ce.Before)
	}
}

func TestStrategyMergeAfterViews(t *testing.T) {
	s := IDs(FieldInEdges)
	none := None[entity.IDSet]()
	set := func(ids ...int64) Optional[entity.IDSet] { return Some(entity.NewIDSet(ids...)) }

	tests := []struct {
		name           string
		bl, al, br, ar Optional[entity.IDSet]
		want           Optional[entity.IDSet]
	}{
		{"both absent", none, none, none, none, none},
		{"left only", none, set(1), none, none, set(1)},
		{"right only", none, none, none, set(2), set(2)},
		{"equal", none, set(1, 2), none, set(2, 1), set(1, 2)},
		{"loose union", none, set(1, 2), none, set(2, 3), set(1, 2, 3)},
		{"three way", set(1, 2), set(1), set(1, 2), set(1, 2, 3), set(1, 3)},
		{"one before view falls back to union", set(1, 2), set(1), none, set(2, 3), set(1, 2, 3)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Merge(tt.bl, tt.al, tt.br, tt.ar)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, ok := res.After.Get()
			want, wantOK := tt.want.Get()
			if ok != wantOK || !got.Equal(want) {
				t.Errorf("expected %s (%v), got %s (%v)", want, wantOK, got, ok)
			}
		})
	}
}

func TestStrategyNoMergeStrategy(t *testing.T) {
	_, err := Tags.Merge(
		None[tags](), Some(tags{"name": "A", "same": "x"}),
		None[tags](), Some(tags{"name": "B", "same": "x"}),
	)
	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ce.Kind != ConflictNoStrategy || ce.Field != FieldTags {
		t.Errorf("unexpected conflict %s on %s", ce.Kind, ce.Field)
	}
	if !slices.Equal(ce.Keys, []string{"name"}) {
		t.Errorf("expected offending key name, got %v", ce.Keys)
	}
	if left, ok := ce.Left.(tags); !ok || left["name"] != "A" {
		t.Errorf("expected the left after view, got %v", ce.Left)
	}
	if right, ok := ce.Right.(tags); !ok || right["name"] != "B" {
		t.Errorf("expected the right after view, got %v", ce.Right)
	}
	if ce.Before != nil {
		t.Errorf("expected no before value, got %v", ce.Before)
	}
}

func TestStrategyDiffConflictNamesField(t *testing.T) {
	before := Some(tags{"a": "1"})
	_, err := Tags.Merge(before, Some(tags{}), before, Some(tags{"a": "9"}))

	var ce *ConflictError
	if !errors.As(err, &ce) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ce.Kind != ConflictAddRemove || ce.Field != FieldTags {
		t.Errorf("unexpected conflict %s on %s", ce.Kind, ce.Field)
	}
	if ce.Before == nil || ce.Left == nil || ce.Right == nil {
		t.Errorf("competing values should be attached: %v", ce)
	}
}

func TestUnmergeable(t *testing.T) {
	a := geo.PolyLine{{Latitude: 0, Longitude: 0}, {Latitude: 1, Longitude: 1}}
	b := geo.PolyLine{{Latitude: 0, Longitude: 0}, {Latitude: 2, Longitude: 2}}

	res, err := PolyLine.Merge(None[geo.PolyLine](), Some(a), None[geo.PolyLine](), Some(a.Clone()))
	if err != nil {
		t.Fatalf("equal geometry should merge: %v", err)
	}
	if got, _ := res.After.Get(); !got.Equal(a) {
		t.Errorf("expected %s, got %s", a, got)
	}

	// Even with a before view, differing geometry never merges
	_, err = PolyLine.Merge(Some(a), Some(a), Some(a), Some(b))
	var ce *ConflictError
	if !errors.As(err, &ce) || ce.Kind != ConflictUnmergeable || ce.Field != FieldPolyLine {
		t.Fatalf("expected unmergeable polyline, got %v", err)
	}

	_, err = StartNode.Merge(None[int64](), Some(int64(1)), None[int64](), Some(int64(2)))
	if !errors.As(err, &ce) || ce.Field != FieldStartNode {
		t.Fatalf("expected unmergeable start node, got %v", err)
	}
}

func TestMembers(t *testing.T) {
	m := func(id int64, role string) entity.RelationMember {
		return entity.RelationMember{Identifier: id, Kind: entity.KindEdge, Role: role}
	}
	left := entity.NewRelationBean(m(1, "outer"), m(2, "outer"))
	right := entity.NewRelationBeanWithExclusions([]entity.RelationMember{m(1, "outer"), m(3, "inner")}, []entity.RelationMember{m(2, "outer")})

	s := Members(FieldMembers)
	res, err := s.Merge(None[entity.RelationBean](), Some(left), None[entity.RelationBean](), Some(right))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, _ := res.After.Get()
	want := []entity.RelationMember{m(1, "outer"), m(3, "inner")}
	if !slices.Equal(got.Members(), want) {
		t.Errorf("expected %v, got %v", want, got.Members())
	}
	if !got.IsExplicitlyExcluded(m(2, "outer")) {
		t.Errorf("exclusion should survive the merge")
	}
}

func TestMembersWithBeforeView(t *testing.T) {
	edge := entity.RelationMember{Identifier: 5, Kind: entity.KindEdge}
	node := entity.RelationMember{Identifier: 1, Kind: entity.KindNode}
	before := entity.NewRelationBean(edge)

	tests := []struct {
		name        string
		left, right entity.RelationBean
		want        []entity.RelationMember
	}{
		{"removal beats stale list", entity.NewRelationBean(), entity.NewRelationBean(edge, node), []entity.RelationMember{node}},
		{"removal on the right", entity.NewRelationBean(edge, node), entity.NewRelationBean(), []entity.RelationMember{node}},
		{"additions on both sides", entity.NewRelationBean(edge, node), entity.NewRelationBean(edge), []entity.RelationMember{edge, node}},
	}

	s := Members(FieldMembers)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := s.Merge(Some(before), Some(tt.left), Some(before), Some(tt.right))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got, _ := res.After.Get()
			if !slices.Equal(got.Members(), tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got.Members())
			}
		})
	}
}

func TestConflictErrorUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := error(&ConflictError{Kind: ConflictUnmergeable, Field: "x", Err: cause})
	if !errors.Is(err, cause) {
		t.Errorf("cause should be reachable")
	}
	if got := err.Error(); got != "x: UNMERGEABLE_FIELD: boom" {
		t.Errorf("unexpected message %q", got)
	}
}
