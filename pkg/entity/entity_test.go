package entity

import (
	"encoding/json"
	"slices"
	"testing"
)

func TestParseItemKind(t *testing.T) {
	tests := []struct {
		input   string
		want    ItemKind
		wantErr bool
	}{
		{"Node", KindNode, false},
		{"edge", KindEdge, false},
		{"AREA", KindArea, false},
		{"Line", KindLine, false},
		{"point", KindPoint, false},
		{"Relation", KindRelation, false},
		{"way", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseItemKind(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseItemKind(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseItemKind(%q) unexpected error: %v", tt.input, err)
			}
			if got != tt.want {
				t.Errorf("ParseItemKind(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestItemKindJSON(t *testing.T) {
	data, err := json.Marshal(RelationMember{Identifier: 7, Kind: KindEdge, Role: "outer"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"id":7,"kind":"Edge","role":"outer"}` {
		t.Errorf("unexpected JSON: %s", data)
	}

	var m RelationMember
	if err := json.Unmarshal([]byte(`{"id":3,"kind":"relation","role":""}`), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Kind != KindRelation || m.Identifier != 3 {
		t.Errorf("unexpected member: %+v", m)
	}
}

func TestKeyLess(t *testing.T) {
	keys := []Key{
		{ID: 5, Kind: KindEdge},
		{ID: 9, Kind: KindNode},
		{ID: 1, Kind: KindEdge},
	}
	slices.SortFunc(keys, func(a, b Key) int {
		if a.Less(b) {
			return -1
		}
		if b.Less(a) {
			return 1
		}
		return 0
	})

	want := []Key{{ID: 9, Kind: KindNode}, {ID: 1, Kind: KindEdge}, {ID: 5, Kind: KindEdge}}
	if !slices.Equal(keys, want) {
		t.Errorf("sorted keys = %v, want %v", keys, want)
	}
}

func TestIDSetOperations(t *testing.T) {
	a := NewIDSet(1, 2, 3)
	b := NewIDSet(3, 4)

	if got := a.Union(b).Sorted(); !slices.Equal(got, []int64{1, 2, 3, 4}) {
		t.Errorf("Union = %v", got)
	}
	if got := a.Minus(b).Sorted(); !slices.Equal(got, []int64{1, 2}) {
		t.Errorf("Minus = %v", got)
	}
	if got := a.Intersect(b).Sorted(); !slices.Equal(got, []int64{3}) {
		t.Errorf("Intersect = %v", got)
	}
	if !a.Equal(NewIDSet(3, 2, 1)) {
		t.Error("expected equal sets")
	}
	if a.Equal(b) {
		t.Error("expected unequal sets")
	}
	if a.String() != "[1 2 3]" {
		t.Errorf("String = %s", a.String())
	}

	// operations never touch their operands
	if a.Len() != 3 || b.Len() != 2 {
		t.Errorf("operands modified: %v %v", a, b)
	}
}

func TestIDSetClonePreservesNil(t *testing.T) {
	var s IDSet
	if s.Clone() != nil {
		t.Error("clone of nil set should be nil")
	}
	if NewIDSet() == nil {
		t.Error("NewIDSet should never return nil")
	}
}

func TestRelationBeanMerge(t *testing.T) {
	m1 := RelationMember{Identifier: 1, Kind: KindEdge, Role: "outer"}
	m2 := RelationMember{Identifier: 2, Kind: KindEdge, Role: "outer"}
	m3 := RelationMember{Identifier: 3, Kind: KindNode, Role: "label"}

	t.Run("union keeps left order", func(t *testing.T) {
		left := NewRelationBean(m1, m2)
		right := NewRelationBean(m2, m3)
		got := left.Merge(right)
		if !slices.Equal(got.Members(), []RelationMember{m1, m2, m3}) {
			t.Errorf("Members = %v", got.Members())
		}
	})

	t.Run("exclusion wins over stale list", func(t *testing.T) {
		left := NewRelationBean(m1, m2, m3).WithExplicitExclusion(m2)
		right := NewRelationBean(m1, m2, m3)
		got := left.Merge(right)
		if !slices.Equal(got.Members(), []RelationMember{m1, m3}) {
			t.Errorf("Members = %v", got.Members())
		}
		if !got.IsExplicitlyExcluded(m2) {
			t.Error("expected m2 to stay excluded")
		}
	})

	t.Run("multiplicity is max of sides", func(t *testing.T) {
		left := NewRelationBean(m1, m1)
		right := NewRelationBean(m1, m1, m1)
		got := left.Merge(right)
		if got.Len() != 3 {
			t.Errorf("expected 3 occurrences, got %v", got.Members())
		}
	})

	t.Run("commutative up to order", func(t *testing.T) {
		left := NewRelationBean(m1).WithExplicitExclusion(m3)
		right := NewRelationBean(m2, m3)
		lr := left.Merge(right)
		rl := right.Merge(left)
		if lr.Len() != rl.Len() {
			t.Errorf("lengths differ: %v vs %v", lr, rl)
		}
		if !slices.Equal(lr.ExplicitlyExcluded(), rl.ExplicitlyExcluded()) {
			t.Errorf("exclusions differ: %v vs %v", lr, rl)
		}
	})
}

func TestRelationBeanWithRemovalsSince(t *testing.T) {
	m1 := RelationMember{Identifier: 1, Kind: KindEdge, Role: "outer"}
	m2 := RelationMember{Identifier: 2, Kind: KindEdge, Role: "outer"}
	m3 := RelationMember{Identifier: 3, Kind: KindNode, Role: "label"}
	before := NewRelationBean(m1, m2)

	tests := []struct {
		name         string
		bean         RelationBean
		wantMembers  []RelationMember
		wantExcluded []RelationMember
	}{
		{"unchanged", NewRelationBean(m1, m2), []RelationMember{m1, m2}, nil},
		{"dropped member", NewRelationBean(m1), []RelationMember{m1}, []RelationMember{m2}},
		{"emptied", NewRelationBean(), nil, []RelationMember{m1, m2}},
		{"added member only", NewRelationBean(m1, m2, m3), []RelationMember{m1, m2, m3}, nil},
		{"already excluded", NewRelationBean(m1).WithExplicitExclusion(m2), []RelationMember{m1}, []RelationMember{m2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.bean.WithRemovalsSince(before)
			if !slices.Equal(got.Members(), tt.wantMembers) {
				t.Errorf("Members = %v, want %v", got.Members(), tt.wantMembers)
			}
			if !slices.Equal(got.ExplicitlyExcluded(), tt.wantExcluded) {
				t.Errorf("ExplicitlyExcluded = %v, want %v", got.ExplicitlyExcluded(), tt.wantExcluded)
			}
		})
	}

	t.Run("removal survives merge with stale list", func(t *testing.T) {
		left := NewRelationBean().WithRemovalsSince(NewRelationBean(m1))
		right := NewRelationBean(m1, m3)
		got := left.Merge(right)
		if !slices.Equal(got.Members(), []RelationMember{m3}) {
			t.Errorf("Members = %v, want [%v]", got.Members(), m3)
		}
	})
}

func TestRelationBeanEqual(t *testing.T) {
	m1 := RelationMember{Identifier: 1, Kind: KindEdge, Role: "outer"}
	m2 := RelationMember{Identifier: 2, Kind: KindArea, Role: "inner"}

	if !NewRelationBean(m1, m2).Equal(NewRelationBean(m1, m2)) {
		t.Error("expected equal beans")
	}
	if NewRelationBean(m1, m2).Equal(NewRelationBean(m2, m1)) {
		t.Error("member order matters")
	}
	if NewRelationBean(m1).Equal(NewRelationBean(m1).WithExplicitExclusion(m2)) {
		t.Error("exclusions are part of equality")
	}
	if !NewRelationBean().Equal(RelationBean{}) {
		t.Error("empty beans should be equal")
	}
}
