package scene

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func dot(id string, r float64) Shape {
	return Shape{ID: id, Type: TypeCircle, Style: Style{Opacity: 1}, Props: CircleProps{Radius: r}}
}

func ids(shapes []Shape) []string {
	out := make([]string, len(shapes))
	for i, s := range shapes {
		out[i] = s.ID
	}
	return out
}

func TestSanitizeDedupeKeepsPosition(t *testing.T) {
	got := Sanitize([]Shape{dot("a", 1), dot(ProtectedShapeID, 90), dot("b", 1), dot("a", 5)})
	if diff := cmp.Diff([]string{"a", ProtectedShapeID, "b"}, ids(got)); diff != "" {
		t.Errorf("ids (-want +got):\n%s", diff)
	}
	if r := got[0].Props.(CircleProps).Radius; r != 5 {
		t.Errorf("a radius = %v, want 5 (last occurrence)", r)
	}
}

func TestSanitizeTruncates(t *testing.T) {
	var in []Shape
	in = append(in, dot(ProtectedShapeID, 90))
	for i := range 30 {
		in = append(in, dot(fmt.Sprintf("s%d", i), 1))
	}
	got := Sanitize(in)
	if len(got) != MaxShapes {
		t.Fatalf("len = %d, want %d", len(got), MaxShapes)
	}
	if got[0].ID != ProtectedShapeID {
		t.Errorf("first = %s", got[0].ID)
	}
}

func TestSanitizeRescuesProtectedShape(t *testing.T) {
	var in []Shape
	for i := range 25 {
		in = append(in, dot(fmt.Sprintf("s%d", i), 1))
	}
	in = append(in, dot(ProtectedShapeID, 90))
	got := Sanitize(in)
	if len(got) != MaxShapes {
		t.Fatalf("len = %d, want %d", len(got), MaxShapes)
	}
	if last := got[len(got)-1].ID; last != ProtectedShapeID {
		t.Errorf("last = %s, want %s", last, ProtectedShapeID)
	}
}

func TestSanitizeEmpty(t *testing.T) {
	if got := Sanitize(nil); got == nil || len(got) != 0 {
		t.Errorf("Sanitize(nil) = %#v, want empty slice", got)
	}
}

func TestApplyMutations(t *testing.T) {
	base := NeutralScene().Scene
	mouth := Shape{
		ID:        IDMouth,
		Type:      TypeLine,
		Transform: Transform{Rotation: -15},
		Style:     Style{Opacity: 1},
		Props:     LineProps{X1: -25, Y1: 30, X2: 25, Y2: 30},
	}

	cases := []struct {
		name    string
		muts    []Mutation
		wantIDs []string
		check   func(t *testing.T, got []Shape)
	}{
		{
			name:    "update replaces by id",
			muts:    []Mutation{Update(mouth)},
			wantIDs: ids(base),
			check: func(t *testing.T, got []Shape) {
				if r := got[indexOf(got, IDMouth)].Transform.Rotation; r != -15 {
					t.Errorf("rotation = %v, want -15", r)
				}
			},
		},
		{
			name:    "update with mismatched id is skipped",
			muts:    []Mutation{{Op: OpUpdate, ID: IDLeftEye, Shape: &mouth}},
			wantIDs: ids(base),
			check: func(t *testing.T, got []Shape) {
				if diff := cmp.Diff(base, got); diff != "" {
					t.Errorf("scene changed (-want +got):\n%s", diff)
				}
			},
		},
		{
			name:    "update of unknown id is skipped",
			muts:    []Mutation{Update(dot("ghost", 1))},
			wantIDs: ids(base),
		},
		{
			name:    "add appends",
			muts:    []Mutation{{Op: OpAdd, ID: "tear", Shape: ptr(dot("tear", 2))}},
			wantIDs: append(ids(base), "tear"),
		},
		{
			name:    "add without shape is skipped",
			muts:    []Mutation{{Op: OpAdd, ID: "tear"}},
			wantIDs: ids(base),
		},
		{
			name:    "remove protected is ignored",
			muts:    []Mutation{{Op: OpRemove, ID: ProtectedShapeID}},
			wantIDs: ids(base),
		},
		{
			name:    "remove deletes",
			muts:    []Mutation{{Op: OpRemove, ID: IDMouth}},
			wantIDs: ids(base)[:len(base)-1],
		},
		{
			name: "applied in order",
			muts: []Mutation{
				{Op: OpAdd, ID: "tear", Shape: ptr(dot("tear", 2))},
				{Op: OpRemove, ID: "tear"},
			},
			wantIDs: ids(base),
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ApplyMutations(base, tc.muts)
			if diff := cmp.Diff(tc.wantIDs, ids(got)); diff != "" {
				t.Errorf("ids (-want +got):\n%s", diff)
			}
			if tc.check != nil {
				tc.check(t, got)
			}
		})
	}
	if diff := cmp.Diff(NeutralScene().Scene, base); diff != "" {
		t.Errorf("input scene was modified (-want +got):\n%s", diff)
	}
}

func TestApplyMutationsAddAtCapIsDropped(t *testing.T) {
	var full []Shape
	full = append(full, dot(ProtectedShapeID, 90))
	for i := range MaxShapes - 1 {
		full = append(full, dot(fmt.Sprintf("s%d", i), 1))
	}
	got := ApplyMutations(full, []Mutation{{Op: OpAdd, ID: "extra", Shape: ptr(dot("extra", 1))}})
	if indexOf(got, "extra") >= 0 {
		t.Errorf("add at cap was applied")
	}
	if len(got) != MaxShapes {
		t.Errorf("len = %d", len(got))
	}
}

func TestApplyMutationsEmpty(t *testing.T) {
	base := NeutralScene().Scene
	if diff := cmp.Diff(base, ApplyMutations(base, nil)); diff != "" {
		t.Errorf("empty mutation list changed scene (-want +got):\n%s", diff)
	}
}

func ptr[T any](v T) *T { return &v }
