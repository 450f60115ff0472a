package memhost

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/internal/session"
	"github.com/Faultbox/weights-editor/pkg/colors"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// mockScene builds a 5x3 grid bound to a left, center and right joint.
func mockScene(t *testing.T) (*Host, *session.Binding) {
	t.Helper()
	h := New(nil)
	h.AddMesh("body", Grid(5, 3, 1))
	h.AddJoint("L_arm", r3.Vec{X: -2, Y: 1})
	h.AddJoint("spine", r3.Vec{Y: 1})
	h.AddJoint("R_arm", r3.Vec{X: 2, Y: 1})

	b, err := h.CreateBinding("body", []string{"spine", "L_arm", "R_arm"}, 4, session.Linear, "")
	if err != nil {
		t.Fatalf("bind: %v", err)
	}
	return h, b
}

func assertNormalized(t *testing.T, set *weights.WeightSet) {
	t.Helper()
	for _, v := range set.Indexes() {
		vw, _ := set.Get(v)
		if sum := vw.Sum(); math.Abs(sum-1) > 1e-7 {
			t.Errorf("vertex %d sums to %v", v, sum)
		}
	}
}

func TestCreateBinding(t *testing.T) {
	h, b := mockScene(t)
	if b.Name != "skinCluster" || b.VertexCount != 15 || b.Object != "body" {
		t.Fatalf("unexpected binding %+v", b)
	}

	set, err := h.ReadWeights(b)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		v    int
		want string
	}{
		{5, "L_arm"},  // (-2, 1)
		{7, "spine"},  // (0, 1)
		{9, "R_arm"},  // (2, 1)
		{14, "R_arm"}, // (2, 2)
	}
	for _, tt := range tests {
		if set.Weight(tt.v, tt.want) != 1 {
			t.Errorf("vertex %d: expected full weight on %s, got %v", tt.v, tt.want, set.InfluencesOf(tt.v))
		}
	}

	infs, _ := h.Influences(b)
	if len(infs) != 3 || infs[0] != "L_arm" {
		t.Errorf("expected sorted influences, got %v", infs)
	}

	if _, err := h.CreateBinding("body", []string{"missing"}, 4, session.Linear, ""); !errors.Is(err, ErrUnknownInfluence) {
		t.Errorf("expected ErrUnknownInfluence, got %v", err)
	}
	if b, err := h.Binding("nothing"); b != nil || !errors.Is(err, ErrUnknownObject) {
		t.Errorf("expected ErrUnknownObject, got %v %v", b, err)
	}

	h.AddMesh("prop", Grid(2, 2, 1))
	if b, err := h.Binding("prop"); b != nil || err != nil {
		t.Errorf("unbound object must return nil, nil; got %v %v", b, err)
	}
}

func TestWriteWeights(t *testing.T) {
	h, b := mockScene(t)
	h.AddJoint("head", r3.Vec{Y: 3})

	set := weights.New()
	set.Set(7, weights.VertexWeights{Weights: map[string]float64{"spine": 1, "head": 1}})
	if err := h.WriteWeights(b, set, []int{7}, true); err != nil {
		t.Fatal(err)
	}

	got, _ := h.ReadWeights(b)
	if got.Weight(7, "head") != 0.5 {
		t.Errorf("expected normalized head weight 0.5, got %v", got.Weight(7, "head"))
	}
	infs, _ := h.Influences(b)
	if len(infs) != 4 {
		t.Errorf("written influence must be added to the binding, got %v", infs)
	}

	set.Set(20, weights.VertexWeights{Weights: map[string]float64{"spine": 1}})
	if err := h.WriteWeights(b, set, []int{20}, false); !errors.Is(err, ErrVertexRange) {
		t.Errorf("expected ErrVertexRange, got %v", err)
	}

	set.Set(1, weights.VertexWeights{Weights: map[string]float64{"ghost": 1}})
	if err := h.WriteWeights(b, set, []int{1}, false); !errors.Is(err, ErrUnknownInfluence) {
		t.Errorf("expected ErrUnknownInfluence, got %v", err)
	}
}

func TestPrune(t *testing.T) {
	h, b := mockScene(t)
	set := weights.New()
	set.Set(0, weights.VertexWeights{Weights: map[string]float64{"spine": 0.05, "L_arm": 0.7, "R_arm": 0.25}})
	set.Set(1, weights.VertexWeights{Weights: map[string]float64{"spine": 0.04, "L_arm": 0.06, "R_arm": 0.9}})
	if err := h.WriteWeights(b, set, []int{0, 1}, false); err != nil {
		t.Fatal(err)
	}
	_ = h.SetLocked("R_arm", true)

	if err := h.Prune(b, []int{0, 1}, 0.1); err != nil {
		t.Fatal(err)
	}
	got, _ := h.ReadWeights(b)

	if got.Weight(0, "spine") != 0 {
		t.Error("weight below threshold must be removed")
	}
	if math.Abs(got.Weight(0, "R_arm")-0.25) > 1e-9 {
		t.Errorf("locked weight changed: %v", got.Weight(0, "R_arm"))
	}
	if math.Abs(got.Weight(0, "L_arm")-0.75) > 1e-9 {
		t.Errorf("expected L_arm to fill the unlocked pool, got %v", got.Weight(0, "L_arm"))
	}

	// Every unlocked weight is under the threshold; the largest survives.
	if math.Abs(got.Weight(1, "L_arm")-0.1) > 1e-9 || got.Weight(1, "spine") != 0 {
		t.Errorf("unexpected vertex 1: %v", got.InfluencesOf(1))
	}
	assertNormalized(t, got)
}

func TestRunExternalSmooth(t *testing.T) {
	h, b := mockScene(t)
	before, _ := h.ReadWeights(b)

	// Vertex 6 sits between L_arm and spine regions.
	if err := h.RunExternalSmooth(b, []int{6}, 1, false); err != nil {
		t.Fatal(err)
	}
	got, _ := h.ReadWeights(b)
	if len(got.InfluencesOf(6)) < 2 {
		t.Errorf("smoothing across all influences must spread weights, got %v", got.InfluencesOf(6))
	}
	if !got.Equal(before, []int{0, 1, 2}) {
		t.Error("vertexes outside the batch must not change")
	}
	assertNormalized(t, got)

	if err := h.RunExternalSmooth(b, []int{6}, 2, false); !errors.Is(err, weights.ErrInvalidValue) {
		t.Errorf("expected ErrInvalidValue, got %v", err)
	}
}

func TestRunExternalSmoothRespectsLocks(t *testing.T) {
	h, b := mockScene(t)
	_ = h.SetLocked("spine", true)

	// Vertex 6 is fully on spine with an L_arm neighbor.
	if err := h.RunExternalSmooth(b, []int{6}, 1, false); err != nil {
		t.Fatal(err)
	}
	got, _ := h.ReadWeights(b)
	if got.Weight(6, "spine") != 1 {
		t.Errorf("locked spine changed to %v", got.Weight(6, "spine"))
	}

	if err := h.RunExternalSmooth(b, []int{6}, 1, true); err != nil {
		t.Fatal(err)
	}
	got, _ = h.ReadWeights(b)
	if math.Abs(got.Weight(6, "spine")-0.8) > 1e-9 {
		t.Errorf("ignoring locks must let spine change, got %v", got.Weight(6, "spine"))
	}
}

func TestMirror(t *testing.T) {
	h, b := mockScene(t)
	set := weights.New()
	// Right side (positive X): vertex 13 is (1, 2).
	set.Set(13, weights.VertexWeights{Weights: map[string]float64{"R_arm": 0.75, "spine": 0.25}})
	if err := h.WriteWeights(b, set, []int{13}, false); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		assoc session.InfluenceAssociation
	}{
		{"closest joint", session.ClosestJoint},
		{"by name", session.Name},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Mirror(b, session.MirrorOptions{Axis: session.AxisX, InfluenceAssociation: tt.assoc})
			if err != nil {
				t.Fatal(err)
			}
			got, _ := h.ReadWeights(b)
			// Vertex 11 is (-1, 2), the mirror of 13.
			if got.Weight(11, "L_arm") != 0.75 || got.Weight(11, "spine") != 0.25 {
				t.Errorf("unexpected mirrored weights %v", got.InfluencesOf(11))
			}
			if got.Weight(13, "R_arm") != 0.75 {
				t.Error("source side must not change")
			}
		})
	}
}

func TestMirrorSelectionOnly(t *testing.T) {
	h, b := mockScene(t)
	set := weights.New()
	set.Set(13, weights.VertexWeights{Weights: map[string]float64{"R_arm": 0.5, "spine": 0.5}})
	set.Set(14, weights.VertexWeights{Weights: map[string]float64{"R_arm": 0.5, "spine": 0.5}})
	_ = h.WriteWeights(b, set, nil, false)

	if err := h.Mirror(b, session.MirrorOptions{Vertexes: []int{11}}); err != nil {
		t.Fatal(err)
	}
	got, _ := h.ReadWeights(b)
	if got.Weight(11, "L_arm") != 0.5 {
		t.Errorf("selected vertex not mirrored: %v", got.InfluencesOf(11))
	}
	if got.Weight(10, "L_arm") != 1 {
		t.Errorf("unselected vertex changed: %v", got.InfluencesOf(10))
	}
}

func TestCounterpart(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"L_arm", "R_arm", true},
		{"|root|R_leg", "|root|L_leg", true},
		{"LeftHand", "RightHand", true},
		{"hand_l", "hand_r", true},
		{"spine", "", false},
	}
	for _, tt := range tests {
		got, ok := counterpart(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("counterpart(%q) = %q, %v", tt.in, got, ok)
		}
	}
}

func TestCreateInfluenceRenames(t *testing.T) {
	h := New(nil)
	a, _ := h.CreateInfluence("|rig|joint", [16]float64{})
	b, _ := h.CreateInfluence("joint", [16]float64{})
	if a != "joint" || b != "joint1" {
		t.Errorf("got %q and %q", a, b)
	}
	if found := h.FindInfluences("joint"); len(found) != 1 {
		t.Errorf("expected one match for the short name, got %v", found)
	}
	if err := h.SetLocked("nothing", true); !errors.Is(err, ErrUnknownInfluence) {
		t.Errorf("expected ErrUnknownInfluence, got %v", err)
	}
}

func TestTopologyAndDisplay(t *testing.T) {
	h, _ := mockScene(t)

	n, _ := h.VertexCount("body")
	if n != 15 {
		t.Errorf("expected 15 vertexes, got %d", n)
	}
	nb, _ := h.NeighborsOf("body", 7)
	if len(nb) != 4 {
		t.Errorf("inner vertex must have 4 neighbors, got %v", nb)
	}
	if _, err := h.NeighborsOf("body", 99); !errors.Is(err, ErrVertexRange) {
		t.Errorf("expected ErrVertexRange, got %v", err)
	}

	h.Select("body", []int{1, 2})
	sel, _ := h.SelectedVertexIndexes("body")
	if len(sel) != 2 {
		t.Errorf("unexpected selection %v", sel)
	}

	if err := h.ApplyColors("body", []int{1}, []colors.RGB{{R: 1}}); err != nil {
		t.Fatal(err)
	}
	if h.Colors("body")[1].R != 1 {
		t.Error("color not applied")
	}
	if err := h.ApplyColors("body", []int{1, 2}, nil); err == nil {
		t.Error("expected mismatch error")
	}

	h.Delete("body")
	if h.ObjectExists("body") {
		t.Error("deleted object still exists")
	}
}
