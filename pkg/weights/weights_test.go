package weights

import (
	"errors"
	"reflect"
	"testing"
)

func TestWeightSet_GetSet(t *testing.T) {
	s := New()
	s.Set(3, VertexWeights{Weights: map[string]float64{"a": 1}, Blend: 0.5})

	vw, err := s.Get(3)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if vw.Weights["a"] != 1 || vw.Blend != 0.5 {
		t.Errorf("unexpected vertex %+v", vw)
	}

	// Returned copies don't alias the set.
	vw.Weights["a"] = 0.2
	if s.Weight(3, "a") != 1 {
		t.Error("Get must return a copy")
	}

	if _, err := s.Get(4); !errors.Is(err, ErrUnknownVertex) {
		t.Errorf("expected ErrUnknownVertex, got %v", err)
	}
	if err := s.SetBlend(4, 1); !errors.Is(err, ErrUnknownVertex) {
		t.Errorf("expected ErrUnknownVertex, got %v", err)
	}
}

func TestWeightSet_CopyIsolation(t *testing.T) {
	orig := FromMap(map[int]VertexWeights{
		0: {Weights: map[string]float64{"a": 0.5, "b": 0.5}, Blend: 0.25},
		1: {Weights: map[string]float64{"b": 1}},
	})
	c := orig.Copy()

	if err := c.UpdateWeight(0, "a", 0.9, NoLocks); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.SetBlend(0, 1); err != nil {
		t.Fatalf("set blend: %v", err)
	}
	c.Set(1, VertexWeights{Weights: map[string]float64{"c": 1}})

	if orig.Weight(0, "a") != 0.5 || orig.Blend(0) != 0.25 {
		t.Error("mutating the copy changed vertex 0 of the original")
	}
	if !reflect.DeepEqual(orig.InfluencesOf(1), []string{"b"}) {
		t.Errorf("mutating the copy changed vertex 1 of the original: %v", orig.InfluencesOf(1))
	}
}

func TestWeightSet_Queries(t *testing.T) {
	s := FromMap(map[int]VertexWeights{
		2: {Weights: map[string]float64{"b": 0.5, "a": 0.5}},
		0: {Weights: map[string]float64{"c": 1}},
		1: {Weights: map[string]float64{"a": 1}},
	})

	if got := s.Indexes(); !reflect.DeepEqual(got, []int{0, 1, 2}) {
		t.Errorf("Indexes: got %v", got)
	}
	if got := s.InfluencesOf(2); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("InfluencesOf: got %v", got)
	}
	if got := s.InfluencesOf(9); got != nil {
		t.Errorf("InfluencesOf missing vertex: expected nil, got %v", got)
	}
	if got := s.AffectedBy([]string{"a"}); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("AffectedBy: got %v", got)
	}
	if got := s.Influences(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Influences: got %v", got)
	}

	sub := s.Subset([]int{0, 7})
	if sub.Len() != 1 || !sub.Has(0) {
		t.Errorf("Subset: got %v", sub.Indexes())
	}
}

func TestWeightSet_Equal(t *testing.T) {
	a := FromMap(map[int]VertexWeights{0: {Weights: map[string]float64{"a": 0.3, "b": 0.7}}})
	b := FromMap(map[int]VertexWeights{0: {Weights: map[string]float64{"a": 0.3 + 1e-12, "b": 0.7}}})
	c := FromMap(map[int]VertexWeights{0: {Weights: map[string]float64{"a": 0.4, "b": 0.6}}})

	if !a.Equal(b, nil) {
		t.Error("expected sets within tolerance to be equal")
	}
	if a.Equal(c, nil) {
		t.Error("expected different sets to differ")
	}
	if !a.Equal(c, []int{5}) {
		t.Error("vertexes absent from both sets compare equal")
	}
}

func TestIsClose(t *testing.T) {
	tests := []struct {
		a, b float64
		want bool
	}{
		{0, 0, true},
		{0, 1e-16, true},
		{0, 1e-14, false},
		{1, 1 + 1e-10, true},
		{1, 1 + 1e-8, false},
	}
	for _, tt := range tests {
		if got := IsClose(tt.a, tt.b); got != tt.want {
			t.Errorf("IsClose(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestOperation_String(t *testing.T) {
	tests := []struct {
		op   Operation
		want string
	}{
		{Absolute, "Absolute"},
		{Relative, "Relative"},
		{Percentage, "Percentage"},
		{Operation(9), "Unknown(9)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("got %q, want %q", got, tt.want)
		}
	}
}
