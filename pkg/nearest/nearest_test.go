package nearest

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func TestNearest(t *testing.T) {
	positions := []r3.Vec{
		{X: 0, Y: 0, Z: 0},
		{X: 1, Y: 0, Z: 0},
		{X: 0, Y: 2, Z: 0},
		{X: 5, Y: 5, Z: 5},
	}
	ix := Build(positions)

	tests := []struct {
		name string
		q    r3.Vec
		want int
		dist float64
	}{
		{"exact", r3.Vec{X: 1}, 1, 0},
		{"near origin", r3.Vec{X: 0.2, Y: 0.1}, 0, math.Hypot(0.2, 0.1)},
		{"up", r3.Vec{Y: 1.9}, 2, 0.1},
		{"far", r3.Vec{X: 9, Y: 9, Z: 9}, 3, math.Sqrt(48)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, d := ix.Nearest(tt.q)
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
			if math.Abs(d-tt.dist) > 1e-9 {
				t.Errorf("distance %v, want %v", d, tt.dist)
			}
		})
	}
}

func TestNearestMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	positions := make([]r3.Vec, 200)
	for i := range positions {
		positions[i] = r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	ix := Build(positions)

	for n := 0; n < 100; n++ {
		q := r3.Vec{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
		best := 0
		for i := range positions {
			if r3.Norm(r3.Sub(q, positions[i])) < r3.Norm(r3.Sub(q, positions[best])) {
				best = i
			}
		}
		if got, _ := ix.Nearest(q); got != best {
			t.Fatalf("query %v: got %d, want %d", q, got, best)
		}
	}
}

func TestKNearest(t *testing.T) {
	positions := []r3.Vec{{X: 0}, {X: 1}, {X: 2}, {X: 3}, {X: 10}}
	ix := Build(positions)

	if got := ix.KNearest(r3.Vec{X: 1.1}, 3); !reflect.DeepEqual(got, []int{1, 2, 0}) {
		t.Errorf("got %v", got)
	}
	if got := ix.KNearest(r3.Vec{}, 10); len(got) != len(positions) {
		t.Errorf("expected every position when k exceeds the size, got %v", got)
	}
}

func TestEmpty(t *testing.T) {
	ix := Build(nil)
	if got, d := ix.Nearest(r3.Vec{}); got != -1 || !math.IsInf(d, 1) {
		t.Errorf("got %d, %v", got, d)
	}
	if ix.KNearest(r3.Vec{}, 2) != nil {
		t.Error("expected no neighbors")
	}
}
