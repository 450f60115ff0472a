package skinfile

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Source is the live state a skin file is taken from.
type Source struct {
	Object     string
	Binding    BindingRecord
	Weights    *weights.WeightSet
	Influences []string
	Matrices   map[string]mgl64.Mat4
	// Positions holds the world position of every vertex by index.
	Positions []r3.Vec
}

// Snapshot builds a skin file from live state. Influence ids follow the
// order of src.Influences. A missing matrix is stored as identity.
func Snapshot(src Source, progress weights.Progress) (*File, error) {
	f := &File{
		Version:    FormatVersion,
		Object:     src.Object,
		Verts:      make(map[int]VertexRecord, src.Weights.Len()),
		Influences: make(map[int]InfluenceRecord, len(src.Influences)),
		Binding:    src.Binding,
	}
	f.Binding.InfluenceCount = len(src.Influences)
	if f.Binding.VertCount == 0 {
		f.Binding.VertCount = len(src.Positions)
	}

	for id, inf := range src.Influences {
		m, ok := src.Matrices[inf]
		if !ok {
			m = mgl64.Ident4()
		}
		f.Influences[id] = InfluenceRecord{Name: inf, WorldMatrix: [16]float64(m)}
	}

	for _, v := range src.Weights.Indexes() {
		if weights.Cancelled(progress) {
			return nil, ErrUserCancelled
		}
		if v >= len(src.Positions) {
			return nil, fmt.Errorf("no position for vertex %d", v)
		}
		vw, err := src.Weights.Get(v)
		if err != nil {
			return nil, err
		}
		p := src.Positions[v]
		f.Verts[v] = VertexRecord{
			Weights:  vw.Weights,
			Blend:    vw.Blend,
			WorldPos: [3]float64{p.X, p.Y, p.Z},
		}
	}
	return f, nil
}
