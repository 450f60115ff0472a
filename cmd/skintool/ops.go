package main

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/internal/config"
	"github.com/Faultbox/weights-editor/internal/memhost"
	"github.com/Faultbox/weights-editor/internal/session"
	"github.com/Faultbox/weights-editor/pkg/nearest"
	"github.com/Faultbox/weights-editor/pkg/skinfile"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// fileStats summarises a skin file.
type fileStats struct {
	Vertexes     int
	PerInfluence map[string]int
	MaxPerVertex int
	OverLimit    int
}

func collectStats(f *skinfile.File) fileStats {
	st := fileStats{Vertexes: len(f.Verts), PerInfluence: make(map[string]int)}
	for _, rec := range f.Verts {
		n := 0
		for inf, w := range rec.Weights {
			if w > 0 {
				st.PerInfluence[inf]++
				n++
			}
		}
		st.MaxPerVertex = max(st.MaxPerVertex, n)
		if f.Binding.MaxInfluences > 0 && n > f.Binding.MaxInfluences {
			st.OverLimit++
		}
	}
	return st
}

// validateFile lists every vertex that isn't normalized.
func validateFile(f *skinfile.File) []string {
	var out []string
	for _, v := range f.Indexes() {
		var sum float64
		for _, w := range f.Verts[v].Weights {
			sum += w
		}
		if len(f.Verts[v].Weights) > 0 && math.Abs(sum-1) > 1e-6 {
			out = append(out, fmt.Sprintf("vertex %d sums to %.6f", v, sum))
		}
	}
	if f.Binding.VertCount > 0 && len(f.Verts) > f.Binding.VertCount {
		out = append(out, fmt.Sprintf("%d vertexes stored for a binding of %d", len(f.Verts), f.Binding.VertCount))
	}
	return out
}

// storeWeights writes a weight set back into the file's vertex records.
func storeWeights(f *skinfile.File, set *weights.WeightSet) {
	for _, v := range set.Indexes() {
		vw, _ := set.Get(v)
		rec := f.Verts[v]
		rec.Weights = vw.Weights
		rec.Blend = vw.Blend
		f.Verts[v] = rec
	}
}

// pruneFile drops weights below threshold and renormalizes. A vertex keeps
// its largest weight when all of them are below the threshold.
func pruneFile(f *skinfile.File, threshold float64) (int, error) {
	if threshold < 0 || threshold > 1 {
		return 0, fmt.Errorf("%w: threshold %v", weights.ErrInvalidValue, threshold)
	}
	set := f.WeightSet()
	changed := 0
	for _, v := range set.Indexes() {
		vw, _ := set.Get(v)
		var largest string
		kept := make(map[string]float64, len(vw.Weights))
		for _, inf := range vw.Influences() {
			w := vw.Weights[inf]
			if largest == "" || w > vw.Weights[largest] {
				largest = inf
			}
			if w >= threshold {
				kept[inf] = w
			}
		}
		if len(kept) == len(vw.Weights) {
			continue
		}
		if len(kept) == 0 {
			kept[largest] = 1
		}
		set.Set(v, weights.VertexWeights{Weights: kept, Blend: vw.Blend})
		if err := set.Normalize(v); err != nil {
			return changed, err
		}
		changed++
	}
	storeWeights(f, set)
	return changed, nil
}

// pruneMaxFile limits every vertex to maxInfs influences.
func pruneMaxFile(f *skinfile.File, maxInfs int) (int, error) {
	set := f.WeightSet()
	changed := 0
	for _, v := range set.Indexes() {
		ok, err := set.PruneMaxInfluences(v, maxInfs, weights.NoLocks)
		if err != nil {
			return changed, err
		}
		if ok {
			changed++
		}
	}
	storeWeights(f, set)
	return changed, nil
}

// meshFromFile rebuilds a mesh from stored positions. Files carry no edges,
// so each vertex is connected to its k nearest vertexes.
func meshFromFile(f *skinfile.File, k int) *memhost.Mesh {
	n := f.Binding.VertCount
	stored := f.Indexes()
	if len(stored) > 0 {
		n = max(n, stored[len(stored)-1]+1)
	}
	m := &memhost.Mesh{
		Positions: make([]r3.Vec, n),
		Neighbors: make([][]int, n),
	}
	for _, v := range stored {
		m.Positions[v] = f.Position(v)
	}

	index := nearest.Build(m.Positions)
	for v, p := range m.Positions {
		for _, nb := range index.KNearest(p, k+1) {
			if nb != v {
				m.Neighbors[v] = append(m.Neighbors[v], nb)
			}
		}
		if len(m.Neighbors[v]) > k {
			m.Neighbors[v] = m.Neighbors[v][:k]
		}
	}
	return m
}

// smoothFile runs rounds of neighbor smoothing over every vertex.
func smoothFile(f *skinfile.File, strength float64, rounds, k int) error {
	mesh := meshFromFile(f, k)
	neighbors := func(v int) ([]int, error) {
		if v < 0 || v >= len(mesh.Neighbors) {
			return nil, fmt.Errorf("%w: %d", weights.ErrUnknownVertex, v)
		}
		return mesh.Neighbors[v], nil
	}
	set := f.WeightSet()
	verts := set.Indexes()
	for range rounds {
		if err := set.Smooth(verts, weights.NoLocks, neighbors, strength, nil); err != nil {
			return err
		}
	}
	storeWeights(f, set)
	return nil
}

// remapFile transfers the weights stored in sourcePath onto the mesh stored
// in target by closest position and writes the result to outPath. It runs an
// editing session against an in-memory scene built from target, the same
// way the editor imports onto a live object.
func remapFile(cfg *config.Config, sourcePath string, target *skinfile.File, outPath string, log *zap.Logger) error {
	scene := memhost.New(log)
	obj := target.Object
	if obj == "" {
		obj = "target"
	}
	scene.AddMesh(obj, meshFromFile(target, 4))
	for _, id := range target.InfluenceIDs() {
		if _, err := scene.CreateInfluence(target.Influences[id].Name, target.Matrix(id)); err != nil {
			return err
		}
	}

	s := session.New(scene, scene, scene, session.WithConfig(cfg.Editor), session.WithLogger(log))
	defer s.Close()
	// The scene starts unbound; the import binds it.
	if err := s.Load(obj); err != nil && !errors.Is(err, session.ErrNoBinding) {
		return err
	}

	opts := skinfile.ImportOptions{WorldSpace: true, CreateMissing: cfg.Import.CreateMissingInfluences}
	if _, err := s.Import(sourcePath, opts, nil); err != nil {
		return err
	}
	return s.Export(outPath, nil)
}

// writeConfig saves cfg to out, or to the user config directory when out is
// empty, and returns the path written.
func writeConfig(cfg *config.Config, out string) (string, error) {
	if out == "" {
		return cfg.Save()
	}
	return out, cfg.SaveTo(out)
}
