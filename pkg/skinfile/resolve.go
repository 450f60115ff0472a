package skinfile

import (
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/pkg/names"
	"github.com/Faultbox/weights-editor/pkg/nearest"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// InfluenceHost looks up and creates influences in the scene.
type InfluenceHost interface {
	InfluenceExists(name string) bool
	FindInfluences(short string) []string
	CreateInfluence(name string, world mgl64.Mat4) (string, error)
}

// ImportOptions controls how a file is applied to a live object.
type ImportOptions struct {
	// WorldSpace matches vertexes by closest stored position instead of index.
	WorldSpace bool
	// VertexFilter limits the import to these live vertexes when not empty.
	VertexFilter []int
	// CreateMissing creates influences that aren't in the scene at their
	// stored world matrix.
	CreateMissing bool
}

// Resolved is a file mapped onto a live object.
type Resolved struct {
	Weights *weights.WeightSet
	// Influences are the scene names of every stored influence, sorted.
	Influences []string
	// Created lists influences that had to be created.
	Created []string
}

// NearestMap maps each live vertex to the stored vertex closest to it.
// Only vertexes in filter are mapped when it is not empty.
func NearestMap(f *File, live []r3.Vec, filter []int, progress weights.Progress) (map[int]int, error) {
	stored := f.Indexes()
	positions := make([]r3.Vec, len(stored))
	for i, v := range stored {
		positions[i] = f.Position(v)
	}
	ix := nearest.Build(positions)

	out := make(map[int]int, len(live))
	if ix.Len() == 0 {
		return out, nil
	}
	for v, p := range live {
		if len(filter) > 0 && !slices.Contains(filter, v) {
			continue
		}
		if weights.Cancelled(progress) {
			return nil, ErrUserCancelled
		}
		i, _ := ix.Nearest(p)
		out[v] = stored[i]
	}
	return out, nil
}

// Resolve maps a file onto a live object with len(live) vertexes.
// Influences are matched by long name, then short name. Without
// WorldSpace the stored vertex count must equal the live one. Missing
// influences are created only after every check has passed, so a failed
// or cancelled resolve leaves the scene untouched.
func Resolve(f *File, host InfluenceHost, live []r3.Vec, opts ImportOptions, progress weights.Progress) (*Resolved, error) {
	renames, missing, err := lookupInfluences(f, host, opts.CreateMissing)
	if err != nil {
		return nil, err
	}

	var mapping map[int]int
	if opts.WorldSpace {
		mapping, err = NearestMap(f, live, opts.VertexFilter, progress)
		if err != nil {
			return nil, err
		}
	} else {
		if f.Binding.VertCount != len(live) {
			return nil, fmt.Errorf("%w (object: %d, file: %d)", ErrVertexCountMismatch, len(live), f.Binding.VertCount)
		}
		mapping = make(map[int]int, len(f.Verts))
		for v := range f.Verts {
			if len(opts.VertexFilter) == 0 || slices.Contains(opts.VertexFilter, v) {
				mapping[v] = v
			}
		}
	}

	// Missing influences keep their stored name until they exist.
	set, err := mapWeights(f, mapping, renames)
	if err != nil {
		return nil, err
	}
	if weights.Cancelled(progress) {
		return nil, ErrUserCancelled
	}

	created, err := createInfluences(f, host, missing, renames)
	if err != nil {
		return nil, err
	}
	if len(created) > 0 {
		if set, err = mapWeights(f, mapping, renames); err != nil {
			return nil, err
		}
	}

	infs := make([]string, 0, len(renames))
	for _, scene := range renames {
		if !slices.Contains(infs, scene) {
			infs = append(infs, scene)
		}
	}
	slices.Sort(infs)

	return &Resolved{Weights: set, Influences: infs, Created: created}, nil
}

// mapWeights builds the live weight set from mapping, which pairs each
// live vertex with a stored one.
func mapWeights(f *File, mapping map[int]int, renames map[string]string) (*weights.WeightSet, error) {
	set := weights.New()
	for v, src := range mapping {
		rec, ok := f.Verts[src]
		if !ok {
			continue
		}
		vw := weights.VertexWeights{Weights: make(map[string]float64, len(rec.Weights)), Blend: rec.Blend}
		for inf, w := range rec.Weights {
			vw.Weights[renames[inf]] += w
		}
		set.Set(v, vw)
		if err := set.Normalize(v); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// lookupInfluences maps every stored influence name to a scene name
// without changing the scene. Missing influences map to themselves and
// are returned when create is set; otherwise they are all reported
// together.
func lookupInfluences(f *File, host InfluenceHost, create bool) (map[string]string, []string, error) {
	var stored []string
	for _, id := range f.InfluenceIDs() {
		stored = append(stored, f.Influences[id].Name)
	}
	for _, v := range f.Indexes() {
		for inf := range f.Verts[v].Weights {
			if !slices.Contains(stored, inf) {
				stored = append(stored, inf)
			}
		}
	}
	slices.Sort(stored)

	resolver := names.Resolver{Exists: host.InfluenceExists, Find: host.FindInfluences}
	renames := make(map[string]string, len(stored))
	var missing []string
	var errs error

	for _, inf := range stored {
		if scene, ok := resolver.Resolve(inf); ok {
			renames[inf] = scene
			continue
		}
		if !create {
			errs = multierr.Append(errs, fmt.Errorf("%w: %s", ErrMissingInfluence, inf))
			continue
		}
		renames[inf] = inf
		missing = append(missing, inf)
	}
	if errs != nil {
		return nil, nil, errs
	}
	return renames, missing, nil
}

// createInfluences creates each missing influence at its stored matrix and
// points its rename at the name the host gave it.
func createInfluences(f *File, host InfluenceHost, missing []string, renames map[string]string) ([]string, error) {
	var created []string
	var errs error
	for _, inf := range missing {
		m, _ := f.MatrixOf(inf)
		scene, err := host.CreateInfluence(names.ShortName(names.Normalize(inf)), m)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("creating %s: %w", inf, err))
			continue
		}
		renames[inf] = scene
		created = append(created, scene)
	}
	if errs != nil {
		return nil, errs
	}
	return created, nil
}
