// Package weights implements the per-vertex skin weight model and the
// algorithms that edit it while keeping every vertex normalized.
package weights

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Weight model errors.
var (
	ErrInvalidValue  = errors.New("value needs to be within 0.0 to 1.0")
	ErrUnknownVertex = errors.New("unknown vertex")
	ErrUserCancelled = errors.New("operation cancelled by user")
)

// LockLookup reports whether an influence is lock-protected.
// It is consulted live on every call and never cached.
type LockLookup func(name string) bool

// NoLocks treats every influence as unlocked.
func NoLocks(string) bool { return false }

// Progress is polled between iterations of long batch loops.
type Progress interface {
	WasCancelled() bool
}

// cancelled reports whether p asked to stop. A nil Progress never cancels.
func cancelled(p Progress) bool {
	return p != nil && p.WasCancelled()
}

// Cancelled is the exported form of the cancellation poll used by callers
// that run their own batch loops.
func Cancelled(p Progress) bool {
	return cancelled(p)
}

// VertexWeights holds the influences of a single vertex.
type VertexWeights struct {
	Weights map[string]float64 // influence name -> weight in [0, 1]
	Blend   float64            // secondary skinning blend (dual quaternion)
}

// Clone returns a deep copy.
func (vw VertexWeights) Clone() VertexWeights {
	return VertexWeights{
		Weights: maps.Clone(vw.Weights),
		Blend:   vw.Blend,
	}
}

// Sum returns the total of all weights.
func (vw VertexWeights) Sum() float64 {
	var total float64
	for _, name := range sortedNames(vw.Weights) {
		total += vw.Weights[name]
	}
	return total
}

// Influences returns the influence names sorted alphabetically.
func (vw VertexWeights) Influences() []string {
	return sortedNames(vw.Weights)
}

// WeightSet maps vertex indexes to their weights for one binding.
type WeightSet struct {
	data map[int]*VertexWeights
}

// New creates an empty weight set.
func New() *WeightSet {
	return &WeightSet{data: make(map[int]*VertexWeights)}
}

// FromMap builds a weight set from plain vertex records. The records are copied.
func FromMap(m map[int]VertexWeights) *WeightSet {
	s := &WeightSet{data: make(map[int]*VertexWeights, len(m))}
	for v, vw := range m {
		c := vw.Clone()
		if c.Weights == nil {
			c.Weights = make(map[string]float64)
		}
		s.data[v] = &c
	}
	return s
}

// Len returns the number of vertexes.
func (s *WeightSet) Len() int {
	return len(s.data)
}

// Has reports whether the vertex is present.
func (s *WeightSet) Has(v int) bool {
	_, ok := s.data[v]
	return ok
}

// Indexes returns all vertex indexes in ascending order.
func (s *WeightSet) Indexes() []int {
	return slices.Sorted(maps.Keys(s.data))
}

// Get returns a copy of a vertex's weights.
func (s *WeightSet) Get(v int) (VertexWeights, error) {
	vw, ok := s.data[v]
	if !ok {
		return VertexWeights{}, fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	return vw.Clone(), nil
}

// Set overwrites a vertex's weights with a copy of vw. No redistribution
// happens, so vw is expected to be normalized already.
func (s *WeightSet) Set(v int, vw VertexWeights) {
	c := vw.Clone()
	if c.Weights == nil {
		c.Weights = make(map[string]float64)
	}
	s.data[v] = &c
}

// CopyVertex returns a deep copy of one vertex.
func (s *WeightSet) CopyVertex(v int) (VertexWeights, error) {
	return s.Get(v)
}

// Copy returns a deep copy of the whole set.
// Edits are always performed on a copy, never on the set applied to the host.
func (s *WeightSet) Copy() *WeightSet {
	c := &WeightSet{data: make(map[int]*VertexWeights, len(s.data))}
	for v, vw := range s.data {
		cv := vw.Clone()
		c.data[v] = &cv
	}
	return c
}

// InfluencesOf returns the influences currently weighted on a vertex,
// or nil if the vertex is missing.
func (s *WeightSet) InfluencesOf(v int) []string {
	vw, ok := s.data[v]
	if !ok {
		return nil
	}
	return sortedNames(vw.Weights)
}

// Weight returns an influence's weight on a vertex, 0 if absent.
func (s *WeightSet) Weight(v int, name string) float64 {
	vw, ok := s.data[v]
	if !ok {
		return 0
	}
	return vw.Weights[name]
}

// Blend returns the secondary blend factor of a vertex.
func (s *WeightSet) Blend(v int) float64 {
	vw, ok := s.data[v]
	if !ok {
		return 0
	}
	return vw.Blend
}

// SetBlend sets the secondary blend factor of a vertex.
func (s *WeightSet) SetBlend(v int, blend float64) error {
	vw, ok := s.data[v]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	vw.Blend = blend
	return nil
}

// AffectedBy returns the vertexes weighted to any of the given influences.
func (s *WeightSet) AffectedBy(names []string) []int {
	var out []int
	for _, v := range s.Indexes() {
		for _, name := range names {
			if _, ok := s.data[v].Weights[name]; ok {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// Influences returns every influence used by the set, sorted.
func (s *WeightSet) Influences() []string {
	seen := make(map[string]struct{})
	for _, vw := range s.data {
		for name := range vw.Weights {
			seen[name] = struct{}{}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// Subset returns a copy holding only the given vertexes. Missing indexes are skipped.
func (s *WeightSet) Subset(verts []int) *WeightSet {
	c := New()
	for _, v := range verts {
		if vw, ok := s.data[v]; ok {
			cv := vw.Clone()
			c.data[v] = &cv
		}
	}
	return c
}

// Merge copies every vertex of other into s, replacing existing entries.
func (s *WeightSet) Merge(other *WeightSet) {
	for v, vw := range other.data {
		cv := vw.Clone()
		s.data[v] = &cv
	}
}

// Equal reports whether both sets hold the same weights on verts within
// tolerance. A nil verts compares every vertex of both sets.
func (s *WeightSet) Equal(other *WeightSet, verts []int) bool {
	if verts == nil {
		if s.Len() != other.Len() {
			return false
		}
		verts = s.Indexes()
	}
	for _, v := range verts {
		a, okA := s.data[v]
		b, okB := other.data[v]
		if okA != okB {
			return false
		}
		if !okA {
			continue
		}
		if len(a.Weights) != len(b.Weights) || !IsClose(a.Blend, b.Blend) {
			return false
		}
		for name, w := range a.Weights {
			ow, ok := b.Weights[name]
			if !ok || !IsClose(w, ow) {
				return false
			}
		}
	}
	return true
}

func sortedNames(m map[string]float64) []string {
	return slices.Sorted(maps.Keys(m))
}
