// Package nearest answers closest-point queries over vertex positions.
package nearest

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
	"gonum.org/v1/gonum/spatial/r3"
)

// point is a position tagged with the vertex it came from.
type point struct {
	pos   r3.Vec
	index int
}

func coord(v r3.Vec, d kdtree.Dim) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	default:
		return v.Z
	}
}

// Compare implements kdtree.Comparable.
func (p point) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return coord(p.pos, d) - coord(c.(point).pos, d)
}

// Dims implements kdtree.Comparable.
func (p point) Dims() int { return 3 }

// Distance implements kdtree.Comparable. It is the squared distance.
func (p point) Distance(c kdtree.Comparable) float64 {
	return r3.Norm2(r3.Sub(p.pos, c.(point).pos))
}

type points []point

func (p points) Index(i int) kdtree.Comparable { return p[i] }
func (p points) Len() int                      { return len(p) }
func (p points) Slice(start, end int) kdtree.Interface {
	return p[start:end]
}

// Pivot sorts along d and returns the median.
func (p points) Pivot(d kdtree.Dim) int {
	sort.Sort(plane{points: p, dim: d})
	return len(p) / 2
}

type plane struct {
	points
	dim kdtree.Dim
}

func (p plane) Less(i, j int) bool {
	return coord(p.points[i].pos, p.dim) < coord(p.points[j].pos, p.dim)
}

func (p plane) Swap(i, j int) { p.points[i], p.points[j] = p.points[j], p.points[i] }

// Index is a static k-d tree over a list of positions.
type Index struct {
	tree *kdtree.Tree
	size int
}

// Build indexes positions. Query results refer to positions by slice index.
func Build(positions []r3.Vec) *Index {
	pts := make(points, len(positions))
	for i, p := range positions {
		pts[i] = point{pos: p, index: i}
	}
	return &Index{tree: kdtree.New(pts, false), size: len(pts)}
}

// Len returns the number of indexed positions.
func (ix *Index) Len() int { return ix.size }

// Nearest returns the index of the closest position and its distance.
// It returns -1 on an empty index.
func (ix *Index) Nearest(q r3.Vec) (int, float64) {
	if ix.size == 0 {
		return -1, math.Inf(1)
	}
	c, d := ix.tree.Nearest(point{pos: q})
	return c.(point).index, math.Sqrt(d)
}

// KNearest returns the indexes of the k closest positions, nearest first.
func (ix *Index) KNearest(q r3.Vec, k int) []int {
	if ix.size == 0 || k < 1 {
		return nil
	}
	keep := kdtree.NewNKeeper(k)
	ix.tree.NearestSet(keep, point{pos: q})

	found := make([]kdtree.ComparableDist, 0, len(keep.Heap))
	for _, cd := range keep.Heap {
		// The keeper is seeded with an empty sentinel.
		if cd.Comparable != nil {
			found = append(found, cd)
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].Dist < found[j].Dist })

	out := make([]int, len(found))
	for i, cd := range found {
		out[i] = cd.Comparable.(point).index
	}
	return out
}
