package memhost

import "gonum.org/v1/gonum/spatial/r3"

// Grid builds a flat cols x rows mesh in the XY plane, centered on X = 0,
// with edge neighbors. Vertex index is row*cols + col.
func Grid(cols, rows int, spacing float64) *Mesh {
	m := &Mesh{
		Positions: make([]r3.Vec, 0, cols*rows),
		Neighbors: make([][]int, cols*rows),
	}
	offset := float64(cols-1) / 2
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			m.Positions = append(m.Positions, r3.Vec{
				X: (float64(c) - offset) * spacing,
				Y: float64(r) * spacing,
			})
			v := r*cols + c
			if c > 0 {
				m.Neighbors[v] = append(m.Neighbors[v], v-1)
			}
			if c < cols-1 {
				m.Neighbors[v] = append(m.Neighbors[v], v+1)
			}
			if r > 0 {
				m.Neighbors[v] = append(m.Neighbors[v], v-cols)
			}
			if r < rows-1 {
				m.Neighbors[v] = append(m.Neighbors[v], v+cols)
			}
		}
	}
	return m
}
