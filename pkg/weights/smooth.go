package weights

import "fmt"

// NeighborProvider returns the vertexes adjacent to v.
type NeighborProvider func(v int) ([]int, error)

// AverageByNeighbors computes new weights for vertex v from the weights of
// its neighbors. Locked influences are copied verbatim. The unlocked
// influences are replaced by the neighbor average, rescaled to the unlocked
// total the vertex had, then blended with the old values by strength.
// The result is not normalized and the set is not modified.
func (s *WeightSet) AverageByNeighbors(v int, locked LockLookup, neighbors []int, strength float64) (map[string]float64, error) {
	if strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: strength %v", ErrInvalidValue, strength)
	}
	vw, ok := s.data[v]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	if locked == nil {
		locked = NoLocks
	}

	result := make(map[string]float64, len(vw.Weights))
	unlocked := make(map[string]float64)
	var total float64

	for _, inf := range sortedNames(vw.Weights) {
		w := vw.Weights[inf]
		if locked(inf) {
			result[inf] = w
			continue
		}
		unlocked[inf] = w
		total += w
	}

	// Smoothing needs at least two unlocked influences to move weight between.
	if len(unlocked) < 2 {
		return vw.Clone().Weights, nil
	}

	acc := make(map[string]float64, len(unlocked))
	for _, n := range neighbors {
		nw, ok := s.data[n]
		if !ok {
			continue
		}
		for inf, w := range nw.Weights {
			if _, ok := unlocked[inf]; ok {
				acc[inf] += w
			}
		}
	}

	var totalAll float64
	for _, inf := range sortedNames(acc) {
		totalAll += acc[inf]
	}
	if totalAll == 0 {
		return vw.Clone().Weights, nil
	}

	for _, inf := range sortedNames(unlocked) {
		old := unlocked[inf]
		avg := acc[inf] * (total / totalAll)
		result[inf] = old + (avg-old)*strength
	}
	return result, nil
}

// Smooth averages the given vertexes with their neighbors. All new weights
// are computed from the pre-batch values before any of them is written, so
// the result does not depend on the order of verts. Written vertexes are
// normalized. On cancellation the set is left untouched.
func (s *WeightSet) Smooth(verts []int, locked LockLookup, neighbors NeighborProvider, strength float64, progress Progress) error {
	pending := make(map[int]map[string]float64, len(verts))

	for _, v := range verts {
		if cancelled(progress) {
			return ErrUserCancelled
		}
		ids, err := neighbors(v)
		if err != nil {
			return fmt.Errorf("neighbors of %d: %w", v, err)
		}
		w, err := s.AverageByNeighbors(v, locked, ids, strength)
		if err != nil {
			return err
		}
		pending[v] = w
	}

	for v, w := range pending {
		s.data[v].Weights = w
		if err := s.Normalize(v); err != nil {
			return err
		}
	}
	return nil
}
