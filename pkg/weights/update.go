package weights

import (
	"fmt"
	"math"
	"sort"
)

// Operation selects how an input value is combined with an existing weight.
type Operation int

const (
	Absolute   Operation = iota // new = input
	Relative                    // new = clamp(old + input)
	Percentage                  // new = clamp(old * input)
)

// String returns a human-readable operation name.
func (op Operation) String() string {
	switch op {
	case Absolute:
		return "Absolute"
	case Relative:
		return "Relative"
	case Percentage:
		return "Percentage"
	default:
		return fmt.Sprintf("Unknown(%d)", int(op))
	}
}

// CalculateNewValue returns the current weight of an influence and the value
// it would be set to by op. It does not modify the set.
func (s *WeightSet) CalculateNewValue(input float64, v int, name string, op Operation) (oldValue, newValue float64) {
	oldValue = s.Weight(v, name)
	switch op {
	case Relative:
		newValue = Clamp(0, 1, oldValue+input)
	case Percentage:
		newValue = Clamp(0, 1, oldValue*input)
	default:
		newValue = input
	}
	return oldValue, newValue
}

// UpdateWeight sets an influence's weight on a vertex and redistributes the
// difference over the vertex's other unlocked influences so the sum stays
// 1.0. Locked influences keep their weight and are left out of the pool.
func (s *WeightSet) UpdateWeight(v int, name string, newValue float64, locked LockLookup) error {
	if math.IsNaN(newValue) || newValue < 0 || newValue > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidValue, newValue)
	}

	vw, ok := s.data[v]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	if locked == nil {
		locked = NoLocks
	}

	if locked(name) {
		return nil
	}

	if vw.Weights == nil {
		vw.Weights = make(map[string]float64)
	}
	if _, ok := vw.Weights[name]; !ok {
		vw.Weights[name] = 0
	}

	var total float64
	var unlocked []string
	for _, inf := range sortedNames(vw.Weights) {
		if locked(inf) {
			continue
		}
		total += vw.Weights[inf]
		unlocked = append(unlocked, inf)
	}

	if len(unlocked) > 1 {
		// The target can't claim more than the unlocked pool holds.
		newValue = math.Min(newValue, total)
		rest := total - vw.Weights[name]

		if rest > AbsTolerance {
			ratio := (total - newValue) / rest
			for _, inf := range unlocked {
				if inf != name {
					vw.Weights[inf] *= ratio
				}
			}
		} else {
			// The target held the whole pool, so the others have nothing to
			// scale. Skipping them here would leave the vertex short of 1;
			// instead they get the complement in equal parts.
			share := (total - newValue) / float64(len(unlocked)-1)
			for _, inf := range unlocked {
				if inf != name {
					vw.Weights[inf] += share
				}
			}
		}
		vw.Weights[name] = newValue
	}

	vw.prune()
	return nil
}

// prune drops zero weights and forces a lone influence to exactly 1.0.
func (vw *VertexWeights) prune() {
	for inf, w := range vw.Weights {
		if IsClose(0, w) {
			delete(vw.Weights, inf)
		}
	}
	if len(vw.Weights) == 1 {
		for inf := range vw.Weights {
			vw.Weights[inf] = 1
		}
	}
}

// Normalize rescales a vertex so its weights sum to 1.0 and prunes zeros.
// Vertexes without influences are left unbound.
func (s *WeightSet) Normalize(v int) error {
	vw, ok := s.data[v]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	for inf, w := range vw.Weights {
		if w < 0 {
			vw.Weights[inf] = 0
		}
	}
	total := vw.Sum()
	if total > 0 && !IsClose(total, 1) {
		for inf := range vw.Weights {
			vw.Weights[inf] /= total
		}
	}
	vw.prune()
	return nil
}

// PruneMaxInfluences limits a vertex to maxInfs influences. Locked influences
// are always kept and count towards the limit. The largest unlocked weights fill the
// remaining slots and are rescaled to the unlocked total they replace. At
// least one unlocked influence survives when the unlocked pool is non-zero.
// It reports whether the vertex changed.
func (s *WeightSet) PruneMaxInfluences(v int, maxInfs int, locked LockLookup) (bool, error) {
	if maxInfs < 1 {
		return false, fmt.Errorf("%w: max influences %d", ErrInvalidValue, maxInfs)
	}
	vw, ok := s.data[v]
	if !ok {
		return false, fmt.Errorf("%w: %d", ErrUnknownVertex, v)
	}
	if len(vw.Weights) <= maxInfs {
		return false, nil
	}
	if locked == nil {
		locked = NoLocks
	}

	var lockedCount int
	var total float64
	var unlocked []string
	for _, inf := range sortedNames(vw.Weights) {
		if locked(inf) {
			lockedCount++
			continue
		}
		total += vw.Weights[inf]
		unlocked = append(unlocked, inf)
	}

	keep := maxInfs - lockedCount
	if keep < 1 {
		keep = 1
	}
	if keep >= len(unlocked) {
		return false, nil
	}

	sort.SliceStable(unlocked, func(i, j int) bool {
		return vw.Weights[unlocked[i]] > vw.Weights[unlocked[j]]
	})

	var kept float64
	for _, inf := range unlocked[:keep] {
		kept += vw.Weights[inf]
	}
	for _, inf := range unlocked[keep:] {
		delete(vw.Weights, inf)
	}
	if kept > 0 {
		for _, inf := range unlocked[:keep] {
			vw.Weights[inf] *= total / kept
		}
	}

	vw.prune()
	return true, nil
}
