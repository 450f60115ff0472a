package session

import (
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/weights-editor/internal/locks"
	"github.com/Faultbox/weights-editor/internal/undo"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// SmoothScope selects which influences smoothing may redistribute.
type SmoothScope int

const (
	// VertexInfluencesOnly averages only the influences already on a vertex.
	VertexInfluencesOnly SmoothScope = iota
	// AllInfluences lets the host pull in influences from the neighborhood.
	AllInfluences
)

// String returns the scope name.
func (sc SmoothScope) String() string {
	switch sc {
	case VertexInfluencesOnly:
		return "VertexInfluencesOnly"
	case AllInfluences:
		return "AllInfluences"
	default:
		return fmt.Sprintf("Unknown(%d)", int(sc))
	}
}

func (s *Session) lockLookup() weights.LockLookup {
	return locks.Lookup(s.registry)
}

// commit records an edit. A live edit is already on the host and in
// s.weights, so the stack must not apply it again.
func (s *Session) commit(desc string, old, updated *weights.WeightSet, verts []int, cells []Cell, live bool) error {
	cmd := undo.NewEditWeights(s, undo.EditWeightsConfig{
		Description:    desc,
		Object:         s.object,
		Old:            old,
		New:            updated,
		Vertexes:       verts,
		Selection:      s.snapshot(cells),
		SkipFirstApply: live,
	}, s.log)
	return s.stack.Push(cmd)
}

// recordExternal runs an operation the host performs on its own, rereads
// the weights and records the difference.
func (s *Session) recordExternal(desc string, run func() error) ([]int, error) {
	old := s.weights.Copy()
	if err := run(); err != nil {
		return nil, fmt.Errorf("%s: %w", desc, err)
	}
	if err := s.reload(); err != nil {
		return nil, err
	}
	changed := changedVertexes(old, s.weights)
	if len(changed) == 0 {
		s.log.Debug("operation changed nothing", zap.String("op", desc))
		return nil, nil
	}
	if err := s.DrawColors(changed); err != nil {
		s.log.Warn("drawing colors failed", zap.Error(err))
	}
	return changed, s.commit(desc, old, s.weights, changed, nil, true)
}

// changedVertexes lists the vertexes whose weights differ between a and b.
func changedVertexes(a, b *weights.WeightSet) []int {
	var out []int
	for _, v := range a.Indexes() {
		if !a.Equal(b, []int{v}) {
			out = append(out, v)
		}
	}
	for _, v := range b.Indexes() {
		if !a.Has(v) {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return out
}

func (s *Session) requireSelection() ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	var sel []int
	for _, v := range s.selected {
		if s.weights.Has(v) {
			sel = append(sel, v)
		}
	}
	if len(sel) == 0 {
		return nil, ErrNoSelection
	}
	return sel, nil
}

func editDescription(input float64, op weights.Operation) string {
	switch op {
	case weights.Relative:
		if input < 0 {
			return "Subtract weights"
		}
		return "Add weights"
	case weights.Percentage:
		return "Scale weights"
	default:
		return "Set weights"
	}
}

// EditWeights changes the given table cells by input, combined with the
// current values by op. Every edited vertex stays normalized. It returns
// the edited vertexes.
func (s *Session) EditWeights(cells []Cell, input float64, op weights.Operation) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	if math.IsNaN(input) || (op == weights.Absolute && (input < 0 || input > 1)) {
		return nil, fmt.Errorf("%w: got %v", ErrInvalidValue, input)
	}

	locked := s.lockLookup()
	updated := s.weights.Copy()
	var edited []Cell
	var verts []int
	for _, c := range cells {
		if !updated.Has(c.Vertex) || !slices.Contains(s.influences, c.Influence) || locked(c.Influence) {
			continue
		}
		old, value := updated.CalculateNewValue(input, c.Vertex, c.Influence, op)
		if op == weights.Absolute && weights.IsClose(old, value) {
			continue
		}
		if err := updated.UpdateWeight(c.Vertex, c.Influence, value, locked); err != nil {
			return nil, err
		}
		edited = append(edited, c)
		if !slices.Contains(verts, c.Vertex) {
			verts = append(verts, c.Vertex)
		}
	}
	if len(edited) == 0 {
		return nil, ErrNoSelection
	}
	slices.Sort(verts)

	if err := s.commit(editDescription(input, op), s.weights, updated, verts, edited, false); err != nil {
		return nil, err
	}
	return verts, nil
}

// ScaleWeights scales the given cells by percent in [-100, 100], where
// -100 zeroes them and 100 doubles them.
func (s *Session) ScaleWeights(cells []Cell, percent float64) ([]int, error) {
	if math.IsNaN(percent) || percent < -100 || percent > 100 {
		return nil, fmt.Errorf("%w: scale percent %v", ErrInvalidValue, percent)
	}
	return s.EditWeights(cells, weights.PercentToMultiplier(percent), weights.Percentage)
}

// Prune has the host drop weights below threshold on the selection.
func (s *Session) Prune(threshold float64) ([]int, error) {
	sel, err := s.requireSelection()
	if err != nil {
		return nil, err
	}
	if math.IsNaN(threshold) || threshold < 0 || threshold > 1 {
		return nil, fmt.Errorf("%w: threshold %v", ErrInvalidValue, threshold)
	}
	b := s.binding
	return s.recordExternal("Prune weights", func() error {
		return s.backend.Prune(b, sel, threshold)
	})
}

// PruneMaxInfluences limits every selected vertex to maxInfs influences.
func (s *Session) PruneMaxInfluences(maxInfs int) ([]int, error) {
	sel, err := s.requireSelection()
	if err != nil {
		return nil, err
	}
	locked := s.lockLookup()
	updated := s.weights.Copy()
	var verts []int
	for _, v := range sel {
		changed, err := updated.PruneMaxInfluences(v, maxInfs, locked)
		if err != nil {
			return nil, err
		}
		if changed {
			verts = append(verts, v)
		}
	}
	if len(verts) == 0 {
		return nil, nil
	}
	if err := s.commit("Prune max influences", s.weights, updated, verts, nil, false); err != nil {
		return nil, err
	}
	return verts, nil
}

// RunSmooth smooths the selection with its neighbors.
func (s *Session) RunSmooth(strength float64, scope SmoothScope, progress Progress) ([]int, error) {
	sel, err := s.requireSelection()
	if err != nil {
		return nil, err
	}
	if math.IsNaN(strength) || strength < 0 || strength > 1 {
		return nil, fmt.Errorf("%w: strength %v", ErrInvalidValue, strength)
	}
	if weights.Cancelled(progress) {
		return nil, ErrUserCancelled
	}

	if scope == AllInfluences {
		b := s.binding
		return s.recordExternal("Smooth weights (all influences)", func() error {
			return s.backend.RunExternalSmooth(b, sel, strength, false)
		})
	}

	obj := s.object
	neighbors := func(v int) ([]int, error) {
		return s.topology.NeighborsOf(obj, v)
	}
	old := s.weights.Copy()
	updated := s.weights.Copy()
	if err := updated.Smooth(sel, s.lockLookup(), neighbors, strength, progress); err != nil {
		return nil, err
	}
	if err := s.ReplaceWeights(obj, updated, sel); err != nil {
		return nil, err
	}
	if err := s.commit("Smooth weights", old, updated, sel, nil, true); err != nil {
		return nil, err
	}
	return sel, nil
}

// Mirror has the host copy weights across the mirror plane.
func (s *Session) Mirror(opts MirrorOptions) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	if opts.SelectionOnly {
		sel, err := s.requireSelection()
		if err != nil {
			return nil, err
		}
		opts.Vertexes = sel
	}
	b := s.binding
	return s.recordExternal("Mirror weights", func() error {
		return s.backend.Mirror(b, opts)
	})
}

// AddInfluenceToVertices adds each named influence to every vertex that
// doesn't have it yet, at a small starting weight.
func (s *Session) AddInfluenceToVertices(names []string, verts []int) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	locked := s.lockLookup()
	updated := s.weights.Copy()
	var edited []int
	for _, name := range names {
		if !slices.Contains(s.influences, name) || locked(name) {
			continue
		}
		for _, v := range verts {
			if !updated.Has(v) || updated.Weight(v, name) > 0 {
				continue
			}
			if err := updated.UpdateWeight(v, name, s.cfg.AddInfluenceWeight, locked); err != nil {
				return nil, err
			}
			if !slices.Contains(edited, v) {
				edited = append(edited, v)
			}
		}
	}
	if len(edited) == 0 {
		return nil, ErrNoSelection
	}
	slices.Sort(edited)
	if err := s.commit("Add influence to verts", s.weights, updated, edited, nil, false); err != nil {
		return nil, err
	}
	return edited, nil
}

// CopyVertex stores a vertex's weights for PasteVertex.
func (s *Session) CopyVertex(v int) error {
	if err := s.requireBinding(); err != nil {
		return err
	}
	vw, err := s.weights.CopyVertex(v)
	if err != nil {
		return err
	}
	s.copied = &vw
	return nil
}

// PasteVertex overwrites targets with the copied weights as they are.
func (s *Session) PasteVertex(targets []int) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	if s.copied == nil {
		return nil, ErrNothingCopied
	}
	updated := s.weights.Copy()
	var verts []int
	for _, v := range targets {
		if !updated.Has(v) || slices.Contains(verts, v) {
			continue
		}
		updated.Set(v, s.copied.Clone())
		verts = append(verts, v)
	}
	if len(verts) == 0 {
		return nil, ErrNoSelection
	}
	slices.Sort(verts)
	if err := s.commit("Paste weights", s.weights, updated, verts, nil, false); err != nil {
		return nil, err
	}
	return verts, nil
}

// ToggleLocks locks or unlocks the named influences.
func (s *Session) ToggleLocks(names []string, locked bool) error {
	if err := s.requireBinding(); err != nil {
		return err
	}
	var valid []string
	for _, name := range names {
		if slices.Contains(s.influences, name) {
			valid = append(valid, name)
		}
	}
	if len(valid) == 0 {
		return fmt.Errorf("%w: %v", ErrUnknownInfluence, names)
	}
	return s.stack.Push(undo.NewToggleLocks(s, s.registry, valid, locked, s.log))
}
