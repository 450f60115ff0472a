package session

import (
	"cmp"
	"fmt"
	"slices"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/pkg/colors"
	"github.com/Faultbox/weights-editor/pkg/nearest"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// SortOrder orders the rows of the weights table.
type SortOrder int

const (
	// VertexOrder sorts rows by vertex index.
	VertexOrder SortOrder = iota
	// Ascending sorts rows by an influence's weight, lowest first.
	Ascending
	// Descending sorts rows by an influence's weight, highest first.
	Descending
)

// SelectInfluenceVertexes selects every vertex weighted to any of names and
// returns it.
func (s *Session) SelectInfluenceVertexes(names []string) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	verts := s.weights.AffectedBy(names)
	s.setSelected(verts)
	return slices.Clone(verts), nil
}

// SortVertexes reorders the table rows. Ties keep vertex order.
func (s *Session) SortVertexes(influence string, order SortOrder) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	if order != VertexOrder && !slices.Contains(s.influences, influence) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInfluence, influence)
	}
	rows := slices.Clone(s.rows)
	slices.Sort(rows)
	if order != VertexOrder {
		slices.SortStableFunc(rows, func(a, b int) int {
			c := cmp.Compare(s.weights.Weight(a, influence), s.weights.Weight(b, influence))
			if order == Descending {
				return -c
			}
			return c
		})
	}
	s.rows = rows
	return slices.Clone(rows), nil
}

// FloodToClosest gives every vertex full weight on its closest influence.
func (s *Session) FloodToClosest(progress Progress) ([]int, error) {
	if err := s.requireBinding(); err != nil {
		return nil, err
	}
	if len(s.influences) == 0 {
		return nil, fmt.Errorf("%w: binding has no influences", ErrUnknownInfluence)
	}

	positions := make([]r3.Vec, len(s.influences))
	for i, inf := range s.influences {
		m, err := s.backend.InfluenceMatrix(inf)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", inf, err)
		}
		t := m.Col(3)
		positions[i] = r3.Vec{X: t.X(), Y: t.Y(), Z: t.Z()}
	}
	index := nearest.Build(positions)

	updated := s.weights.Copy()
	verts := updated.Indexes()
	for _, v := range verts {
		if weights.Cancelled(progress) {
			return nil, ErrUserCancelled
		}
		p, err := s.topology.WorldPosition(s.object, v)
		if err != nil {
			return nil, err
		}
		closest, _ := index.Nearest(p)
		updated.Set(v, weights.VertexWeights{
			Weights: map[string]float64{s.influences[closest]: 1},
			Blend:   updated.Blend(v),
		})
	}

	return s.recordExternal("Flood weights to closest", func() error {
		return s.backend.WriteWeights(s.binding, updated, verts, true)
	})
}

// SetColorInfluence picks the influence drawn by the single influence themes.
func (s *Session) SetColorInfluence(name string) error {
	if err := s.requireBinding(); err != nil {
		return err
	}
	if !slices.Contains(s.influences, name) {
		return fmt.Errorf("%w: %s", ErrUnknownInfluence, name)
	}
	s.colorInfluence = name
	return s.DrawColors(nil)
}

// SetColorTheme switches the color theme and redraws.
func (s *Session) SetColorTheme(t colors.Theme) error {
	s.theme = t
	if s.object == "" || s.binding == nil || s.corrupt {
		return nil
	}
	return s.DrawColors(nil)
}

// DrawColors sends the weight colors of filter, or of every vertex when
// filter is nil, to the display.
func (s *Session) DrawColors(filter []int) error {
	if s.display == nil {
		return nil
	}
	if err := s.requireBinding(); err != nil {
		return err
	}
	verts := filter
	if verts == nil {
		verts = s.weights.Indexes()
	}
	if len(verts) == 0 {
		return nil
	}

	palette := s.theme.Palette()
	cols := make([]colors.RGB, 0, len(verts))
	drawn := make([]int, 0, len(verts))
	for _, v := range verts {
		vw, err := s.weights.Get(v)
		if err != nil {
			continue
		}
		var c colors.RGB
		switch s.theme {
		case colors.ThemeSoftimage:
			c = colors.Blend(vw.Weights, s.infColors)
		case colors.ThemeMaximumInfluences:
			c = colors.MaxInfluences(len(vw.Weights), s.maxInfluences())
		default:
			w, ok := vw.Weights[s.colorInfluence]
			if ok {
				c = colors.WeightColor(w, palette)
			} else {
				c = palette.None
			}
		}
		drawn = append(drawn, v)
		cols = append(cols, c)
	}
	if err := s.display.ApplyColors(s.object, drawn, cols); err != nil {
		return fmt.Errorf("applying colors: %w", err)
	}
	s.log.Debug("drew colors", zap.Stringer("theme", s.theme), zap.Int("vertexes", len(drawn)))
	return nil
}

func (s *Session) maxInfluences() int {
	if s.binding != nil && s.binding.MaxInfluences > 0 {
		return s.binding.MaxInfluences
	}
	return s.cfg.MaxInfluences
}
