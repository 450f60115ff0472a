package memhost

import (
	"strings"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/internal/session"
	"github.com/Faultbox/weights-editor/pkg/names"
	"github.com/Faultbox/weights-editor/pkg/nearest"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// sidePairs are the naming conventions tried when matching an influence
// with its counterpart on the other side.
var sidePairs = [][2]string{
	{"L_", "R_"},
	{"l_", "r_"},
	{"Left", "Right"},
	{"left", "right"},
}

var sideSuffixes = [][2]string{
	{"_L", "_R"},
	{"_l", "_r"},
}

// Mirror implements session.SkinBackend. Vertexes on the destination side
// of the plane take the weights of the source vertex closest to their
// mirrored position. Every surface association uses the closest vertex.
func (h *Host) Mirror(b *session.Binding, opts session.MirrorOptions) error {
	sk, err := h.skin(b)
	if err != nil {
		return err
	}
	m := h.meshes[b.Object]

	// Positive to negative unless inverted. Vertexes on the plane are sources.
	sign := 1.0
	if opts.Inverse {
		sign = -1
	}
	var srcIdx []int
	var srcPos []r3.Vec
	var targets []int
	for v, p := range m.Positions {
		if sign*axisCoord(p, opts.Axis) >= 0 {
			srcIdx = append(srcIdx, v)
			srcPos = append(srcPos, p)
		} else {
			targets = append(targets, v)
		}
	}
	if len(opts.Vertexes) > 0 {
		wanted := make(map[int]bool, len(opts.Vertexes))
		for _, v := range opts.Vertexes {
			wanted[v] = true
		}
		filtered := targets[:0]
		for _, v := range targets {
			if wanted[v] {
				filtered = append(filtered, v)
			}
		}
		targets = filtered
	}
	if len(srcIdx) == 0 || len(targets) == 0 {
		return nil
	}

	infMap := h.mirrorInfluences(sk.influences, opts)
	ix := nearest.Build(srcPos)
	before := sk.weights.Copy()

	for _, v := range targets {
		i, _ := ix.Nearest(mirrorPoint(m.Positions[v], opts.Axis))
		src, err := before.Get(srcIdx[i])
		if err != nil {
			continue
		}
		mirrored := make(map[string]float64, len(src.Weights))
		for inf, w := range src.Weights {
			mirrored[infMap[inf]] += w
		}
		for inf := range mirrored {
			if err := h.attach(sk, inf); err != nil {
				return err
			}
		}
		sk.weights.Set(v, weights.VertexWeights{Weights: mirrored, Blend: src.Blend})
		if err := sk.weights.Normalize(v); err != nil {
			return err
		}
	}
	h.log.Debug("mirrored weights",
		zap.String("object", b.Object),
		zap.Stringer("plane", opts.Axis),
		zap.Int("vertexes", len(targets)),
	)
	return nil
}

// mirrorInfluences maps every influence to its counterpart. Name based
// associations fall back to the joint closest to the mirrored position.
func (h *Host) mirrorInfluences(infs []string, opts session.MirrorOptions) map[string]string {
	positions := make([]r3.Vec, len(infs))
	for i, inf := range infs {
		positions[i] = translation(h.joints[inf])
	}
	ix := nearest.Build(positions)

	out := make(map[string]string, len(infs))
	for i, inf := range infs {
		if opts.InfluenceAssociation != session.ClosestJoint {
			if other, ok := counterpart(inf); ok && h.InfluenceExists(other) {
				out[inf] = other
				continue
			}
		}
		j, _ := ix.Nearest(mirrorPoint(positions[i], opts.Axis))
		out[inf] = infs[j]
	}
	return out
}

// counterpart swaps the side marker in an influence name.
func counterpart(name string) (string, bool) {
	short := names.ShortName(name)
	prefix := strings.TrimSuffix(name, short)

	for _, pair := range sidePairs {
		for k := 0; k < 2; k++ {
			from, to := pair[k], pair[1-k]
			if strings.HasPrefix(short, from) {
				return prefix + to + strings.TrimPrefix(short, from), true
			}
		}
	}
	for _, pair := range sideSuffixes {
		for k := 0; k < 2; k++ {
			from, to := pair[k], pair[1-k]
			if strings.HasSuffix(short, from) {
				return prefix + strings.TrimSuffix(short, from) + to, true
			}
		}
	}
	return "", false
}

func axisCoord(p r3.Vec, a session.Axis) float64 {
	switch a {
	case session.AxisY:
		return p.Y
	case session.AxisZ:
		return p.Z
	default:
		return p.X
	}
}

func mirrorPoint(p r3.Vec, a session.Axis) r3.Vec {
	switch a {
	case session.AxisY:
		p.Y = -p.Y
	case session.AxisZ:
		p.Z = -p.Z
	default:
		p.X = -p.X
	}
	return p
}
