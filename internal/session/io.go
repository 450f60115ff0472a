package session

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/pkg/skinfile"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

func (s *Session) livePositions(progress Progress) ([]r3.Vec, error) {
	count, err := s.topology.VertexCount(s.object)
	if err != nil {
		return nil, err
	}
	out := make([]r3.Vec, count)
	for v := range out {
		if weights.Cancelled(progress) {
			return nil, ErrUserCancelled
		}
		if out[v], err = s.topology.WorldPosition(s.object, v); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Export writes the loaded binding to a skin file.
func (s *Session) Export(path string, progress Progress) error {
	if err := s.requireBinding(); err != nil {
		return err
	}
	positions, err := s.livePositions(progress)
	if err != nil {
		return err
	}
	matrices := make(map[string]mgl64.Mat4, len(s.influences))
	for _, inf := range s.influences {
		m, err := s.backend.InfluenceMatrix(inf)
		if err != nil {
			return fmt.Errorf("reading %s: %w", inf, err)
		}
		matrices[inf] = m
	}

	f, err := skinfile.Snapshot(skinfile.Source{
		Object: s.object,
		Binding: skinfile.BindingRecord{
			Name:               s.binding.Name,
			VertCount:          s.binding.VertexCount,
			MaxInfluences:      s.binding.MaxInfluences,
			SkinningMethod:     int(s.binding.Method),
			DQSSupportNonRigid: s.binding.SecondaryFlag,
		},
		Weights:    s.weights,
		Influences: s.influences,
		Matrices:   matrices,
		Positions:  positions,
	}, progress)
	if err != nil {
		return err
	}
	if err := skinfile.Save(path, f); err != nil {
		return err
	}
	s.log.Info("exported weights", zap.String("path", path), zap.Int("vertexes", len(f.Verts)))
	return nil
}

// Import applies a skin file to the loaded object. An unbound object is
// bound to the file's influences first. It returns the imported vertexes.
func (s *Session) Import(path string, opts skinfile.ImportOptions, progress Progress) ([]int, error) {
	switch {
	case s.object == "":
		return nil, ErrNoObject
	case s.corrupt:
		return nil, ErrCorruptBinding
	}

	f, err := skinfile.Load(path)
	if err != nil {
		return nil, err
	}
	live, err := s.livePositions(progress)
	if err != nil {
		return nil, err
	}
	res, err := skinfile.Resolve(f, s.backend, live, opts, progress)
	if err != nil {
		return nil, err
	}
	if len(res.Created) > 0 {
		s.log.Info("created missing influences", zap.Strings("influences", res.Created))
	}

	fresh := s.binding == nil
	if fresh {
		if err := s.bind(f, res.Influences); err != nil {
			if s.binding != nil {
				s.unbind()
			}
			return nil, err
		}
	}

	verts := res.Weights.Indexes()
	b := s.binding
	changed, err := s.recordExternal("Import weights", func() error {
		return s.backend.WriteWeights(b, res.Weights, verts, true)
	})
	if err != nil {
		if fresh {
			s.unbind()
		}
		return nil, err
	}
	s.log.Info("imported weights",
		zap.String("path", path),
		zap.Int("vertexes", len(verts)),
		zap.Int("changed", len(changed)),
	)
	return verts, nil
}

// bind creates a binding from a file's settings and loads it.
func (s *Session) bind(f *skinfile.File, infs []string) error {
	maxInfs := f.Binding.MaxInfluences
	if maxInfs < 1 {
		maxInfs = s.cfg.MaxInfluences
	}
	b, err := s.backend.CreateBinding(s.object, infs, maxInfs, SkinningMethod(f.Binding.SkinningMethod), f.Binding.Name)
	if err != nil {
		return fmt.Errorf("creating binding: %w", err)
	}
	b.SecondaryFlag = f.Binding.DQSSupportNonRigid
	s.binding = b
	return s.reload()
}

// unbind removes a binding made by a failed import and returns the session
// to its unbound state.
func (s *Session) unbind() {
	if err := s.backend.DeleteBinding(s.binding); err != nil {
		s.log.Warn("removing binding failed", zap.Error(err))
	}
	s.binding = nil
	s.weights = weights.New()
	s.influences = nil
	s.lockStates = nil
	s.displayInfs = nil
	s.infColors = nil
	s.colorInfluence = ""
}
