// Package memhost is an in-memory host application: meshes, joints, skin
// bindings and vertex colors kept in plain Go values. It backs the CLI and
// the session tests.
package memhost

import (
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/internal/session"
	"github.com/Faultbox/weights-editor/pkg/colors"
	"github.com/Faultbox/weights-editor/pkg/names"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Host errors.
var (
	ErrUnknownObject    = errors.New("object does not exist")
	ErrUnknownInfluence = errors.New("influence does not exist")
	ErrNotBound         = errors.New("object has no skin binding")
	ErrVertexRange      = errors.New("vertex index out of range")
)

// Mesh is the geometry of one object.
type Mesh struct {
	Positions []r3.Vec
	// Neighbors holds the edge-connected vertexes of each vertex.
	Neighbors [][]int
}

type skin struct {
	binding    session.Binding
	influences []string
	weights    *weights.WeightSet
}

// Host implements session.SkinBackend, session.MeshTopologyService,
// session.Display and locks.Registry.
type Host struct {
	meshes     map[string]*Mesh
	skins      map[string]*skin
	joints     map[string]mgl64.Mat4
	jointOrder []string
	locked     map[string]bool
	selection  map[string][]int
	colors     map[string]map[int]colors.RGB
	log        *zap.Logger
}

// New creates an empty scene.
func New(log *zap.Logger) *Host {
	if log == nil {
		log = zap.NewNop()
	}
	return &Host{
		meshes:    make(map[string]*Mesh),
		skins:     make(map[string]*skin),
		joints:    make(map[string]mgl64.Mat4),
		locked:    make(map[string]bool),
		selection: make(map[string][]int),
		colors:    make(map[string]map[int]colors.RGB),
		log:       log,
	}
}

// AddMesh adds or replaces an object.
func (h *Host) AddMesh(obj string, m *Mesh) {
	h.meshes[obj] = m
}

// Delete removes an object and its binding from the scene.
func (h *Host) Delete(obj string) {
	delete(h.meshes, obj)
	delete(h.skins, obj)
	delete(h.selection, obj)
	delete(h.colors, obj)
}

// AddJoint adds a joint at a world position and returns its name.
func (h *Host) AddJoint(name string, pos r3.Vec) string {
	name, _ = h.CreateInfluence(name, mgl64.Translate3D(pos.X, pos.Y, pos.Z))
	return name
}

// Joints returns every joint in creation order.
func (h *Host) Joints() []string {
	return slices.Clone(h.jointOrder)
}

// Select replaces the vertex selection of an object.
func (h *Host) Select(obj string, verts []int) {
	h.selection[obj] = slices.Clone(verts)
}

// Colors returns the last color applied to each vertex of an object.
func (h *Host) Colors(obj string) map[int]colors.RGB {
	return h.colors[obj]
}

// SetStorageCount overwrites a binding's weight entry count, as happens when
// the topology is edited after binding.
func (h *Host) SetStorageCount(obj string, n int) {
	if sk, ok := h.skins[obj]; ok {
		sk.binding.VertexCount = n
	}
}

func (h *Host) mesh(obj string) (*Mesh, error) {
	m, ok := h.meshes[obj]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownObject, obj)
	}
	return m, nil
}

func (h *Host) skin(b *session.Binding) (*skin, error) {
	if b == nil {
		return nil, ErrNotBound
	}
	sk, ok := h.skins[b.Object]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotBound, b.Object)
	}
	return sk, nil
}

// Binding implements session.SkinBackend.
func (h *Host) Binding(obj string) (*session.Binding, error) {
	if _, err := h.mesh(obj); err != nil {
		return nil, err
	}
	sk, ok := h.skins[obj]
	if !ok {
		return nil, nil
	}
	b := sk.binding
	return &b, nil
}

// ReadWeights implements session.SkinBackend.
func (h *Host) ReadWeights(b *session.Binding) (*weights.WeightSet, error) {
	sk, err := h.skin(b)
	if err != nil {
		return nil, err
	}
	return sk.weights.Copy(), nil
}

// WriteWeights implements session.SkinBackend. Influences that exist in the
// scene but not in the binding are added to it.
func (h *Host) WriteWeights(b *session.Binding, set *weights.WeightSet, verts []int, normalize bool) error {
	sk, err := h.skin(b)
	if err != nil {
		return err
	}
	if verts == nil {
		verts = set.Indexes()
	}
	count := len(h.meshes[b.Object].Positions)

	for _, v := range verts {
		if v < 0 || v >= count {
			return fmt.Errorf("%w: %d", ErrVertexRange, v)
		}
		vw, err := set.Get(v)
		if err != nil {
			return err
		}
		for _, inf := range vw.Influences() {
			if err := h.attach(sk, inf); err != nil {
				return err
			}
		}
		sk.weights.Set(v, vw)
		if normalize {
			if err := sk.weights.Normalize(v); err != nil {
				return err
			}
		}
	}
	h.log.Debug("wrote weights", zap.String("object", b.Object), zap.Int("vertexes", len(verts)))
	return nil
}

func (h *Host) attach(sk *skin, inf string) error {
	if slices.Contains(sk.influences, inf) {
		return nil
	}
	if _, ok := h.joints[inf]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInfluence, inf)
	}
	sk.influences = append(sk.influences, inf)
	slices.Sort(sk.influences)
	return nil
}

// CreateBinding implements session.SkinBackend. An existing binding is
// replaced. Every vertex starts fully weighted to its closest influence.
func (h *Host) CreateBinding(obj string, infs []string, maxInfs int, method session.SkinningMethod, name string) (*session.Binding, error) {
	m, err := h.mesh(obj)
	if err != nil {
		return nil, err
	}
	if len(infs) == 0 {
		return nil, fmt.Errorf("%w: no influences to bind", ErrUnknownInfluence)
	}
	joints := make([]r3.Vec, len(infs))
	for i, inf := range infs {
		mat, ok := h.joints[inf]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownInfluence, inf)
		}
		joints[i] = translation(mat)
	}
	if name == "" {
		name = "skinCluster"
	}

	set := weights.New()
	for v, p := range m.Positions {
		best := 0
		for i := range joints {
			if r3.Norm2(r3.Sub(p, joints[i])) < r3.Norm2(r3.Sub(p, joints[best])) {
				best = i
			}
		}
		set.Set(v, weights.VertexWeights{Weights: map[string]float64{infs[best]: 1}})
	}

	sk := &skin{
		binding: session.Binding{
			Name:          name,
			Object:        obj,
			VertexCount:   len(m.Positions),
			MaxInfluences: maxInfs,
			Method:        method,
		},
		influences: slices.Sorted(slices.Values(infs)),
		weights:    set,
	}
	h.skins[obj] = sk
	h.log.Debug("created binding", zap.String("object", obj), zap.String("binding", name))

	b := sk.binding
	return &b, nil
}

// DeleteBinding implements session.SkinBackend.
func (h *Host) DeleteBinding(b *session.Binding) error {
	if _, err := h.skin(b); err != nil {
		return err
	}
	delete(h.skins, b.Object)
	h.log.Debug("deleted binding", zap.String("object", b.Object), zap.String("binding", b.Name))
	return nil
}

// Prune implements session.SkinBackend. Unlocked weights below threshold
// are removed and the vertex is renormalized. A vertex whose unlocked
// weights would all be removed keeps its largest one.
func (h *Host) Prune(b *session.Binding, verts []int, threshold float64) error {
	sk, err := h.skin(b)
	if err != nil {
		return err
	}
	for _, v := range verts {
		vw, err := sk.weights.Get(v)
		if err != nil {
			return err
		}
		var largest string
		var largestWeight, lockedTotal, kept float64
		for _, inf := range vw.Influences() {
			w := vw.Weights[inf]
			if h.locked[inf] {
				lockedTotal += w
				continue
			}
			if largest == "" || w > largestWeight {
				largest, largestWeight = inf, w
			}
			if w < threshold {
				delete(vw.Weights, inf)
				continue
			}
			kept += w
		}
		if largest != "" && kept == 0 {
			vw.Weights[largest] = largestWeight
			kept = largestWeight
		}
		// Locked weights stay put; the surviving unlocked ones fill the rest.
		if kept > 0 {
			for inf, w := range vw.Weights {
				if !h.locked[inf] {
					vw.Weights[inf] = w * (1 - lockedTotal) / kept
				}
			}
		}
		sk.weights.Set(v, vw)
		if err := sk.weights.Normalize(v); err != nil {
			return err
		}
	}
	return nil
}

// RunExternalSmooth implements session.SkinBackend. Unlike the in-editor
// smooth it averages every influence found in the neighborhood, so weights
// can spread to influences the vertex didn't have.
func (h *Host) RunExternalSmooth(b *session.Binding, verts []int, strength float64, ignoreLocks bool) error {
	sk, err := h.skin(b)
	if err != nil {
		return err
	}
	if strength < 0 || strength > 1 {
		return fmt.Errorf("%w: strength %v", weights.ErrInvalidValue, strength)
	}
	m := h.meshes[b.Object]
	locked := func(inf string) bool { return !ignoreLocks && h.locked[inf] }

	pending := make(map[int]map[string]float64, len(verts))
	for _, v := range verts {
		if v < 0 || v >= len(m.Neighbors) {
			return fmt.Errorf("%w: %d", ErrVertexRange, v)
		}
		old, err := sk.weights.Get(v)
		if err != nil {
			return err
		}

		avg := make(map[string]float64)
		ring := append([]int{v}, m.Neighbors[v]...)
		for _, n := range ring {
			nw, err := sk.weights.Get(n)
			if err != nil {
				continue
			}
			for inf, w := range nw.Weights {
				avg[inf] += w / float64(len(ring))
			}
		}

		result := make(map[string]float64)
		var lockedTotal, unlockedTotal float64
		for inf, w := range old.Weights {
			if locked(inf) {
				result[inf] = w
				lockedTotal += w
			}
		}
		for inf, w := range avg {
			if locked(inf) {
				continue
			}
			result[inf] = old.Weights[inf] + (w-old.Weights[inf])*strength
			unlockedTotal += result[inf]
		}
		// Keep locked weights fixed by fitting the unlocked pool into what's left.
		if unlockedTotal > 0 {
			scale := (1 - lockedTotal) / unlockedTotal
			for inf := range result {
				if !locked(inf) {
					result[inf] *= scale
				}
			}
		}
		pending[v] = result
	}

	for v, result := range pending {
		sk.weights.Set(v, weights.VertexWeights{Weights: result, Blend: sk.weights.Blend(v)})
		if err := sk.weights.Normalize(v); err != nil {
			return err
		}
	}
	return nil
}

// Influences implements session.SkinBackend.
func (h *Host) Influences(b *session.Binding) ([]string, error) {
	sk, err := h.skin(b)
	if err != nil {
		return nil, err
	}
	return slices.Clone(sk.influences), nil
}

// InfluenceMatrix implements session.SkinBackend.
func (h *Host) InfluenceMatrix(name string) (mgl64.Mat4, error) {
	mat, ok := h.joints[name]
	if !ok {
		return mgl64.Mat4{}, fmt.Errorf("%w: %s", ErrUnknownInfluence, name)
	}
	return mat, nil
}

// ObjectExists implements session.SkinBackend.
func (h *Host) ObjectExists(obj string) bool {
	_, ok := h.meshes[obj]
	return ok
}

// CreateInfluence implements session.SkinBackend. Name clashes get a
// numeric suffix, the way the host renames new nodes.
func (h *Host) CreateInfluence(name string, world mgl64.Mat4) (string, error) {
	name = names.ShortName(names.Normalize(name))
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrUnknownInfluence)
	}
	unique := name
	for i := 1; ; i++ {
		if _, taken := h.joints[unique]; !taken {
			break
		}
		unique = name + strconv.Itoa(i)
	}
	h.joints[unique] = world
	h.jointOrder = append(h.jointOrder, unique)
	return unique, nil
}

// InfluenceExists implements session.SkinBackend.
func (h *Host) InfluenceExists(name string) bool {
	_, ok := h.joints[name]
	return ok
}

// FindInfluences implements session.SkinBackend.
func (h *Host) FindInfluences(short string) []string {
	var out []string
	for _, j := range h.jointOrder {
		if names.ShortName(j) == short {
			out = append(out, j)
		}
	}
	return out
}

// IsLocked implements locks.Registry.
func (h *Host) IsLocked(name string) bool {
	return h.locked[name]
}

// SetLocked implements locks.Registry.
func (h *Host) SetLocked(name string, locked bool) error {
	if _, ok := h.joints[name]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownInfluence, name)
	}
	h.locked[name] = locked
	return nil
}

// VertexCount implements session.MeshTopologyService.
func (h *Host) VertexCount(obj string) (int, error) {
	m, err := h.mesh(obj)
	if err != nil {
		return 0, err
	}
	return len(m.Positions), nil
}

// NeighborsOf implements session.MeshTopologyService.
func (h *Host) NeighborsOf(obj string, v int) ([]int, error) {
	m, err := h.mesh(obj)
	if err != nil {
		return nil, err
	}
	if v < 0 || v >= len(m.Neighbors) {
		return nil, fmt.Errorf("%w: %d", ErrVertexRange, v)
	}
	return slices.Clone(m.Neighbors[v]), nil
}

// SelectedVertexIndexes implements session.MeshTopologyService.
func (h *Host) SelectedVertexIndexes(obj string) ([]int, error) {
	if _, err := h.mesh(obj); err != nil {
		return nil, err
	}
	return slices.Clone(h.selection[obj]), nil
}

// WorldPosition implements session.MeshTopologyService.
func (h *Host) WorldPosition(obj string, v int) (r3.Vec, error) {
	m, err := h.mesh(obj)
	if err != nil {
		return r3.Vec{}, err
	}
	if v < 0 || v >= len(m.Positions) {
		return r3.Vec{}, fmt.Errorf("%w: %d", ErrVertexRange, v)
	}
	return m.Positions[v], nil
}

// ApplyColors implements session.Display.
func (h *Host) ApplyColors(obj string, verts []int, cols []colors.RGB) error {
	if _, err := h.mesh(obj); err != nil {
		return err
	}
	if len(verts) != len(cols) {
		return fmt.Errorf("got %d colors for %d vertexes", len(cols), len(verts))
	}
	applied := h.colors[obj]
	if applied == nil {
		applied = make(map[int]colors.RGB)
		h.colors[obj] = applied
	}
	for i, v := range verts {
		applied[v] = cols[i]
	}
	return nil
}

// translation returns the world position held by a transform.
func translation(m mgl64.Mat4) r3.Vec {
	t := m.Col(3)
	return r3.Vec{X: t.X(), Y: t.Y(), Z: t.Z()}
}
