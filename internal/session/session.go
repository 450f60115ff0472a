// Package session implements the skin weight editing session: the state of
// the object being edited and every operation the editor offers on it.
//
// A Session is driven from a single goroutine. Long operations poll a
// Progress between iterations instead of running in the background.
package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Faultbox/weights-editor/internal/config"
	"github.com/Faultbox/weights-editor/internal/locks"
	"github.com/Faultbox/weights-editor/internal/undo"
	"github.com/Faultbox/weights-editor/pkg/colors"
	"github.com/Faultbox/weights-editor/pkg/skinfile"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Session errors.
var (
	ErrNoObject         = errors.New("no object is loaded")
	ErrNoBinding        = errors.New("object has no skin binding")
	ErrCorruptBinding   = errors.New("binding doesn't match the mesh, the topology changed after binding")
	ErrNoSelection      = errors.New("nothing is selected")
	ErrNothingCopied    = errors.New("no vertex has been copied")
	ErrUnknownInfluence = errors.New("influence is not bound to the object")
	ErrSessionActive    = errors.New("object is already being edited")

	ErrInvalidValue        = weights.ErrInvalidValue
	ErrUserCancelled       = weights.ErrUserCancelled
	ErrVertexCountMismatch = skinfile.ErrVertexCountMismatch
	ErrMissingInfluence    = skinfile.ErrMissingInfluence
)

// Cell addresses one entry of the weights table.
type Cell = undo.Cell

// Selection is the table selection saved with every command.
type Selection = undo.Selection

// Guard allows a single active session per object.
type Guard struct {
	active map[string]uuid.UUID
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[string]uuid.UUID)}
}

// Acquire claims obj for the session id.
func (g *Guard) Acquire(obj string, id uuid.UUID) error {
	if owner, ok := g.active[obj]; ok && owner != id {
		return fmt.Errorf("%w: %s", ErrSessionActive, obj)
	}
	g.active[obj] = id
	return nil
}

// Release frees obj if id holds it.
func (g *Guard) Release(obj string, id uuid.UUID) {
	if g.active[obj] == id {
		delete(g.active, obj)
	}
}

// Option configures a Session.
type Option func(*Session)

// WithDisplay sets where weight colors are drawn.
func WithDisplay(d Display) Option {
	return func(s *Session) { s.display = d }
}

// WithLogger sets the session logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Session) { s.log = l }
}

// WithConfig sets the editor settings.
func WithConfig(cfg config.EditorConfig) Option {
	return func(s *Session) { s.cfg = cfg }
}

// WithUndoStack replaces the session's undo history.
func WithUndoStack(st *undo.Stack) Option {
	return func(s *Session) { s.stack = st }
}

// WithGuard shares a guard between sessions.
func WithGuard(g *Guard) Option {
	return func(s *Session) { s.guard = g }
}

// Session is the editing state of one skinned object.
type Session struct {
	id       uuid.UUID
	backend  SkinBackend
	topology MeshTopologyService
	registry locks.Registry
	display  Display
	guard    *Guard
	cfg      config.EditorConfig
	theme    colors.Theme
	log      *zap.Logger
	stack    *undo.Stack

	object         string
	binding        *Binding
	corrupt        bool
	weights        *weights.WeightSet
	influences     []string
	lockStates     locks.States
	selected       []int
	rows           []int
	displayInfs    []string
	colorInfluence string
	infColors      map[string]colors.RGB
	copied         *weights.VertexWeights

	handlers []func(Selection)
}

// New creates a session with no object loaded.
func New(backend SkinBackend, topology MeshTopologyService, registry locks.Registry, opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		backend:  backend,
		topology: topology,
		registry: registry,
		cfg:      config.Default().Editor,
		weights:  weights.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	s.log = s.log.With(zap.Stringer("session", s.id))
	if s.stack == nil {
		s.stack = undo.NewStack(s.cfg.UndoCapacity, s.log)
	}
	if s.guard == nil {
		s.guard = NewGuard()
	}
	theme, err := colors.ParseTheme(s.cfg.ColorTheme)
	if err != nil {
		s.log.Warn("unknown color theme, using max", zap.String("theme", s.cfg.ColorTheme))
	}
	s.theme = theme
	return s
}

// ID identifies the session.
func (s *Session) ID() uuid.UUID { return s.id }

// Object returns the loaded object, or "" when none is loaded.
func (s *Session) Object() string { return s.object }

// Binding returns a copy of the loaded binding, or nil.
func (s *Session) Binding() *Binding {
	if s.binding == nil {
		return nil
	}
	b := *s.binding
	return &b
}

// Weights returns a copy of the session's weights.
func (s *Session) Weights() *weights.WeightSet { return s.weights.Copy() }

// Influences returns the bound influences, sorted.
func (s *Session) Influences() []string { return slices.Clone(s.influences) }

// LockStates returns the cached lock flags, parallel to Influences.
func (s *Session) LockStates() locks.States { return slices.Clone(s.lockStates) }

// Selected returns the selected vertexes.
func (s *Session) Selected() []int { return slices.Clone(s.selected) }

// Rows returns the vertexes shown in the weights table, in display order.
func (s *Session) Rows() []int { return slices.Clone(s.rows) }

// DisplayInfluences returns the influences shown as table columns.
func (s *Session) DisplayInfluences() []string { return slices.Clone(s.displayInfs) }

// ColorInfluence returns the influence whose weights are drawn.
func (s *Session) ColorInfluence() string { return s.colorInfluence }

// Theme returns the color theme.
func (s *Session) Theme() colors.Theme { return s.theme }

// UndoStack returns the session's history.
func (s *Session) UndoStack() *undo.Stack { return s.stack }

// Load makes obj the edited object. The undo history is cleared.
// An object without a binding loads empty and returns ErrNoBinding.
func (s *Session) Load(obj string) error {
	s.reset()
	if obj == "" {
		return ErrNoObject
	}
	if !s.backend.ObjectExists(obj) {
		return fmt.Errorf("%w: %s does not exist", ErrNoObject, obj)
	}
	if err := s.guard.Acquire(obj, s.id); err != nil {
		return err
	}
	s.object = obj
	log := s.log.With(zap.String("object", obj))

	b, err := s.backend.Binding(obj)
	if err != nil {
		return fmt.Errorf("reading binding: %w", err)
	}
	if b == nil {
		log.Debug("object has no binding")
		return fmt.Errorf("%w: %s", ErrNoBinding, obj)
	}
	s.binding = b

	count, err := s.topology.VertexCount(obj)
	if err != nil {
		return fmt.Errorf("counting vertexes: %w", err)
	}
	if b.VertexCount != count {
		s.corrupt = true
		log.Warn("corrupt binding", zap.Int("stored", b.VertexCount), zap.Int("mesh", count))
		return fmt.Errorf("%w (mesh: %d, binding: %d)", ErrCorruptBinding, count, b.VertexCount)
	}

	if err := s.reload(); err != nil {
		return err
	}
	selected, err := s.topology.SelectedVertexIndexes(obj)
	if err != nil {
		return fmt.Errorf("reading selection: %w", err)
	}
	s.setSelected(selected)

	if s.colorInfluence == "" && len(s.influences) > 0 {
		s.colorInfluence = s.influences[0]
	}
	if err := s.DrawColors(nil); err != nil {
		log.Warn("drawing colors failed", zap.Error(err))
	}

	log.Info("loaded object",
		zap.String("binding", b.Name),
		zap.Int("vertexes", s.weights.Len()),
		zap.Int("influences", len(s.influences)),
	)
	return nil
}

// Close releases the object for other sessions.
func (s *Session) Close() {
	s.reset()
}

func (s *Session) reset() {
	if s.object != "" {
		s.guard.Release(s.object, s.id)
	}
	s.object = ""
	s.binding = nil
	s.corrupt = false
	s.weights = weights.New()
	s.influences = nil
	s.lockStates = nil
	s.selected = nil
	s.rows = nil
	s.displayInfs = nil
	s.colorInfluence = ""
	s.infColors = nil
	s.copied = nil
	s.stack.Clear()
}

// reload rereads weights, influences and locks from the host.
func (s *Session) reload() error {
	set, err := s.backend.ReadWeights(s.binding)
	if err != nil {
		return fmt.Errorf("reading weights: %w", err)
	}
	s.weights = set
	return s.collectInfluences()
}

func (s *Session) collectInfluences() error {
	infs, err := s.backend.Influences(s.binding)
	if err != nil {
		return fmt.Errorf("reading influences: %w", err)
	}
	slices.Sort(infs)
	s.influences = infs
	s.lockStates = locks.Collect(s.registry, infs)
	s.infColors = colors.InfluenceColors(infs)
	s.collectDisplayInfluences()
	return nil
}

// collectDisplayInfluences picks the table columns: every influence, or only
// those weighted on the selection.
func (s *Session) collectDisplayInfluences() {
	if s.cfg.ShowAllInfluences {
		s.displayInfs = slices.Clone(s.influences)
		return
	}
	s.displayInfs = s.weights.Subset(s.selected).Influences()
}

// requireBinding checks that a healthy binding is loaded.
func (s *Session) requireBinding() error {
	switch {
	case s.object == "":
		return ErrNoObject
	case s.corrupt:
		return ErrCorruptBinding
	case s.binding == nil:
		return ErrNoBinding
	}
	return nil
}

// OnSelectionChanged registers a handler called after the selection changes.
func (s *Session) OnSelectionChanged(h func(Selection)) {
	s.handlers = append(s.handlers, h)
}

// SelectionChanged rereads the host selection. The host layer calls it
// whenever the user selects components.
func (s *Session) SelectionChanged() error {
	if s.object == "" {
		return ErrNoObject
	}
	selected, err := s.topology.SelectedVertexIndexes(s.object)
	if err != nil {
		return fmt.Errorf("reading selection: %w", err)
	}
	s.setSelected(selected)
	return nil
}

func (s *Session) setSelected(verts []int) {
	s.selected = slices.Clone(verts)
	s.rows = slices.Clone(verts)
	s.collectDisplayInfluences()
	s.notify()
}

func (s *Session) notify() {
	sel := s.snapshot(nil)
	for _, h := range s.handlers {
		h(sel.Clone())
	}
}

func (s *Session) snapshot(cells []Cell) Selection {
	return Selection{
		Vertexes:       slices.Clone(s.selected),
		Cells:          slices.Clone(cells),
		ColorInfluence: s.colorInfluence,
	}
}

// ObjectExists implements undo.WeightsTarget.
func (s *Session) ObjectExists(obj string) bool {
	return s.backend.ObjectExists(obj)
}

// ReplaceWeights implements undo.WeightsTarget. The host renormalizes every
// written vertex.
func (s *Session) ReplaceWeights(obj string, set *weights.WeightSet, verts []int) error {
	if obj != s.object || s.binding == nil {
		return fmt.Errorf("%w: %s", ErrNoObject, obj)
	}
	if err := s.backend.WriteWeights(s.binding, set, verts, true); err != nil {
		return err
	}
	s.weights = set
	// Writes may add influences to the binding.
	if err := s.collectInfluences(); err != nil {
		return err
	}
	if err := s.DrawColors(verts); err != nil {
		s.log.Warn("drawing colors failed", zap.Error(err))
	}
	return nil
}

// RestoreSelection implements undo.WeightsTarget.
func (s *Session) RestoreSelection(sel Selection) {
	if sel.ColorInfluence != "" {
		s.colorInfluence = sel.ColorInfluence
	}
	s.setSelected(sel.Vertexes)
}

// InfluenceExists implements undo.LocksTarget.
func (s *Session) InfluenceExists(name string) bool {
	return slices.Contains(s.influences, name) && s.backend.InfluenceExists(name)
}

// SetLock implements undo.LocksTarget.
func (s *Session) SetLock(name string, locked bool) error {
	if err := s.registry.SetLocked(name, locked); err != nil {
		return err
	}
	s.lockStates.Set(s.influences, name, locked)
	return nil
}

// Undo reverts the last command. It reports false when there was nothing to undo.
func (s *Session) Undo() (bool, error) {
	return s.stack.Undo()
}

// Redo reapplies the last undone command.
func (s *Session) Redo() (bool, error) {
	return s.stack.Redo()
}
