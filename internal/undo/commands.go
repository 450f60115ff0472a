package undo

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"

	"github.com/Faultbox/weights-editor/internal/locks"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Cell addresses one (vertex, influence) entry of the weights table.
type Cell struct {
	Vertex    int
	Influence string
}

// Selection is the UI selection restored when a command is applied or undone.
type Selection struct {
	Vertexes       []int
	Cells          []Cell
	ColorInfluence string
}

// Clone returns a deep copy of the selection.
func (s Selection) Clone() Selection {
	var out Selection
	// Slices of plain values always copy.
	_ = deepcopy.Copy(&out, &s)
	return out
}

// WeightsTarget is the editing session a weights command acts on.
type WeightsTarget interface {
	// ObjectExists reports whether the object is still in the scene.
	ObjectExists(obj string) bool
	// ReplaceWeights swaps the session's weights and writes verts to the host.
	ReplaceWeights(obj string, set *weights.WeightSet, verts []int) error
	// RestoreSelection reapplies a saved selection.
	RestoreSelection(sel Selection)
}

// EditWeightsConfig describes a finished weights edit.
type EditWeightsConfig struct {
	Description string
	Object      string
	Old         *weights.WeightSet
	New         *weights.WeightSet
	Vertexes    []int
	Selection   Selection
	// SkipFirstApply is set when the edit was already performed live, so
	// the Apply issued by Stack.Push must not perform it again.
	SkipFirstApply bool
}

// EditWeights swaps between two snapshots of an object's weights.
type EditWeights struct {
	id     uuid.UUID
	cfg    EditWeightsConfig
	target WeightsTarget
	log    *zap.Logger
}

// NewEditWeights creates a weights command. The snapshots are copied.
func NewEditWeights(target WeightsTarget, cfg EditWeightsConfig, log *zap.Logger) *EditWeights {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.Old = cfg.Old.Copy()
	cfg.New = cfg.New.Copy()
	cfg.Vertexes = slices.Clone(cfg.Vertexes)
	cfg.Selection = cfg.Selection.Clone()

	id := uuid.New()
	return &EditWeights{
		id:     id,
		cfg:    cfg,
		target: target,
		log:    log.With(zap.Stringer("command", id), zap.String("object", cfg.Object)),
	}
}

// ID identifies the command in logs.
func (c *EditWeights) ID() uuid.UUID { return c.id }

// Description implements Command.
func (c *EditWeights) Description() string { return c.cfg.Description }

// Vertexes returns the vertexes the command touches.
func (c *EditWeights) Vertexes() []int { return slices.Clone(c.cfg.Vertexes) }

// Apply implements Command.
func (c *EditWeights) Apply() error {
	if c.cfg.SkipFirstApply {
		c.cfg.SkipFirstApply = false
		c.log.Debug("skipping first apply, edit already live")
		return nil
	}
	return c.swap(c.cfg.New)
}

// Undo implements Command.
func (c *EditWeights) Undo() error {
	return c.swap(c.cfg.Old)
}

func (c *EditWeights) swap(set *weights.WeightSet) error {
	// The object may have been deleted outside the editor.
	if !c.target.ObjectExists(c.cfg.Object) {
		c.log.Debug("object no longer exists, ignoring")
		return nil
	}
	if err := c.target.ReplaceWeights(c.cfg.Object, set.Copy(), c.cfg.Vertexes); err != nil {
		return fmt.Errorf("%s: %w", c.cfg.Description, err)
	}
	c.target.RestoreSelection(c.cfg.Selection.Clone())
	return nil
}

// LocksTarget is the editing session a lock command acts on.
type LocksTarget interface {
	// InfluenceExists reports whether the influence is still in the scene
	// and bound to the session's object.
	InfluenceExists(name string) bool
	// SetLock writes the lock to the host and resyncs the cached states.
	SetLock(name string, locked bool) error
}

// ToggleLocks sets a group of influences to one lock state.
type ToggleLocks struct {
	id      uuid.UUID
	prior   map[string]bool
	enabled bool
	target  LocksTarget
	log     *zap.Logger
}

// NewToggleLocks snapshots the current lock of every name.
func NewToggleLocks(target LocksTarget, registry locks.Registry, names []string, enabled bool, log *zap.Logger) *ToggleLocks {
	if log == nil {
		log = zap.NewNop()
	}
	id := uuid.New()
	return &ToggleLocks{
		id:      id,
		prior:   locks.Snapshot(registry, names),
		enabled: enabled,
		target:  target,
		log:     log.With(zap.Stringer("command", id)),
	}
}

// Description implements Command.
func (c *ToggleLocks) Description() string {
	if c.enabled {
		return "Lock influences"
	}
	return "Unlock influences"
}

// Apply implements Command.
func (c *ToggleLocks) Apply() error {
	return c.set(func(string) bool { return c.enabled })
}

// Undo implements Command.
func (c *ToggleLocks) Undo() error {
	return c.set(func(name string) bool { return c.prior[name] })
}

func (c *ToggleLocks) set(state func(name string) bool) error {
	names := make([]string, 0, len(c.prior))
	for name := range c.prior {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		if !c.target.InfluenceExists(name) {
			c.log.Debug("influence no longer exists, skipping", zap.String("influence", name))
			continue
		}
		if err := c.target.SetLock(name, state(name)); err != nil {
			return fmt.Errorf("%s: %w", c.Description(), err)
		}
	}
	return nil
}
