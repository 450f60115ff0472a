// Package locks tracks which influences are protected from weight edits.
//
// The lock state is owned by the host and may change behind the editor's
// back, so a Registry is always queried live. States is the editor's
// display copy and must be resynced whenever locks are toggled.
package locks

import (
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Registry reads and writes the host's lock attribute.
type Registry interface {
	IsLocked(name string) bool
	SetLocked(name string, locked bool) error
}

// Lookup adapts a registry to the function form weight edits expect.
// A nil registry locks nothing.
func Lookup(r Registry) weights.LockLookup {
	if r == nil {
		return weights.NoLocks
	}
	return r.IsLocked
}

// States holds lock flags parallel to an ordered influence list.
type States []bool

// Collect reads the current lock of every influence.
func Collect(r Registry, infs []string) States {
	out := make(States, len(infs))
	if r == nil {
		return out
	}
	for i, inf := range infs {
		out[i] = r.IsLocked(inf)
	}
	return out
}

// Set updates the flag of one influence. It reports false when the
// influence isn't in infs.
func (s States) Set(infs []string, name string, locked bool) bool {
	for i, inf := range infs {
		if inf == name && i < len(s) {
			s[i] = locked
			return true
		}
	}
	return false
}

// Locked returns the influences flagged as locked.
func (s States) Locked(infs []string) []string {
	var out []string
	for i, inf := range infs {
		if i < len(s) && s[i] {
			out = append(out, inf)
		}
	}
	return out
}

// Snapshot returns the current lock state of every named influence.
func Snapshot(r Registry, names []string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, name := range names {
		out[name] = r != nil && r.IsLocked(name)
	}
	return out
}

// Map is a Registry backed by a plain map. Influences missing from the map
// are unlocked.
type Map map[string]bool

// IsLocked implements Registry.
func (m Map) IsLocked(name string) bool { return m[name] }

// SetLocked implements Registry.
func (m Map) SetLocked(name string, locked bool) error {
	m[name] = locked
	return nil
}
