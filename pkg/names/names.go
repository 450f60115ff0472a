// Package names provides influence name utilities for skin weight files.
package names

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Separator splits the segments of a long (DAG path) name.
const Separator = "|"

// Normalize converts a stored influence name to the canonical form used for
// lookups: NFC unicode, forward separators, no surrounding whitespace.
// Files written on other platforms may carry decomposed unicode in joint names.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", Separator)
	return norm.NFC.String(name)
}

// ShortName returns the last segment of a long name.
func ShortName(name string) string {
	if i := strings.LastIndex(name, Separator); i >= 0 {
		return name[i+1:]
	}
	return name
}

// Resolver finds scene influences for names read from a file.
type Resolver struct {
	// Exists reports whether an object with this exact name exists.
	Exists func(name string) bool
	// Find returns the objects whose short name matches.
	Find func(short string) []string
}

// Resolve finds an influence by its long name first, then by its short name.
// It returns false when neither matches.
func (r Resolver) Resolve(name string) (string, bool) {
	name = Normalize(name)
	if r.Exists != nil && r.Exists(name) {
		return name, true
	}
	if r.Find != nil {
		if found := r.Find(ShortName(name)); len(found) > 0 {
			return found[0], true
		}
	}
	return "", false
}
