// Package skinfile reads and writes skin weight files (.skin).
//
// A skin file stores every vertex's weights, blend value and world position,
// plus the world matrix of every influence and the binding settings, so a
// binding can be rebuilt on a matching or a re-topologized object.
package skinfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/weights-editor/pkg/weights"
)

// Ext is the extension of skin files.
const Ext = ".skin"

// Format versions. Files older than MinFormatVersion lack world positions
// and influence matrices and can't be bulk imported.
const (
	FormatVersion    = 1.1
	MinFormatVersion = 1.1
)

// Skin file errors.
var (
	ErrMalformed           = errors.New("malformed skin file")
	ErrUnsupportedVersion  = errors.New("skin file version is too old")
	ErrVertexCountMismatch = errors.New("vertex count doesn't match")
	ErrMissingInfluence    = errors.New("influence not found in scene")
	ErrUserCancelled       = weights.ErrUserCancelled
)

// Format is the encoding of a skin file.
type Format int

// Supported encodings.
const (
	JSON Format = iota
	YAML
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case JSON:
		return "JSON"
	case YAML:
		return "YAML"
	default:
		return fmt.Sprintf("Unknown(%d)", int(f))
	}
}

// FormatFor picks the encoding from a path's extension. Anything that isn't
// .yaml or .yml is JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return YAML
	default:
		return JSON
	}
}

// VertexRecord is one vertex of a skin file.
type VertexRecord struct {
	Weights  map[string]float64 `json:"weights" yaml:"weights"`
	Blend    float64            `json:"dq" yaml:"dq"`
	WorldPos [3]float64         `json:"world_pos" yaml:"world_pos,flow"`
}

// InfluenceRecord is one influence of a skin file.
type InfluenceRecord struct {
	Name        string      `json:"name" yaml:"name"`
	WorldMatrix [16]float64 `json:"world_matrix" yaml:"world_matrix,flow"`
}

// BindingRecord holds the binding settings.
type BindingRecord struct {
	Name               string `json:"name" yaml:"name"`
	VertCount          int    `json:"vert_count" yaml:"vert_count"`
	InfluenceCount     int    `json:"influence_count" yaml:"influence_count"`
	MaxInfluences      int    `json:"max_influences" yaml:"max_influences"`
	SkinningMethod     int    `json:"skinning_method" yaml:"skinning_method"`
	DQSSupportNonRigid bool   `json:"dqs_support_non_rigid" yaml:"dqs_support_non_rigid"`
}

// File is a decoded skin file.
type File struct {
	Version    float64                 `json:"version" yaml:"version"`
	Object     string                  `json:"object" yaml:"object"`
	Verts      map[int]VertexRecord    `json:"verts" yaml:"verts"`
	Influences map[int]InfluenceRecord `json:"influences" yaml:"influences"`
	Binding    BindingRecord           `json:"skin_cluster" yaml:"skin_cluster"`
}

// Read decodes a skin file.
func Read(r io.Reader, format Format) (*File, error) {
	f := &File{}
	var err error
	switch format {
	case YAML:
		err = yaml.NewDecoder(r).Decode(f)
	default:
		err = json.NewDecoder(r).Decode(f)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// Parse decodes a skin file held in memory.
func Parse(data []byte, format Format) (*File, error) {
	return Read(bytes.NewReader(data), format)
}

// Load reads a skin file from disk. The format follows the extension.
func Load(path string) (*File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening skin file: %w", err)
	}
	defer fh.Close()

	f, err := Read(fh, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Write encodes a skin file.
func Write(w io.Writer, f *File, format Format) error {
	switch format {
	case YAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(f); err != nil {
			return err
		}
		return enc.Close()
	default:
		return json.NewEncoder(w).Encode(f)
	}
}

// Save writes a skin file to disk, creating parent directories.
// The format follows the extension.
func Save(path string, f *File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := Write(&buf, f, FormatFor(path)); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (f *File) validate() error {
	if f.Version <= 0 {
		return fmt.Errorf("%w: missing version", ErrMalformed)
	}
	if f.Verts == nil {
		return fmt.Errorf("%w: missing verts", ErrMalformed)
	}
	for v, rec := range f.Verts {
		if v < 0 {
			return fmt.Errorf("%w: negative vertex index %d", ErrMalformed, v)
		}
		for inf, w := range rec.Weights {
			if w < 0 || w > 1 {
				return fmt.Errorf("%w: vertex %d weight %s=%v", ErrMalformed, v, inf, w)
			}
		}
	}
	return nil
}

// Indexes returns the stored vertex indexes in ascending order.
func (f *File) Indexes() []int {
	out := make([]int, 0, len(f.Verts))
	for v := range f.Verts {
		out = append(out, v)
	}
	slices.Sort(out)
	return out
}

// WeightSet converts the stored vertexes to a weight set.
func (f *File) WeightSet() *weights.WeightSet {
	m := make(map[int]weights.VertexWeights, len(f.Verts))
	for v, rec := range f.Verts {
		m[v] = weights.VertexWeights{Weights: rec.Weights, Blend: rec.Blend}
	}
	return weights.FromMap(m)
}

// Position returns a vertex's stored world position.
func (f *File) Position(v int) r3.Vec {
	p := f.Verts[v].WorldPos
	return r3.Vec{X: p[0], Y: p[1], Z: p[2]}
}

// InfluenceIDs returns the stored influence ids in ascending order.
func (f *File) InfluenceIDs() []int {
	out := make([]int, 0, len(f.Influences))
	for id := range f.Influences {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// Matrix returns an influence's stored world matrix. The file stores the 16
// values in the same column-major order mgl64 uses.
func (f *File) Matrix(id int) mgl64.Mat4 {
	return mgl64.Mat4(f.Influences[id].WorldMatrix)
}

// MatrixOf returns the stored world matrix of an influence by name.
func (f *File) MatrixOf(name string) (mgl64.Mat4, bool) {
	for _, id := range f.InfluenceIDs() {
		if f.Influences[id].Name == name {
			return f.Matrix(id), true
		}
	}
	return mgl64.Ident4(), false
}
