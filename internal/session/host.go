package session

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/Faultbox/weights-editor/pkg/colors"
	"github.com/Faultbox/weights-editor/pkg/weights"
)

// SkinningMethod selects how a binding deforms its object.
type SkinningMethod int

// Skinning methods, in the host's attribute order.
const (
	Linear SkinningMethod = iota
	DualQuaternion
	Blended
)

// String returns the method name.
func (m SkinningMethod) String() string {
	switch m {
	case Linear:
		return "Linear"
	case DualQuaternion:
		return "DualQuaternion"
	case Blended:
		return "Blended"
	default:
		return fmt.Sprintf("Unknown(%d)", int(m))
	}
}

// Binding describes the skin deformer attached to an object.
type Binding struct {
	Name   string
	Object string
	// VertexCount is the number of weight entries stored by the binding.
	// It differs from the mesh vertex count when the topology changed
	// after binding.
	VertexCount   int
	MaxInfluences int
	Method        SkinningMethod
	// SecondaryFlag mirrors the host's "dual quaternion supports non-rigid" attribute.
	SecondaryFlag bool
}

// Axis is the mirror plane's normal.
type Axis int

// Mirror axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// String returns the mirror plane name.
func (a Axis) String() string {
	switch a {
	case AxisX:
		return "YZ"
	case AxisY:
		return "XZ"
	case AxisZ:
		return "XY"
	default:
		return fmt.Sprintf("Unknown(%d)", int(a))
	}
}

// SurfaceAssociation chooses how mirrored vertexes find their source.
type SurfaceAssociation int

// Surface associations.
const (
	ClosestPoint SurfaceAssociation = iota
	ClosestComponent
	RayCast
)

// InfluenceAssociation chooses how source influences map to the other side.
type InfluenceAssociation int

// Influence associations. Every mode falls back to ClosestJoint.
const (
	ClosestJoint InfluenceAssociation = iota
	OneToOne
	Label
	Name
)

// MirrorOptions configures Mirror.
type MirrorOptions struct {
	Axis Axis
	// Inverse copies from the negative side to the positive side.
	Inverse              bool
	SurfaceAssociation   SurfaceAssociation
	InfluenceAssociation InfluenceAssociation
	// SelectionOnly limits Session.Mirror to the selected vertexes.
	SelectionOnly bool
	// Vertexes restricts the mirror to these targets when not empty.
	Vertexes []int
}

// SkinBackend reads and writes skin bindings in the host application.
type SkinBackend interface {
	// Binding returns the object's binding, or nil when it has none.
	Binding(obj string) (*Binding, error)
	ReadWeights(b *Binding) (*weights.WeightSet, error)
	// WriteWeights writes verts from set. All vertexes of set are written
	// when verts is nil.
	WriteWeights(b *Binding, set *weights.WeightSet, verts []int, normalize bool) error
	CreateBinding(obj string, infs []string, maxInfs int, method SkinningMethod, name string) (*Binding, error)
	// DeleteBinding detaches b from its object.
	DeleteBinding(b *Binding) error
	// Prune removes weights below threshold and renormalizes.
	Prune(b *Binding, verts []int, threshold float64) error
	Mirror(b *Binding, opts MirrorOptions) error
	// RunExternalSmooth smooths across all influences of the neighborhood.
	RunExternalSmooth(b *Binding, verts []int, strength float64, ignoreLocks bool) error
	Influences(b *Binding) ([]string, error)
	InfluenceMatrix(name string) (mgl64.Mat4, error)
	ObjectExists(obj string) bool
	InfluenceExists(name string) bool
	// FindInfluences returns the influences whose short name matches.
	FindInfluences(short string) []string
	// CreateInfluence creates a joint and returns the name it was given.
	CreateInfluence(name string, world mgl64.Mat4) (string, error)
}

// MeshTopologyService answers geometry queries about an object.
type MeshTopologyService interface {
	VertexCount(obj string) (int, error)
	NeighborsOf(obj string, v int) ([]int, error)
	SelectedVertexIndexes(obj string) ([]int, error)
	WorldPosition(obj string, v int) (r3.Vec, error)
}

// Display shows weight colors on an object.
type Display interface {
	ApplyColors(obj string, verts []int, cols []colors.RGB) error
}

// Progress lets the user cancel long operations. A nil Progress never cancels.
type Progress = weights.Progress
