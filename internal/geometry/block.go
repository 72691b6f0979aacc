package geometry

import (
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"

	"qlbmcirq/internal/config"
)

// obstacleNamespace seeds the name-based obstacle IDs.
var obstacleNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:qlbmcirq:obstacle"))

// Obstacle is a solid region of the grid with boundary conditions.
type Obstacle interface {
	ObstacleID() string
	Shape() string
	BoundingBox() [][2]int
	Contains(p []int) bool
	HasKind(k Kind) bool
	Entry() config.GeometryEntry
	Mesh() Mesh
}

// Block is an axis-aligned cuboid with inclusive integer bounds per axis.
type Block struct {
	ID     string
	Bounds [][2]int
	// Kind is the declared boundary condition.
	Kind Kind
	// Faces holds the boundary condition of each face, indexed [dim][upper].
	Faces [][2]Kind
}

// NewBlock returns a block whose faces all share kind.
func NewBlock(bounds [][2]int, kind Kind) *Block {
	b := &Block{
		Bounds: slices.Clone(bounds),
		Kind:   kind,
		Faces:  make([][2]Kind, len(bounds)),
	}
	for d := range b.Faces {
		b.Faces[d] = [2]Kind{kind, kind}
	}
	b.ID = b.canonicalID()
	return b
}

func (b *Block) canonicalID() string {
	var sb strings.Builder
	sb.WriteString("cuboid")
	for d, r := range b.Bounds {
		fmt.Fprintf(&sb, " %s=%d..%d", AxisName(d), r[0], r[1])
	}
	for d, f := range b.Faces {
		fmt.Fprintf(&sb, " %s=%s/%s", AxisName(d), f[0], f[1])
	}
	return uuid.NewSHA1(obstacleNamespace, []byte(sb.String())).String()
}

func (b *Block) NumDims() int         { return len(b.Bounds) }
func (b *Block) ObstacleID() string    { return b.ID }
func (b *Block) Shape() string         { return "cuboid" }
func (b *Block) BoundingBox() [][2]int { return slices.Clone(b.Bounds) }

// FaceKind returns the boundary condition of one face.
func (b *Block) FaceKind(dim int, upper bool) Kind {
	if upper {
		return b.Faces[dim][1]
	}
	return b.Faces[dim][0]
}

// Uniform reports whether all faces share one boundary condition.
func (b *Block) Uniform() bool {
	for _, f := range b.Faces {
		if f[0] != b.Kind || f[1] != b.Kind {
			return false
		}
	}
	return true
}

// HasKind reports whether any face uses k.
func (b *Block) HasKind(k Kind) bool {
	for _, f := range b.Faces {
		if f[0] == k || f[1] == k {
			return true
		}
	}
	return false
}

// Contains reports whether the grid point lies inside the block.
func (b *Block) Contains(p []int) bool {
	if len(p) != len(b.Bounds) {
		return false
	}
	for d, r := range b.Bounds {
		if p[d] < r[0] || p[d] > r[1] {
			return false
		}
	}
	return true
}

// Entry serializes the block back to its specification form.
func (b *Block) Entry() config.GeometryEntry {
	e := config.GeometryEntry{
		Shape:    b.Shape(),
		Boundary: b.Kind.String(),
	}
	for d, r := range b.Bounds {
		e.SetRange(d, []int{r[0], r[1]})
	}
	for d, f := range b.Faces {
		for i, k := range f {
			if k == b.Kind {
				continue
			}
			if e.Faces == nil {
				e.Faces = make(map[string]string)
			}
			e.Faces[FaceName(d, i == 1)] = k.String()
		}
	}
	return e
}

func (b *Block) String() string {
	return fmt.Sprintf("cuboid%s %s", formatBounds(b.Bounds), b.Kind)
}
