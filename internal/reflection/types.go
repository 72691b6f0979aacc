package reflection

import (
	"fmt"
	"strings"

	"qlbmcirq/internal/geometry"
)

// DimensionalData places one side of an obstacle along a single axis: the
// grid point just inside (or just outside) a bound, and the grid qubits that
// must be inverted so that this point reads as all ones.
type DimensionalData struct {
	// QubitsToInvert are offsets from the first grid qubit.
	QubitsToInvert []int
	// BoundType is true for the upper bound.
	BoundType bool
	// Outside is true when the point lies one step outside the obstacle.
	Outside   bool
	Dim       int
	Gridpoint int
	Name      string
}

// InvertVelocity reports whether the direction qubit of Dim must be inverted
// to select the particles travelling into the obstacle.
func (d DimensionalData) InvertVelocity() bool {
	return d.BoundType != d.Outside
}

func (d DimensionalData) face() string {
	return geometry.AxisName(d.Dim) + "-" + geometry.BoundName(d.BoundType)
}

// Structure is anything the classifier emits.
type Structure interface {
	Key() string
	BoundaryKind() geometry.Kind
	Footprint(gridSizes []int) [][]int
}

// Wall is one face of a block, fixed in Dim and spanning the alignment dims.
type Wall struct {
	Dim           int
	AlignmentDims []int
	LowerBounds   []int
	UpperBounds   []int
	Data          DimensionalData
	Kind          geometry.Kind
}

func newWall(dim int, bounds [][2]int, data DimensionalData, kind geometry.Kind) Wall {
	w := Wall{Dim: dim, Data: data, Kind: kind}
	for d := range bounds {
		if d == dim {
			continue
		}
		w.AlignmentDims = append(w.AlignmentDims, d)
		w.LowerBounds = append(w.LowerBounds, bounds[d][0])
		w.UpperBounds = append(w.UpperBounds, bounds[d][1])
	}
	return w
}

func (w Wall) NumDims() int { return len(w.LowerBounds) + 1 }

// LooseBounds returns, for walls indexed by fixed dimension, whether the
// bounceback comparator of each alignment dim includes the bounds. Walls of
// the first dimension own the shared corners; later dimensions exclude them.
func (w Wall) LooseBounds() [][]bool {
	if w.NumDims() == 2 {
		return [][]bool{{true}, {false}}
	}
	return [][]bool{{true, true}, {false, false}, {false, true}}
}

// Loose reports whether alignment dim c of this wall uses inclusive bounds.
// Only inside bounceback walls ever use strict bounds.
func (w Wall) Loose(c int) bool {
	if w.Kind == geometry.Specular || w.Data.Outside {
		return true
	}
	return w.LooseBounds()[w.Dim][c]
}

func (w Wall) Key() string {
	side := "in"
	if w.Data.Outside {
		side = "out"
	}
	return "wall/" + side + "/" + w.Data.face()
}

func (w Wall) BoundaryKind() geometry.Kind { return w.Kind }

func (w Wall) String() string {
	return fmt.Sprintf("%s %s lb=%v ub=%v", w.Key(), w.Kind, w.LowerBounds, w.UpperBounds)
}

// ResetEdge is the line where two walls of a 3D block meet.
type ResetEdge struct {
	WallsJoining       []DimensionalData
	DimsOfEdge         [2]int
	DimDisconnected    int
	BoundsDisconnected [2]int
	// DimensionOutside indexes DimsOfEdge; nil marks a corner edge.
	DimensionOutside *int
	ReflectedDims    []int
	InvertVelocity   [2]bool
	Kind             geometry.Kind
}

func newEdge(walls []DimensionalData, bounds [][2]int, outside *int) ResetEdge {
	e := ResetEdge{
		WallsJoining:     walls,
		DimsOfEdge:       [2]int{walls[0].Dim, walls[1].Dim},
		DimensionOutside: outside,
	}
	for d := range 3 {
		if d != e.DimsOfEdge[0] && d != e.DimsOfEdge[1] {
			e.DimDisconnected = d
		}
	}
	e.BoundsDisconnected = bounds[e.DimDisconnected]
	b0, b1 := walls[0].BoundType, walls[1].BoundType
	if outside == nil {
		e.ReflectedDims = []int{e.DimsOfEdge[0], e.DimsOfEdge[1]}
		e.InvertVelocity = [2]bool{!b0, !b1}
		return e
	}
	e.ReflectedDims = []int{e.DimsOfEdge[*outside]}
	x := b0 != (*outside == 1)
	if b0 != b1 {
		e.InvertVelocity = [2]bool{!x, !x}
	} else {
		e.InvertVelocity = [2]bool{!x, x}
	}
	return e
}

// IsCornerEdge reports whether the edge lies diagonally off the block, as
// opposed to alongside one of its walls.
func (e ResetEdge) IsCornerEdge() bool { return e.DimensionOutside == nil }

func (e ResetEdge) Key() string {
	category := "near"
	if e.IsCornerEdge() {
		category = "corner"
	}
	return "edge/" + category + "/" + joinParts(e.WallsJoining, !e.IsCornerEdge()) + splitSuffix(e.ReflectedDims, len(e.DimsOfEdge), e.IsCornerEdge())
}

func (e ResetEdge) BoundaryKind() geometry.Kind { return e.Kind }

// Point is a single grid point reset by the reflection operators.
type Point struct {
	Category       PointCategory
	Data           []DimensionalData
	DimsInside     []int
	DimsOutside    []int
	QubitsToInvert []int
	InvertVelocity []bool
	ReflectedDims  []int
	Kind           geometry.Kind
}

// PointCategory says where a point sits relative to its block.
type PointCategory int

const (
	CornerInside PointCategory = iota
	CornerOutside
	NearCorner
	NearCornerEdge
)

func (c PointCategory) String() string {
	switch c {
	case CornerInside:
		return "corner-in"
	case CornerOutside:
		return "corner"
	case NearCorner:
		return "near"
	case NearCornerEdge:
		return "overlap"
	}
	return fmt.Sprintf("PointCategory(%d)", int(c))
}

func newPoint(cat PointCategory, data []DimensionalData, invert func(DimensionalData) bool) Point {
	p := Point{Category: cat, Data: data}
	for _, d := range data {
		p.QubitsToInvert = append(p.QubitsToInvert, d.QubitsToInvert...)
		p.InvertVelocity = append(p.InvertVelocity, invert(d))
		if d.Outside {
			p.DimsOutside = append(p.DimsOutside, d.Dim)
		} else {
			p.DimsInside = append(p.DimsInside, d.Dim)
		}
	}
	p.ReflectedDims = append([]int(nil), p.DimsOutside...)
	return p
}

func (p Point) NumDims() int { return len(p.Data) }

func (p Point) Key() string {
	mixed := p.Category == NearCorner || p.Category == NearCornerEdge
	return "point/" + p.Category.String() + "/" + joinParts(p.Data, mixed) + splitSuffix(p.ReflectedDims, len(p.DimsOutside), true)
}

func (p Point) BoundaryKind() geometry.Kind { return p.Kind }

func joinParts(data []DimensionalData, markOutside bool) string {
	parts := make([]string, len(data))
	for i, d := range data {
		parts[i] = d.face()
		if markOutside && d.Outside {
			parts[i] += "-out"
		}
	}
	return strings.Join(parts, ":")
}

// splitSuffix names the reflected dimension of a structure that was split
// per direction because its faces disagree on the boundary kind.
func splitSuffix(reflected []int, full int, splittable bool) string {
	if !splittable || len(reflected) != 1 || full == 1 {
		return ""
	}
	return ">" + geometry.AxisName(reflected[0])
}
