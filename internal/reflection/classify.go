package reflection

import (
	"fmt"
	"slices"

	"gonum.org/v1/gonum/stat/combin"

	"qlbmcirq/internal/geometry"
)

// ClassificationInvariantError is raised when a face cannot be classified as
// exposed or shielded. Valid geometry never produces it.
type ClassificationInvariantError struct {
	ObstacleID string
	Face       string
	Detail     string
}

func (e *ClassificationInvariantError) Error() string {
	return fmt.Sprintf("classification invariant violated on obstacle %s face %s: %s", e.ObstacleID, e.Face, e.Detail)
}

// Reflections is the full decomposition of one block's boundary.
type Reflections struct {
	ObstacleID string
	NumDims    int

	// WallsInside and WallsOutside are indexed by the fixed dimension and
	// hold the exposed faces in lower, upper order.
	WallsInside  [][]Wall
	WallsOutside [][]Wall

	NearCornerEdges   []ResetEdge
	CornerEdges       []ResetEdge
	NearCornerPoints  []Point
	OverlappingPoints []Point
	CornersOutside    []Point
	CornersInside     []Point

	// Shielded lists the faces, by name, covered by another obstacle.
	Shielded []string
}

// All returns every structure in emission order: walls, then edges, then
// points.
func (r *Reflections) All() []Structure {
	var out []Structure
	for _, walls := range [][][]Wall{r.WallsInside, r.WallsOutside} {
		for _, ws := range walls {
			for _, w := range ws {
				out = append(out, w)
			}
		}
	}
	for _, e := range slices.Concat(r.NearCornerEdges, r.CornerEdges) {
		out = append(out, e)
	}
	for _, p := range slices.Concat(r.NearCornerPoints, r.OverlappingPoints, r.CornersOutside, r.CornersInside) {
		out = append(out, p)
	}
	return out
}

// Counts summarizes the decomposition.
type Counts struct {
	WallsInside, WallsOutside int
	CornerEdges, NearEdges    int
	NearPoints, Overlapping   int
	CornersOut, CornersIn     int
}

func (r *Reflections) Counts() Counts {
	c := Counts{
		CornerEdges: len(r.CornerEdges),
		NearEdges:   len(r.NearCornerEdges),
		NearPoints:  len(r.NearCornerPoints),
		Overlapping: len(r.OverlappingPoints),
		CornersOut:  len(r.CornersOutside),
		CornersIn:   len(r.CornersInside),
	}
	for d := range r.WallsInside {
		c.WallsInside += len(r.WallsInside[d])
		c.WallsOutside += len(r.WallsOutside[d])
	}
	return c
}

// HasKind reports whether any structure uses k.
func (r *Reflections) HasKind(k geometry.Kind) bool {
	for _, s := range r.All() {
		if s.BoundaryKind() == k {
			return true
		}
	}
	return false
}

type classifier struct {
	block      *geometry.Block
	gridQubits []int
	prev       []int
	sizes      []int
	inside     [][2]DimensionalData
	outside    [][2]DimensionalData
	shielded   [][2]bool
}

// Classify decomposes the boundary of block into reflection structures.
// others are the remaining obstacles on the lattice, used to find shielded
// faces, and gridQubits is the number of grid qubits per axis.
func Classify(block *geometry.Block, others []geometry.Obstacle, gridQubits []int) (*Reflections, error) {
	n := block.NumDims()
	if n != len(gridQubits) {
		return nil, fmt.Errorf("block has %d dimensions, lattice has %d", n, len(gridQubits))
	}
	c := &classifier{
		block:      block,
		gridQubits: gridQubits,
		prev:       make([]int, n),
		sizes:      make([]int, n),
		inside:     make([][2]DimensionalData, n),
		outside:    make([][2]DimensionalData, n),
		shielded:   make([][2]bool, n),
	}
	for d := range n {
		c.sizes[d] = 1 << gridQubits[d]
		if d > 0 {
			c.prev[d] = c.prev[d-1] + gridQubits[d-1]
		}
		for b, upper := range []bool{false, true} {
			c.inside[d][b] = c.data(d, upper, false)
			c.outside[d][b] = c.data(d, upper, true)
		}
	}
	if err := c.findShielded(others); err != nil {
		return nil, err
	}

	r := &Reflections{ObstacleID: block.ID, NumDims: n}
	for d := range n {
		for b := range 2 {
			if c.shielded[d][b] {
				r.Shielded = append(r.Shielded, geometry.FaceName(d, b == 1))
			}
		}
	}
	r.WallsInside, r.WallsOutside = c.walls()
	r.CornersInside = c.corners(c.inside, CornerInside)
	r.CornersOutside = c.corners(c.outside, CornerOutside)
	switch n {
	case 2:
		r.NearCornerPoints = c.nearCornerPoints()
	case 3:
		r.NearCornerEdges = c.edges(true)
		r.CornerEdges = c.edges(false)
		r.OverlappingPoints = c.overlappingPoints()
	}
	return r, nil
}

func (c *classifier) data(dim int, upper, outside bool) DimensionalData {
	b := 0
	if upper {
		b = 1
	}
	gp := c.block.Bounds[dim][b]
	if outside {
		gp += 2*b - 1
	}
	gp = wrap(gp, c.sizes[dim])
	d := DimensionalData{
		BoundType: upper,
		Outside:   outside,
		Dim:       dim,
		Gridpoint: gp,
		Name:      geometry.FaceName(dim, upper) + "_in",
	}
	if outside {
		d.Name = geometry.FaceName(dim, upper) + "_out"
	}
	for i := range c.gridQubits[dim] {
		if gp>>i&1 == 0 {
			d.QubitsToInvert = append(d.QubitsToInvert, c.prev[dim]+i)
		}
	}
	return d
}

// findShielded marks faces whose exterior layer is entirely covered by other
// obstacles. A partially covered layer cannot be classified.
func (c *classifier) findShielded(others []geometry.Obstacle) error {
	if len(others) == 0 {
		return nil
	}
	for d := range c.block.Bounds {
		for b := range 2 {
			ranges := slices.Clone(c.block.Bounds)
			gp := c.outside[d][b].Gridpoint
			ranges[d] = [2]int{gp, gp}
			layer := expand(ranges, c.sizes)
			covered := 0
			for _, p := range layer {
				if slices.ContainsFunc(others, func(o geometry.Obstacle) bool { return o.Contains(p) }) {
					covered++
				}
			}
			switch covered {
			case 0:
			case len(layer):
				c.shielded[d][b] = true
			default:
				return &ClassificationInvariantError{
					ObstacleID: c.block.ID,
					Face:       geometry.FaceName(d, b == 1),
					Detail:     fmt.Sprintf("%d of %d exterior cells are covered by other obstacles", covered, len(layer)),
				}
			}
		}
	}
	return nil
}

func (c *classifier) exposed(data ...DimensionalData) bool {
	for _, d := range data {
		if c.shielded[d.Dim][boundIndex(d.BoundType)] {
			return false
		}
	}
	return true
}

func boundIndex(upper bool) int {
	if upper {
		return 1
	}
	return 0
}

func (c *classifier) faceKind(d DimensionalData) geometry.Kind {
	return c.block.FaceKind(d.Dim, d.BoundType)
}

func (c *classifier) walls() (inside, outside [][]Wall) {
	n := c.block.NumDims()
	inside = make([][]Wall, n)
	outside = make([][]Wall, n)
	for d := range n {
		for b := range 2 {
			if c.shielded[d][b] {
				continue
			}
			kind := c.block.FaceKind(d, b == 1)
			inside[d] = append(inside[d], newWall(d, c.block.Bounds, c.inside[d][b], kind))
			outside[d] = append(outside[d], newWall(d, c.block.Bounds, c.outside[d][b], kind))
		}
	}
	return inside, outside
}

// bounds enumerates the lower/upper combinations of k sides.
func bounds(k int) [][]int {
	lens := make([]int, k)
	for i := range lens {
		lens[i] = 2
	}
	return combin.Cartesian(lens)
}

// splitPoint returns p unchanged when every reflected face shares a kind,
// or one point per reflected dimension otherwise.
func (c *classifier) splitPoint(p Point) []Point {
	if len(p.ReflectedDims) == 0 {
		p.Kind = c.block.Kind
		return []Point{p}
	}
	kindOf := func(dim int) geometry.Kind {
		return c.faceKind(p.Data[slices.IndexFunc(p.Data, func(d DimensionalData) bool { return d.Dim == dim })])
	}
	groups := splitByKind(p.ReflectedDims, kindOf)
	out := make([]Point, 0, len(groups))
	for _, g := range groups {
		q := p
		q.ReflectedDims = g
		q.Kind = kindOf(g[0])
		out = append(out, q)
	}
	return out
}

func (c *classifier) splitEdge(e ResetEdge) []ResetEdge {
	kindOf := func(dim int) geometry.Kind {
		if e.WallsJoining[0].Dim == dim {
			return c.faceKind(e.WallsJoining[0])
		}
		return c.faceKind(e.WallsJoining[1])
	}
	groups := splitByKind(e.ReflectedDims, kindOf)
	out := make([]ResetEdge, 0, len(groups))
	for _, g := range groups {
		f := e
		f.ReflectedDims = g
		f.Kind = kindOf(g[0])
		out = append(out, f)
	}
	return out
}

func splitByKind(dims []int, kindOf func(int) geometry.Kind) [][]int {
	for _, d := range dims[1:] {
		if kindOf(d) != kindOf(dims[0]) {
			groups := make([][]int, len(dims))
			for i, d := range dims {
				groups[i] = []int{d}
			}
			return groups
		}
	}
	return [][]int{slices.Clone(dims)}
}

func (c *classifier) corners(side [][2]DimensionalData, cat PointCategory) []Point {
	var out []Point
	for _, bs := range bounds(len(side)) {
		data := make([]DimensionalData, len(side))
		for d, b := range bs {
			data[d] = side[d][b]
		}
		if !c.exposed(data...) {
			continue
		}
		p := newPoint(cat, data, DimensionalData.InvertVelocity)
		out = append(out, c.splitPoint(p)...)
	}
	return out
}

// nearCornerPoints returns, for each dimension, the four points one step
// outside the block in that dimension and on a corner in the other.
func (c *classifier) nearCornerPoints() []Point {
	var out []Point
	for outDim := range c.block.NumDims() {
		for _, bs := range bounds(c.block.NumDims()) {
			data := make([]DimensionalData, len(bs))
			for d, b := range bs {
				if d == outDim {
					data[d] = c.outside[d][b]
				} else {
					data[d] = c.inside[d][b]
				}
			}
			if !c.exposed(data...) {
				continue
			}
			p := newPoint(NearCorner, data, func(d DimensionalData) bool {
				if d.Outside {
					return !d.BoundType
				}
				return d.BoundType
			})
			out = append(out, c.splitPoint(p)...)
		}
	}
	return out
}

// edges returns the 3D reset edges. Near-corner edges run alongside a wall,
// outside the block in one joining dimension only; corner edges sit
// diagonally off the block.
func (c *classifier) edges(near bool) []ResetEdge {
	var out []ResetEdge
	for _, spanned := range []int{2, 1, 0} {
		var joining []int
		for d := range 3 {
			if d != spanned {
				joining = append(joining, d)
			}
		}
		for _, bs := range bounds(2) {
			if !near {
				walls := []DimensionalData{c.outside[joining[0]][bs[0]], c.outside[joining[1]][bs[1]]}
				if c.exposed(walls...) {
					out = append(out, c.splitEdge(newEdge(walls, c.block.Bounds, nil))...)
				}
				continue
			}
			for orth := range 2 {
				walls := make([]DimensionalData, 2)
				for i, d := range joining {
					if i == orth {
						walls[i] = c.outside[d][bs[i]]
					} else {
						walls[i] = c.inside[d][bs[i]]
					}
				}
				if !c.exposed(walls...) {
					continue
				}
				outside := orth
				out = append(out, c.splitEdge(newEdge(walls, c.block.Bounds, &outside))...)
			}
		}
	}
	return out
}

// overlappingPoints returns the 3D points where two near-corner edges cross:
// outside the block in one dimension and on a corner of the opposing face.
func (c *classifier) overlappingPoints() []Point {
	var out []Point
	for outDim := range 3 {
		for _, bs := range bounds(3) {
			data := make([]DimensionalData, 3)
			k := 1
			for d := range 3 {
				if d == outDim {
					data[d] = c.outside[d][bs[0]]
					continue
				}
				data[d] = c.inside[d][bs[k]]
				k++
			}
			if !c.exposed(data...) {
				continue
			}
			p := newPoint(NearCornerEdge, data, func(d DimensionalData) bool {
				if d.Outside {
					return !d.BoundType
				}
				return d.BoundType
			})
			out = append(out, c.splitPoint(p)...)
		}
	}
	return out
}
