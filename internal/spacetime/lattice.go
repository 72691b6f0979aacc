// Package spacetime lays out the space-time encoding of a D2Q4 lattice gas.
//
// Instead of streaming particles through a position register, every grid
// point carries the velocity qubits of all its neighbors within the
// simulated number of time steps. Streaming becomes a fixed permutation of
// those qubits, and obstacles act on them through reflection data computed
// per boundary point.
package spacetime

import (
	"cmp"
	"fmt"
	"math/bits"
	"slices"

	"qlbmcirq/internal/config"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/monitoring"
)

// VelocitiesPerPoint is the number of D2Q4 channels.
const VelocitiesPerPoint = 4

// increments holds the unit step of each channel, ordered +x, +y, -x, -y.
var increments = [VelocitiesPerPoint][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

var reflected = [VelocitiesPerPoint]int{2, 3, 0, 1}

// Options configures lattice construction.
type Options struct {
	Logf monitoring.Logf
	// Timesteps overrides the run block of the spec when positive.
	Timesteps int
	// Measurement adds the a_m ancilla used by point-wise mass measurement.
	Measurement bool
	// Volumetric adds the four comparator ancillae used by the volumetric
	// reflection.
	Volumetric bool
}

// Lattice is the qubit layout of a space-time lattice. Qubits are ordered
// grid (x, y), neighbor velocities, a_m, then a_l and a_u per axis. It is
// immutable after New.
type Lattice struct {
	dims       []int
	gridQubits []int
	timesteps  int

	measurement bool
	volumetric  bool

	obstacles []geometry.Obstacle
	blocks    []*geometry.Block
	circles   []*geometry.Circle

	logf monitoring.Logf
}

// New validates spec for the D2Q4 space-time encoding.
func New(spec config.Spec, opts Options) (*Lattice, error) {
	l := &Lattice{
		logf:        monitoring.OrDiscard(opts.Logf),
		measurement: opts.Measurement,
		volumetric:  opts.Volumetric,
	}

	if spec.Lattice.Discretization == "" {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: "the space-time encoding needs a DdQq discretization"}
	}
	d, q, err := config.ParseDiscretization(spec.Lattice.Discretization)
	if err != nil {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: err.Error()}
	}
	if d != 2 || q != VelocitiesPerPoint {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("discretization %s is not supported, supported discretizations are [D2Q4]", spec.Lattice.Discretization)}
	}
	if n := len(spec.Lattice.Dim); n != d {
		return nil, &lattice.ConfigurationError{Field: "dim", Reason: fmt.Sprintf("%s needs %d axes, got %d", spec.Lattice.Discretization, d, n)}
	}
	for _, axis := range config.Axes[:d] {
		v, ok := spec.Lattice.Dim[axis]
		if !ok {
			return nil, &lattice.ConfigurationError{Field: "dim", Reason: fmt.Sprintf("missing axis %q", axis)}
		}
		if v < 2 || v&(v-1) != 0 {
			return nil, &lattice.ConfigurationError{Field: "dim." + axis, Reason: fmt.Sprintf("%d is not a power of two greater than 1", v)}
		}
		l.dims = append(l.dims, v)
		l.gridQubits = append(l.gridQubits, bits.Len(uint(v-1)))
	}

	l.timesteps = opts.Timesteps
	if l.timesteps <= 0 {
		l.timesteps = spec.GetRun().GetTimesteps()
	}

	obstacles, err := geometry.Parse(spec.Geometry, l.dims)
	if err != nil {
		return nil, err
	}
	for i, o := range obstacles {
		if o.HasKind(geometry.Specular) {
			return nil, &geometry.GeometryError{Index: i + 1, Bounds: o.BoundingBox(), Constraint: "the space-time encoding only supports bounceback boundaries"}
		}
	}
	l.obstacles = obstacles
	l.blocks = geometry.Blocks(obstacles)
	l.circles = geometry.Circles(obstacles)

	l.logf("Created %s", l)
	return l, nil
}

func seq(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func (l *Lattice) NumDims() int          { return len(l.dims) }
func (l *Lattice) Dims() []int           { return slices.Clone(l.dims) }
func (l *Lattice) GridQubits() []int     { return slices.Clone(l.gridQubits) }
func (l *Lattice) Timesteps() int        { return l.timesteps }
func (l *Lattice) Logf() monitoring.Logf { return l.logf }

// Obstacles returns the validated obstacles in input order.
func (l *Lattice) Obstacles() []geometry.Obstacle { return slices.Clone(l.obstacles) }
func (l *Lattice) Blocks() []*geometry.Block      { return slices.Clone(l.blocks) }
func (l *Lattice) Circles() []*geometry.Circle    { return slices.Clone(l.circles) }

func (l *Lattice) NumGridQubits() int {
	n := 0
	for _, q := range l.gridQubits {
		n += q
	}
	return n
}

// NumVelocityQubits returns the size of the velocity register needed to
// simulate t steps. The neighborhood of radius t holds 2t(t+1)+1 points,
// capped by the number of points the grid can distinguish.
func (l *Lattice) NumVelocityQubits(t int) int {
	total := 0
	for _, d := range l.dims {
		total += d
	}
	total *= total
	return min(total*VelocitiesPerPoint, VelocitiesPerPoint*VelocitiesPerPoint*t*(t+1)/2+VelocitiesPerPoint)
}

// NumNeighborsWithin counts the points within Manhattan distance t.
func (l *Lattice) NumNeighborsWithin(t int) int {
	if t < 0 {
		return 0
	}
	return l.NumVelocityQubits(t) / VelocitiesPerPoint
}

func (l *Lattice) NumAncillaQubits() int {
	n := 0
	if l.measurement {
		n++
	}
	if l.volumetric {
		n += 2 * l.NumDims()
	}
	return n
}

func (l *Lattice) NumQubits() int {
	return l.NumGridQubits() + l.NumVelocityQubits(l.timesteps) + l.NumAncillaQubits()
}

func (l *Lattice) checkDim(what string, dim int) {
	if dim < 0 || dim >= l.NumDims() {
		panic(fmt.Sprintf("cannot index %s register for dimension %d in %d-dimensional lattice", what, dim, l.NumDims()))
	}
}

// GridIndex returns the grid qubits of dim, least significant first.
func (l *Lattice) GridIndex(dim int) []int {
	l.checkDim("grid", dim)
	start := 0
	for _, q := range l.gridQubits[:dim] {
		start += q
	}
	return seq(start, l.gridQubits[dim])
}

// GridAll returns every grid qubit.
func (l *Lattice) GridAll() []int { return seq(0, l.NumGridQubits()) }

// VelocityIndex returns the qubit of channel dir at neighbor.
func (l *Lattice) VelocityIndex(neighbor, dir int) int {
	if dir < 0 || dir >= VelocitiesPerPoint {
		panic(fmt.Sprintf("cannot index velocity %d, D2Q4 has channels [0, %d]", dir, VelocitiesPerPoint-1))
	}
	if n := l.NumNeighborsWithin(l.timesteps); neighbor < 0 || neighbor >= n {
		panic(fmt.Sprintf("cannot index neighbor %d, maximum is %d", neighbor, n-1))
	}
	return l.NumGridQubits() + neighbor*VelocitiesPerPoint + dir
}

// VelocityAll returns the channels of neighbor, in channel order.
func (l *Lattice) VelocityAll(neighbor int) []int {
	out := make([]int, VelocitiesPerPoint)
	for dir := range out {
		out[dir] = l.VelocityIndex(neighbor, dir)
	}
	return out
}

// AncillaMass returns the mass measurement ancilla.
func (l *Lattice) AncillaMass() int {
	if !l.measurement {
		panic("lattice has no mass measurement ancilla")
	}
	return l.NumGridQubits() + l.NumVelocityQubits(l.timesteps)
}

// AncillaComparator returns the lower and upper comparator ancillae of dim.
func (l *Lattice) AncillaComparator(dim int) [2]int {
	if !l.volumetric {
		panic("lattice has no comparator ancillae")
	}
	l.checkDim("ancilla comparator", dim)
	start := l.NumGridQubits() + l.NumVelocityQubits(l.timesteps)
	if l.measurement {
		start++
	}
	return [2]int{start + 2*dim, start + 2*dim + 1}
}

// Increments returns the unit step of channel dir.
func Increments(dir int) [2]int {
	if dir < 0 || dir >= VelocitiesPerPoint {
		panic(fmt.Sprintf("D2Q4 only supports velocities with indices [0, %d], got %d", VelocitiesPerPoint-1, dir))
	}
	return increments[dir]
}

// ReflectionMap returns the channel opposite dir.
func ReflectionMap(dir int) int {
	if dir < 0 || dir >= VelocitiesPerPoint {
		panic(fmt.Sprintf("D2Q4 only supports velocities with indices [0, %d], got %d", VelocitiesPerPoint-1, dir))
	}
	return reflected[dir]
}

// quadrant assigns each nonzero offset to one of four quadrants. Each
// quadrant owns one axis half-line, e.g. quadrant 0 owns +x and not +y.
func quadrant(p [2]int) int {
	switch {
	case p[1] == 0:
		if p[0] > 0 {
			return 0
		}
		return 2
	case p[0] == 0:
		if p[1] > 0 {
			return 1
		}
		return 3
	case p[1] > 0:
		if p[0] > 0 {
			return 0
		}
		return 1
	case p[0] < 0:
		return 2
	}
	return 3
}

// IndexOfNeighbor returns the neighborhood index of the relative offset p.
// Points are numbered by Manhattan distance, then by quadrant, starting from
// the axis point of each quadrant.
func (l *Lattice) IndexOfNeighbor(p [2]int) int {
	if p == [2]int{} {
		return 0
	}
	d := abs(p[0]) + abs(p[1])
	if d > l.timesteps {
		panic(fmt.Sprintf("neighbor (%d,%d) is %d steps away, the lattice covers %d", p[0], p[1], d, l.timesteps))
	}
	base := l.NumNeighborsWithin(d - 1)
	q := quadrant(p)
	if p[0] == 0 || p[1] == 0 {
		return base + q*d
	}
	across := p[1]
	if q == 1 || q == 3 {
		across = p[0]
	}
	return base + q*d + abs(across)
}

// NeighborKind distinguishes the origin, the axis points and the points
// between them.
type NeighborKind int

const (
	Origin NeighborKind = iota
	Extreme
	Intermediate
)

func (k NeighborKind) String() string {
	switch k {
	case Origin:
		return "origin"
	case Extreme:
		return "extreme"
	case Intermediate:
		return "intermediate"
	}
	return fmt.Sprintf("NeighborKind(%d)", int(k))
}

// Neighbor is a point of the neighborhood, relative to the origin.
type Neighbor struct {
	Index       int
	Coordinates [2]int
	Kind        NeighborKind
}

// Absolute returns the grid point whose neighborhood contains origin at
// this neighbor's offset.
func (n Neighbor) Absolute(origin [2]int) [2]int {
	return [2]int{origin[0] - n.Coordinates[0], origin[1] - n.Coordinates[1]}
}

// Neighbors returns the points at exactly distance d, by index.
func (l *Lattice) Neighbors(d int) []Neighbor {
	if d == 0 {
		return []Neighbor{{Index: 0, Kind: Origin}}
	}
	var out []Neighbor
	for x := -d; x <= d; x++ {
		for _, y := range []int{d - abs(x), abs(x) - d} {
			p := [2]int{x, y}
			kind := Intermediate
			if x == 0 || y == 0 {
				kind = Extreme
			}
			out = append(out, Neighbor{Index: l.IndexOfNeighbor(p), Coordinates: p, Kind: kind})
			if y == 0 {
				break
			}
		}
	}
	slices.SortFunc(out, func(a, b Neighbor) int { return cmp.Compare(a.Index, b.Index) })
	return out
}

// StreamingLines returns, for each line of the neighborhood parallel to dim,
// its neighbor indices in the order the swaps run. Swapping consecutive
// entries moves every channel one step in the positive direction of dim
// when positive is set.
func (l *Lattice) StreamingLines(dim int, positive bool, timestep int) [][]int {
	l.checkDim("streaming", dim)
	var lines [][]int
	for offset := -timestep + 1; offset < timestep; offset++ {
		start, end, step := -l.timesteps+abs(offset), l.timesteps-abs(offset), 1
		if positive {
			start, end, step = end, start, -1
		}
		var line []int
		for i := start; i != end+step; i += step {
			p := [2]int{offset, i}
			if dim == 0 {
				p = [2]int{i, offset}
			}
			line = append(line, l.IndexOfNeighbor(p))
		}
		lines = append(lines, line)
	}
	return lines
}

// Wrap maps p onto the periodic grid.
func (l *Lattice) Wrap(p [2]int) [2]int {
	for d := range p {
		n := l.dims[d]
		p[d] = ((p[d] % n) + n) % n
	}
	return p
}

// IsInsideObstacle reports whether p lies in any obstacle.
func (l *Lattice) IsInsideObstacle(p [2]int) bool {
	return slices.ContainsFunc(l.obstacles, func(o geometry.Obstacle) bool {
		return o.Contains(p[:])
	})
}

// QubitsToInvert returns the offsets, within the grid register, of the bits
// that are zero in the encoding of p. Inverting them maps p to all ones.
func (l *Lattice) QubitsToInvert(p [2]int) []int {
	p = l.Wrap(p)
	var out []int
	offset := 0
	for d, n := range l.gridQubits {
		for i := range n {
			if p[d]>>i&1 == 0 {
				out = append(out, offset+i)
			}
		}
		offset += n
	}
	return out
}

// Layout returns the named registers in qubit order.
func (l *Lattice) Layout() []lattice.Register {
	regs := []lattice.Register{
		{Name: "g_x", Qubits: l.GridIndex(0)},
		{Name: "g_y", Qubits: l.GridIndex(1)},
		{Name: "v", Qubits: seq(l.NumGridQubits(), l.NumVelocityQubits(l.timesteps))},
	}
	if l.measurement {
		regs = append(regs, lattice.Register{Name: "a_m", Qubits: []int{l.AncillaMass()}})
	}
	if l.volumetric {
		for d := range l.NumDims() {
			anc := l.AncillaComparator(d)
			regs = append(regs,
				lattice.Register{Name: "a_l" + config.Axes[d], Qubits: anc[:1]},
				lattice.Register{Name: "a_u" + config.Axes[d], Qubits: anc[1:]})
		}
	}
	return regs
}

func (l *Lattice) String() string {
	return fmt.Sprintf("space-time lattice %dx%d D2Q4 T=%d with %d obstacles on %d qubits",
		l.dims[0], l.dims[1], l.timesteps, len(l.obstacles), l.NumQubits())
}
