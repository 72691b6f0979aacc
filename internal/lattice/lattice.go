package lattice

import (
	"fmt"
	"math/bits"
	"slices"
	"strings"

	"qlbmcirq/internal/config"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/reflection"
)

// ConfigurationError reports a grid or velocity specification that cannot
// be laid out on qubits.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid lattice %s: %s", e.Field, e.Reason)
}

// Options configures lattice construction.
type Options struct {
	Logf monitoring.Logf
}

// Register is a named, contiguous run of qubits.
type Register struct {
	Name   string
	Qubits []int
}

// Lattice is the qubit layout of a collisionless lattice together with its
// validated obstacles and their reflection structures. It is immutable after
// New.
type Lattice struct {
	dims       []int
	velocities []int

	gridQubits     []int
	velocityQubits []int
	obstacleQubits int

	obstacles   []geometry.Obstacle
	blocks      []*geometry.Block
	reflections []*reflection.Reflections

	logf monitoring.Logf
}

// New validates spec and computes the layout. Qubits are ordered
// a_v, a_o, a_c, grid (x, y, z), velocity magnitudes, velocity directions.
func New(spec config.Spec, opts Options) (*Lattice, error) {
	l := &Lattice{logf: monitoring.OrDiscard(opts.Logf)}

	if spec.Lattice.Discretization != "" {
		return nil, &ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("%q describes a space-time lattice, the collisionless encoding needs per-axis velocities", spec.Lattice.Discretization)}
	}
	n := len(spec.Lattice.Dim)
	if n < 1 || n > 3 {
		return nil, &ConfigurationError{Field: "dim", Reason: fmt.Sprintf("expected 1 to 3 axes, got %d", n)}
	}
	if len(spec.Lattice.Velocities) != n {
		return nil, &ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("expected %d axes to match dim, got %d", n, len(spec.Lattice.Velocities))}
	}
	for name := range spec.Lattice.Dim {
		if i := slices.Index(config.Axes, name); i < 0 || i >= n {
			return nil, &ConfigurationError{Field: "dim", Reason: fmt.Sprintf("unexpected axis %q for a %dD lattice", name, n)}
		}
	}
	for _, axis := range config.Axes[:n] {
		d, ok := spec.Lattice.Dim[axis]
		if !ok {
			return nil, &ConfigurationError{Field: "dim", Reason: fmt.Sprintf("missing axis %q", axis)}
		}
		v, ok := spec.Lattice.Velocities[axis]
		if !ok {
			return nil, &ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("missing axis %q", axis)}
		}
		if !isPowerOfTwo(d) {
			return nil, &ConfigurationError{Field: "dim." + axis, Reason: fmt.Sprintf("%d is not a power of two greater than 1", d)}
		}
		if !isPowerOfTwo(v) {
			return nil, &ConfigurationError{Field: "velocities." + axis, Reason: fmt.Sprintf("%d is not a power of two greater than 1", v)}
		}
		l.dims = append(l.dims, d)
		l.velocities = append(l.velocities, v)
		l.gridQubits = append(l.gridQubits, bitlen(d-1))
		l.velocityQubits = append(l.velocityQubits, bitlen(v-1)-1)
	}

	obstacles, err := geometry.Parse(spec.Geometry, l.dims)
	if err != nil {
		return nil, err
	}
	for i, o := range obstacles {
		if _, ok := o.(*geometry.Block); !ok {
			return nil, &geometry.GeometryError{Index: i + 1, Bounds: o.BoundingBox(), Constraint: fmt.Sprintf("shape %q requires the space-time encoding", o.Shape())}
		}
		if n == 1 {
			return nil, &geometry.GeometryError{Index: i + 1, Bounds: o.BoundingBox(), Constraint: "obstacles on a 1D lattice require the lqlga encoding"}
		}
	}
	l.obstacles = obstacles
	l.blocks = geometry.Blocks(obstacles)

	l.obstacleQubits = 1
	for _, b := range l.blocks {
		if b.HasKind(geometry.Specular) {
			l.obstacleQubits = n
			break
		}
	}

	for i, b := range l.blocks {
		others := slices.Delete(slices.Clone(obstacles), i, i+1)
		r, err := reflection.Classify(b, others, l.gridQubits)
		if err != nil {
			return nil, fmt.Errorf("failed to classify obstacle %d: %w", i+1, err)
		}
		l.reflections = append(l.reflections, r)
	}

	l.logf("Created %s", l)
	return l, nil
}

func isPowerOfTwo(n int) bool {
	return n > 1 && n&(n-1) == 0
}

func bitlen(n int) int {
	return bits.Len(uint(n))
}

func seq(start, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = start + i
	}
	return out
}

func sum(xs []int) int {
	s := 0
	for _, x := range xs {
		s += x
	}
	return s
}

func (l *Lattice) NumDims() int           { return len(l.dims) }
func (l *Lattice) Dims() []int            { return slices.Clone(l.dims) }
func (l *Lattice) Velocities() []int      { return slices.Clone(l.velocities) }
func (l *Lattice) GridQubits() []int      { return slices.Clone(l.gridQubits) }
func (l *Lattice) VelocityQubits() []int  { return slices.Clone(l.velocityQubits) }
func (l *Lattice) NumObstacleQubits() int { return l.obstacleQubits }
func (l *Lattice) Logf() monitoring.Logf  { return l.logf }

func (l *Lattice) numComparatorQubits() int { return 2 * (l.NumDims() - 1) }

func (l *Lattice) NumAncillaQubits() int {
	return l.NumDims() + l.obstacleQubits + l.numComparatorQubits()
}

func (l *Lattice) NumGridQubits() int { return sum(l.gridQubits) }

// NumVelocityQubits counts magnitude and direction qubits.
func (l *Lattice) NumVelocityQubits() int { return sum(l.velocityQubits) + l.NumDims() }

func (l *Lattice) NumQubits() int {
	return l.NumAncillaQubits() + l.NumGridQubits() + l.NumVelocityQubits()
}

// Obstacles returns the validated obstacles in input order.
func (l *Lattice) Obstacles() []geometry.Obstacle { return slices.Clone(l.obstacles) }

// Blocks returns the cuboid obstacles.
func (l *Lattice) Blocks() []*geometry.Block { return slices.Clone(l.blocks) }

// Reflections returns the classified structures of each block, in block
// order.
func (l *Lattice) Reflections() []*reflection.Reflections { return slices.Clone(l.reflections) }

// HasKind reports whether any reflection structure uses boundary kind k.
func (l *Lattice) HasKind(k geometry.Kind) bool {
	for _, r := range l.reflections {
		if r.HasKind(k) {
			return true
		}
	}
	return false
}

func (l *Lattice) checkDim(what string, dim int) {
	if dim < 0 || dim >= l.NumDims() {
		panic(fmt.Sprintf("cannot index %s register for dimension %d in %d-dimensional lattice", what, dim, l.NumDims()))
	}
}

// AncillaVelocity returns the velocity ancilla of dim.
func (l *Lattice) AncillaVelocity(dim int) []int {
	l.checkDim("ancilla velocity", dim)
	return []int{dim}
}

// AncillaVelocityAll returns every velocity ancilla.
func (l *Lattice) AncillaVelocityAll() []int { return seq(0, l.NumDims()) }

// AncillaObstacle returns obstacle ancilla i.
func (l *Lattice) AncillaObstacle(i int) []int {
	if i < 0 || i >= l.obstacleQubits {
		panic(fmt.Sprintf("cannot index ancilla obstacle register for index %d, maximum is %d", i, l.obstacleQubits-1))
	}
	return []int{l.NumDims() + i}
}

// AncillaComparator returns the lower and upper comparator ancillae of
// alignment index i.
func (l *Lattice) AncillaComparator(i int) []int {
	if i < 0 || i >= l.NumDims()-1 {
		panic(fmt.Sprintf("cannot index ancilla comparator register for index %d in %d-dimensional lattice", i, l.NumDims()))
	}
	return seq(l.NumDims()+l.obstacleQubits+2*i, 2)
}

// AncillaComparatorAll returns every comparator ancilla.
func (l *Lattice) AncillaComparatorAll() []int {
	return seq(l.NumDims()+l.obstacleQubits, l.numComparatorQubits())
}

// Grid returns the grid qubits of dim, least significant first.
func (l *Lattice) Grid(dim int) []int {
	l.checkDim("grid", dim)
	return seq(l.NumAncillaQubits()+sum(l.gridQubits[:dim]), l.gridQubits[dim])
}

// GridAll returns every grid qubit.
func (l *Lattice) GridAll() []int { return seq(l.NumAncillaQubits(), l.NumGridQubits()) }

// Velocity returns the velocity magnitude qubits of dim.
func (l *Lattice) Velocity(dim int) []int {
	l.checkDim("velocity", dim)
	return seq(l.NumAncillaQubits()+l.NumGridQubits()+sum(l.velocityQubits[:dim]), l.velocityQubits[dim])
}

// VelocityAll returns every velocity magnitude qubit.
func (l *Lattice) VelocityAll() []int {
	return seq(l.NumAncillaQubits()+l.NumGridQubits(), sum(l.velocityQubits))
}

// VelocityDir returns the direction qubit of dim.
func (l *Lattice) VelocityDir(dim int) []int {
	l.checkDim("velocity direction", dim)
	return []int{l.NumAncillaQubits() + l.NumGridQubits() + sum(l.velocityQubits) + dim}
}

// VelocityDirAll returns every velocity direction qubit.
func (l *Lattice) VelocityDirAll() []int {
	return seq(l.NumAncillaQubits()+l.NumGridQubits()+sum(l.velocityQubits), l.NumDims())
}

// Layout returns the named registers in qubit order. Empty registers are
// omitted.
func (l *Lattice) Layout() []Register {
	regs := []Register{
		{"a_v", l.AncillaVelocityAll()},
		{"a_o", seq(l.NumDims(), l.obstacleQubits)},
		{"a_c", l.AncillaComparatorAll()},
	}
	for d := range l.NumDims() {
		regs = append(regs, Register{"g_" + config.Axes[d], l.Grid(d)})
	}
	for d := range l.NumDims() {
		regs = append(regs, Register{"v_" + config.Axes[d], l.Velocity(d)})
	}
	for d := range l.NumDims() {
		regs = append(regs, Register{"v_dir_" + config.Axes[d], l.VelocityDir(d)})
	}
	return slices.DeleteFunc(regs, func(r Register) bool { return len(r.Qubits) == 0 })
}

// QubitLabels names every qubit, e.g. "g_x[1]", for circuit rendering.
func (l *Lattice) QubitLabels() []string {
	return Labels(l.Layout(), l.NumQubits())
}

// Labels names the n qubits of a circuit laid out by regs. Qubits outside
// every register keep their circuit name.
func Labels(regs []Register, n int) []string {
	labels := make([]string, n)
	for q := range labels {
		labels[q] = fmt.Sprintf("q[%d]", q)
	}
	for _, r := range regs {
		for i, q := range r.Qubits {
			if q >= 0 && q < n {
				labels[q] = fmt.Sprintf("%s[%d]", r.Name, i)
			}
		}
	}
	return labels
}

func (l *Lattice) String() string {
	dims := make([]string, len(l.dims))
	for d, v := range l.dims {
		dims[d] = fmt.Sprint(v)
	}
	return fmt.Sprintf("lattice %s vel=%v with %d obstacles on %d qubits",
		strings.Join(dims, "x"), l.velocities, len(l.obstacles), l.NumQubits())
}
