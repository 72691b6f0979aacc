// Package lqlga lays out the linear quantum lattice gas encoding. Every grid
// point owns one qubit per velocity channel, so a lattice of N points with q
// channels runs on exactly N*q qubits, the bits of one classical lattice gas
// state. Streaming is a permutation of those qubits and obstacles reflect
// particles with single swaps. Only D1Q2 lattices are supported.
package lqlga

import (
	"fmt"

	"qlbmcirq/internal/collision"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/monitoring"
)

// VelocitiesPerPoint is the number of D1Q2 channels, ordered +x, -x.
const VelocitiesPerPoint = 2

// Channels of a D1Q2 grid point.
const (
	Positive = 0
	Negative = 1
)

// Options configures lattice construction.
type Options struct {
	Logf monitoring.Logf
	// Timesteps overrides the run block of the spec when positive.
	Timesteps int
}

// Lattice is the qubit layout of a D1Q2 lattice gas: qubit 2i+v is channel
// v of grid point i. It is immutable after New.
type Lattice struct {
	size      int
	timesteps int

	obstacles []geometry.Obstacle
	blocks    []*geometry.Block

	logf monitoring.Logf
}

// New validates spec for the LQLGA encoding.
func New(spec config.Spec, opts Options) (*Lattice, error) {
	l := &Lattice{logf: monitoring.OrDiscard(opts.Logf)}

	if spec.Lattice.Discretization == "" {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: "the lqlga encoding needs a DdQq discretization"}
	}
	d, err := collision.ParseDiscretization(spec.Lattice.Discretization)
	if err != nil {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: err.Error()}
	}
	if d != collision.D1Q2 {
		return nil, &lattice.ConfigurationError{Field: "velocities", Reason: fmt.Sprintf("discretization %s is not supported by the lqlga encoding, supported discretizations are [D1Q2]", d)}
	}
	if n := len(spec.Lattice.Dim); n != 1 {
		return nil, &lattice.ConfigurationError{Field: "dim", Reason: fmt.Sprintf("D1Q2 needs 1 axis, got %d", n)}
	}
	size, ok := spec.Lattice.Dim["x"]
	if !ok {
		return nil, &lattice.ConfigurationError{Field: "dim", Reason: `missing axis "x"`}
	}
	if size < 2 {
		return nil, &lattice.ConfigurationError{Field: "dim.x", Reason: fmt.Sprintf("%d grid points cannot stream, need at least 2", size)}
	}
	l.size = size

	l.timesteps = opts.Timesteps
	if l.timesteps <= 0 {
		l.timesteps = spec.GetRun().GetTimesteps()
	}

	obstacles, err := geometry.Parse(spec.Geometry, []int{size})
	if err != nil {
		return nil, err
	}
	l.obstacles = obstacles
	l.blocks = geometry.Blocks(obstacles)

	l.logf("Created %s", l)
	return l, nil
}

func (l *Lattice) NumGridpoints() int    { return l.size }
func (l *Lattice) Dims() []int           { return []int{l.size} }
func (l *Lattice) Timesteps() int        { return l.timesteps }
func (l *Lattice) Logf() monitoring.Logf { return l.logf }
func (l *Lattice) NumQubits() int        { return l.size * VelocitiesPerPoint }

// Obstacles returns the validated obstacles in input order.
func (l *Lattice) Obstacles() []geometry.Obstacle { return append([]geometry.Obstacle(nil), l.obstacles...) }
func (l *Lattice) Blocks() []*geometry.Block      { return append([]*geometry.Block(nil), l.blocks...) }

// VelocityIndex returns the qubit of channel velocity at gridpoint.
func (l *Lattice) VelocityIndex(gridpoint, velocity int) int {
	if velocity < 0 || velocity >= VelocitiesPerPoint {
		panic(fmt.Sprintf("cannot index velocity %d, D1Q2 has channels [0, %d]", velocity, VelocitiesPerPoint-1))
	}
	if gridpoint < 0 || gridpoint >= l.size {
		panic(fmt.Sprintf("cannot index gridpoint %d, the lattice has %d", gridpoint, l.size))
	}
	return gridpoint*VelocitiesPerPoint + velocity
}

// VelocityAll returns the channel qubits of gridpoint.
func (l *Lattice) VelocityAll(gridpoint int) []int {
	return []int{l.VelocityIndex(gridpoint, Positive), l.VelocityIndex(gridpoint, Negative)}
}

// Wrap maps a coordinate onto the periodic line.
func (l *Lattice) Wrap(p int) int {
	return ((p % l.size) + l.size) % l.size
}

// IsInsideObstacle reports whether p lies within any obstacle.
func (l *Lattice) IsInsideObstacle(p int) bool {
	for _, o := range l.obstacles {
		if o.Contains([]int{p}) {
			return true
		}
	}
	return false
}

// Layout names one register per grid point.
func (l *Lattice) Layout() []lattice.Register {
	regs := make([]lattice.Register, l.size)
	for i := range regs {
		regs[i] = lattice.Register{Name: fmt.Sprintf("v_%d", i), Qubits: l.VelocityAll(i)}
	}
	return regs
}

func (l *Lattice) String() string {
	return fmt.Sprintf("lqlga lattice %d D1Q2 T=%d with %d obstacles on %d qubits",
		l.size, l.timesteps, len(l.obstacles), l.NumQubits())
}
