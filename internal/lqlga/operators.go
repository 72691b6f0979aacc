package lqlga

import (
	"fmt"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/collision"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/monitoring"
)

// StreamingSwaps returns the swap layers that shift a line of n entries one
// place, cyclically, up or (negative) down. Layer k swaps entries 2^k apart,
// so the depth is ceil(log2 n) and the swap count n-1.
func StreamingSwaps(n int, negative bool) [][][2]int {
	if n < 2 {
		return nil
	}
	var layers [][][2]int
	for stride := 1; stride < n; stride *= 2 {
		var layer [][2]int
		for i := 0; i+stride < n; i += 2 * stride {
			if negative {
				layer = append(layer, [2]int{n - 1 - i, n - 1 - i - stride})
			} else {
				layer = append(layer, [2]int{i, i + stride})
			}
		}
		layers = append(layers, layer)
	}
	return layers
}

// StreamingOperator moves every particle one grid point along its channel.
func StreamingOperator(l *Lattice) *circuit.Circuit {
	c := circuit.New("lqlga_streaming", l.NumQubits())
	for _, v := range []int{Positive, Negative} {
		for _, layer := range StreamingSwaps(l.size, v == Negative) {
			for _, p := range layer {
				c.Swap(l.VelocityIndex(p[0], v), l.VelocityIndex(p[1], v))
			}
		}
	}
	return c
}

// ReflectionData swaps the channel a particle streamed into an obstacle on
// with the opposite channel of the fluid point it came from.
type ReflectionData struct {
	Gridpoints [2]int
	Velocities [2]int
}

// BlockReflectionData returns the swaps for both ends of b. An end whose
// fluid neighbor lies inside an obstacle is shielded and gets none. On a line
// the normal is the whole velocity, so specular and bounceback ends reflect
// alike.
func (l *Lattice) BlockReflectionData(b *geometry.Block) ([]ReflectionData, error) {
	if b.NumDims() != 1 {
		return nil, fmt.Errorf("lqlga reflection needs a 1D block, got %dD", b.NumDims())
	}
	lo, hi := b.Bounds[0][0], b.Bounds[0][1]
	var out []ReflectionData
	if p := l.Wrap(lo - 1); !l.IsInsideObstacle(p) {
		out = append(out, ReflectionData{Gridpoints: [2]int{lo, p}, Velocities: [2]int{Positive, Negative}})
	}
	if p := l.Wrap(hi + 1); !l.IsInsideObstacle(p) {
		out = append(out, ReflectionData{Gridpoints: [2]int{hi, p}, Velocities: [2]int{Negative, Positive}})
	}
	return out, nil
}

// ReflectionOperator reflects the particles that streamed into any obstacle.
func ReflectionOperator(l *Lattice) (*circuit.Circuit, error) {
	c := circuit.New("lqlga_reflection", l.NumQubits())
	for _, b := range l.blocks {
		data, err := l.BlockReflectionData(b)
		if err != nil {
			return nil, err
		}
		for _, d := range data {
			c.Swap(l.VelocityIndex(d.Gridpoints[0], d.Velocities[0]), l.VelocityIndex(d.Gridpoints[1], d.Velocities[1]))
		}
	}
	return c, c.Err()
}

// Collision applies the D1Q2 equivalence class collision at every grid
// point. D1Q2 has no class of two or more configurations, so the operator
// is the identity; it is built the same way regardless.
func Collision(l *Lattice) (*circuit.Circuit, error) {
	local, err := collision.EQC(collision.D1Q2)
	if err != nil {
		return nil, err
	}
	c := circuit.New("lqlga_collision", l.NumQubits())
	for gp := range l.size {
		c.MustCompose(local, l.VelocityAll(gp))
	}
	return c, c.Err()
}

// PointVelocities sets the occupied channels of one grid point.
type PointVelocities struct {
	Point      int
	Velocities [VelocitiesPerPoint]bool
}

// InitialConditions prepares the deterministic state given by points. The
// circuit has depth one.
func InitialConditions(l *Lattice, points []PointVelocities) (*circuit.Circuit, error) {
	c := circuit.New("lqlga_initial_conditions", l.NumQubits())
	for _, p := range points {
		if p.Point < 0 || p.Point >= l.size {
			return nil, fmt.Errorf("initial condition at %d lies outside the lattice [0,%d)", p.Point, l.size)
		}
		for v, on := range p.Velocities {
			if on {
				c.X(l.VelocityIndex(p.Point, v))
			}
		}
	}
	return c, c.Err()
}

// GridVelocityMeasurement measures every qubit into the classical bit of the
// same index.
func GridVelocityMeasurement(l *Lattice) *circuit.Circuit {
	c := circuit.New("lqlga_grid_velocity_measurement", l.NumQubits())
	for q := range l.NumQubits() {
		c.Measure(q, q)
	}
	return c
}

// CompileOptions configures assembly.
type CompileOptions struct {
	Logf monitoring.Logf
	// Barriers separates the operators of a step in the assembled circuit.
	Barriers bool
}

// Stats describes a compiled LQLGA program.
type Stats struct {
	circuit.Stats
	Timesteps       int `json:"timesteps"`
	StepGates       int `json:"step_gates"`
	StepDepth       int `json:"step_depth"`
	ReflectionSwaps int `json:"reflection_swaps"`
}

// Operator is one part of the time step.
type Operator struct {
	Name    string
	Circuit *circuit.Circuit
}

// Program is a compiled LQLGA simulation, without initial conditions or
// measurement. Every time step runs the same Step, whose parts Operators
// lists in program order.
type Program struct {
	Circuit   *circuit.Circuit
	Step      *circuit.Circuit
	Operators []Operator
	Stats     Stats
}

// Compile builds one time step of collision, streaming and reflection and
// repeats it for every time step.
func Compile(l *Lattice, opts CompileOptions) (*Program, error) {
	logf := monitoring.OrDiscard(opts.Logf)
	all := make([]int, l.NumQubits())
	for i := range all {
		all[i] = i
	}

	p := &Program{}
	err := monitoring.Timed(opts.Logf, "Compiling "+l.String(), func() error {
		col, err := Collision(l)
		if err != nil {
			return err
		}
		r, err := ReflectionOperator(l)
		if err != nil {
			return err
		}
		p.Operators = []Operator{
			{Name: "collision", Circuit: col},
			{Name: "streaming", Circuit: StreamingOperator(l)},
			{Name: "reflection", Circuit: r},
		}

		step := circuit.New("lqlga_step", l.NumQubits())
		for i, op := range p.Operators {
			if i > 0 && opts.Barriers {
				step.Barrier()
			}
			step.MustCompose(op.Circuit, all)
		}
		if err := step.Err(); err != nil {
			return err
		}
		p.Step = step

		c := circuit.New("lqlga", l.NumQubits())
		for t := range l.timesteps {
			if t > 0 && opts.Barriers {
				c.Barrier()
			}
			c.MustCompose(step, all)
		}
		p.Circuit = c
		logf("Built LQLGA step with %d reflection swaps", r.CountOps()["SWAP"])
		return c.Err()
	})
	if err != nil {
		return nil, err
	}

	stepStats := circuit.ComputeStats(p.Step)
	p.Stats = Stats{
		Stats:           circuit.ComputeStats(p.Circuit),
		Timesteps:       l.timesteps,
		StepGates:       stepStats.Gates,
		StepDepth:       stepStats.Depth,
		ReflectionSwaps: p.Operators[2].Circuit.CountOps()["SWAP"],
	}
	return p, nil
}
