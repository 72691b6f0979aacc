// Package cqlbm assembles the collisionless quantum lattice Boltzmann
// algorithm: initial conditions, the per time step streaming and reflection
// operators, and the final grid measurement.
package cqlbm

import (
	"fmt"

	"qlbmcirq/internal/boundary"
	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/streaming"
)

// Options configures assembly.
type Options struct {
	Logf monitoring.Logf
	// Barriers separates the operators of a step in the assembled circuit.
	Barriers bool
}

func register(l *lattice.Lattice) []int {
	qs := make([]int, l.NumQubits())
	for i := range qs {
		qs[i] = i
	}
	return qs
}

// InitialConditions prepares a uniform superposition over the lower half of
// the x axis and the whole of the other axes, with every particle travelling
// in the positive direction at the lowest speed.
func InitialConditions(l *lattice.Lattice) *circuit.Circuit {
	c := circuit.New("initial_conditions", l.NumQubits())
	c.X(l.VelocityDirAll()...)
	gx := l.Grid(0)
	c.H(gx[:len(gx)-1]...)
	for d := 1; d < l.NumDims(); d++ {
		c.H(l.Grid(d)...)
	}
	return c
}

// InitialConditions3DSlim prepares a single column of particles along z at
// the origin of x and y.
func InitialConditions3DSlim(l *lattice.Lattice) (*circuit.Circuit, error) {
	if l.NumDims() != 3 {
		return nil, fmt.Errorf("slim initial conditions need a 3-dimensional lattice, got %d", l.NumDims())
	}
	c := circuit.New("initial_conditions_3d_slim", l.NumQubits())
	c.X(l.VelocityDirAll()...)
	c.H(l.Grid(2)...)
	return c, nil
}

// GridMeasurement measures every grid qubit, x first, into consecutive
// classical bits.
func GridMeasurement(l *lattice.Lattice) *circuit.Circuit {
	c := circuit.New("grid_measurement", l.NumQubits())
	for i, q := range l.GridAll() {
		c.Measure(q, i)
	}
	return c
}

// Step builds one time step. Each entry of the velocity time series streams
// its magnitudes, reflects them off specular and then bounceback faces, and
// clears the velocity ancillae it set.
func Step(l *lattice.Lattice, opts Options) (*circuit.Circuit, error) {
	logf := monitoring.OrDiscard(opts.Logf)
	c := circuit.New("cqlbm_step", l.NumQubits())
	all := register(l)

	var reflections []boundary.Generator
	if l.HasKind(geometry.Specular) {
		reflections = append(reflections, boundary.Specular{Logf: logf})
	}
	if l.HasKind(geometry.Bounceback) {
		reflections = append(reflections, boundary.Bounceback{Logf: logf})
	}

	series := streaming.TimeSeries(l.Velocities()[0])
	for _, velocities := range series {
		s, err := streaming.StreamingOperator(l, velocities)
		if err != nil {
			return nil, fmt.Errorf("streaming %v: %w", velocities, err)
		}
		c.MustCompose(s, all)
		for _, g := range reflections {
			r, err := g.BuildCircuit(l)
			if err != nil {
				return nil, err
			}
			if opts.Barriers {
				c.Barrier()
			}
			c.MustCompose(r, all)
		}
		for d := range l.NumDims() {
			c.MustCompose(streaming.AncillaPreparation(l, velocities, d), all)
		}
		if opts.Barriers {
			c.Barrier()
		}
	}
	logf("Built step of %s over %d streaming rounds", l, len(series))
	return c, c.Err()
}

// Stats describes a compiled program.
type Stats struct {
	circuit.Stats
	Timesteps  int `json:"timesteps"`
	StepGates  int `json:"step_gates"`
	StepDepth  int `json:"step_depth"`
	Structures int `json:"structures"`
}

// Program is a compiled simulation. Step is exposed on its own so that
// callers who carry the state vector between steps can rebuild the run
// one step at a time.
type Program struct {
	Circuit *circuit.Circuit
	Step    *circuit.Circuit
	Stats   Stats
}

// Compile assembles initial conditions, timesteps copies of Step and the
// grid measurement.
func Compile(l *lattice.Lattice, timesteps int, opts Options) (*Program, error) {
	if timesteps < 1 {
		return nil, fmt.Errorf("timesteps must be at least 1, got %d", timesteps)
	}
	var p Program
	err := monitoring.Timed(opts.Logf, "Compiling "+l.String(), func() error {
		step, err := Step(l, opts)
		if err != nil {
			return err
		}
		c := circuit.New("cqlbm", l.NumQubits())
		all := register(l)
		c.MustCompose(InitialConditions(l), all)
		for range timesteps {
			if opts.Barriers {
				c.Barrier()
			}
			c.MustCompose(step, all)
		}
		c.MustCompose(GridMeasurement(l), all)
		if err := c.Err(); err != nil {
			return err
		}
		p.Circuit, p.Step = c, step
		return nil
	})
	if err != nil {
		return nil, err
	}

	structures := 0
	for _, r := range l.Reflections() {
		structures += len(r.All())
	}
	stepStats := circuit.ComputeStats(p.Step)
	p.Stats = Stats{
		Stats:      circuit.ComputeStats(p.Circuit),
		Timesteps:  timesteps,
		StepGates:  stepStats.Gates,
		StepDepth:  stepStats.Depth,
		Structures: structures,
	}
	return &p, nil
}
