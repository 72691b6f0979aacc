package spacetime

import (
	"fmt"
	"slices"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/collision"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/primitives"
)

// StreamingOperator moves every channel of the neighborhood of radius
// timestep one step along its direction, by swapping consecutive entries of
// each streaming line.
func StreamingOperator(l *Lattice, timestep int) (*circuit.Circuit, error) {
	if err := l.checkSteps(timestep); err != nil {
		return nil, err
	}
	c := circuit.New(fmt.Sprintf("st_streaming_%d", timestep), l.NumQubits())
	for _, s := range []struct {
		dim      int
		positive bool
		velocity int
	}{
		{0, true, 0},
		{0, false, 2},
		{1, true, 1},
		{1, false, 3},
	} {
		for _, line := range l.StreamingLines(s.dim, s.positive, timestep) {
			for i := 0; i+1 < len(line); i++ {
				c.Swap(l.VelocityIndex(line[i], s.velocity), l.VelocityIndex(line[i+1], s.velocity))
			}
		}
	}
	return c, c.Err()
}

// PointWiseData returns the point-wise reflections of every obstacle for a
// neighborhood of radius timestep. Unless includeInside is set, points lying
// inside an obstacle are dropped.
func (l *Lattice) PointWiseData(timestep int, includeInside bool) ([]PointWiseData, error) {
	return l.pointWiseData(l.obstacles, timestep, includeInside)
}

func (l *Lattice) pointWiseData(obstacles []geometry.Obstacle, timestep int, includeInside bool) ([]PointWiseData, error) {
	var out []PointWiseData
	for _, o := range obstacles {
		var data []PointWiseData
		var err error
		switch o := o.(type) {
		case *geometry.Block:
			data, err = l.BlockPointWiseData(o, timestep)
		case *geometry.Circle:
			data, err = l.CirclePointWiseData(o, timestep)
		default:
			err = fmt.Errorf("no space-time reflection for shape %q", o.Shape())
		}
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	if !includeInside {
		out = slices.DeleteFunc(out, func(d PointWiseData) bool { return l.IsInsideObstacle(d.Gridpoint) })
	}
	return out, nil
}

// PointWiseReflection swaps the reflected channels of each boundary point,
// controlled on the grid register holding that point.
func PointWiseReflection(l *Lattice, timestep int, includeInside bool) (*circuit.Circuit, error) {
	data, err := l.PointWiseData(timestep, includeInside)
	if err != nil {
		return nil, err
	}
	return pointWiseCircuit(l, fmt.Sprintf("st_reflection_%d", timestep), data)
}

func pointWiseCircuit(l *Lattice, name string, data []PointWiseData) (*circuit.Circuit, error) {
	c := circuit.New(name, l.NumQubits())
	grid := l.GridAll()
	for _, d := range data {
		if len(d.QubitsToInvert) > 0 {
			c.X(d.QubitsToInvert...)
		}
		for _, p := range d.Pairs {
			c.MCSwap(grid,
				l.VelocityIndex(p.Streamed.Neighbor, p.Streamed.Velocity),
				l.VelocityIndex(p.Reflected.Neighbor, p.Reflected.Velocity))
		}
		if len(d.QubitsToInvert) > 0 {
			c.X(d.QubitsToInvert...)
		}
	}
	return c, c.Err()
}

// reflection builds the reflection of one step. Blocks use the volumetric
// reflection when the lattice has comparator ancillae, and every other
// obstacle is reflected point by point.
func reflection(l *Lattice, timestep int, includeInside bool) (*circuit.Circuit, int, error) {
	if !l.volumetric {
		data, err := l.PointWiseData(timestep, includeInside)
		if err != nil {
			return nil, 0, err
		}
		c, err := pointWiseCircuit(l, fmt.Sprintf("st_reflection_%d", timestep), data)
		return c, len(data), err
	}
	c, err := VolumetricReflection(l, timestep)
	if err != nil {
		return nil, 0, err
	}
	var rest []geometry.Obstacle
	for _, o := range l.obstacles {
		if _, ok := o.(*geometry.Block); !ok {
			rest = append(rest, o)
		}
	}
	data, err := l.pointWiseData(rest, timestep, includeInside)
	if err != nil {
		return nil, 0, err
	}
	pw, err := pointWiseCircuit(l, "st_reflection_rest", data)
	if err != nil {
		return nil, 0, err
	}
	if err := c.Compose(pw, seq(0, l.NumQubits())); err != nil {
		return nil, 0, err
	}
	return c, len(data), nil
}

// ranges splits [lo, hi] on a periodic axis of n points into in-range
// intervals. A nil result means the whole axis.
func ranges(lo, hi, n int) [][2]int {
	if hi-lo+1 >= n {
		return nil
	}
	lo, hi = ((lo%n)+n)%n, ((hi%n)+n)%n
	if lo <= hi {
		return [][2]int{{lo, hi}}
	}
	return [][2]int{{lo, n - 1}, {0, hi}}
}

// fluidSpans returns the parts of the ranged span of d that lie outside b.
// Spans are in unwrapped coordinates.
func fluidSpans(b *geometry.Block, d VolumetricData) [][2]int {
	lo, hi := d.RangedBounds[0], d.RangedBounds[1]
	f := b.Bounds[d.FixedDim]
	if d.FixedGridpoint < f[0] || d.FixedGridpoint > f[1] {
		return [][2]int{{lo, hi}}
	}
	r := b.Bounds[d.RangedDim]
	var out [][2]int
	if lo < r[0] {
		out = append(out, [2]int{lo, min(hi, r[0]-1)})
	}
	if hi > r[1] {
		out = append(out, [2]int{max(lo, r[1]+1), hi})
	}
	return out
}

// VolumetricReflection reflects whole block walls at once. The fixed
// coordinate of the wall is matched exactly and the ranged coordinate is
// tested by a pair of comparators on the comparator ancillae. The parts of a
// wall that run through its own block are left out.
func VolumetricReflection(l *Lattice, timestep int) (*circuit.Circuit, error) {
	if !l.volumetric {
		return nil, fmt.Errorf("volumetric reflection needs a lattice with comparator ancillae")
	}
	c := circuit.New(fmt.Sprintf("st_volumetric_reflection_%d", timestep), l.NumQubits())
	for _, b := range l.blocks {
		data, err := l.BlockVolumetricData(b, timestep)
		if err != nil {
			return nil, err
		}
		for _, d := range data {
			fixed := l.GridIndex(d.FixedDim)
			invert := make([]int, len(d.QubitsToInvert))
			for i, q := range d.QubitsToInvert {
				invert[i] = fixed[q]
			}
			a := l.VelocityIndex(d.Pair.Streamed.Neighbor, d.Pair.Streamed.Velocity)
			z := l.VelocityIndex(d.Pair.Reflected.Neighbor, d.Pair.Reflected.Velocity)

			spans := fluidSpans(b, d)
			if len(spans) == 0 {
				continue
			}
			var intervals [][2]int
			for _, s := range spans {
				intervals = append(intervals, ranges(s[0], s[1], l.dims[d.RangedDim])...)
			}
			if len(spans) == 1 && intervals == nil {
				if len(invert) > 0 {
					c.X(invert...)
				}
				c.MCSwap(fixed, a, z)
				if len(invert) > 0 {
					c.X(invert...)
				}
				continue
			}
			anc := l.AncillaComparator(d.RangedDim)
			n := l.gridQubits[d.RangedDim] + 1
			for _, r := range intervals {
				lb, err := primitives.Comparator(n, r[0], primitives.GE)
				if err != nil {
					return nil, err
				}
				ub, err := primitives.Comparator(n, r[1], primitives.LE)
				if err != nil {
					return nil, err
				}
				c.MustCompose(lb, append(l.GridIndex(d.RangedDim), anc[0]))
				c.MustCompose(ub, append(l.GridIndex(d.RangedDim), anc[1]))
				if len(invert) > 0 {
					c.X(invert...)
				}
				c.MCSwap(append(slices.Clone(fixed), anc[0], anc[1]), a, z)
				if len(invert) > 0 {
					c.X(invert...)
				}
				c.MustCompose(ub, append(l.GridIndex(d.RangedDim), anc[1]))
				c.MustCompose(lb, append(l.GridIndex(d.RangedDim), anc[0]))
			}
		}
	}
	return c, c.Err()
}

// Collision applies the D2Q4 collision to every neighbor of the
// neighborhood of radius timestep.
func Collision(l *Lattice, timestep int) (*circuit.Circuit, error) {
	if err := l.checkSteps(timestep); err != nil {
		return nil, err
	}
	c := circuit.New(fmt.Sprintf("st_collision_%d", timestep), l.NumQubits())
	local := collision.Simple()
	for n := range l.NumNeighborsWithin(timestep) {
		c.MustCompose(local, l.VelocityAll(n))
	}
	return c, c.Err()
}

// PointVelocities sets the occupied channels of one grid point.
type PointVelocities struct {
	Point      [2]int
	Velocities [VelocitiesPerPoint]bool
}

func (p PointVelocities) channels() []int {
	var out []int
	for v, on := range p.Velocities {
		if on {
			out = append(out, v)
		}
	}
	return out
}

// InitialConditions places a uniform superposition on the grid and, for each
// point, sets its channels in the neighborhood of every grid point that can
// see it. Points inside obstacles are skipped unless includeInside is set.
func InitialConditions(l *Lattice, points []PointVelocities, includeInside bool) *circuit.Circuit {
	c := circuit.New("st_initial_conditions", l.NumQubits())
	grid := l.GridAll()
	c.H(grid...)
	set := func(origin [2]int, neighbor int, channels []int) {
		invert := l.QubitsToInvert(origin)
		if len(invert) > 0 {
			c.X(invert...)
		}
		for _, v := range channels {
			c.MCX(grid, l.VelocityIndex(neighbor, v))
		}
		if len(invert) > 0 {
			c.X(invert...)
		}
	}
	for _, p := range points {
		if !includeInside && l.IsInsideObstacle(p.Point) {
			continue
		}
		channels := p.channels()
		if len(channels) == 0 {
			continue
		}
		for d := range l.timesteps + 1 {
			for _, n := range l.Neighbors(d) {
				origin := l.Wrap(n.Absolute(p.Point))
				if n.Kind != Origin && !includeInside && l.IsInsideObstacle(origin) {
					continue
				}
				set(origin, n.Index, channels)
			}
		}
	}
	return c
}

// GridVelocityMeasurement measures the grid and the channels of the origin.
func GridVelocityMeasurement(l *Lattice) *circuit.Circuit {
	qubits := append(l.GridAll(), l.VelocityAll(0)...)
	c := circuit.New("st_grid_velocity_measurement", l.NumQubits())
	for i, q := range qubits {
		c.Measure(q, i)
	}
	return c
}

// PointMassMeasurement measures whether channel velocity of gridpoint is
// occupied, through the mass ancilla.
func PointMassMeasurement(l *Lattice, gridpoint [2]int, velocity int) (*circuit.Circuit, error) {
	if !l.measurement {
		return nil, fmt.Errorf("point mass measurement needs a lattice with a measurement ancilla")
	}
	c := circuit.New("st_point_mass_measurement", l.NumQubits())
	invert := l.QubitsToInvert(gridpoint)
	if len(invert) > 0 {
		c.X(invert...)
	}
	c.MCX(append(l.GridAll(), l.VelocityIndex(0, velocity)), l.AncillaMass())
	if len(invert) > 0 {
		c.X(invert...)
	}
	c.Measure(l.AncillaMass(), 0)
	return c, c.Err()
}

// CompileOptions configures assembly.
type CompileOptions struct {
	Logf monitoring.Logf
	// IncludeInside keeps reflections at points inside obstacles.
	IncludeInside bool
	// Barriers separates the operators of a step in the assembled circuit.
	Barriers bool
}

// Stats describes a compiled space-time program.
type Stats struct {
	circuit.Stats
	Timesteps        int `json:"timesteps"`
	// ReflectionPoints counts the point-wise reflections over all steps.
	ReflectionPoints int `json:"reflection_points"`
}

// Operator is one operator of one time step of a compiled program.
type Operator struct {
	Timestep int
	Name     string
	Circuit  *circuit.Circuit
}

// Key names the operator uniquely within its program.
func (o Operator) Key() string {
	return fmt.Sprintf("%s-%d", o.Name, o.Timestep)
}

// Program is a compiled space-time simulation, without initial conditions
// or measurement. Operators lists its parts in program order.
type Program struct {
	Circuit   *circuit.Circuit
	Operators []Operator
	Stats     Stats
}

// Compile runs streaming, reflection and collision for every time step,
// shrinking the neighborhood by one each step.
func Compile(l *Lattice, opts CompileOptions) (*Program, error) {
	logf := monitoring.OrDiscard(opts.Logf)
	all := seq(0, l.NumQubits())
	c := circuit.New("stqbm", l.NumQubits())
	points := 0
	var ops []Operator
	err := monitoring.Timed(opts.Logf, "Compiling "+l.String(), func() error {
		for t := l.timesteps; t >= 1; t-- {
			s, err := StreamingOperator(l, t)
			if err != nil {
				return err
			}
			c.MustCompose(s, all)
			if opts.Barriers {
				c.Barrier()
			}

			r, n, err := reflection(l, t, opts.IncludeInside)
			if err != nil {
				return fmt.Errorf("reflection at step %d: %w", t, err)
			}
			points += n
			c.MustCompose(r, all)
			if opts.Barriers {
				c.Barrier()
			}

			col, err := Collision(l, t)
			if err != nil {
				return err
			}
			c.MustCompose(col, all)
			ops = append(ops,
				Operator{Timestep: t, Name: "streaming", Circuit: s},
				Operator{Timestep: t, Name: "reflection", Circuit: r},
				Operator{Timestep: t, Name: "collision", Circuit: col},
			)
			logf("Built space-time step %d with %d swaps", t, r.CountOps()["MCSWAP"]+s.CountOps()["SWAP"])
		}
		return c.Err()
	})
	if err != nil {
		return nil, err
	}
	return &Program{
		Circuit:   c,
		Operators: ops,
		Stats: Stats{
			Stats:            circuit.ComputeStats(c),
			Timesteps:        l.timesteps,
			ReflectionPoints: points,
		},
	}, nil
}
