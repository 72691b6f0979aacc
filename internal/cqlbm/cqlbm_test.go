package cqlbm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/lattice"
)

func newLattice(t *testing.T, size, velocities int, boundary string) *lattice.Lattice {
	t.Helper()
	s := config.Spec{Lattice: config.LatticeSpec{
		Dim:        map[string]int{"x": size, "y": size},
		Velocities: map[string]int{"x": velocities, "y": velocities},
	}}
	if boundary != "" {
		s.Geometry = []config.GeometryEntry{{Shape: "cuboid", X: []int{1, 2}, Y: []int{1, 2}, Boundary: boundary}}
	}
	l, err := lattice.New(s, lattice.Options{})
	require.NoError(t, err)
	return l
}

// particle is a basis state of a 2D lattice with no velocity magnitude
// qubits.
type particle struct {
	x, y int
	dir  [2]int
	// ancillae holds the a_v, a_o and a_c qubits as one value.
	ancillae int
}

func encode(l *lattice.Lattice, p particle) int {
	i := p.ancillae
	i |= p.x << l.Grid(0)[0]
	i |= p.y << l.Grid(1)[0]
	i |= p.dir[0] << l.VelocityDir(0)[0]
	i |= p.dir[1] << l.VelocityDir(1)[0]
	return i
}

func decode(l *lattice.Lattice, i int) particle {
	mask := func(n int) int { return 1<<n - 1 }
	return particle{
		x:        i >> l.Grid(0)[0] & mask(len(l.Grid(0))),
		y:        i >> l.Grid(1)[0] & mask(len(l.Grid(1))),
		dir:      [2]int{i >> l.VelocityDir(0)[0] & 1, i >> l.VelocityDir(1)[0] & 1},
		ancillae: i & mask(l.NumAncillaQubits()),
	}
}

func evolve(t *testing.T, l *lattice.Lattice, c *circuit.Circuit, p particle) particle {
	t.Helper()
	s, err := circuit.Simulate(c, encode(l, p))
	require.NoError(t, err)
	got, prob := s.MostLikely()
	require.InDelta(t, 1.0, prob, 1e-9)
	return decode(l, got)
}

func TestStepMovesParticles(t *testing.T) {
	for _, boundary := range []string{"specular", "bounceback"} {
		t.Run(boundary, func(t *testing.T) {
			l := newLattice(t, 4, 2, boundary)
			step, err := Step(l, Options{})
			require.NoError(t, err)

			tests := []struct {
				name     string
				in, want particle
			}{
				{
					"free flight wraps around",
					particle{x: 3, y: 3, dir: [2]int{1, 1}},
					particle{x: 0, y: 0, dir: [2]int{1, 1}},
				},
				{
					"corner hit reverses both components",
					particle{x: 0, y: 0, dir: [2]int{1, 1}},
					particle{x: 0, y: 0, dir: [2]int{0, 0}},
				},
				{
					"diagonal pass by the corner",
					particle{x: 0, y: 1, dir: [2]int{1, 0}},
					particle{x: 1, y: 0, dir: [2]int{1, 0}},
				},
			}
			for _, tt := range tests {
				assert.Equal(t, tt.want, evolve(t, l, step, tt.in), tt.name)
			}
		})
	}
}

func TestStepWithoutObstacles(t *testing.T) {
	l := newLattice(t, 8, 4, "")
	step, err := Step(l, Options{})
	require.NoError(t, err)
	// Four streamed magnitudes per step, each flagged and later cleared on
	// both axes by a CX from the single magnitude qubit.
	ops := step.CountOps()
	assert.Equal(t, 16, ops["CX"])
	assert.Zero(t, ops["MCX"])
}

func TestInitialConditions(t *testing.T) {
	l := newLattice(t, 8, 4, "specular")
	c := InitialConditions(l)
	assert.Equal(t, map[string]int{"X": 2, "H": 5}, c.CountOps())
	for _, g := range c.Gates {
		if g.Type == "H" {
			assert.NotEqual(t, l.Grid(0)[2], g.Target, "the top x qubit stays in |0>")
		}
	}

	_, err := InitialConditions3DSlim(l)
	assert.Error(t, err)
}

func TestGridMeasurement(t *testing.T) {
	l := newLattice(t, 8, 4, "")
	c := GridMeasurement(l)
	assert.Equal(t, 6, c.NumCbits)
	assert.Equal(t, 6, c.CountOps()["MEASURE"])
	assert.Equal(t, l.Grid(1)[0], c.Gates[3].Target)
	assert.Equal(t, 3, c.Gates[3].Cbit)
}

func TestCompile(t *testing.T) {
	l := newLattice(t, 4, 2, "bounceback")
	var logged []string
	p, err := Compile(l, 2, Options{Barriers: true, Logf: func(format string, v ...interface{}) {
		logged = append(logged, format)
	}})
	require.NoError(t, err)

	assert.Equal(t, 2, p.Stats.Timesteps)
	assert.Equal(t, l.NumQubits(), p.Stats.Qubits)
	assert.Equal(t, p.Step.Size(), p.Stats.StepGates)
	assert.Greater(t, p.Stats.Gates, 2*p.Stats.StepGates)
	assert.Equal(t, len(l.GridAll()), p.Circuit.NumCbits)
	assert.Positive(t, p.Stats.Structures)
	assert.NotEmpty(t, logged)

	_, err = Compile(l, 0, Options{})
	assert.Error(t, err)
}
