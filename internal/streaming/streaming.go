package streaming

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/primitives"
)

// Reflection selects the qubits that control the grid incrementer.
type Reflection int

const (
	// NoReflection streams the particles flagged by the velocity ancillae.
	NoReflection Reflection = iota
	// SpecularReflection streams the particles flagged per dimension by the
	// obstacle ancillae.
	SpecularReflection
	// BouncebackReflection streams the particles flagged by the single
	// obstacle ancilla.
	BouncebackReflection
)

func (r Reflection) String() string {
	switch r {
	case NoReflection:
		return "none"
	case SpecularReflection:
		return "specular"
	case BouncebackReflection:
		return "bounceback"
	}
	return fmt.Sprintf("Reflection(%d)", int(r))
}

// AncillaPreparation flips the velocity ancilla of dim for every particle
// whose magnitude index along dim is one of velocities. It is its own
// inverse, so the same circuit resets the ancillae after reflection.
func AncillaPreparation(l *lattice.Lattice, velocities []int, dim int) *circuit.Circuit {
	c := circuit.New(fmt.Sprintf("ancilla_prep_%d", dim), l.NumQubits())
	mags := l.Velocity(dim)
	for _, v := range velocities {
		var invert []int
		for i, q := range mags {
			if v>>i&1 == 0 {
				invert = append(invert, q)
			}
		}
		c.X(invert...)
		c.MCX(mags, l.AncillaVelocity(dim)[0])
		c.X(invert...)
	}
	return c
}

// ControlledIncrementer moves every flagged particle one grid point along
// each dimension, forward when its direction qubit is set and backward
// otherwise.
func ControlledIncrementer(l *lattice.Lattice, reflection Reflection) (*circuit.Circuit, error) {
	c := circuit.New("incrementer_"+reflection.String(), l.NumQubits())
	for dim := range l.NumDims() {
		grid := l.Grid(dim)
		dir := l.VelocityDir(dim)[0]

		var controls []int
		switch reflection {
		case NoReflection:
			controls = []int{l.AncillaVelocity(dim)[0], dir}
		case SpecularReflection:
			if l.NumObstacleQubits() != l.NumDims() {
				return nil, fmt.Errorf("specular incrementer needs %d obstacle ancillae, lattice has %d", l.NumDims(), l.NumObstacleQubits())
			}
			controls = []int{l.AncillaObstacle(dim)[0], dir}
		case BouncebackReflection:
			controls = []int{l.AncillaObstacle(0)[0], dir}
		default:
			return nil, fmt.Errorf("controlled incrementer does not support reflection %s", reflection)
		}

		c.MustCompose(primitives.QFT(len(grid)), grid)
		controlledShift(c, primitives.PhaseShift(len(grid), true), controls, grid)
		c.X(dir)
		controlledShift(c, primitives.PhaseShift(len(grid), false), controls, grid)
		c.X(dir)
		c.MustCompose(primitives.InverseQFT(len(grid)), grid)
	}
	return c, c.Err()
}

// controlledShift appends each phase gate of shift with the extra controls.
func controlledShift(c *circuit.Circuit, shift *circuit.Circuit, controls, qubits []int) {
	for _, g := range shift.Gates {
		c.MCP(g.Params[0], controls, qubits[g.Target])
	}
}

// StreamingOperator streams the particles whose magnitude index is in
// velocities along every dimension.
func StreamingOperator(l *lattice.Lattice, velocities []int) (*circuit.Circuit, error) {
	c := circuit.New(fmt.Sprintf("streaming_%v", velocities), l.NumQubits())
	all := seq(l.NumQubits())
	for dim := range l.NumDims() {
		c.MustCompose(AncillaPreparation(l, velocities, dim), all)
	}
	inc, err := ControlledIncrementer(l, NoReflection)
	if err != nil {
		return nil, err
	}
	c.MustCompose(inc, all)
	return c, c.Err()
}

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

const (
	maxSeriesSteps = 10000
	seriesRelTol   = 1e-6
	seriesAbsTol   = 1e-8
)

// TimeSeries returns the order in which velocity magnitudes stream so that
// every particle lands on a grid point. numVelocities is the number of
// discrete velocities per axis; magnitude index i moves at speed i+0.5, and
// each entry of the result lists the magnitudes that reach their next grid
// point at that step.
func TimeSeries(numVelocities int) [][]int {
	n := numVelocities/2 + numVelocities%2
	speeds := make([]float64, n)
	inverse := make([]float64, n)
	for i := range speeds {
		speeds[i] = float64(i) + 0.5
		inverse[i] = 1 / speeds[i]
	}
	progress := make([]float64, n)
	remaining := make([]float64, n)

	close := func(a, b float64) bool {
		return scalar.EqualWithinAbsOrRel(a, b, seriesAbsTol, seriesRelTol)
	}

	var series [][]int
	for range maxSeriesSteps {
		for i := range remaining {
			remaining[i] = (1 - progress[i]) * inverse[i]
		}
		dt := remaining[floats.MinIdx(remaining)]
		floats.AddScaled(progress, dt, speeds)

		streamed := []int{}
		for i, p := range progress {
			if close(p, 1) {
				streamed = append(streamed, i)
				progress[i] = 0
			}
		}
		series = append(series, streamed)

		settled := 0
		for _, p := range progress {
			if close(p, 1) || close(p, 0) {
				settled++
			}
		}
		if settled == n {
			break
		}
	}
	return series
}
