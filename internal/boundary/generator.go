// Package boundary turns classified reflection structures into circuits.
//
// Each structure kind has a generator that builds a sub-circuit over the full
// lattice register. The Specular and Bounceback operators chain those
// generators into the complete reflection step for one boundary kind.
package boundary

import (
	"fmt"
	"slices"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/primitives"
	"qlbmcirq/internal/reflection"
)

// Generator builds a circuit over the whole lattice register. Generators
// never modify the lattice.
type Generator interface {
	BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error)
}

// For selects the generator for a classified structure.
func For(s reflection.Structure) (Generator, error) {
	switch s := s.(type) {
	case reflection.Wall:
		return WallReflection{Wall: s}, nil
	case reflection.ResetEdge:
		return EdgeReset{Edge: s}, nil
	case reflection.Point:
		return PointReset{Point: s}, nil
	}
	return nil, fmt.Errorf("no generator for structure %T", s)
}

func checkDims(l *lattice.Lattice) error {
	if n := l.NumDims(); n != 2 && n != 3 {
		return fmt.Errorf("reflection is not supported for %d-dimensional lattices", n)
	}
	return nil
}

func register(l *lattice.Lattice) []int {
	qs := make([]int, l.NumQubits())
	for i := range qs {
		qs[i] = i
	}
	return qs
}

// gridQubits maps offsets from the first grid qubit to lattice qubits.
func gridQubits(l *lattice.Lattice, offsets []int) []int {
	first := l.GridAll()[0]
	out := make([]int, len(offsets))
	for i, o := range offsets {
		out[i] = first + o
	}
	return out
}

// WallComparator flags, on the comparator ancillae, the particles whose
// position along each alignment dim lies within the wall.
type WallComparator struct {
	Wall reflection.Wall
}

func (g WallComparator) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	if err := checkDims(l); err != nil {
		return nil, err
	}
	w := g.Wall
	c := circuit.New("cmp_"+w.Key(), l.NumQubits())
	gq := l.GridQubits()
	for i, d := range w.AlignmentDims {
		lower, upper := primitives.GT, primitives.LT
		if w.Loose(i) {
			lower, upper = primitives.GE, primitives.LE
		}
		lb, err := primitives.Comparator(gq[d]+1, w.LowerBounds[i], lower)
		if err != nil {
			return nil, fmt.Errorf("lower comparator of %s: %w", w.Key(), err)
		}
		ub, err := primitives.Comparator(gq[d]+1, w.UpperBounds[i], upper)
		if err != nil {
			return nil, fmt.Errorf("upper comparator of %s: %w", w.Key(), err)
		}
		anc := l.AncillaComparator(i)
		c.MustCompose(lb, append(l.Grid(d), anc[0]))
		c.MustCompose(ub, append(l.Grid(d), anc[1]))
	}
	return c, c.Err()
}

// EdgeComparator flags the particles whose position along the dimension the
// edge runs in lies within the edge.
type EdgeComparator struct {
	Edge reflection.ResetEdge
}

func (g EdgeComparator) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	if l.NumDims() != 3 {
		return nil, fmt.Errorf("edge comparator needs a 3-dimensional lattice, got %d", l.NumDims())
	}
	e := g.Edge
	d := e.DimDisconnected
	n := l.GridQubits()[d] + 1
	lb, err := primitives.Comparator(n, e.BoundsDisconnected[0], primitives.GE)
	if err != nil {
		return nil, fmt.Errorf("lower comparator of %s: %w", e.Key(), err)
	}
	ub, err := primitives.Comparator(n, e.BoundsDisconnected[1], primitives.LE)
	if err != nil {
		return nil, fmt.Errorf("upper comparator of %s: %w", e.Key(), err)
	}
	c := circuit.New("cmp_"+e.Key(), l.NumQubits())
	anc := l.AncillaComparator(0)
	c.MustCompose(lb, append(l.Grid(d), anc[0]))
	c.MustCompose(ub, append(l.Grid(d), anc[1]))
	return c, c.Err()
}

// WallReflection toggles the obstacle ancilla of particles on the wall. On an
// inside wall it marks the particles that streamed into the obstacle, and on
// an outside wall it clears the mark once they have streamed back out.
type WallReflection struct {
	Wall reflection.Wall
}

func (g WallReflection) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	w := g.Wall
	cmp, err := WallComparator{Wall: w}.BuildCircuit(l)
	if err != nil {
		return nil, err
	}
	dir := l.VelocityDir(w.Dim)
	controls := l.AncillaVelocity(w.Dim)
	var target int
	switch w.Kind {
	case geometry.Specular:
		controls = append(controls, dir...)
		target = l.AncillaObstacle(w.Dim)[0]
	case geometry.Bounceback:
		if w.Data.Outside {
			controls = append(controls, dir...)
		}
		target = l.AncillaObstacle(0)[0]
	default:
		return nil, fmt.Errorf("wall %s has unsupported boundary kind %s", w.Key(), w.Kind)
	}
	controls = slices.Concat(controls, l.Grid(w.Dim), l.AncillaComparatorAll())

	c := circuit.New("reflect_"+w.Key(), l.NumQubits())
	all := register(l)
	invert := gridQubits(l, w.Data.QubitsToInvert)

	c.MustCompose(cmp, all)
	c.X(invert...)
	if w.Data.InvertVelocity() {
		c.X(dir...)
	}
	c.MCX(controls, target)
	if w.Data.InvertVelocity() {
		c.X(dir...)
	}
	c.X(invert...)
	c.MustCompose(cmp, all)
	return c, c.Err()
}

// targets returns the obstacle ancillae a reset of the given kind flips.
func targets(l *lattice.Lattice, kind geometry.Kind, reflected []int) ([]int, error) {
	switch kind {
	case geometry.Bounceback:
		return l.AncillaObstacle(0), nil
	case geometry.Specular:
		var out []int
		for _, d := range reflected {
			out = append(out, l.AncillaObstacle(d)...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported boundary kind %s", kind)
}

// EdgeReset clears the obstacle ancilla of particles that streamed out of a
// 3D block across one of its edges.
type EdgeReset struct {
	Edge reflection.ResetEdge
}

func (g EdgeReset) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	e := g.Edge
	cmp, err := EdgeComparator{Edge: e}.BuildCircuit(l)
	if err != nil {
		return nil, err
	}
	tgts, err := targets(l, e.Kind, e.ReflectedDims)
	if err != nil {
		return nil, fmt.Errorf("edge %s: %w", e.Key(), err)
	}

	var offsets, controls, dirs []int
	for _, w := range e.WallsJoining {
		offsets = append(offsets, w.QubitsToInvert...)
	}
	for i, d := range e.DimsOfEdge {
		controls = slices.Concat(controls, l.AncillaVelocity(d), l.VelocityDir(d), l.Grid(d))
		if e.InvertVelocity[i] {
			dirs = append(dirs, l.VelocityDir(d)...)
		}
	}
	controls = append(controls, l.AncillaComparator(0)...)
	invert := gridQubits(l, offsets)

	c := circuit.New("reset_"+e.Key(), l.NumQubits())
	all := register(l)
	c.MustCompose(cmp, all)
	c.X(invert...)
	c.X(dirs...)
	for _, t := range tgts {
		c.MCX(controls, t)
	}
	c.X(dirs...)
	c.X(invert...)
	c.MustCompose(cmp, all)
	return c, c.Err()
}

// PointReset clears the obstacle ancilla of particles at a single grid point
// travelling in one specific direction.
type PointReset struct {
	Point reflection.Point
}

func (g PointReset) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	if err := checkDims(l); err != nil {
		return nil, err
	}
	p := g.Point
	tgts, err := targets(l, p.Kind, p.ReflectedDims)
	if err != nil {
		return nil, fmt.Errorf("point %s: %w", p.Key(), err)
	}
	var dirs []int
	for i, d := range p.Data {
		if p.InvertVelocity[i] {
			dirs = append(dirs, l.VelocityDir(d.Dim)...)
		}
	}
	controls := slices.Concat(l.AncillaVelocityAll(), l.VelocityDirAll(), l.GridAll())
	invert := gridQubits(l, p.QubitsToInvert)

	c := circuit.New("reset_"+p.Key(), l.NumQubits())
	c.X(invert...)
	c.X(dirs...)
	for _, t := range tgts {
		c.MCX(controls, t)
	}
	c.X(dirs...)
	c.X(invert...)
	return c, c.Err()
}
