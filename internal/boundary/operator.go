package boundary

import (
	"fmt"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/monitoring"
	"qlbmcirq/internal/reflection"
	"qlbmcirq/internal/streaming"
)

// Specular reflects every particle that streamed into a specular face during
// the last streaming step.
type Specular struct {
	Logf monitoring.Logf
}

func (s Specular) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	return reflectionOperator(l, geometry.Specular, s.Logf)
}

// Bounceback reflects every particle that streamed into a bounceback face
// during the last streaming step.
type Bounceback struct {
	Logf monitoring.Logf
}

func (b Bounceback) BuildCircuit(l *lattice.Lattice) (*circuit.Circuit, error) {
	return reflectionOperator(l, geometry.Bounceback, b.Logf)
}

// reflectionOperator marks the particles on inside walls, sends them back
// out, then clears the marks on the outer shell: outside walls first, then
// the edges and points where those walls meet.
func reflectionOperator(l *lattice.Lattice, kind geometry.Kind, logf monitoring.Logf) (*circuit.Circuit, error) {
	if err := checkDims(l); err != nil {
		return nil, err
	}
	if logf == nil {
		logf = l.Logf()
	}
	c := circuit.New(kind.String()+"_reflection", l.NumQubits())
	all := register(l)
	rs := l.Reflections()
	emitted := 0

	apply := func(s reflection.Structure) error {
		if s.BoundaryKind() != kind {
			return nil
		}
		g, err := For(s)
		if err != nil {
			return err
		}
		sub, err := g.BuildCircuit(l)
		if err != nil {
			return err
		}
		c.MustCompose(sub, all)
		emitted++
		return c.Err()
	}
	walls := func(pick func(*reflection.Reflections) [][]reflection.Wall) error {
		for d := range l.NumDims() {
			for _, r := range rs {
				for _, w := range pick(r)[d] {
					if err := apply(w); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}

	if err := walls(func(r *reflection.Reflections) [][]reflection.Wall { return r.WallsInside }); err != nil {
		return nil, err
	}
	fs, err := flipAndStream(l, kind)
	if err != nil {
		return nil, err
	}
	c.MustCompose(fs, all)
	if err := walls(func(r *reflection.Reflections) [][]reflection.Wall { return r.WallsOutside }); err != nil {
		return nil, err
	}

	var shell []reflection.Structure
	for _, r := range rs {
		switch l.NumDims() {
		case 2:
			for _, p := range r.NearCornerPoints {
				shell = append(shell, p)
			}
		case 3:
			for _, e := range r.NearCornerEdges {
				shell = append(shell, e)
			}
			for _, e := range r.CornerEdges {
				shell = append(shell, e)
			}
			for _, p := range r.OverlappingPoints {
				shell = append(shell, p)
			}
		}
	}
	for _, r := range rs {
		for _, p := range r.CornersOutside {
			shell = append(shell, p)
		}
	}
	for _, s := range shell {
		if err := apply(s); err != nil {
			return nil, err
		}
	}

	logf("Built %s reflection from %d structures (%d gates)", kind, emitted, c.Size())
	return c, c.Err()
}

// flipAndStream reverses the flagged velocity components and streams the
// flagged particles back out of the obstacle.
func flipAndStream(l *lattice.Lattice, kind geometry.Kind) (*circuit.Circuit, error) {
	c := circuit.New("flip_and_stream_"+kind.String(), l.NumQubits())
	var refl streaming.Reflection
	switch kind {
	case geometry.Specular:
		for d := range l.NumDims() {
			c.CX(l.AncillaObstacle(d)[0], l.VelocityDir(d)[0])
		}
		refl = streaming.SpecularReflection
	case geometry.Bounceback:
		for _, q := range l.VelocityDirAll() {
			c.CX(l.AncillaObstacle(0)[0], q)
		}
		refl = streaming.BouncebackReflection
	default:
		return nil, fmt.Errorf("unsupported boundary kind %s", kind)
	}
	inc, err := streaming.ControlledIncrementer(l, refl)
	if err != nil {
		return nil, err
	}
	c.MustCompose(inc, register(l))
	return c, c.Err()
}

// Fragment is the circuit of one reflection structure.
type Fragment struct {
	ObstacleID string
	Key        string
	Kind       geometry.Kind
	Circuit    *circuit.Circuit
}

// Fragments builds one circuit per reflection structure, obstacle by
// obstacle. Inside corners are reached by the inside wall comparators and
// have no circuit of their own.
func Fragments(l *lattice.Lattice) ([]Fragment, error) {
	if err := checkDims(l); err != nil {
		return nil, err
	}
	var out []Fragment
	for _, r := range l.Reflections() {
		for _, s := range r.All() {
			if p, ok := s.(reflection.Point); ok && p.Category == reflection.CornerInside {
				continue
			}
			g, err := For(s)
			if err != nil {
				return nil, err
			}
			c, err := g.BuildCircuit(l)
			if err != nil {
				return nil, fmt.Errorf("obstacle %s: %w", r.ObstacleID, err)
			}
			out = append(out, Fragment{
				ObstacleID: r.ObstacleID,
				Key:        s.Key(),
				Kind:       s.BoundaryKind(),
				Circuit:    c,
			})
		}
	}
	return out, nil
}
