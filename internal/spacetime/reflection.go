package spacetime

import (
	"fmt"

	"qlbmcirq/internal/geometry"
)

// NeighborVelocity addresses one qubit of the velocity register.
type NeighborVelocity struct {
	Neighbor int
	Velocity int
}

// SwapPair exchanges the channel a particle streamed into with the channel
// it is reflected to.
type SwapPair struct {
	Streamed  NeighborVelocity
	Reflected NeighborVelocity
}

// swapPair builds the pair for a particle on channel v that reached the
// boundary point at distance from the origin.
func (l *Lattice) swapPair(distance [2]int, v int) SwapPair {
	r := ReflectionMap(v)
	inc := Increments(r)
	back := [2]int{-distance[0], -distance[1]}
	return SwapPair{
		Streamed:  NeighborVelocity{Neighbor: l.IndexOfNeighbor([2]int{back[0] + inc[0], back[1] + inc[1]}), Velocity: r},
		Reflected: NeighborVelocity{Neighbor: l.IndexOfNeighbor(back), Velocity: v},
	}
}

// PointWiseData is the reflection applied at a single grid point: its grid
// encoding is matched exactly and each pair is swapped.
type PointWiseData struct {
	Gridpoint           [2]int
	QubitsToInvert      []int
	VelocitiesToReflect []int
	Distance            [2]int
	Pairs               []SwapPair
}

func (l *Lattice) newPointWise(gridpoint, distance [2]int, velocities []int) PointWiseData {
	gridpoint = l.Wrap(gridpoint)
	d := PointWiseData{
		Gridpoint:           gridpoint,
		QubitsToInvert:      l.QubitsToInvert(gridpoint),
		VelocitiesToReflect: velocities,
		Distance:            distance,
	}
	for _, v := range velocities {
		d.Pairs = append(d.Pairs, l.swapPair(distance, v))
	}
	return d
}

// VolumetricData is the reflection applied along a whole wall at once. The
// fixed dimension is matched exactly and the ranged dimension by comparators.
type VolumetricData struct {
	FixedDim       int
	FixedGridpoint int
	QubitsToInvert []int
	RangedDim      int
	RangedBounds   [2]int
	Velocity       int
	Distance       [2]int
	Pair           SwapPair
}

// DiagonalData is the reflection applied along a diagonal run of circle
// perimeter points. The two reflected channels are those pointing away from
// the quadrant the run belongs to.
type DiagonalData struct {
	Bounds              [2][2]int
	Step                [2]int
	Quadrant            int
	VelocitiesToReflect []int
	Distance            [2]int
	Pairs               []SwapPair
}

func diagonalQuadrant(step [2]int) int {
	xInc, yInc := step[0] > 0, step[1] > 0
	switch {
	case !xInc && yInc:
		return 0
	case !xInc && !yInc:
		return 1
	case xInc && !yInc:
		return 2
	}
	return 3
}

var diagonalVelocities = [4][]int{{2, 3}, {0, 3}, {0, 1}, {2, 1}}

func (l *Lattice) newDiagonal(bounds [2][2]int, step, distance [2]int) DiagonalData {
	q := diagonalQuadrant(step)
	d := DiagonalData{
		Bounds:              bounds,
		Step:                step,
		Quadrant:            q,
		VelocitiesToReflect: diagonalVelocities[q],
		Distance:            distance,
	}
	for _, v := range d.VelocitiesToReflect {
		d.Pairs = append(d.Pairs, l.swapPair(distance, v))
	}
	return d
}

// offset is a starting shift perpendicular to a wall, tagged with its signed
// size.
type offset struct {
	size int
	inc  [2]int
}

// symmetricOffsets lists the shifts 0, ±1, ..., ±(steps-1) along the axis
// perpendicular to normal.
func symmetricOffsets(steps, normal int) []offset {
	perp := Increments(1)
	if normal == 1 {
		perp = Increments(0)
	}
	out := []offset{{}}
	for _, f := range []int{1, -1} {
		for t := 1; t < steps; t++ {
			out = append(out, offset{size: f * t, inc: [2]int{f * t * perp[0], f * t * perp[1]}})
		}
	}
	return out
}

// wallVelocities returns the two channels along normal, the one leaving the
// obstacle first.
func wallVelocities(normal int, upper bool) [2]int {
	v := [2]int{0, 2}
	if normal == 1 {
		v = [2]int{1, 3}
	}
	if !upper {
		v[0], v[1] = v[1], v[0]
	}
	return v
}

// fromPoints emits the point-wise reflections of the boundary points of a
// surface with the given normal. For every point, every origin within steps
// whose neighborhood sees a particle cross the surface gets one entry.
func (l *Lattice) fromPoints(points [][2]int, normal int, upper bool, steps int) []PointWiseData {
	vels := wallVelocities(normal, upper)
	offsets := symmetricOffsets(steps, normal)
	var out []PointWiseData
	for _, p := range points {
		for _, v := range vels {
			inc := Increments(v)
			opposite := vels[0]
			if v == vels[0] {
				opposite = vels[1]
			}
			for _, o := range offsets {
				for t := range steps - abs(o.size) {
					k := t
					if v == vels[0] {
						k = t + 1
					}
					gp := [2]int{p[0] + o.inc[0] + k*inc[0], p[1] + o.inc[1] + k*inc[1]}
					distance := [2]int{(t+1)*inc[0] + o.inc[0], (t+1)*inc[1] + o.inc[1]}
					out = append(out, l.newPointWise(gp, distance, []int{opposite}))
				}
			}
		}
	}
	return out
}

// blockSurfaces returns, per axis and bound, the points of the 2D block
// face with that normal.
func blockSurfaces(b *geometry.Block) [2][2][][2]int {
	var out [2][2][][2]int
	for d := range 2 {
		other := 1 - d
		for bound := range 2 {
			for c := b.Bounds[other][0]; c <= b.Bounds[other][1]; c++ {
				p := [2]int{}
				p[d] = b.Bounds[d][bound]
				p[other] = c
				out[d][bound] = append(out[d][bound], p)
			}
		}
	}
	return out
}

func (l *Lattice) checkSteps(steps int) error {
	if steps < 1 || steps > l.timesteps {
		return fmt.Errorf("invalid time step %d, select a value between 1 and %d", steps, l.timesteps)
	}
	return nil
}

// BlockPointWiseData returns the point-wise reflections of every face of b
// for a neighborhood of radius steps.
func (l *Lattice) BlockPointWiseData(b *geometry.Block, steps int) ([]PointWiseData, error) {
	if err := l.checkSteps(steps); err != nil {
		return nil, err
	}
	if b.NumDims() != 2 {
		return nil, fmt.Errorf("space-time reflection needs a 2D block, got %dD", b.NumDims())
	}
	var out []PointWiseData
	surfaces := blockSurfaces(b)
	for normal := range 2 {
		for bound := range 2 {
			out = append(out, l.fromPoints(surfaces[normal][bound], normal, bound == 1, steps)...)
		}
	}
	return out, nil
}

// CirclePointWiseData returns the point-wise reflections of the perimeter of
// c. Axis runs reflect along their normal, while diagonal runs and isolated
// points reflect along both axes.
func (l *Lattice) CirclePointWiseData(c *geometry.Circle, steps int) ([]PointWiseData, error) {
	if err := l.checkSteps(steps); err != nil {
		return nil, err
	}
	split := c.Split()
	var out []PointWiseData
	for _, s := range split.AxisSegments {
		normal := 0
		if s.Start[1] == s.End[1] {
			normal = 1
		}
		upper := s.Start[normal] > c.Center[normal]
		out = append(out, l.fromPoints(expandSegment(s), normal, upper, steps)...)
	}
	for _, s := range split.DiagonalSegments {
		points := expandSegment(s)
		for normal := range 2 {
			upper := s.Start[normal] > c.Center[normal]
			out = append(out, l.fromPoints(points, normal, upper, steps)...)
		}
	}
	for _, p := range split.Points {
		for normal := range 2 {
			upper := p[normal] > c.Center[normal]
			out = append(out, l.fromPoints([][2]int{p}, normal, upper, steps)...)
		}
	}
	return out, nil
}

// expandSegment lists every point of an axis or diagonal run.
func expandSegment(s geometry.Segment) [][2]int {
	step := [2]int{sign(s.End[0] - s.Start[0]), sign(s.End[1] - s.Start[1])}
	n := max(abs(s.End[0]-s.Start[0]), abs(s.End[1]-s.Start[1]))
	out := make([][2]int, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, [2]int{s.Start[0] + i*step[0], s.Start[1] + i*step[1]})
	}
	return out
}

func sign(x int) int {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// BlockVolumetricData returns one wall reflection per face, channel, shift
// and distance. Ranged bounds are shifted with the particle but not wrapped.
func (l *Lattice) BlockVolumetricData(b *geometry.Block, steps int) ([]VolumetricData, error) {
	if err := l.checkSteps(steps); err != nil {
		return nil, err
	}
	if b.NumDims() != 2 {
		return nil, fmt.Errorf("space-time reflection needs a 2D block, got %dD", b.NumDims())
	}
	var out []VolumetricData
	for fixed := range 2 {
		ranged := 1 - fixed
		n := l.dims[fixed]
		for bound := range 2 {
			vels := wallVelocities(fixed, bound == 1)
			for _, v := range vels {
				inc := Increments(v)
				opposite := vels[0]
				if v == vels[0] {
					opposite = vels[1]
				}
				for _, o := range symmetricOffsets(steps, fixed) {
					for t := range steps - abs(o.size) {
						k := t
						if v == vels[0] {
							k = t + 1
						}
						gp := ((b.Bounds[fixed][bound]+o.inc[fixed]+k*inc[fixed])%n + n) % n
						lo := b.Bounds[ranged][0] + o.inc[ranged] + k*inc[ranged]
						hi := b.Bounds[ranged][1] + o.inc[ranged] + k*inc[ranged]
						distance := [2]int{(t+1)*inc[0] + o.inc[0], (t+1)*inc[1] + o.inc[1]}
						var invert []int
						for i := range l.gridQubits[fixed] {
							if gp>>i&1 == 0 {
								invert = append(invert, i)
							}
						}
						out = append(out, VolumetricData{
							FixedDim:       fixed,
							FixedGridpoint: gp,
							QubitsToInvert: invert,
							RangedDim:      ranged,
							RangedBounds:   [2]int{lo, hi},
							Velocity:       opposite,
							Distance:       distance,
							Pair:           l.swapPair(distance, opposite),
						})
					}
				}
			}
		}
	}
	return out, nil
}

// CircleDiagonalData returns the diagonal reflections of c for a
// neighborhood of radius steps. Each diagonal run contributes one entry per
// distance, stepping away from the run along the first reflected channel.
func (l *Lattice) CircleDiagonalData(c *geometry.Circle, steps int) ([]DiagonalData, error) {
	if err := l.checkSteps(steps); err != nil {
		return nil, err
	}
	var out []DiagonalData
	for _, s := range c.Split().DiagonalSegments {
		step := [2]int{sign(s.End[0] - s.Start[0]), sign(s.End[1] - s.Start[1])}
		bounds := [2][2]int{
			{min(s.Start[0], s.End[0]), max(s.Start[0], s.End[0])},
			{min(s.Start[1], s.End[1]), max(s.Start[1], s.End[1])},
		}
		away := Increments(diagonalVelocities[diagonalQuadrant(step)][0])
		for t := range steps - 1 {
			distance := [2]int{(t + 1) * away[0], (t + 1) * away[1]}
			out = append(out, l.newDiagonal(bounds, step, distance))
		}
	}
	return out, nil
}
