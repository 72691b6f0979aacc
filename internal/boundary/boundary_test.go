package boundary

import (
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/geometry"
	"qlbmcirq/internal/lattice"
	"qlbmcirq/internal/reflection"
)

// small returns a 4x4 lattice with 2 velocities per axis and one block
// covering x,y in [1,2].
//
// Specular layout: a_v 0,1  a_o 2,3  a_c 4,5  g_x 6,7  g_y 8,9  v_dir 10,11.
// Bounceback layout: a_v 0,1  a_o 2  a_c 3,4  g_x 5,6  g_y 7,8  v_dir 9,10.
func small(t *testing.T, boundary string) *lattice.Lattice {
	t.Helper()
	l, err := lattice.New(config.Spec{
		Lattice: config.LatticeSpec{
			Dim:        map[string]int{"x": 4, "y": 4},
			Velocities: map[string]int{"x": 2, "y": 2},
		},
		Geometry: []config.GeometryEntry{
			{Shape: "cuboid", X: []int{1, 2}, Y: []int{1, 2}, Boundary: boundary},
		},
	}, lattice.Options{})
	require.NoError(t, err)
	return l
}

type particle struct {
	av, ao [2]int
	x, y   int
	dir    [2]int
}

func (p particle) specularIndex() int {
	return p.av[0] | p.av[1]<<1 | p.ao[0]<<2 | p.ao[1]<<3 | p.x<<6 | p.y<<8 | p.dir[0]<<10 | p.dir[1]<<11
}

func specularParticle(i int) particle {
	return particle{
		av:  [2]int{i & 1, i >> 1 & 1},
		ao:  [2]int{i >> 2 & 1, i >> 3 & 1},
		x:   i >> 6 & 3,
		y:   i >> 8 & 3,
		dir: [2]int{i >> 10 & 1, i >> 11 & 1},
	}
}

func classical(t *testing.T, c *circuit.Circuit, input int) int {
	t.Helper()
	s, err := circuit.Simulate(c, input)
	require.NoError(t, err)
	got, p := s.MostLikely()
	require.InDelta(t, 1.0, p, 1e-9, "input %b did not map to a basis state", input)
	return got
}

func TestSpecularReflectsParticle(t *testing.T) {
	l := small(t, "specular")
	op, err := Specular{}.BuildCircuit(l)
	require.NoError(t, err)

	// Streamed along +x from (0,1) into the x-lower face.
	in := particle{av: [2]int{1, 0}, x: 1, y: 1, dir: [2]int{1, 0}}
	got := specularParticle(classical(t, op, in.specularIndex()))
	want := particle{av: [2]int{1, 0}, x: 0, y: 1, dir: [2]int{0, 0}}
	assert.Equal(t, want, got)

	// Streamed along -y from (2,3) into the y-upper face.
	in = particle{av: [2]int{0, 1}, x: 2, y: 2, dir: [2]int{1, 0}}
	got = specularParticle(classical(t, op, in.specularIndex()))
	want = particle{av: [2]int{0, 1}, x: 2, y: 3, dir: [2]int{1, 1}}
	assert.Equal(t, want, got)
}

func TestSpecularLeavesFluidAlone(t *testing.T) {
	l := small(t, "specular")
	op, err := Specular{}.BuildCircuit(l)
	require.NoError(t, err)

	for _, p := range []particle{
		{av: [2]int{1, 1}, x: 0, y: 0, dir: [2]int{0, 1}},
		{av: [2]int{1, 0}, x: 3, y: 3, dir: [2]int{1, 1}},
		{av: [2]int{0, 0}, x: 1, y: 1, dir: [2]int{1, 1}},
	} {
		assert.Equal(t, p, specularParticle(classical(t, op, p.specularIndex())))
	}
}

func TestFragmentsAreSelfInverse(t *testing.T) {
	for _, boundary := range []string{"specular", "bounceback"} {
		t.Run(boundary, func(t *testing.T) {
			l := small(t, boundary)
			frags, err := Fragments(l)
			require.NoError(t, err)
			require.NotEmpty(t, frags)
			for _, f := range frags {
				twice := circuit.New("twice", l.NumQubits())
				twice.MustCompose(f.Circuit, register(l))
				twice.MustCompose(f.Circuit, register(l))
				require.NoError(t, twice.Err())
				// All velocity ancillae set, particle on the block corner.
				input := 0b11 | 1<<l.Grid(0)[0] | 1<<l.Grid(1)[0]
				assert.Equal(t, input, classical(t, twice, input), "fragment %s", f.Key)
			}
		})
	}
}

func TestFragmentKeys(t *testing.T) {
	l := small(t, "bounceback")
	frags, err := Fragments(l)
	require.NoError(t, err)

	r := l.Reflections()[0]
	assert.Len(t, frags, len(r.All())-len(r.CornersInside))

	keys := make([]string, len(frags))
	for i, f := range frags {
		keys[i] = f.Key
		assert.Equal(t, r.ObstacleID, f.ObstacleID)
		assert.Equal(t, geometry.Bounceback, f.Kind)
		assert.NotZero(t, f.Circuit.Size(), "fragment %s is empty", f.Key)
	}
	assert.Contains(t, keys, "wall/in/x-lower")
	assert.Contains(t, keys, "wall/out/y-upper")
	slices.Sort(keys)
	assert.Len(t, slices.Compact(keys), len(frags), "fragment keys must be unique")
}

func TestBouncebackWallControls(t *testing.T) {
	l := small(t, "bounceback")
	r := l.Reflections()[0]

	mcx := func(w reflection.Wall) circuit.Gate {
		c, err := WallReflection{Wall: w}.BuildCircuit(l)
		require.NoError(t, err)
		i := slices.IndexFunc(c.Gates, func(g circuit.Gate) bool { return g.Type == "MCX" })
		require.GreaterOrEqual(t, i, 0)
		return c.Gates[i]
	}

	in := mcx(r.WallsInside[0][0])
	assert.Equal(t, l.AncillaObstacle(0)[0], in.Target)
	assert.NotContains(t, in.Controls, l.VelocityDir(0)[0])
	assert.Subset(t, in.Controls, l.AncillaComparatorAll())

	out := mcx(r.WallsOutside[0][0])
	assert.Equal(t, l.AncillaObstacle(0)[0], out.Target)
	assert.Contains(t, out.Controls, l.VelocityDir(0)[0])
}

func TestWallComparatorBounds(t *testing.T) {
	l := small(t, "bounceback")
	r := l.Reflections()[0]

	// Inside y walls exclude the corners owned by the x walls.
	strict, err := WallComparator{Wall: r.WallsInside[1][0]}.BuildCircuit(l)
	require.NoError(t, err)
	loose, err := WallComparator{Wall: r.WallsInside[0][0]}.BuildCircuit(l)
	require.NoError(t, err)

	flagged := func(c *circuit.Circuit, x int) bool {
		anc := l.AncillaComparator(0)
		out := classical(t, c, x<<l.Grid(0)[0])
		return out>>anc[0]&1 == 1 && out>>anc[1]&1 == 1
	}
	// A two-wide face has no points left once both corners are excluded.
	for x := range 4 {
		assert.False(t, flagged(strict, x), "strict x=%d", x)
	}
	// The loose comparator of the x walls runs along y.
	anc := l.AncillaComparator(0)
	for y := range 4 {
		out := classical(t, loose, y<<l.Grid(1)[0])
		assert.Equal(t, y >= 1 && y <= 2, out>>anc[0]&1 == 1 && out>>anc[1]&1 == 1, "loose y=%d", y)
	}
}

func TestThreeDimensionalFragments(t *testing.T) {
	l, err := lattice.New(config.Spec{
		Lattice: config.LatticeSpec{
			Dim:        map[string]int{"x": 8, "y": 8, "z": 8},
			Velocities: map[string]int{"x": 2, "y": 2, "z": 2},
		},
		Geometry: []config.GeometryEntry{
			{Shape: "cuboid", X: []int{2, 4}, Y: []int{2, 5}, Z: []int{3, 5}, Boundary: "specular"},
		},
	}, lattice.Options{})
	require.NoError(t, err)

	frags, err := Fragments(l)
	require.NoError(t, err)
	edges := 0
	for _, f := range frags {
		require.NoError(t, f.Circuit.Err())
		if strings.HasPrefix(f.Key, "edge/") {
			edges++
		}
	}
	r := l.Reflections()[0]
	assert.Equal(t, len(r.NearCornerEdges)+len(r.CornerEdges), edges)

	op, err := Specular{}.BuildCircuit(l)
	require.NoError(t, err)
	assert.NotZero(t, op.CountOps()["MCX"])
}

func TestUnsupportedDimensions(t *testing.T) {
	l, err := lattice.New(config.Spec{
		Lattice: config.LatticeSpec{
			Dim:        map[string]int{"x": 8},
			Velocities: map[string]int{"x": 4},
		},
	}, lattice.Options{})
	require.NoError(t, err)

	_, err = Specular{}.BuildCircuit(l)
	assert.ErrorContains(t, err, "1-dimensional")
	_, err = Fragments(l)
	assert.Error(t, err)
	_, err = EdgeComparator{}.BuildCircuit(small(t, "specular"))
	assert.ErrorContains(t, err, "3-dimensional")
}

type unknownStructure struct{ reflection.Wall }

func TestForRejectsUnknownStructures(t *testing.T) {
	_, err := For(unknownStructure{})
	assert.Error(t, err)
}

func TestOperatorLogs(t *testing.T) {
	l := small(t, "bounceback")
	var lines []string
	_, err := Bounceback{Logf: func(format string, v ...interface{}) {
		lines = append(lines, format)
	}}.BuildCircuit(l)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
}
