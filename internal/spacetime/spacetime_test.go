package spacetime

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbmcirq/internal/circuit"
	"qlbmcirq/internal/config"
	"qlbmcirq/internal/lattice"
)

var block = config.GeometryEntry{Shape: "cuboid", X: []int{3, 4}, Y: []int{3, 4}, Boundary: "bounceback"}

func newLattice(t *testing.T, size, timesteps int, opts Options, geometry ...config.GeometryEntry) *Lattice {
	t.Helper()
	opts.Timesteps = timesteps
	l, err := New(config.Spec{
		Lattice: config.LatticeSpec{
			Dim:            map[string]int{"x": size, "y": size},
			Discretization: "D2Q4",
		},
		Geometry: geometry,
	}, opts)
	require.NoError(t, err)
	return l
}

// classical runs a circuit of classical gates on a basis state given by its
// set qubits.
func classical(t *testing.T, c *circuit.Circuit, set ...int) map[int]bool {
	t.Helper()
	state := make(map[int]bool)
	for _, q := range set {
		state[q] = true
	}
	all := func(qs []int) bool {
		for _, q := range qs {
			if !state[q] {
				return false
			}
		}
		return true
	}
	for _, g := range c.Gates {
		switch g.Type {
		case "X":
			state[g.Target] = !state[g.Target]
		case "CX":
			if state[g.Control] {
				state[g.Target] = !state[g.Target]
			}
		case "MCX":
			if all(g.Controls) {
				state[g.Target] = !state[g.Target]
			}
		case "SWAP":
			state[g.Target], state[g.Partner] = state[g.Partner], state[g.Target]
		case "MCSWAP":
			if all(g.Controls) {
				state[g.Target], state[g.Partner] = state[g.Partner], state[g.Target]
			}
		case "BARRIER":
		default:
			t.Fatalf("gate %s is not classical", g.Type)
		}
	}
	return state
}

func gridBits(l *Lattice, p [2]int) []int {
	var out []int
	for d := range 2 {
		for i, q := range l.GridIndex(d) {
			if p[d]>>i&1 == 1 {
				out = append(out, q)
			}
		}
	}
	return out
}

func ones(state map[int]bool) []int {
	var out []int
	for q, on := range state {
		if on {
			out = append(out, q)
		}
	}
	return out
}

func TestNumVelocityQubits(t *testing.T) {
	l := newLattice(t, 8, 2, Options{})
	assert.Equal(t, 20, l.NumVelocityQubits(1))
	assert.Equal(t, 52, l.NumVelocityQubits(2))
	assert.Equal(t, 6, l.NumGridQubits())
	assert.Equal(t, 58, l.NumQubits())

	// A 2x2 grid caps the neighborhood at 16 points.
	small := newLattice(t, 2, 3, Options{})
	assert.Equal(t, 64, small.NumVelocityQubits(3))
}

func TestIndexOfNeighborLayout(t *testing.T) {
	l := newLattice(t, 16, 2, Options{})
	want := map[[2]int]int{
		{0, 0}: 0,
		{1, 0}: 1, {0, 1}: 2, {-1, 0}: 3, {0, -1}: 4,
		{2, 0}: 5, {1, 1}: 6, {0, 2}: 7, {-1, 1}: 8,
		{-2, 0}: 9, {-1, -1}: 10, {0, -2}: 11, {1, -1}: 12,
	}
	for p, idx := range want {
		assert.Equal(t, idx, l.IndexOfNeighbor(p), "neighbor %v", p)
	}
	assert.Panics(t, func() { l.IndexOfNeighbor([2]int{2, 1}) })
}

func TestIndexOfNeighborIsBijection(t *testing.T) {
	const T = 4
	l := newLattice(t, 16, T, Options{})
	seen := make(map[int][2]int)
	for x := -T; x <= T; x++ {
		for y := -T; y <= T; y++ {
			if abs(x)+abs(y) > T {
				continue
			}
			idx := l.IndexOfNeighbor([2]int{x, y})
			prev, dup := seen[idx]
			require.False(t, dup, "index %d shared by %v and %v", idx, prev, [2]int{x, y})
			seen[idx] = [2]int{x, y}
		}
	}
	require.Len(t, seen, l.NumNeighborsWithin(T))
	for i := range l.NumNeighborsWithin(T) {
		assert.Contains(t, seen, i)
	}

	for d := 1; d <= T; d++ {
		ns := l.Neighbors(d)
		require.Len(t, ns, 4*d)
		assert.Equal(t, l.NumNeighborsWithin(d-1), ns[0].Index)
		extreme := 0
		for _, n := range ns {
			if n.Kind == Extreme {
				extreme++
			}
		}
		assert.Equal(t, 4, extreme)
	}
}

func TestStreamingLines(t *testing.T) {
	l := newLattice(t, 16, 2, Options{})
	tests := []struct {
		dim      int
		positive bool
		want     [][]int
	}{
		{0, true, [][]int{{12, 4, 10}, {5, 1, 0, 3, 9}, {6, 2, 8}}},
		{0, false, [][]int{{10, 4, 12}, {9, 3, 0, 1, 5}, {8, 2, 6}}},
		{1, true, [][]int{{8, 3, 10}, {7, 2, 0, 4, 11}, {6, 1, 12}}},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, l.StreamingLines(tt.dim, tt.positive, 2)); diff != "" {
			t.Errorf("lines of dim %d positive=%t mismatch (-want +got):\n%s", tt.dim, tt.positive, diff)
		}
	}
}

func TestStreamingOperatorMovesChannels(t *testing.T) {
	const T = 2
	l := newLattice(t, 8, T, Options{})
	c, err := StreamingOperator(l, T)
	require.NoError(t, err)

	// Track where each qubit's content ends up.
	at := make([]int, l.NumQubits())
	for i := range at {
		at[i] = i
	}
	for _, g := range c.Gates {
		require.Equal(t, "SWAP", g.Type)
		at[g.Target], at[g.Partner] = at[g.Partner], at[g.Target]
	}

	for v := range VelocitiesPerPoint {
		inc := Increments(v)
		for x := -T; x <= T; x++ {
			for y := -T; y <= T; y++ {
				p, from := [2]int{x, y}, [2]int{x - inc[0], y - inc[1]}
				if abs(x)+abs(y) > T || abs(from[0])+abs(from[1]) > T {
					continue
				}
				got := at[l.VelocityIndex(l.IndexOfNeighbor(p), v)]
				assert.Equal(t, l.VelocityIndex(l.IndexOfNeighbor(from), v), got, "channel %d at %v", v, p)
			}
		}
	}

	_, err = StreamingOperator(l, T+1)
	assert.Error(t, err)
}

func TestPointWiseReflection(t *testing.T) {
	l := newLattice(t, 8, 1, Options{}, block)
	r, err := PointWiseReflection(l, 1, false)
	require.NoError(t, err)

	tests := []struct {
		name     string
		origin   [2]int
		neighbor [2]int
		in, want int
	}{
		{"left face", [2]int{2, 3}, [2]int{1, 0}, 0, 2},
		{"bottom face", [2]int{3, 2}, [2]int{0, 1}, 1, 3},
		{"right face", [2]int{5, 4}, [2]int{-1, 0}, 2, 0},
		{"top face", [2]int{4, 5}, [2]int{0, -1}, 3, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := l.VelocityIndex(l.IndexOfNeighbor(tt.neighbor), tt.in)
			state := classical(t, r, append(gridBits(l, tt.origin), in)...)
			want := append(gridBits(l, tt.origin), l.VelocityIndex(0, tt.want))
			assert.ElementsMatch(t, want, ones(state))
		})
	}

	t.Run("away from the block", func(t *testing.T) {
		in := append(gridBits(l, [2]int{6, 6}), l.VelocityIndex(1, 0))
		assert.ElementsMatch(t, in, ones(classical(t, r, in...)))
	})
}

func TestStreamAndReflect(t *testing.T) {
	l := newLattice(t, 8, 1, Options{}, block)
	s, err := StreamingOperator(l, 1)
	require.NoError(t, err)
	r, err := PointWiseReflection(l, 1, false)
	require.NoError(t, err)
	all := seq(0, l.NumQubits())
	c := circuit.New("step", l.NumQubits()).MustCompose(s, all).MustCompose(r, all)
	require.NoError(t, c.Err())

	origin := [2]int{2, 3}
	state := classical(t, c, append(gridBits(l, origin), l.VelocityIndex(0, 0))...)
	assert.ElementsMatch(t, append(gridBits(l, origin), l.VelocityIndex(0, 2)), ones(state),
		"a particle running into the left face comes back")

	origin = [2]int{1, 6}
	state = classical(t, c, append(gridBits(l, origin), l.VelocityIndex(0, 0))...)
	assert.ElementsMatch(t, append(gridBits(l, origin), l.VelocityIndex(l.IndexOfNeighbor([2]int{1, 0}), 0)), ones(state),
		"a particle in open fluid streams on")
}

func TestPointWiseDataFiltersInside(t *testing.T) {
	l := newLattice(t, 16, 2, Options{}, block)
	all, err := l.PointWiseData(2, true)
	require.NoError(t, err)
	fluid, err := l.PointWiseData(2, false)
	require.NoError(t, err)
	assert.Less(t, len(fluid), len(all))
	for _, d := range fluid {
		assert.False(t, l.IsInsideObstacle(d.Gridpoint), "point %v", d.Gridpoint)
		for _, p := range d.Pairs {
			assert.NotEqual(t, p.Streamed, p.Reflected)
		}
	}

	_, err = l.PointWiseData(3, false)
	assert.Error(t, err)
}

func TestCircleData(t *testing.T) {
	circle := config.GeometryEntry{Shape: "circle", Center: []int{8, 8}, Radius: 3, Boundary: "bounceback"}
	l := newLattice(t, 16, 2, Options{}, circle)
	require.Len(t, l.Circles(), 1)

	pw, err := l.CirclePointWiseData(l.Circles()[0], 2)
	require.NoError(t, err)
	assert.NotEmpty(t, pw)
	for _, d := range pw {
		assert.LessOrEqual(t, abs(d.Distance[0])+abs(d.Distance[1]), 2)
	}

	diag, err := l.CircleDiagonalData(l.Circles()[0], 2)
	require.NoError(t, err)
	require.Len(t, diag, len(l.Circles()[0].Split().DiagonalSegments))
	for _, d := range diag {
		assert.Equal(t, diagonalVelocities[d.Quadrant], d.VelocitiesToReflect)
		assert.Len(t, d.Pairs, 2)
	}

	r, err := PointWiseReflection(l, 2, false)
	require.NoError(t, err)
	assert.Positive(t, r.CountOps()["MCSWAP"])
}

func TestVolumetricReflection(t *testing.T) {
	l := newLattice(t, 8, 1, Options{Volumetric: true}, block)
	assert.Equal(t, [2]int{26, 27}, l.AncillaComparator(0))
	assert.Equal(t, [2]int{28, 29}, l.AncillaComparator(1))

	data, err := l.BlockVolumetricData(l.Blocks()[0], 1)
	require.NoError(t, err)
	// Two channels on each of four faces.
	require.Len(t, data, 8)
	for _, d := range data {
		assert.Equal(t, [2]int{3, 4}, d.RangedBounds)
	}

	c, err := VolumetricReflection(l, 1)
	require.NoError(t, err)
	// The channel entering each face is matched on the face itself, inside
	// the block, and is dropped.
	assert.Equal(t, 4, c.CountOps()["MCSWAP"])

	plain := newLattice(t, 8, 1, Options{}, block)
	_, err = VolumetricReflection(plain, 1)
	assert.Error(t, err)
}

func TestRanges(t *testing.T) {
	assert.Equal(t, [][2]int{{2, 5}}, ranges(2, 5, 8))
	assert.Equal(t, [][2]int{{7, 7}, {0, 1}}, ranges(-1, 1, 8))
	assert.Equal(t, [][2]int{{6, 7}, {0, 0}}, ranges(6, 8, 8))
	assert.Nil(t, ranges(-2, 5, 8))

	b := newLattice(t, 8, 1, Options{}, block).Blocks()[0]
	through := VolumetricData{FixedDim: 0, FixedGridpoint: 3, RangedDim: 1, RangedBounds: [2]int{2, 5}}
	assert.Equal(t, [][2]int{{2, 2}, {5, 5}}, fluidSpans(b, through))
	beside := VolumetricData{FixedDim: 0, FixedGridpoint: 2, RangedDim: 1, RangedBounds: [2]int{3, 4}}
	assert.Equal(t, [][2]int{{3, 4}}, fluidSpans(b, beside))
}

func TestCollision(t *testing.T) {
	l := newLattice(t, 8, 2, Options{})
	c, err := Collision(l, 1)
	require.NoError(t, err)
	assert.Equal(t, 5, c.CountOps()["MCRY"])
	for _, g := range c.Gates {
		for _, q := range g.Qubits() {
			assert.GreaterOrEqual(t, q, l.NumGridQubits())
			assert.Less(t, q, l.NumGridQubits()+l.NumVelocityQubits(1))
		}
	}
}

func TestInitialConditions(t *testing.T) {
	l := newLattice(t, 8, 1, Options{}, block)
	c := InitialConditions(l, []PointVelocities{
		{Point: [2]int{1, 1}, Velocities: [4]bool{true, true, true, true}},
		{Point: [2]int{3, 3}, Velocities: [4]bool{true}},
	}, false)
	ops := c.CountOps()
	assert.Equal(t, 6, ops["H"])
	// Five neighborhoods see (1,1), and (3,3) is inside the block.
	assert.Equal(t, 20, ops["MCX"])
}

func TestMeasurement(t *testing.T) {
	l := newLattice(t, 8, 1, Options{Measurement: true})
	m := GridVelocityMeasurement(l)
	assert.Equal(t, 10, m.NumCbits)

	c, err := PointMassMeasurement(l, [2]int{1, 2}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, c.NumCbits)
	var mcx *circuit.Gate
	for i := range c.Gates {
		if c.Gates[i].Type == "MCX" {
			mcx = &c.Gates[i]
		}
	}
	require.NotNil(t, mcx)
	assert.Equal(t, l.AncillaMass(), mcx.Target)
	assert.Contains(t, mcx.Controls, l.VelocityIndex(0, 3))

	_, err = PointMassMeasurement(newLattice(t, 8, 1, Options{}), [2]int{1, 2}, 3)
	assert.Error(t, err)
}

func TestCompile(t *testing.T) {
	var logged []string
	l := newLattice(t, 8, 2, Options{}, block)
	p, err := Compile(l, CompileOptions{Barriers: true, Logf: func(format string, v ...interface{}) {
		logged = append(logged, format)
	}})
	require.NoError(t, err)
	assert.Equal(t, 2, p.Stats.Timesteps)
	assert.Positive(t, p.Stats.ReflectionPoints)
	assert.Equal(t, l.NumQubits(), p.Stats.Qubits)
	assert.Equal(t, 5+13, p.Circuit.CountOps()["MCRY"])
	assert.NotEmpty(t, logged)

	require.Len(t, p.Operators, 6)
	assert.Equal(t, "streaming-2", p.Operators[0].Key())
	assert.Equal(t, "collision-1", p.Operators[5].Key())
	assert.Equal(t, 13, p.Operators[2].Circuit.CountOps()["MCRY"])

	vol := newLattice(t, 8, 2, Options{Volumetric: true}, block)
	_, err = Compile(vol, CompileOptions{})
	assert.NoError(t, err)
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name string
		spec config.Spec
	}{
		{"per-axis velocities", config.Spec{Lattice: config.LatticeSpec{
			Dim: map[string]int{"x": 8, "y": 8}, Velocities: map[string]int{"x": 2, "y": 2}}}},
		{"one dimension", config.Spec{Lattice: config.LatticeSpec{
			Dim: map[string]int{"x": 8}, Discretization: "D1Q2"}}},
		{"not a power of two", config.Spec{Lattice: config.LatticeSpec{
			Dim: map[string]int{"x": 8, "y": 6}, Discretization: "D2Q4"}}},
		{"specular obstacle", config.Spec{
			Lattice:  config.LatticeSpec{Dim: map[string]int{"x": 8, "y": 8}, Discretization: "D2Q4"},
			Geometry: []config.GeometryEntry{{Shape: "cuboid", X: []int{3, 4}, Y: []int{3, 4}, Boundary: "specular"}},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.spec, Options{Timesteps: 1})
			assert.Error(t, err)
		})
	}

	_, err := New(tests[2].spec, Options{Timesteps: 1})
	var cerr *lattice.ConfigurationError
	assert.ErrorAs(t, err, &cerr)
}
