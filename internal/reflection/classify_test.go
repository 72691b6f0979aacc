package reflection

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qlbmcirq/internal/config"
	"qlbmcirq/internal/geometry"
)

func key(p []int) string { return fmt.Sprint(p) }

func TestClassify2DScenario(t *testing.T) {
	block := geometry.NewBlock([][2]int{{5, 6}, {1, 2}}, geometry.Specular)
	r, err := Classify(block, nil, []int{3, 3})
	require.NoError(t, err)

	assert.Equal(t, Counts{
		WallsInside: 4, WallsOutside: 4,
		NearPoints: 8, CornersOut: 4, CornersIn: 4,
	}, r.Counts())
	assert.Empty(t, r.CornerEdges)
	assert.Empty(t, r.NearCornerEdges)
	assert.Empty(t, r.Shielded)

	xLower := r.WallsInside[0][0]
	assert.Equal(t, []int{1}, xLower.Data.QubitsToInvert)
	assert.Equal(t, []int{1}, xLower.AlignmentDims)
	assert.Equal(t, []int{1}, xLower.LowerBounds)
	assert.Equal(t, []int{2}, xLower.UpperBounds)
	assert.False(t, xLower.Data.InvertVelocity())
	assert.Equal(t, "wall/in/x-lower", xLower.Key())

	yLower := r.WallsInside[1][0]
	assert.Equal(t, []int{4, 5}, yLower.Data.QubitsToInvert)

	xLowerOut := r.WallsOutside[0][0]
	assert.Equal(t, 4, xLowerOut.Data.Gridpoint)
	assert.Equal(t, []int{0, 1}, xLowerOut.Data.QubitsToInvert)
	assert.True(t, xLowerOut.Data.InvertVelocity())
	assert.Equal(t, "wall/out/x-lower", xLowerOut.Key())

	// All structures come walls first, and keys are unique per obstacle.
	seen := map[string]bool{}
	for i, s := range r.All() {
		if i < 8 {
			assert.IsType(t, Wall{}, s)
		}
		assert.False(t, seen[s.Key()], "duplicate key %s", s.Key())
		seen[s.Key()] = true
	}
}

func TestClassify3DCounts(t *testing.T) {
	block := geometry.NewBlock([][2]int{{2, 4}, {2, 5}, {1, 3}}, geometry.Bounceback)
	r, err := Classify(block, nil, []int{3, 3, 3})
	require.NoError(t, err)

	c := r.Counts()
	assert.Equal(t, 6, c.WallsInside)
	assert.Equal(t, 6, c.WallsOutside)
	assert.Equal(t, 12, c.CornerEdges)
	assert.Equal(t, 8, c.CornersOut)
	assert.Equal(t, 24, c.NearEdges)
	assert.Equal(t, 24, c.Overlapping)
	assert.Zero(t, c.NearPoints)

	for _, e := range r.CornerEdges {
		assert.True(t, e.IsCornerEdge())
		assert.Len(t, e.ReflectedDims, 2)
		assert.Equal(t, [2]bool{!e.WallsJoining[0].BoundType, !e.WallsJoining[1].BoundType}, e.InvertVelocity)
	}
	first := r.CornerEdges[0]
	assert.Equal(t, [2]int{0, 1}, first.DimsOfEdge)
	assert.Equal(t, 2, first.DimDisconnected)
	assert.Equal(t, [2]int{1, 3}, first.BoundsDisconnected)
	assert.Equal(t, "edge/corner/x-lower:y-lower", first.Key())
}

func TestNearCornerEdgeInversions(t *testing.T) {
	block := geometry.NewBlock([][2]int{{2, 4}, {2, 4}, {2, 4}}, geometry.Specular)
	r, err := Classify(block, nil, []int{3, 3, 3})
	require.NoError(t, err)

	tests := []struct {
		b0, b1 bool
		orth   int
		want   [2]bool
	}{
		{false, false, 0, [2]bool{true, false}},
		{false, false, 1, [2]bool{false, true}},
		{false, true, 0, [2]bool{true, true}},
		{false, true, 1, [2]bool{false, false}},
		{true, false, 0, [2]bool{false, false}},
		{true, true, 1, [2]bool{true, false}},
	}
	for _, tt := range tests {
		found := false
		for _, e := range r.NearCornerEdges[:8] {
			if e.WallsJoining[0].BoundType == tt.b0 && e.WallsJoining[1].BoundType == tt.b1 && *e.DimensionOutside == tt.orth {
				found = true
				assert.Equal(t, tt.want, e.InvertVelocity, "b0=%v b1=%v orth=%d", tt.b0, tt.b1, tt.orth)
				assert.Equal(t, []int{e.DimsOfEdge[tt.orth]}, e.ReflectedDims)
				assert.True(t, e.WallsJoining[tt.orth].Outside)
				assert.False(t, e.WallsJoining[1-tt.orth].Outside)
			}
		}
		assert.True(t, found)
	}
}

func surfaceCells(bounds [][2]int, pad int) map[string]int {
	ranges := make([][2]int, len(bounds))
	for d, b := range bounds {
		ranges[d] = [2]int{b[0] - pad, b[1] + pad}
	}
	cells := map[string]int{}
	for _, p := range expand(ranges, []int{64, 64, 64}) {
		onShell := false
		for d, v := range p {
			if v == ranges[d][0] || v == ranges[d][1] {
				onShell = true
			}
		}
		if onShell {
			cells[key(p)] = 0
		}
	}
	return cells
}

func TestCoveragePartition(t *testing.T) {
	tests := []struct {
		name   string
		bounds [][2]int
		kind   geometry.Kind
	}{
		{"2d specular", [][2]int{{5, 6}, {1, 2}}, geometry.Specular},
		{"2d bounceback", [][2]int{{3, 9}, {4, 7}}, geometry.Bounceback},
		{"3d specular", [][2]int{{2, 4}, {3, 6}, {2, 5}}, geometry.Specular},
		{"3d bounceback", [][2]int{{2, 4}, {3, 6}, {2, 5}}, geometry.Bounceback},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.bounds)
			gq := []int{6, 6, 6}[:n]
			sizes := []int{64, 64, 64}[:n]
			r, err := Classify(geometry.NewBlock(tt.bounds, tt.kind), nil, gq)
			require.NoError(t, err)

			// Inside walls: bounceback partitions the inner surface by
			// coordinate, specular by (coordinate, reflected dimension).
			inner := surfaceCells(tt.bounds, 0)
			covered := map[string]int{}
			for _, ws := range r.WallsInside {
				for _, w := range ws {
					for _, p := range w.Footprint(sizes) {
						k := key(p)
						if tt.kind == geometry.Specular {
							k += fmt.Sprint("/", w.Dim)
						}
						covered[k]++
					}
				}
			}
			if tt.kind == geometry.Specular {
				inner = map[string]int{}
				for d, b := range tt.bounds {
					for _, side := range b {
						ranges := append([][2]int(nil), tt.bounds...)
						ranges[d] = [2]int{side, side}
						for _, p := range expand(ranges, sizes) {
							inner[fmt.Sprint(key(p), "/", d)] = 0
						}
					}
				}
			}
			for k, count := range covered {
				assert.Equal(t, 1, count, "inner cell %s covered %d times", k, count)
				_, ok := inner[k]
				assert.True(t, ok, "inner cell %s is not on the surface", k)
			}
			assert.Len(t, covered, len(inner))

			// Outer shell: outside walls, corner edges and outside corners.
			outer := surfaceCells(tt.bounds, 1)
			shell := map[string]int{}
			var structures []Structure
			for _, ws := range r.WallsOutside {
				for _, w := range ws {
					structures = append(structures, w)
				}
			}
			for _, e := range r.CornerEdges {
				structures = append(structures, e)
			}
			for _, p := range r.CornersOutside {
				structures = append(structures, p)
			}
			for _, s := range structures {
				for _, p := range s.Footprint(sizes) {
					shell[key(p)]++
				}
			}
			for k, count := range shell {
				assert.Equal(t, 1, count, "shell cell %s covered %d times", k, count)
				_, ok := outer[k]
				assert.True(t, ok, "shell cell %s is not on the outer shell", k)
			}
			assert.Len(t, shell, len(outer))
		})
	}
}

// incoming names the directions a structure resets: particles reach an upper
// face travelling down its axis and a lower face travelling up it.
func incoming(s Structure) string {
	var data []DimensionalData
	switch v := s.(type) {
	case Wall:
		data = []DimensionalData{v.Data}
	case ResetEdge:
		data = v.WallsJoining
	case Point:
		data = v.Data
	}
	out := ""
	for _, d := range data {
		dir := "+"
		if d.BoundType {
			dir = "-"
		}
		out += fmt.Sprint(d.Dim, dir)
	}
	return out
}

func TestCoveragePartitionAcrossObstacles(t *testing.T) {
	tests := []struct {
		name   string
		bounds [][][2]int
		shared []string
	}{
		{"2d diagonal at minimum separation", [][][2]int{{{1, 2}, {1, 2}}, {{4, 5}, {4, 5}}}, []string{"[3 3]"}},
		{"2d diagonal far apart", [][][2]int{{{1, 2}, {1, 2}}, {{8, 9}, {5, 6}}}, nil},
		{"2d three blocks", [][][2]int{{{1, 2}, {1, 2}}, {{4, 5}, {4, 5}}, {{7, 8}, {7, 8}}}, []string{"[3 3]", "[6 6]"}},
		{"3d diagonal at minimum separation", [][][2]int{{{1, 2}, {1, 2}, {1, 2}}, {{4, 5}, {4, 5}, {4, 5}}}, []string{"[3 3 3]"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := len(tt.bounds[0])
			gq := []int{6, 6, 6}[:n]
			sizes := []int{64, 64, 64}[:n]

			var entries []config.GeometryEntry
			for _, b := range tt.bounds {
				entries = append(entries, geometry.NewBlock(b, geometry.Bounceback).Entry())
			}
			blocks, err := geometry.Parse(entries, sizes)
			require.NoError(t, err)

			covered := map[string]int{}
			owners := map[string]map[int]bool{}
			want := map[string]bool{}
			for i, o := range blocks {
				others := append(append([]geometry.Obstacle(nil), blocks[:i]...), blocks[i+1:]...)
				r, err := Classify(o.(*geometry.Block), others, gq)
				require.NoError(t, err)
				require.Empty(t, r.Shielded)

				var shell []Structure
				for _, ws := range r.WallsOutside {
					for _, w := range ws {
						shell = append(shell, w)
					}
				}
				for _, e := range r.CornerEdges {
					shell = append(shell, e)
				}
				for _, p := range r.CornersOutside {
					shell = append(shell, p)
				}
				for _, s := range shell {
					for _, p := range s.Footprint(sizes) {
						covered[key(p)+"/"+incoming(s)]++
						if owners[key(p)] == nil {
							owners[key(p)] = map[int]bool{}
						}
						owners[key(p)][i] = true
					}
				}
				for c := range surfaceCells(tt.bounds[i], 1) {
					want[c] = true
				}
			}

			// Every (coordinate, incoming direction) pair is reset once.
			for k, count := range covered {
				assert.Equal(t, 1, count, "%s covered %d times", k, count)
			}
			for c := range want {
				assert.Contains(t, owners, c, "shell cell %s is not covered", c)
			}
			assert.Len(t, owners, len(want))

			// Coordinates on two shells are shared, with opposing directions.
			var shared []string
			for c, by := range owners {
				if len(by) > 1 {
					shared = append(shared, c)
				}
			}
			assert.ElementsMatch(t, tt.shared, shared)
		})
	}
}

func TestMixedKindCorners(t *testing.T) {
	block := geometry.NewBlock([][2]int{{2, 4}, {2, 4}}, geometry.Specular)
	block.Faces[0][1] = geometry.Bounceback
	r, err := Classify(block, nil, []int{3, 3})
	require.NoError(t, err)

	assert.Equal(t, geometry.Bounceback, r.WallsInside[0][1].Kind)
	assert.Equal(t, geometry.Specular, r.WallsInside[0][0].Kind)

	// The two corners on the upper x face split per reflected direction.
	require.Len(t, r.CornersOutside, 6)
	byKey := map[string]Point{}
	for _, p := range r.CornersOutside {
		byKey[p.Key()] = p
	}
	require.Contains(t, byKey, "point/corner/x-upper:y-lower>x")
	require.Contains(t, byKey, "point/corner/x-upper:y-lower>y")
	assert.Equal(t, geometry.Bounceback, byKey["point/corner/x-upper:y-lower>x"].Kind)
	assert.Equal(t, []int{0}, byKey["point/corner/x-upper:y-lower>x"].ReflectedDims)
	assert.Equal(t, geometry.Specular, byKey["point/corner/x-upper:y-lower>y"].Kind)
	assert.Equal(t, []int{1}, byKey["point/corner/x-upper:y-lower>y"].ReflectedDims)
	assert.Equal(t, geometry.Specular, byKey["point/corner/x-lower:y-lower"].Kind)
	assert.Equal(t, []int{0, 1}, byKey["point/corner/x-lower:y-lower"].ReflectedDims)

	// Both split halves still select the same point and direction.
	assert.Equal(t, byKey["point/corner/x-upper:y-lower>x"].InvertVelocity, byKey["point/corner/x-upper:y-lower>y"].InvertVelocity)

	assert.True(t, r.HasKind(geometry.Bounceback))
	assert.True(t, r.HasKind(geometry.Specular))
}

func TestMixedKindEdges(t *testing.T) {
	block := geometry.NewBlock([][2]int{{2, 4}, {2, 4}, {2, 4}}, geometry.Bounceback)
	block.Faces[2][1] = geometry.Specular
	r, err := Classify(block, nil, []int{3, 3, 3})
	require.NoError(t, err)

	// Four corner edges touch the upper z face and split in two.
	assert.Len(t, r.CornerEdges, 16)
	for _, e := range r.CornerEdges {
		touchesZUpper := e.WallsJoining[1].Dim == 2 && e.WallsJoining[1].BoundType
		if !touchesZUpper {
			assert.Equal(t, geometry.Bounceback, e.Kind)
			continue
		}
		require.Len(t, e.ReflectedDims, 1)
		if e.ReflectedDims[0] == 2 {
			assert.Equal(t, geometry.Specular, e.Kind)
		} else {
			assert.Equal(t, geometry.Bounceback, e.Kind)
		}
	}
}

func TestShieldedFaces(t *testing.T) {
	block := geometry.NewBlock([][2]int{{2, 3}, {2, 3}}, geometry.Specular)

	t.Run("fully covered", func(t *testing.T) {
		shield := geometry.NewBlock([][2]int{{4, 5}, {0, 5}}, geometry.Specular)
		r, err := Classify(block, []geometry.Obstacle{shield}, []int{3, 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"x_upper"}, r.Shielded)
		assert.Len(t, r.WallsInside[0], 1)
		assert.Len(t, r.WallsOutside[0], 1)
		assert.Equal(t, "wall/in/x-lower", r.WallsInside[0][0].Key())
		for _, s := range r.All() {
			assert.NotContains(t, s.Key(), "x-upper", "structure %s touches a shielded face", s.Key())
		}
	})

	t.Run("partially covered", func(t *testing.T) {
		shield := geometry.NewBlock([][2]int{{4, 5}, {3, 5}}, geometry.Specular)
		_, err := Classify(block, []geometry.Obstacle{shield}, []int{3, 3})
		var cerr *ClassificationInvariantError
		require.True(t, errors.As(err, &cerr), "expected ClassificationInvariantError, got %v", err)
		assert.Equal(t, "x_upper", cerr.Face)
		assert.Equal(t, block.ID, cerr.ObstacleID)
	})

	t.Run("wraps around the grid", func(t *testing.T) {
		edge := geometry.NewBlock([][2]int{{0, 1}, {2, 3}}, geometry.Specular)
		shield := geometry.NewBlock([][2]int{{6, 7}, {2, 3}}, geometry.Specular)
		r, err := Classify(edge, []geometry.Obstacle{shield}, []int{3, 3})
		require.NoError(t, err)
		assert.Equal(t, []string{"x_lower"}, r.Shielded)
	})
}

func TestClassifyDimensionMismatch(t *testing.T) {
	_, err := Classify(geometry.NewBlock([][2]int{{1, 2}, {1, 2}}, geometry.Specular), nil, []int{3, 3, 3})
	require.Error(t, err)
}
