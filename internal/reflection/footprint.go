package reflection

import "gonum.org/v1/gonum/stat/combin"

// Footprint lists the grid points whose particles the wall acts on.
func (w Wall) Footprint(gridSizes []int) [][]int {
	ranges := make([][2]int, w.NumDims())
	ranges[w.Dim] = [2]int{w.Data.Gridpoint, w.Data.Gridpoint}
	for c, d := range w.AlignmentDims {
		lo, hi := w.LowerBounds[c], w.UpperBounds[c]
		if !w.Loose(c) {
			lo, hi = lo+1, hi-1
		}
		ranges[d] = [2]int{lo, hi}
	}
	return expand(ranges, gridSizes)
}

// Footprint lists the grid points along the edge.
func (e ResetEdge) Footprint(gridSizes []int) [][]int {
	ranges := make([][2]int, 3)
	for _, w := range e.WallsJoining {
		ranges[w.Dim] = [2]int{w.Gridpoint, w.Gridpoint}
	}
	ranges[e.DimDisconnected] = e.BoundsDisconnected
	return expand(ranges, gridSizes)
}

// Footprint returns the single grid point.
func (p Point) Footprint(gridSizes []int) [][]int {
	pt := make([]int, len(p.Data))
	for _, d := range p.Data {
		pt[d.Dim] = d.Gridpoint
	}
	return [][]int{pt}
}

// expand enumerates every point of the inclusive box, wrapped onto the grid.
// Empty ranges yield no points.
func expand(ranges [][2]int, gridSizes []int) [][]int {
	lens := make([]int, len(ranges))
	for d, r := range ranges {
		if r[1] < r[0] {
			return nil
		}
		lens[d] = r[1] - r[0] + 1
	}
	var out [][]int
	for _, offs := range combin.Cartesian(lens) {
		p := make([]int, len(ranges))
		for d, o := range offs {
			p[d] = wrap(ranges[d][0]+o, gridSizes[d])
		}
		out = append(out, p)
	}
	return out
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}
