package geometry

import (
	"cmp"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"

	"qlbmcirq/internal/config"
)

// Point2 is a 2D grid coordinate.
type Point2 [2]int

// Segment is a run of perimeter points given by its two ends.
type Segment struct {
	Start, End Point2
}

// Circle is a 2D disc used by the space-time encoding.
type Circle struct {
	ID     string
	Center Point2
	Radius int
	Kind   Kind

	perimeter []Point2
}

// NewCircle builds a circle and computes its perimeter.
func NewCircle(center Point2, radius int, kind Kind) *Circle {
	c := &Circle{Center: center, Radius: radius, Kind: kind}
	c.perimeter = c.bresenham()
	c.ID = uuid.NewSHA1(obstacleNamespace,
		[]byte(fmt.Sprintf("circle c=%d,%d r=%d %s", center[0], center[1], radius, kind))).String()
	return c
}

func (c *Circle) ObstacleID() string { return c.ID }
func (c *Circle) Shape() string      { return "circle" }

func (c *Circle) BoundingBox() [][2]int {
	return [][2]int{
		{c.Center[0] - c.Radius, c.Center[0] + c.Radius},
		{c.Center[1] - c.Radius, c.Center[1] + c.Radius},
	}
}

func (c *Circle) HasKind(k Kind) bool { return c.Kind == k }

// Perimeter returns the sorted, de-duplicated perimeter points.
func (c *Circle) Perimeter() []Point2 {
	return slices.Clone(c.perimeter)
}

// bresenham rasterizes the circle outline with the midpoint algorithm.
func (c *Circle) bresenham() []Point2 {
	set := make(map[Point2]struct{})
	cx, cy := c.Center[0], c.Center[1]
	x, y := c.Radius, 0
	d := 1 - c.Radius
	for x >= y {
		for _, p := range []Point2{
			{cx + x, cy + y}, {cx - x, cy + y}, {cx + x, cy - y}, {cx - x, cy - y},
			{cx + y, cy + x}, {cx - y, cy + x}, {cx + y, cy - x}, {cx - y, cy - x},
		} {
			set[p] = struct{}{}
		}
		y++
		if d <= 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
	return slices.SortedFunc(maps.Keys(set), comparePoints)
}

func comparePoints(a, b Point2) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}

// Contains reports whether p is on the perimeter or inside the disc.
func (c *Circle) Contains(p []int) bool {
	if len(p) != 2 {
		return false
	}
	if _, ok := slices.BinarySearchFunc(c.perimeter, Point2{p[0], p[1]}, comparePoints); ok {
		return true
	}
	dx, dy := p[0]-c.Center[0], p[1]-c.Center[1]
	return dx*dx+dy*dy <= c.Radius*c.Radius
}

func (c *Circle) Entry() config.GeometryEntry {
	return config.GeometryEntry{
		Shape:    c.Shape(),
		Center:   []int{c.Center[0], c.Center[1]},
		Radius:   c.Radius,
		Boundary: c.Kind.String(),
	}
}

func (c *Circle) String() string {
	return fmt.Sprintf("circle{c:(%d,%d) r:%d} %s", c.Center[0], c.Center[1], c.Radius, c.Kind)
}

// PerimeterSplit classifies perimeter points into axis-aligned segments,
// diagonal segments, and the individual points left over.
type PerimeterSplit struct {
	AxisSegments     []Segment
	DiagonalSegments []Segment
	Points           []Point2
}

// Split partitions the perimeter. Axis segments are trimmed by one point at
// each end so that their corners fall to the diagonal or point cases.
func (c *Circle) Split() PerimeterSplit {
	rows := make(map[int][]int)
	cols := make(map[int][]int)
	primary := make(map[int][]Point2)   // x - y constant
	secondary := make(map[int][]Point2) // x + y constant
	for _, p := range c.perimeter {
		rows[p[1]] = append(rows[p[1]], p[0])
		cols[p[0]] = append(cols[p[0]], p[1])
		primary[p[0]-p[1]] = append(primary[p[0]-p[1]], p)
		secondary[p[0]+p[1]] = append(secondary[p[0]+p[1]], p)
	}

	var split PerimeterSplit
	axisRuns := func(groups map[int][]int, mk func(fixed, v int) Point2) {
		for _, fixed := range slices.Sorted(maps.Keys(groups)) {
			vals := slices.Sorted(slices.Values(groups[fixed]))
			start := vals[0]
			for i := 1; i < len(vals); i++ {
				if vals[i] != vals[i-1]+1 {
					if start+1 < vals[i-1] {
						split.AxisSegments = append(split.AxisSegments, Segment{mk(fixed, start+1), mk(fixed, vals[i-1]-1)})
					}
					start = vals[i]
				}
			}
			if last := vals[len(vals)-1]; start+1 < last {
				split.AxisSegments = append(split.AxisSegments, Segment{mk(fixed, start+1), mk(fixed, last-1)})
			}
		}
	}
	axisRuns(rows, func(y, x int) Point2 { return Point2{x, y} })
	axisRuns(cols, func(x, y int) Point2 { return Point2{x, y} })

	diagRuns := func(groups map[int][]Point2, dy int) {
		for _, key := range slices.Sorted(maps.Keys(groups)) {
			pts := slices.SortedFunc(slices.Values(groups[key]), comparePoints)
			start := pts[0]
			for i := 1; i < len(pts); i++ {
				if pts[i][0] != pts[i-1][0]+1 || pts[i][1] != pts[i-1][1]+dy {
					split.DiagonalSegments = append(split.DiagonalSegments, Segment{start, pts[i-1]})
					start = pts[i]
				}
			}
			split.DiagonalSegments = append(split.DiagonalSegments, Segment{start, pts[len(pts)-1]})
		}
	}
	diagRuns(primary, 1)
	diagRuns(secondary, -1)

	degenerate := func(s Segment) bool { return s.Start == s.End }
	split.AxisSegments = slices.DeleteFunc(split.AxisSegments, degenerate)
	split.DiagonalSegments = slices.DeleteFunc(split.DiagonalSegments, degenerate)

	all := append(slices.Clone(split.AxisSegments), split.DiagonalSegments...)
	for _, p := range c.perimeter {
		if !slices.ContainsFunc(all, func(s Segment) bool { return s.boxContains(p) }) {
			split.Points = append(split.Points, p)
		}
	}
	return split
}

// boxContains reports whether p lies in the bounding box of the segment.
func (s Segment) boxContains(p Point2) bool {
	return min(s.Start[0], s.End[0]) <= p[0] && p[0] <= max(s.Start[0], s.End[0]) &&
		min(s.Start[1], s.End[1]) <= p[1] && p[1] <= max(s.Start[1], s.End[1])
}
