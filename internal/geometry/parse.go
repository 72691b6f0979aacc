package geometry

import (
	"fmt"

	"qlbmcirq/internal/config"
)

// MinSeparation is the smallest gap, in grid points, allowed between two
// obstacles along every axis.
const MinSeparation = 2

// Parse validates the geometry entries against a grid of the given per-axis
// sizes and returns the typed obstacles in input order. The first violation
// is returned as a *GeometryError.
func Parse(entries []config.GeometryEntry, dims []int) ([]Obstacle, error) {
	obstacles := make([]Obstacle, 0, len(entries))
	for i, e := range entries {
		o, err := parseEntry(e, dims)
		if err != nil {
			err.Index = i + 1
			return nil, err
		}
		box := o.BoundingBox()
		for j, prev := range obstacles {
			if c := separationViolation(prev.BoundingBox(), box); c != "" {
				return nil, &GeometryError{Index: i + 1, Other: j + 1, Bounds: box, Constraint: c}
			}
		}
		obstacles = append(obstacles, o)
	}
	return obstacles, nil
}

func parseEntry(e config.GeometryEntry, dims []int) (Obstacle, *GeometryError) {
	kind, err := ParseKind(e.Boundary)
	if err != nil {
		return nil, &GeometryError{Constraint: err.Error()}
	}
	switch e.Shape {
	case "cuboid":
		return parseBlock(e, dims, kind)
	case "circle", "sphere":
		if len(dims) != 2 {
			return nil, &GeometryError{Constraint: fmt.Sprintf("shape %q is only supported on 2D lattices", e.Shape)}
		}
		return parseCircle(e, dims, kind)
	}
	supported := "[cuboid]"
	if len(dims) == 2 {
		supported = "[cuboid circle]"
	}
	return nil, &GeometryError{Constraint: fmt.Sprintf("shape %q is not supported, supported shapes are %s", e.Shape, supported)}
}

func parseBlock(e config.GeometryEntry, dims []int, kind Kind) (Obstacle, *GeometryError) {
	if len(dims) < 1 || len(dims) > 3 {
		return nil, &GeometryError{Constraint: fmt.Sprintf("cuboids require a 1D to 3D lattice, got %dD", len(dims))}
	}
	if e.Center != nil || e.Radius != 0 {
		return nil, &GeometryError{Constraint: "cuboids take per-axis ranges, not center and radius"}
	}
	bounds := make([][2]int, len(dims))
	for d := range dims {
		r := e.Range(d)
		if len(r) != 2 {
			return nil, &GeometryError{Constraint: fmt.Sprintf("%s range must have exactly two values, got %v", AxisName(d), r)}
		}
		bounds[d] = [2]int{r[0], r[1]}
	}
	for d := len(dims); d < 3; d++ {
		if e.Range(d) != nil {
			return nil, &GeometryError{Constraint: fmt.Sprintf("%s range given for a %dD lattice", AxisName(d), len(dims))}
		}
	}
	for d, r := range bounds {
		if r[0] > r[1] {
			return nil, &GeometryError{Bounds: bounds, Constraint: fmt.Sprintf("%s range is reversed", AxisName(d))}
		}
		if r[0] < 0 || r[1] >= dims[d] {
			return nil, &GeometryError{Bounds: bounds, Constraint: fmt.Sprintf("%s range exceeds the grid [0,%d)", AxisName(d), dims[d])}
		}
	}

	b := NewBlock(bounds, kind)
	for name, value := range e.Faces {
		dim, upper, ok := parseFaceName(name, len(dims))
		if !ok {
			return nil, &GeometryError{Bounds: bounds, Constraint: fmt.Sprintf("unknown face %q", name)}
		}
		k, err := ParseKind(value)
		if err != nil {
			return nil, &GeometryError{Bounds: bounds, Constraint: fmt.Sprintf("face %s: %v", name, err)}
		}
		if upper {
			b.Faces[dim][1] = k
		} else {
			b.Faces[dim][0] = k
		}
	}
	b.ID = b.canonicalID()
	return b, nil
}

func parseFaceName(name string, numDims int) (dim int, upper bool, ok bool) {
	for d := range numDims {
		for _, u := range []bool{false, true} {
			if FaceName(d, u) == name {
				return d, u, true
			}
		}
	}
	return 0, false, false
}

func parseCircle(e config.GeometryEntry, dims []int, kind Kind) (Obstacle, *GeometryError) {
	if len(e.Center) != 2 {
		return nil, &GeometryError{Constraint: fmt.Sprintf("circle center must have two coordinates, got %v", e.Center)}
	}
	if e.X != nil || e.Y != nil || e.Z != nil {
		return nil, &GeometryError{Constraint: "circles take center and radius, not per-axis ranges"}
	}
	if len(e.Faces) > 0 {
		return nil, &GeometryError{Constraint: "circles do not support per-face boundary conditions"}
	}
	if e.Radius < 1 {
		return nil, &GeometryError{Constraint: fmt.Sprintf("circle radius must be positive, got %d", e.Radius)}
	}
	c := NewCircle(Point2{e.Center[0], e.Center[1]}, e.Radius, kind)
	box := c.BoundingBox()
	for d, r := range box {
		if r[0] < 0 || r[1] >= dims[d] {
			return nil, &GeometryError{Bounds: box, Constraint: fmt.Sprintf("circle exceeds the grid along %s [0,%d)", AxisName(d), dims[d])}
		}
	}
	return c, nil
}

// separationViolation describes why two bounding boxes are too close, or
// returns "" when they are at least MinSeparation apart along every axis.
func separationViolation(a, b [][2]int) string {
	overlapping := true
	for d := range a {
		sep := max(b[d][0]-a[d][1], a[d][0]-b[d][1])
		if sep > 0 {
			overlapping = false
		}
	}
	if overlapping {
		return "obstacles overlap"
	}
	for d := range a {
		if sep := max(b[d][0]-a[d][1], a[d][0]-b[d][1]); sep < MinSeparation {
			return fmt.Sprintf("obstacles are %d grid points apart along %s, minimum is %d", sep, AxisName(d), MinSeparation)
		}
	}
	return ""
}

// Blocks returns the cuboids among obstacles.
func Blocks(obstacles []Obstacle) []*Block {
	var out []*Block
	for _, o := range obstacles {
		if b, ok := o.(*Block); ok {
			out = append(out, b)
		}
	}
	return out
}

// Circles returns the circles among obstacles.
func Circles(obstacles []Obstacle) []*Circle {
	var out []*Circle
	for _, o := range obstacles {
		if c, ok := o.(*Circle); ok {
			out = append(out, c)
		}
	}
	return out
}
