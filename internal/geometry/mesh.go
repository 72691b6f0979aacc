package geometry

import "gonum.org/v1/gonum/stat/combin"

// Mesh is the renderable outline of an obstacle. Only vertices and the shape
// tag are given; no faces are triangulated.
type Mesh struct {
	Shape    string
	Vertices [][3]float64
}

// Mesh returns the 2^d corner vertices of the block. 2D blocks are placed in
// the z=1 plane.
func (b *Block) Mesh() Mesh {
	lens := make([]int, len(b.Bounds))
	for i := range lens {
		lens[i] = 2
	}
	corners := combin.Cartesian(lens)
	m := Mesh{Shape: b.Shape(), Vertices: make([][3]float64, 0, len(corners))}
	for _, c := range corners {
		v := [3]float64{0, 0, 1}
		for d, side := range c {
			v[d] = float64(b.Bounds[d][side])
		}
		m.Vertices = append(m.Vertices, v)
	}
	return m
}

// Mesh returns the rasterized perimeter of the circle in the z=1 plane.
func (c *Circle) Mesh() Mesh {
	m := Mesh{Shape: c.Shape(), Vertices: make([][3]float64, 0, len(c.perimeter))}
	for _, p := range c.perimeter {
		m.Vertices = append(m.Vertices, [3]float64{float64(p[0]), float64(p[1]), 1})
	}
	return m
}
