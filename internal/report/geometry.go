// Package report renders geometry plots and gate count charts for compiled
// configurations.
package report

import (
	"fmt"
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"qlbmcirq/internal/geometry"
)

var kindColors = map[geometry.Kind]color.RGBA{
	geometry.Bounceback: {R: 0x31, G: 0x68, B: 0x8e, A: 255},
	geometry.Specular:   {R: 0xb5, G: 0xde, B: 0x2b, A: 255},
}

func kindColor(k geometry.Kind) color.RGBA {
	if c, ok := kindColors[k]; ok {
		return c
	}
	return color.RGBA{A: 255}
}

// Geometry plots the xy projection of the obstacles on a grid of the given
// size. Blocks are filled rectangles and circles their rasterized perimeter.
func Geometry(title string, dims []int, obstacles []geometry.Obstacle) (*plot.Plot, error) {
	if len(dims) < 2 {
		return nil, fmt.Errorf("geometry plot needs at least 2 dimensions, got %d", len(dims))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"
	p.Add(plotter.NewGrid())

	for _, o := range obstacles {
		switch o := o.(type) {
		case *geometry.Block:
			if err := addBlock(p, o); err != nil {
				return nil, err
			}
		case *geometry.Circle:
			if err := addCircle(p, o); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("cannot plot obstacle %s of shape %s", o.ObstacleID(), o.Shape())
		}
	}

	// Plotters widen the axes to their data; pin them to the grid.
	p.X.Min, p.X.Max = -0.5, float64(dims[0])-0.5
	p.Y.Min, p.Y.Max = -0.5, float64(dims[1])-0.5

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10
	return p, nil
}

func addBlock(p *plot.Plot, b *geometry.Block) error {
	x0, x1 := float64(b.Bounds[0][0])-0.5, float64(b.Bounds[0][1])+0.5
	y0, y1 := float64(b.Bounds[1][0])-0.5, float64(b.Bounds[1][1])+0.5
	poly, err := plotter.NewPolygon(plotter.XYs{{X: x0, Y: y0}, {X: x1, Y: y0}, {X: x1, Y: y1}, {X: x0, Y: y1}})
	if err != nil {
		return err
	}
	c := kindColor(b.FaceKind(0, false))
	fill := c
	fill.A = 0x80
	poly.Color = fill
	poly.LineStyle.Color = c
	poly.LineStyle.Width = vg.Points(1)
	p.Add(poly)
	p.Legend.Add(fmt.Sprintf("%s %s", b.Shape(), shortID(b.ObstacleID())), poly)
	return nil
}

func addCircle(p *plot.Plot, c *geometry.Circle) error {
	mesh := c.Mesh()
	pts := make(plotter.XYs, len(mesh.Vertices))
	for i, v := range mesh.Vertices {
		pts[i] = plotter.XY{X: v[0], Y: v[1]}
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return err
	}
	s.GlyphStyle.Color = kindColor(c.Kind)
	s.GlyphStyle.Shape = draw.BoxGlyph{}
	s.GlyphStyle.Radius = vg.Points(3)
	p.Add(s)
	p.Legend.Add(fmt.Sprintf("%s %s", c.Shape(), shortID(c.ObstacleID())), s)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// SaveGeometry writes the geometry plot to path. The format follows the file
// extension.
func SaveGeometry(path, title string, dims []int, obstacles []geometry.Obstacle) error {
	p, err := Geometry(title, dims, obstacles)
	if err != nil {
		return err
	}
	if err := p.Save(8*vg.Inch, 8*vg.Inch, path); err != nil {
		return fmt.Errorf("failed to save geometry plot: %w", err)
	}
	return nil
}
