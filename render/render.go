// Package render rasterizes planned tiles on the CPU with gg. It mirrors what
// a GPU pipeline does with the same draw calls closely enough for previews
// and debugging.
package render

import (
	"image"
	"image/color"
	"io"

	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/paint"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tessellate"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/gogpu/gg"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// Widths in pixels.
const (
	LineWidth    = 2.0
	OutlineWidth = 1.5
)

// Canvas draws tiles of one screen.
type Canvas struct {
	dc     *gg.Context
	screen *viewport.Screen
}

// NewCanvas returns a canvas the size of screen cleared to background.
func NewCanvas(screen *viewport.Screen, background color.Color) *Canvas {
	dc := gg.NewContext(int(screen.Width), int(screen.Height))
	dc.ClearWithColor(gg.FromColor(background))
	return &Canvas{dc: dc, screen: screen}
}

func (c *Canvas) Close() error {
	return c.dc.Close()
}

func (c *Canvas) Image() image.Image {
	return c.dc.Image()
}

func (c *Canvas) EncodePNG(w io.Writer) error {
	return c.dc.EncodePNG(w)
}

func (c *Canvas) SavePNG(path string) error {
	return c.dc.SavePNG(path)
}

// tileToPixels returns the matrix from normalized tile space to pixels.
func (c *Canvas) tileToPixels(zoom float64, d *paint.DrawableTile) matrix.Matrix {
	m := c.screen.TileToNDC(zoom, d.ID)
	w, h := c.screen.Width/2, c.screen.Height/2
	return m.Translate(1, 1).Scale(w, h)
}

// Draw executes the draw calls of one tile.
//
// Line ribbons are widened along their normals to LineWidth. Outlines are the
// fill widened by OutlineWidth and drawn below the fill, the way the stencil
// test keeps them outside it on the GPU.
func (c *Canvas) Draw(zoom float64, d *paint.DrawableTile, calls []paint.DrawCall, styles style.Styles) error {
	m := c.tileToPixels(zoom, d)
	for _, call := range calls {
		var err error
		switch {
		case call.Pass == paint.OutlinePass:
			c.dc.SetColor(styles.OutlineColor(call.Feature))
			c.triangles(d.Mesh, call.Indices, m, OutlineWidth)
			if err = c.dc.Fill(); err != nil {
				return err
			}
			c.dc.SetColor(styles.Color(call.Feature))
			c.triangles(d.Mesh, call.Indices, m, 0)
			err = c.dc.Fill()
		case call.Type == geometry.LineString:
			c.dc.SetColor(styles.Color(call.Feature))
			c.triangles(d.Mesh, call.Indices, m, LineWidth/2)
			err = c.dc.Fill()
		default:
			c.dc.SetColor(styles.Color(call.Feature))
			c.triangles(d.Mesh, call.Indices, m, 0)
			err = c.dc.Fill()
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// triangles adds the triangles of r to the current path, each vertex moved
// along its normal by extrude pixels. Triangles are added counter-clockwise
// so that the nonzero rule fills their union.
func (c *Canvas) triangles(mesh *tessellate.Mesh, r tessellate.Range, m matrix.Matrix, extrude float64) {
	for i := r.Start; i+2 < r.End; i += 3 {
		var p [3]vec.Vec2
		for k := range p {
			v := mesh.Vertices[mesh.Indices[i+uint32(k)]]
			p[k] = m.Apply(v.Position).Add(v.Normal.Mul(extrude))
		}
		if (p[1].X-p[0].X)*(p[2].Y-p[0].Y)-(p[1].Y-p[0].Y)*(p[2].X-p[0].X) < 0 {
			p[1], p[2] = p[2], p[1]
		}
		c.dc.MoveTo(p[0].X, p[0].Y)
		c.dc.LineTo(p[1].X, p[1].Y)
		c.dc.LineTo(p[2].X, p[2].Y)
		c.dc.ClosePath()
	}
}
