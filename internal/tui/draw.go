package tui

import (
	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/paint"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// drawTiles rasterizes the planned draw calls of tiles onto c. The screen is
// measured in micro pixels. Lines are drawn along the ribbon edges, which
// coincide with the path since ribbons have no width in the mesh. Outlines
// are not drawn: a braille cell has a single color.
func drawTiles(c *canvas, screen *viewport.Screen, zoom float64, tiles []*vt.Tile, styles style.Styles) {
	for i, t := range tiles {
		d := paint.NewDrawableTile(t)
		m := tileToMicro(screen, zoom, d)
		for _, call := range d.Plan(styles, uint32(i)) {
			if call.Pass == paint.OutlinePass {
				continue
			}
			col := styles.Color(call.Feature)
			for j := call.Indices.Start; j+2 < call.Indices.End; j += 3 {
				tri := d.Mesh.Triangle(j)
				for k := range tri {
					tri[k] = m.Apply(tri[k])
				}
				if call.Type == geometry.LineString {
					c.line(tri[0], tri[2], col)
					continue
				}
				c.triangle(tri, col)
			}
		}
	}
}

func tileToMicro(screen *viewport.Screen, zoom float64, d *paint.DrawableTile) matrix.Matrix {
	m := screen.TileToNDC(zoom, d.ID)
	w, h := screen.Width/2, screen.Height/2
	return m.Translate(1, 1).Scale(w, h)
}

// cellCenter is the micro pixel position at the center of a terminal cell.
func cellCenter(x, y int) vec.Vec2 {
	return vec.Vec2{X: float64(2*x) + 1, Y: float64(4*y) + 2}
}
