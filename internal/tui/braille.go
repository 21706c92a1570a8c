package tui

import (
	"image/color"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"seehuhn.de/go/geom/vec"
)

// canvas is a grid of braille cells, each 2x4 micro pixels with one color.
type canvas struct {
	w, h   int
	mask   [][]uint8
	colors [][]color.NRGBA
}

func newCanvas(w, h int) *canvas {
	c := &canvas{w: w, h: h, mask: make([][]uint8, h), colors: make([][]color.NRGBA, h)}
	for i := range h {
		c.mask[i] = make([]uint8, w)
		c.colors[i] = make([]color.NRGBA, w)
	}
	return c
}

// Dot bits of a braille cell, indexed by [row][column].
var dots = [4][2]uint8{
	{0x01, 0x08},
	{0x02, 0x10},
	{0x04, 0x20},
	{0x40, 0x80},
}

func (c *canvas) set(mx, my int, col color.NRGBA) {
	if mx < 0 || my < 0 {
		return
	}
	cx, cy := mx/2, my/4
	if cx >= c.w || cy >= c.h {
		return
	}
	c.mask[cy][cx] |= dots[my%4][mx%2]
	c.colors[cy][cx] = col
}

// line draws a segment between micro pixel positions with Bresenham.
func (c *canvas) line(a, b vec.Vec2, col color.NRGBA) {
	x0, y0 := int(math.Floor(a.X)), int(math.Floor(a.Y))
	x1, y1 := int(math.Floor(b.X)), int(math.Floor(b.Y))
	// Segments far outside the canvas are not worth walking.
	if max(x0, x1) < 0 || max(y0, y1) < 0 || min(x0, x1) > 2*c.w || min(y0, y1) > 4*c.h {
		return
	}
	dx := abs(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -abs(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy
	for {
		c.set(x0, y0, col)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

// triangle sets the micro pixels whose centers lie inside the triangle.
func (c *canvas) triangle(p [3]vec.Vec2, col color.NRGBA) {
	x0 := max(int(math.Floor(min(p[0].X, p[1].X, p[2].X))), 0)
	x1 := min(int(math.Ceil(max(p[0].X, p[1].X, p[2].X))), 2*c.w-1)
	y0 := max(int(math.Floor(min(p[0].Y, p[1].Y, p[2].Y))), 0)
	y1 := min(int(math.Ceil(max(p[0].Y, p[1].Y, p[2].Y))), 4*c.h-1)

	edge := func(a, b vec.Vec2, x, y float64) float64 {
		return (b.X-a.X)*(y-a.Y) - (b.Y-a.Y)*(x-a.X)
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			px, py := float64(x)+0.5, float64(y)+0.5
			e0 := edge(p[0], p[1], px, py)
			e1 := edge(p[1], p[2], px, py)
			e2 := edge(p[2], p[0], px, py)
			if (e0 >= 0 && e1 >= 0 && e2 >= 0) || (e0 <= 0 && e1 <= 0 && e2 <= 0) {
				c.set(x, y, col)
			}
		}
	}
}

func hex(col color.NRGBA) string {
	const digits = "0123456789abcdef"
	b := []byte{'#', 0, 0, 0, 0, 0, 0}
	for i, v := range []uint8{col.R, col.G, col.B} {
		b[1+2*i] = digits[v>>4]
		b[2+2*i] = digits[v&0xf]
	}
	return string(b)
}

// lines renders the canvas, coloring runs of cells that share a color.
func (c *canvas) lines() []string {
	out := make([]string, c.h)
	for y := range c.h {
		var sb strings.Builder
		var run []rune
		var runColor color.NRGBA
		flush := func() {
			if len(run) == 0 {
				return
			}
			sb.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(hex(runColor))).Render(string(run)))
			run = run[:0]
		}
		for x := range c.w {
			r, col := ' ', runColor
			if m := c.mask[y][x]; m != 0 {
				r, col = rune(0x2800+int(m)), c.colors[y][x]
			}
			if col != runColor {
				flush()
				runColor = col
			}
			run = append(run, r)
		}
		flush()
		out[y] = sb.String()
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
