// Package viewport maps between screen pixels, normalized device coordinates and
// tiles of a Web Mercator tile pyramid.
package viewport

import (
	"math"

	"github.com/eak1mov/go-vectiles/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
	"seehuhn.de/go/geom/matrix"
	"seehuhn.de/go/geom/vec"
)

// DefaultTileSize is the on-screen size of a tile at an integer zoom level.
const DefaultTileSize = 256

// MaxLevel is the deepest tile level a screen asks for.
const MaxLevel = 30

// Screen is a window onto the world. Center is a world fraction in [0, 1]
// on both axes, with y growing southwards.
type Screen struct {
	Width, Height float64
	Center        vec.Vec2
	TileSize      float64
}

func New(width, height float64) *Screen {
	return &Screen{
		Width:    width,
		Height:   height,
		Center:   vec.Vec2{X: 0.5, Y: 0.5},
		TileSize: DefaultTileSize,
	}
}

// Level returns the integer tile level used for a fractional zoom.
func Level(zoom float64) uint32 {
	if zoom <= 0 {
		return 0
	}
	return uint32(math.Min(math.Floor(zoom), MaxLevel))
}

// worldSize returns the size of the whole world in pixels.
func (s *Screen) worldSize(zoom float64) float64 {
	return s.TileSize * math.Exp2(zoom)
}

// TileBoundaries returns the tiles of level Level(zoom) covering the screen,
// grown by margin tiles on every side, in (z, x, y) order.
func (s *Screen) TileBoundaries(zoom float64, margin int) []tile.ID {
	z := Level(zoom)
	n := int64(1) << z
	world := s.worldSize(zoom)

	span := func(center, size float64) (lo, hi int64) {
		lo = int64(math.Floor((center-size/2/world)*float64(n))) - int64(margin)
		hi = int64(math.Floor((center+size/2/world)*float64(n))) + int64(margin)
		return max(lo, 0), min(hi, n-1)
	}
	x0, x1 := span(s.Center.X, s.Width)
	y0, y1 := span(s.Center.Y, s.Height)

	var result []tile.ID
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			result = append(result, tile.ID{X: uint32(x), Y: uint32(y), Z: z})
		}
	}
	return result
}

// TileToNDC returns the matrix that maps normalized tile coordinates ([0, 1]
// across the tile) of id to normalized device coordinates at the given zoom.
// NDC y grows downwards like screen y.
func (s *Screen) TileToNDC(zoom float64, id tile.ID) matrix.Matrix {
	n := math.Exp2(float64(id.Z))
	world := s.worldSize(zoom)
	sx := 2 * world / (n * s.Width)
	sy := 2 * world / (n * s.Height)
	return matrix.Matrix{
		sx, 0,
		0, sy,
		2 * (float64(id.X)/n - s.Center.X) * world / s.Width,
		2 * (float64(id.Y)/n - s.Center.Y) * world / s.Height,
	}
}

// ScreenToNDC converts a pixel position to normalized device coordinates.
func (s *Screen) ScreenToNDC(p vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: p.X/(s.Width/2) - 1, Y: p.Y/(s.Height/2) - 1}
}

// NDCToScreen is the inverse of ScreenToNDC.
func (s *Screen) NDCToScreen(p vec.Vec2) vec.Vec2 {
	return vec.Vec2{X: (p.X + 1) * s.Width / 2, Y: (p.Y + 1) * s.Height / 2}
}

// CenterOn moves the screen center to a longitude/latitude point.
func (s *Screen) CenterOn(ll orb.Point) {
	f := maptile.Fraction(ll, 0)
	s.Center = vec.Vec2{X: f.X(), Y: f.Y()}
}

// CenterLonLat returns the longitude/latitude of the screen center.
func (s *Screen) CenterLonLat() orb.Point {
	n := math.Exp2(MaxLevel)
	x := min(uint32(s.Center.X*n), uint32(n)-1)
	y := min(uint32(s.Center.Y*n), uint32(n)-1)
	t := maptile.New(x, y, MaxLevel)
	return t.Center()
}

// Pan moves the view by a pixel offset at the given zoom. The center stays
// within the world.
func (s *Screen) Pan(dx, dy, zoom float64) {
	world := s.worldSize(zoom)
	s.Center.X = min(max(s.Center.X+dx/world, 0), 1)
	s.Center.Y = min(max(s.Center.Y+dy/world, 0), 1)
}
