// Package fixture builds synthetic vector tiles and tilesets.
package fixture

import (
	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/eak1mov/go-vectiles/tile"
)

// Rect returns the geometry of a clockwise (positive area) rectangle.
func Rect(x0, y0, x1, y1 int32) []uint32 {
	var e geometry.Encoder
	rect(&e, x0, y0, x1, y1)
	return e.Geometry()
}

func rect(e *geometry.Encoder, x0, y0, x1, y1 int32) {
	e.MoveTo(x0, y0)
	e.LineTo(x1, y0)
	e.LineTo(x1, y1)
	e.LineTo(x0, y1)
	e.ClosePath()
}

// Frame returns a rectangle with a rectangular hole inset by border.
func Frame(x0, y0, x1, y1, border int32) []uint32 {
	var e geometry.Encoder
	rect(&e, x0, y0, x1, y1)
	// Holes wind the other way.
	e.MoveTo(x0+border, y0+border)
	e.LineTo(x0+border, y1-border)
	e.LineTo(x1-border, y1-border)
	e.LineTo(x1-border, y0+border)
	e.ClosePath()
	return e.Geometry()
}

// Line returns the geometry of a single polyline.
func Line(points ...[2]int32) []uint32 {
	var e geometry.Encoder
	for i, p := range points {
		if i == 0 {
			e.MoveTo(p[0], p[1])
		} else {
			e.LineTo(p[0], p[1])
		}
	}
	return e.Geometry()
}

// Point returns the geometry of a single point.
func Point(x, y int32) []uint32 {
	var e geometry.Encoder
	e.MoveTo(x, y)
	return e.Geometry()
}

// Encode serializes layers into a tile.
func Encode(layers ...*mvt.LayerBuilder) []byte {
	t := &mvt.Tile{}
	for _, lb := range layers {
		t.Layers = append(t.Layers, lb.Layer())
	}
	data, err := mvt.Encode(t)
	if err != nil {
		panic(err)
	}
	return data
}

// Tile returns a tile for id with four layers at the default extent:
//   - water: a lake covering the top-left quadrant,
//   - building: a square frame in the bottom-right quadrant,
//   - transportation: a primary road across the tile at y = 3072,
//   - poi: a point in the middle of the tile.
func Tile(id tile.ID) []byte {
	const e = mvt.DefaultExtent
	name := id.String()

	water := mvt.NewLayerBuilder("water", e)
	water.Add(1, geometry.Polygon, Rect(0, 0, e/2, e/2), map[string]any{"class": "lake", "name": name})

	building := mvt.NewLayerBuilder("building", e)
	building.Add(2, geometry.Polygon, Frame(e/2+256, e/2+256, e-256, e-256, 256), map[string]any{"height": int64(12)})

	roads := mvt.NewLayerBuilder("transportation", e)
	roads.Add(3, geometry.LineString, Line([2]int32{0, 3 * e / 4}, [2]int32{e / 2, 3 * e / 4}, [2]int32{e, 3*e/4 + 64}),
		map[string]any{"class": "primary"})

	poi := mvt.NewLayerBuilder("poi", e)
	poi.Add(4, geometry.Point, Point(e/2, e/2), map[string]any{"name": name})

	return Encode(water, building, roads, poi)
}

// Pyramid returns tiles for every id up to maxZoom.
func Pyramid(maxZoom uint32) map[tile.ID][]byte {
	tiles := make(map[tile.ID][]byte)
	for z := range maxZoom + 1 {
		for x := range uint32(1) << z {
			for y := range uint32(1) << z {
				id := tile.ID{X: x, Y: y, Z: z}
				tiles[id] = Tile(id)
			}
		}
	}
	return tiles
}
