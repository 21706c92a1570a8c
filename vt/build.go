package vt

import (
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-vectiles/collider"
	"github.com/eak1mov/go-vectiles/geometry"
	"github.com/eak1mov/go-vectiles/mvt"
	"github.com/eak1mov/go-vectiles/tessellate"
	"github.com/eak1mov/go-vectiles/tile"
	"seehuhn.de/go/geom/path"
	"seehuhn.de/go/geom/vec"
)

// DefaultLineHitRadius is the hit radius of lines in units of a 4096 extent.
const DefaultLineHitRadius = 8

type config struct {
	Logger        *slog.Logger
	LineHitRadius float64
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithLineHitRadius sets how far from a line, in units of a 4096 extent, a point
// still hits it.
func WithLineHitRadius(radius float64) Option {
	return func(c *config) { c.LineHitRadius = radius }
}

// Build decodes and tessellates a raw vector tile.
//
// Layers and features keep their wire order. A feature whose path cannot be
// tessellated is logged and kept with an empty index range. Malformed protobuf
// or geometry data fails the whole tile.
func Build(id tile.ID, data []byte, styles Styler, opts ...Option) (*Tile, error) {
	c := config{
		Logger:        slog.New(slog.DiscardHandler),
		LineHitRadius: DefaultLineHitRadius,
	}
	for _, opt := range opts {
		opt(&c)
	}

	decoded, err := mvt.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("tile %v: %w", id, err)
	}

	t := &Tile{
		ID:       id,
		Extent:   mvt.DefaultExtent,
		collider: collider.New(),
	}
	if len(decoded.Layers) > 0 {
		t.Extent = decoded.Layers[0].Extent
	}

	b := tessellate.NewBuilder()
	for li, l := range decoded.Layers {
		layer := Layer{Name: l.Name, ID: li, Extent: l.Extent}
		layer.Indices.Start = uint32(b.Mesh().IndexCount())

		// Tile-local coordinates of this layer, in the tile extent.
		toTile := float64(t.Extent) / float64(l.Extent)
		radius := c.LineHitRadius * float64(t.Extent) / mvt.DefaultExtent

		for fi, f := range l.Features {
			props, err := f.Properties(l)
			if err != nil {
				return nil, fmt.Errorf("tile %v layer %q feature %d: %w", id, l.Name, fi, err)
			}
			paths, err := geometry.DecodeAll(f.Type, f.Geometry)
			if err != nil {
				return nil, fmt.Errorf("tile %v layer %q feature %d: %w", id, l.Name, fi, err)
			}

			styleID := styles.Register(l.Name, f.Type, props)
			object := len(t.objects)
			t.objects = append(t.objects, Object{
				ID:         f.ID,
				Layer:      l.Name,
				Type:       f.Type,
				Style:      styleID,
				Properties: props,
			})

			p := geometry.Merge(paths)
			start := uint32(b.Mesh().IndexCount())
			r := tessellate.Range{Start: start, End: start}
			switch f.Type {
			case geometry.Polygon:
				b.SetExtent(l.Extent)
				r, err = b.Fill(p)
			case geometry.LineString:
				b.SetExtent(l.Extent)
				r, err = b.Stroke(p, float64(id.Z))
			}
			if err != nil {
				c.Logger.Warn("vectiles: feature skipped", "tile", id, "layer", l.Name, "feature", fi, "error", err)
			}

			switch {
			case f.Type == geometry.Polygon && !r.Empty():
				t.collider.InsertTriangles(object, triangles(b.Mesh(), r, float64(t.Extent)))
			case f.Type == geometry.LineString && !r.Empty():
				for _, ring := range geometry.Rings(p) {
					t.collider.InsertSegments(object, scaled(ring.Points, toTile), radius)
				}
			}

			layer.Features = append(layer.Features, Feature{ID: styleID, Object: object, Indices: r})
		}

		layer.Indices.End = uint32(b.Mesh().IndexCount())
		t.Layers = append(t.Layers, layer)
	}
	t.Mesh = b.Mesh()

	c.Logger.Debug("vectiles: tile built", "tile", id, "layers", len(t.Layers),
		"features", len(t.objects), "indices", t.Mesh.IndexCount())
	return t, nil
}

// triangles returns the triangles of r in tile coordinates.
func triangles(m *tessellate.Mesh, r tessellate.Range, extent float64) []vec.Vec2 {
	result := make([]vec.Vec2, 0, r.Len())
	for i := r.Start; i+2 < r.End; i += 3 {
		for _, v := range m.Triangle(i) {
			result = append(result, v.Mul(extent))
		}
	}
	return result
}

func scaled(points []vec.Vec2, factor float64) []vec.Vec2 {
	result := make([]vec.Vec2, len(points))
	for i, p := range points {
		result[i] = p.Mul(factor)
	}
	return result
}

// Path decodes the geometry of feature fi of layer li again. It is used by tools
// that need the original path rather than the mesh.
func Path(data []byte, layer string, fi int) (*path.Data, geometry.Type, error) {
	decoded, err := mvt.Decode(data)
	if err != nil {
		return nil, geometry.Unknown, err
	}
	l := decoded.Layer(layer)
	if l == nil || fi < 0 || fi >= len(l.Features) {
		return nil, geometry.Unknown, fmt.Errorf("%w: no feature %d in layer %q", mvt.ErrInvalidTile, fi, layer)
	}
	f := l.Features[fi]
	paths, err := geometry.DecodeAll(f.Type, f.Geometry)
	if err != nil {
		return nil, f.Type, err
	}
	return geometry.Merge(paths), f.Type, nil
}
