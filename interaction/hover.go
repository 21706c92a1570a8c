// Package interaction answers pointer queries against resident tiles.
package interaction

import (
	"context"
	"log/slog"

	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"seehuhn.de/go/geom/vec"
)

// Tiles is the non-blocking lookup of a tile cache.
type Tiles interface {
	TryGetTile(id tile.ID) (*vt.Tile, bool)
}

type config struct {
	Logger *slog.Logger
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// HoveredObjects returns the objects under a screen point, in pixels.
//
// The first resident tile of the view whose bounds contain the point answers
// the query. Tiles that are missing or busy are skipped, so the result may be
// empty while tiles load; the call never waits.
func HoveredObjects(tiles Tiles, screen *viewport.Screen, zoom float64, point vec.Vec2, opts ...Option) []vt.Object {
	c := config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}

	ndc := screen.ScreenToNDC(point)
	for _, id := range screen.TileBoundaries(zoom, cache.DefaultMargin) {
		t, ok := tiles.TryGetTile(id)
		if !ok {
			c.Logger.Log(context.Background(), cache.LevelTrace, "vectiles: hover skipped tile", "tile", id)
			continue
		}
		inv, ok := viewport.Invert(screen.TileToNDC(zoom, id))
		if !ok {
			continue
		}
		extent := float64(t.Extent)
		p := inv.Apply(ndc).Mul(extent)
		if p.X < 0 || p.X > extent || p.Y < 0 || p.Y > extent {
			continue
		}
		objects, ok := t.HitTest(p)
		if !ok {
			c.Logger.Debug("vectiles: hover tile busy", "tile", id)
			return nil
		}
		return objects
	}
	return nil
}
