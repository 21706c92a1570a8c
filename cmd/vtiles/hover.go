package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"

	"github.com/eak1mov/go-vectiles/interaction"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/google/subcommands"
	"seehuhn.de/go/geom/vec"
)

// builtTiles serves hit tests from tiles built up front.
type builtTiles map[tile.ID]*vt.Tile

func (b builtTiles) TryGetTile(id tile.ID) (*vt.Tile, bool) {
	t, ok := b[id]
	return t, ok
}

type hoverCmd struct {
	input  input
	tileID string
	x, y   float64
}

func (c *hoverCmd) Name() string     { return "hover" }
func (c *hoverCmd) Synopsis() string { return "list the objects under a pixel of one tile" }
func (c *hoverCmd) Usage() string {
	return "vtiles hover -i <path> -t <z/x/y> -x <px> -y <px>\n" +
		"  The tile is shown at its own level on a screen one tile wide.\n"
}
func (c *hoverCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.tileID, "t", "", "Tile (z/x/y)")
	f.Float64Var(&c.x, "x", viewport.DefaultTileSize/2, "Pixel x within the tile")
	f.Float64Var(&c.y, "y", viewport.DefaultTileSize/2, "Pixel y within the tile")
}

func (c *hoverCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	id, err := parseTileID(c.tileID)
	if err != nil {
		slog.Error("bad tile", "error", err)
		return subcommands.ExitUsageError
	}
	styles, err := loadStyles("", slog.Default())
	if err != nil {
		slog.Error("failed to load style sheet", "error", err)
		return subcommands.ExitFailure
	}
	src, err := c.input.open()
	if err != nil {
		slog.Error("failed to open input", "path", c.input.path, "error", err)
		return subcommands.ExitFailure
	}
	defer src.Close()

	data, err := src.ReadTile(id)
	if err != nil {
		slog.Error("failed to read tile", "tile", id, "error", err)
		return subcommands.ExitFailure
	}
	t, err := vt.Build(id, data, styles, vt.WithLogger(slog.Default()))
	if err != nil {
		slog.Error("failed to build tile", "tile", id, "error", err)
		return subcommands.ExitFailure
	}

	screen := viewport.New(viewport.DefaultTileSize, viewport.DefaultTileSize)
	n := math.Exp2(float64(id.Z))
	screen.Center = vec.Vec2{X: (float64(id.X) + 0.5) / n, Y: (float64(id.Y) + 0.5) / n}

	objects := interaction.HoveredObjects(builtTiles{id: t}, screen, float64(id.Z), vec.Vec2{X: c.x, Y: c.y},
		interaction.WithLogger(slog.Default()))
	if len(objects) == 0 {
		fmt.Println("no objects")
		return subcommands.ExitSuccess
	}
	for _, o := range objects {
		fmt.Printf("%s #%d %s %v\n", o.Layer, o.ID, o.Type, styles.Rules(o.Style))
		for _, k := range slices.Sorted(maps.Keys(o.Properties)) {
			fmt.Printf("  %s: %v\n", k, o.Properties[k])
		}
	}
	return subcommands.ExitSuccess
}
