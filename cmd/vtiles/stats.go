package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type levelStats struct {
	tiles    int
	bytes    int
	features int
	indices  int
	failed   int
}

type statsCmd struct {
	input input
	style string
}

func (c *statsCmd) Name() string     { return "stats" }
func (c *statsCmd) Synopsis() string { return "build every tile and report per-level totals" }
func (c *statsCmd) Usage() string {
	return "vtiles stats -i <path> [-if <format> -style <path>]\n"
}
func (c *statsCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.style, "style", "", "Style sheet path (default: built-in)")
}

func (c *statsCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	styles, err := loadStyles(c.style, slog.Default())
	if err != nil {
		slog.Error("failed to load style sheet", "path", c.style, "error", err)
		return subcommands.ExitFailure
	}
	src, err := c.input.open()
	if err != nil {
		slog.Error("failed to open input", "path", c.input.path, "error", err)
		return subcommands.ExitFailure
	}
	defer src.Close()

	levels := make(map[uint32]*levelStats)
	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = src.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		s, ok := levels[tileID.Z]
		if !ok {
			s = &levelStats{}
			levels[tileID.Z] = s
		}
		s.tiles++
		s.bytes += len(tileData)
		bar.Add(1)

		t, err := vt.Build(tileID, tileData, styles)
		if err != nil {
			slog.Debug("tile failed", "tile", tileID, "error", err)
			s.failed++
			return nil
		}
		s.features += t.FeatureCount()
		s.indices += t.Mesh.IndexCount()
		return nil
	})
	bar.Finish()
	fmt.Println()
	if err != nil {
		slog.Error("failed to read tiles", "error", err)
		return subcommands.ExitFailure
	}

	fmt.Printf("%4s %10s %12s %12s %14s %8s\n", "z", "tiles", "bytes", "features", "indices", "failed")
	for _, z := range slices.Sorted(maps.Keys(levels)) {
		s := levels[z]
		fmt.Printf("%4d %10d %12d %12d %14d %8d\n", z, s.tiles, s.bytes, s.features, s.indices, s.failed)
	}
	fmt.Printf("%d styles\n", styles.Len())
	return subcommands.ExitSuccess
}
