package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/internal/tui"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
)

type viewCmd struct {
	input   input
	style   string
	lon     float64
	lat     float64
	zoom    float64
	logPath string
}

func (c *viewCmd) Name() string     { return "view" }
func (c *viewCmd) Synopsis() string { return "browse a tileset in the terminal" }
func (c *viewCmd) Usage() string {
	return "vtiles view -i <path> [-lon <deg> -lat <deg> -z <zoom> -style <path> -log <path>]\n" +
		"  The style sheet is reloaded whenever it changes.\n"
}
func (c *viewCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.style, "style", "", "Style sheet path (default: built-in)")
	f.Float64Var(&c.lon, "lon", 0, "Longitude of the view center")
	f.Float64Var(&c.lat, "lat", 0, "Latitude of the view center")
	f.Float64Var(&c.zoom, "z", 0, "Initial zoom")
	f.StringVar(&c.logPath, "log", "", "Write logs to this file while the viewer runs")
}

func (c *viewCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	// The terminal belongs to the viewer; logs go to a file or nowhere.
	logger := slog.New(slog.DiscardHandler)
	if c.logPath != "" {
		f, err := os.Create(c.logPath)
		if err != nil {
			slog.Error("failed to create log file", "path", c.logPath, "error", err)
			return subcommands.ExitFailure
		}
		defer f.Close()
		logger = slog.New(slog.NewTextHandler(f, &slog.HandlerOptions{Level: cache.LevelTrace}))
	}

	styles, err := loadStyles(c.style, logger)
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

	tiles := cache.New(src, cache.WithLogger(logger), cache.WithBuildOptions(vt.WithLogger(logger)))
	defer tiles.Close()

	m := tui.New(tiles, styles, orb.Point{c.lon, c.lat}, c.zoom, logger)
	if err := tui.Run(ctx, m, c.style); err != nil {
		slog.Error("viewer failed", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
