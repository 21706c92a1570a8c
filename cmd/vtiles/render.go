package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"github.com/eak1mov/go-vectiles/cache"
	"github.com/eak1mov/go-vectiles/render"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/viewport"
	"github.com/eak1mov/go-vectiles/vt"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
)

// settle runs update cycles until every required tile is resident or failed.
func settle(ctx context.Context, c *cache.Cache, screen *viewport.Screen, zoom float64, styles *style.Collection) (cache.Stats, error) {
	for cycle := 0; ; cycle++ {
		stats := c.Update(screen, zoom, styles)
		if cycle > 0 && stats.Pending == 0 && stats.Inserted == 0 {
			return stats, nil
		}
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		case <-time.After(10 * time.Millisecond):
		}
	}
}

type renderCmd struct {
	input   input
	style   string
	output  string
	lon     float64
	lat     float64
	zoom    float64
	width   int
	height  int
	workers int
	timeout time.Duration
}

func (c *renderCmd) Name() string     { return "render" }
func (c *renderCmd) Synopsis() string { return "render a view of a tileset to PNG" }
func (c *renderCmd) Usage() string {
	return "vtiles render -i <path> -o <file.png> [-lon <deg> -lat <deg> -z <zoom> -w <px> -h <px> -style <path>]\n"
}
func (c *renderCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.style, "style", "", "Style sheet path (default: built-in)")
	f.StringVar(&c.output, "o", "view.png", "Output PNG path")
	f.Float64Var(&c.lon, "lon", 0, "Longitude of the view center")
	f.Float64Var(&c.lat, "lat", 0, "Latitude of the view center")
	f.Float64Var(&c.zoom, "z", 0, "Zoom")
	f.IntVar(&c.width, "w", 1024, "Image width")
	f.IntVar(&c.height, "h", 768, "Image height")
	f.IntVar(&c.workers, "workers", 0, "Tile build workers (default: GOMAXPROCS)")
	f.DurationVar(&c.timeout, "timeout", time.Minute, "Maximum time to wait for tiles")
}

func (c *renderCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
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

	opts := []cache.Option{cache.WithLogger(slog.Default()), cache.WithBuildOptions(vt.WithLogger(slog.Default()))}
	if c.workers > 0 {
		opts = append(opts, cache.WithWorkers(c.workers))
	}
	tiles := cache.New(src, opts...)
	defer tiles.Close()

	screen := viewport.New(float64(c.width), float64(c.height))
	screen.CenterOn(orb.Point{c.lon, c.lat})

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	stats, err := settle(ctx, tiles, screen, c.zoom, styles)
	if err != nil {
		slog.Warn("rendering incomplete view", "error", err, "resident", stats.Resident, "required", stats.Required)
	}

	canvas, err := render.Scene(screen, c.zoom, tiles.Tiles(), styles)
	if err != nil {
		slog.Error("failed to draw", "error", err)
		return subcommands.ExitFailure
	}
	defer canvas.Close()
	if err := canvas.SavePNG(c.output); err != nil {
		slog.Error("failed to save image", "path", c.output, "error", err)
		return subcommands.ExitFailure
	}
	slog.Info("rendered", "path", c.output, "tiles", stats.Resident, "styles", styles.Len())
	return subcommands.ExitSuccess
}
