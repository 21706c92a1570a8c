package main

import (
	"flag"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-vectiles/source"
	"github.com/eak1mov/go-vectiles/style"
	"github.com/eak1mov/go-vectiles/tile"
)

// input is the tileset flag set shared by most commands.
type input struct {
	path   string
	format string
}

func (in *input) setFlags(f *flag.FlagSet) {
	f.StringVar(&in.path, "i", "", "Input path (.mbtiles, .pmtiles or a {z}/{x}/{y} pattern)")
	f.StringVar(&in.format, "if", "", "Input format (mbtiles, pmtiles, xyz)")
}

func (in *input) open() (source.Source, error) {
	if in.path == "" {
		return nil, fmt.Errorf("missing input path")
	}
	return source.Open(in.path, source.Format(in.format), slog.Default())
}

func parseTileID(s string) (tile.ID, error) {
	var id tile.ID
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &id.Z, &id.X, &id.Y); err != nil {
		return tile.ID{}, fmt.Errorf("invalid tile %q, want z/x/y: %w", s, err)
	}
	if !id.Valid() {
		return tile.ID{}, fmt.Errorf("invalid tile %q", s)
	}
	return id, nil
}

func loadStyles(path string, logger *slog.Logger) (*style.Collection, error) {
	sheet := style.DefaultSheet()
	if path != "" {
		var err error
		if sheet, err = style.LoadSheet(path); err != nil {
			return nil, err
		}
	}
	return style.NewCollection(sheet, style.WithLogger(logger)), nil
}
