package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/eak1mov/go-vectiles/mb"
	"github.com/eak1mov/go-vectiles/pm"
	"github.com/eak1mov/go-vectiles/pm/format"
	"github.com/eak1mov/go-vectiles/source"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/xyz"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	input        input
	outputFormat string
	outputPath   string
	raw          bool
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "vtiles convert -i <path> -o <path> [-if <format> | -of <format>] [-raw]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	c.input.setFlags(f)
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, pmtiles, xyz)")
	f.BoolVar(&c.raw, "raw", false, "Copy tile data as stored instead of inflating it")
}

// convertMetadata maps MBTiles metadata rows onto the PMTiles header.
func convertMetadata(metadata map[string]string) (pm.HeaderMetadata, error) {
	header := pm.VectorMetadata(0, 14)

	switch metadata["format"] {
	case "png":
		header.TileType = format.TileTypePng
	case "jpg":
		header.TileType = format.TileTypeJpeg
	case "webp":
		header.TileType = format.TileTypeWebp
	case "avif":
		header.TileType = format.TileTypeAvif
	}

	const E7 = 10000000.0
	if bounds, ok := metadata["bounds"]; ok {
		var coords [4]float64
		if _, err := fmt.Sscanf(bounds, "%f,%f,%f,%f", &coords[0], &coords[1], &coords[2], &coords[3]); err != nil {
			return pm.HeaderMetadata{}, err
		}
		header.MinLonE7 = int32(coords[0] * E7)
		header.MinLatE7 = int32(coords[1] * E7)
		header.MaxLonE7 = int32(coords[2] * E7)
		header.MaxLatE7 = int32(coords[3] * E7)
	}

	if center, ok := metadata["center"]; ok {
		var lon, lat float64
		if _, err := fmt.Sscanf(center, "%f,%f,%d", &lon, &lat, &header.CenterZoom); err != nil {
			return pm.HeaderMetadata{}, err
		}
		header.CenterLonE7 = int32(lon * E7)
		header.CenterLatE7 = int32(lat * E7)
	}

	for key, dst := range map[string]*uint8{"minzoom": &header.MinZoom, "maxzoom": &header.MaxZoom} {
		if value, ok := metadata[key]; ok {
			if _, err := fmt.Sscanf(value, "%d", dst); err != nil {
				return pm.HeaderMetadata{}, err
			}
		}
	}
	return header, nil
}

// openRaw opens the input without inflating tiles.
func (c *convertCmd) openRaw() (tile.Visitor, io.Closer, error) {
	f := source.Format(c.input.format)
	if f == source.FormatAuto {
		var err error
		if f, err = source.DeduceFormat(c.input.path); err != nil {
			return nil, nil, err
		}
	}
	switch f {
	case source.FormatMBTiles:
		r, err := mb.NewReader(c.input.path)
		return r, r, err
	case source.FormatPMTiles:
		r, err := pm.NewFileReader(c.input.path)
		return r, r, err
	case source.FormatXYZ:
		r, err := xyz.NewReader(c.input.path)
		return r, io.NopCloser(nil), err
	}
	return nil, nil, fmt.Errorf("%w: %q", source.ErrUnknownFormat, f)
}

func (c *convertCmd) writer(metadata map[string]string) (tile.Writer, io.Closer, error) {
	outputFormat := source.Format(c.outputFormat)
	if outputFormat == source.FormatAuto {
		var err error
		if outputFormat, err = source.DeduceFormat(c.outputPath); err != nil {
			return nil, nil, err
		}
	}
	if outputFormat != source.FormatPMTiles || metadata == nil {
		return source.OpenWriter(c.outputPath, outputFormat, slog.Default())
	}

	header, err := convertMetadata(metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert metadata: %w", err)
	}
	if c.raw && metadata["format"] == "pbf" {
		header.TileCompression = format.CompressionGzip
	}
	w, err := pm.NewWriter(
		c.outputPath,
		pm.WithMetadata([]byte(metadata["json"])),
		pm.WithHeaderMetadata(header),
		pm.WithLogger(slog.Default()),
	)
	return w, w, err
}

func (c *convertCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	var reader tile.Visitor
	var closer io.Closer
	var err error
	if c.raw {
		reader, closer, err = c.openRaw()
	} else {
		var src source.Source
		src, err = c.input.open()
		reader, closer = src, src
	}
	if err != nil {
		slog.Error("failed to open input", "path", c.input.path, "error", err)
		return subcommands.ExitFailure
	}
	defer closer.Close()

	var stored any = reader
	if src, ok := reader.(source.Source); ok {
		stored = source.Unwrap(src)
	}
	var metadata map[string]string
	if m, ok := stored.(interface{ ReadMetadata() (map[string]string, error) }); ok {
		if metadata, err = m.ReadMetadata(); err != nil {
			slog.Error("failed to read metadata", "error", err)
			return subcommands.ExitFailure
		}
	}

	writer, writerCloser, err := c.writer(metadata)
	if err != nil {
		slog.Error("failed to open output", "path", c.outputPath, "error", err)
		return subcommands.ExitFailure
	}
	defer writerCloser.Close()

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		err := writer.WriteTile(tileID, tileData)
		bar.Add(1)
		return err
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		slog.Error("conversion failed", "error", err)
		return subcommands.ExitFailure
	}
	if err := writer.Finalize(); err != nil {
		slog.Error("failed to finalize output", "error", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
