// Package source opens raw vector tile sources by path and format.
package source

import (
	"bytes"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/eak1mov/go-vectiles/mb"
	"github.com/eak1mov/go-vectiles/pm"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/xyz"
)

var ErrUnknownFormat = errors.New("vectiles: unknown tileset format")

type Format string

const (
	FormatAuto    Format = ""
	FormatMBTiles Format = "mbtiles"
	FormatPMTiles Format = "pmtiles"
	FormatXYZ     Format = "xyz"
)

// DeduceFormat guesses the format from the path: .mbtiles and .pmtiles files by
// extension, anything with {z}/{x}/{y} placeholders as an XYZ pattern.
func DeduceFormat(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mbtiles":
		return FormatMBTiles, nil
	case ".pmtiles":
		return FormatPMTiles, nil
	}
	if strings.Contains(path, "{z}") {
		return FormatXYZ, nil
	}
	return FormatAuto, fmt.Errorf("%w: %s", ErrUnknownFormat, path)
}

// Source is an opened tileset. Tile data returned by it is already inflated.
type Source interface {
	io.Closer
	tile.Reader
	tile.Visitor
}

type nopCloser struct {
	tile.Reader
	tile.Visitor
}

func (nopCloser) Close() error { return nil }

// Open opens the tileset at path. With FormatAuto the format is deduced from the path.
func Open(path string, f Format, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if f == FormatAuto {
		var err error
		if f, err = DeduceFormat(path); err != nil {
			return nil, err
		}
	}

	var src Source
	switch f {
	case FormatMBTiles:
		r, err := mb.NewReader(path, mb.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		src = r
	case FormatPMTiles:
		r, err := pm.NewMappedReader(path, pm.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		src = r
	case FormatXYZ:
		r, err := xyz.NewReader(path)
		if err != nil {
			return nil, err
		}
		src = nopCloser{r, r}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}
	logger.Debug("vectiles: source opened", "path", path, "format", f)
	return Inflate(src), nil
}

// OpenWriter creates a tileset writer for path.
func OpenWriter(path string, f Format, logger *slog.Logger) (tile.Writer, io.Closer, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if f == FormatAuto {
		var err error
		if f, err = DeduceFormat(path); err != nil {
			return nil, nil, err
		}
	}
	switch f {
	case FormatMBTiles:
		w, err := mb.NewWriter(path, mb.WithLogger(logger), mb.WithMetadata(mb.DefaultMetadata(filepath.Base(path))))
		return w, w, err
	case FormatPMTiles:
		w, err := pm.NewWriter(path, pm.WithLogger(logger), pm.WithHeaderMetadata(pm.VectorMetadata(0, 14)))
		return w, w, err
	case FormatXYZ:
		w, err := xyz.NewWriter(path)
		return w, io.NopCloser(nil), err
	}
	return nil, nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
}

type inflating struct {
	Source
}

// Inflate wraps src so that gzip-compressed tiles (magic 0x1f 0x8b) are
// transparently decompressed. Other tiles pass through unchanged.
func Inflate(src Source) Source {
	return inflating{src}
}

// Unwrap returns the source Inflate wrapped, or src itself.
func Unwrap(src Source) Source {
	if s, ok := src.(inflating); ok {
		return s.Source
	}
	return src
}

func (s inflating) ReadTile(tileID tile.ID) ([]byte, error) {
	data, err := s.Source.ReadTile(tileID)
	if err != nil {
		return nil, err
	}
	return Gunzip(data)
}

func (s inflating) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return s.Source.VisitTiles(func(tileID tile.ID, data []byte) error {
		data, err := Gunzip(data)
		if err != nil {
			return fmt.Errorf("tile %v: %w", tileID, err)
		}
		return visitor(tileID, data)
	})
}

// Gunzip inflates data if it starts with the gzip magic.
func Gunzip(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
