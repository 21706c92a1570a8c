// Package pm reads and writes vector tilesets in PMTiles v3 format.
package pm

import (
	"log/slog"

	"github.com/eak1mov/go-vectiles/pm/format"
)

// HeaderMetadata is the user-settable part of the PMTiles header.
type HeaderMetadata struct {
	TileCompression format.Compression
	TileType        format.TileType
	MinZoom         uint8
	MaxZoom         uint8
	MinLonE7        int32
	MinLatE7        int32
	MaxLonE7        int32
	MaxLatE7        int32
	CenterZoom      uint8
	CenterLonE7     int32
	CenterLatE7     int32
}

func headerMetadata(h *format.Header) HeaderMetadata {
	return HeaderMetadata{
		TileCompression: h.TileCompression,
		TileType:        h.TileType,
		MinZoom:         h.MinZoom,
		MaxZoom:         h.MaxZoom,
		MinLonE7:        h.MinLonE7,
		MinLatE7:        h.MinLatE7,
		MaxLonE7:        h.MaxLonE7,
		MaxLatE7:        h.MaxLatE7,
		CenterZoom:      h.CenterZoom,
		CenterLonE7:     h.CenterLonE7,
		CenterLatE7:     h.CenterLatE7,
	}
}

func (m HeaderMetadata) apply(h *format.Header) {
	h.TileCompression = m.TileCompression
	h.TileType = m.TileType
	h.MinZoom = m.MinZoom
	h.MaxZoom = m.MaxZoom
	h.MinLonE7 = m.MinLonE7
	h.MinLatE7 = m.MinLatE7
	h.MaxLonE7 = m.MaxLonE7
	h.MaxLatE7 = m.MaxLatE7
	h.CenterZoom = m.CenterZoom
	h.CenterLonE7 = m.CenterLonE7
	h.CenterLatE7 = m.CenterLatE7
}

// VectorMetadata describes an uncompressed MVT tileset over the given zoom range.
func VectorMetadata(minZoom, maxZoom uint8) HeaderMetadata {
	return HeaderMetadata{
		TileCompression: format.CompressionNone,
		TileType:        format.TileTypeMvt,
		MinZoom:         minZoom,
		MaxZoom:         maxZoom,
		MinLonE7:        -180_0000000,
		MinLatE7:        -85_0511287,
		MaxLonE7:        180_0000000,
		MaxLatE7:        85_0511287,
		CenterZoom:      minZoom,
	}
}

type config struct {
	Logger         *slog.Logger
	Metadata       []byte
	HeaderMetadata HeaderMetadata
	DirCacheSize   int
}

type Option func(*config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

// WithMetadata sets the JSON metadata blob written by NewWriter.
func WithMetadata(metadata []byte) Option {
	return func(c *config) { c.Metadata = metadata }
}

func WithHeaderMetadata(m HeaderMetadata) Option {
	return func(c *config) { c.HeaderMetadata = m }
}

// WithDirectoryCache bounds the number of decoded leaf directories kept by a Reader.
// Zero disables the cache.
func WithDirectoryCache(size int) Option {
	return func(c *config) { c.DirCacheSize = size }
}

func newConfig(opts []Option) config {
	c := config{
		Logger:       slog.New(slog.DiscardHandler),
		DirCacheSize: 64,
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
