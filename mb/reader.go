// Package mb reads and writes vector tilesets in MBTiles format.
//
// Note: User must properly initialize the sqlite3 library generic driver
// (e.g. import _ "github.com/mattn/go-sqlite3") before using this package.
package mb

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-vectiles/tile"
)

// ErrFinalized is returned by a Writer used after Finalize.
var ErrFinalized = errors.New("vectiles: mbtiles writer already finalized")

// Reader implements tile.Reader and tile.Visitor for MBTiles files.
// It is safe for concurrent use.
type Reader struct {
	db     *sql.DB
	stmt   *sql.Stmt
	logger *slog.Logger
}

type Option func(*config)

type config struct {
	Metadata map[string]string
	Logger   *slog.Logger
}

// WithMetadata sets the metadata table rows written by NewWriter.
func WithMetadata(metadata map[string]string) Option {
	return func(c *config) { c.Metadata = metadata }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func newConfig(opts []Option) config {
	c := config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// NewReader opens the MBTiles file read-only.
// The returned Reader must be closed after use to release database resources.
func NewReader(filePath string, opts ...Option) (*Reader, error) {
	c := newConfig(opts)

	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", filePath))
	if err != nil {
		return nil, err
	}

	stmt, err := db.Prepare("SELECT tile_data FROM tiles WHERE zoom_level = ? AND tile_column = ? AND tile_row = ?")
	if err != nil {
		return nil, errors.Join(err, db.Close())
	}

	return &Reader{db: db, stmt: stmt, logger: c.Logger}, nil
}

func (r *Reader) Close() error {
	return errors.Join(r.stmt.Close(), r.db.Close())
}

func (r *Reader) ReadMetadata() (map[string]string, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	metadata := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		metadata[name] = value
	}
	return metadata, rows.Err()
}

// flipY converts between XYZ and TMS rows; the conversion is its own inverse.
func flipY(y, z uint32) uint32 {
	return (1 << z) - 1 - y
}

func (r *Reader) ReadTile(tileID tile.ID) ([]byte, error) {
	var tileData []byte
	err := r.stmt.QueryRow(tileID.Z, tileID.X, flipY(tileID.Y, tileID.Z)).Scan(&tileData)
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Debug("vectiles: mbtiles tile not found", "tile", tileID)
		return make([]byte, 0), nil
	}
	if err != nil {
		return nil, fmt.Errorf("mbtiles: read %v: %w", tileID, err)
	}
	return tileData, nil
}

// VisitTiles visits tiles in (z, x, y) order.
func (r *Reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	rows, err := r.db.Query(`
		SELECT zoom_level, tile_column, tile_row, tile_data FROM tiles
		ORDER BY zoom_level, tile_column, tile_row DESC`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var x, y, z uint32
		var tileData []byte
		if err := rows.Scan(&z, &x, &y, &tileData); err != nil {
			return err
		}
		if err := visitor(tile.ID{X: x, Y: flipY(y, z), Z: z}, tileData); err != nil {
			return err
		}
	}
	return rows.Err()
}
