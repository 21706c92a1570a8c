package mb

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/eak1mov/go-vectiles/tile"
)

const schema = `
CREATE TABLE metadata (name TEXT, value TEXT);
CREATE TABLE tiles (
	zoom_level INTEGER,
	tile_column INTEGER,
	tile_row INTEGER,
	tile_data BLOB
);
`

// Writer implements tile.Writer for MBTiles files. Tiles are inserted in a
// single transaction that Finalize commits; closing an unfinalized Writer
// discards them.
type Writer struct {
	db      *sql.DB
	tx      *sql.Tx
	insert  *sql.Stmt
	written int
	logger  *slog.Logger
}

// DefaultMetadata describes a gzip-free vector tileset.
func DefaultMetadata(name string) map[string]string {
	return map[string]string{
		"name":   name,
		"format": "pbf",
		"type":   "overlay",
	}
}

// NewWriter creates the MBTiles schema in a new file and applies the given options.
func NewWriter(filePath string, opts ...Option) (w *Writer, err error) {
	c := newConfig(opts)

	db, err := sql.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			db.Close()
		}
	}()

	if _, err = db.Exec(schema); err != nil {
		return nil, err
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()
	for name, value := range c.Metadata {
		if _, err = tx.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			return nil, err
		}
	}
	insert, err := tx.Prepare("INSERT INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return nil, err
	}
	return &Writer{db: db, tx: tx, insert: insert, logger: c.Logger}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tx == nil {
		return ErrFinalized
	}
	if _, err := w.insert.Exec(tileID.Z, tileID.X, flipY(tileID.Y, tileID.Z), tileData); err != nil {
		return err
	}
	w.written++
	return nil
}

// Finalize commits the tiles and builds the tile index.
func (w *Writer) Finalize() error {
	if w.tx == nil {
		return ErrFinalized
	}
	err := errors.Join(w.insert.Close(), w.tx.Commit())
	w.tx = nil
	if err != nil {
		return err
	}
	w.logger.Debug("vectiles: creating mbtiles index", "tiles", w.written)
	_, err = w.db.Exec("CREATE UNIQUE INDEX tile_index ON tiles (zoom_level, tile_column, tile_row)")
	return err
}

func (w *Writer) Close() error {
	var err error
	if w.tx != nil {
		w.logger.Warn("vectiles: mbtiles writer closed before Finalize", "tiles", w.written)
		err = errors.Join(w.insert.Close(), w.tx.Rollback())
		w.tx = nil
	}
	return errors.Join(err, w.db.Close())
}
