package xyz

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/eak1mov/go-vectiles/tile"
)

// Writer implements tile.Writer for tiles in XYZ format. Each tile is written
// to a temporary file and renamed into place, so readers of the directory never
// see a partial tile.
type Writer struct {
	filePattern string
	written     int
}

func NewWriter(filePattern string) (*Writer, error) {
	if err := validatePattern(filePattern); err != nil {
		return nil, err
	}
	return &Writer{filePattern: filePattern}, nil
}

// WriteTile writes the tile file, creating parent directories. Empty tiles are skipped.
func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if len(tileData) == 0 {
		return nil
	}
	filePath := formatPattern(w.filePattern, tileID)
	dir := filepath.Dir(filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	f, err := os.CreateTemp(dir, ".tile-*")
	if err != nil {
		return err
	}
	_, err = f.Write(tileData)
	err = errors.Join(err, f.Chmod(0644), f.Close())
	if err == nil {
		err = os.Rename(f.Name(), filePath)
	}
	if err != nil {
		os.Remove(f.Name())
		return err
	}
	w.written++
	return nil
}

// Written returns the number of tile files written so far.
func (w *Writer) Written() int {
	return w.written
}

func (w *Writer) Finalize() error {
	return nil
}
