package mb_test

import (
	"maps"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-vectiles/mb"
	"github.com/eak1mov/go-vectiles/tile"
	"github.com/google/go-cmp/cmp"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")
	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 0, Z: 1}: []byte("tile101"),
		{X: 3, Y: 5, Z: 4}: []byte("tile354"),
	}

	writer, err := mb.NewWriter(filePath, mb.WithMetadata(mb.DefaultMetadata("test")))
	require.NoError(t, err)
	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData))
	}
	require.NoError(t, writer.Finalize())
	require.NoError(t, writer.Close())

	reader, err := mb.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	metadata, err := reader.ReadMetadata()
	require.NoError(t, err)
	if diff := cmp.Diff(mb.DefaultMetadata("test"), metadata); diff != "" {
		t.Errorf("ReadMetadata mismatch (-want+got):\n%v", diff)
	}

	if got := maps.Collect(tile.IterTiles(reader)); !cmp.Equal(got, tiles) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, want := range tiles {
		got, err := reader.ReadTile(tileID)
		require.NoError(t, err)
		require.Equal(t, want, got, "ReadTile(%v)", tileID)
	}

	missing, err := reader.ReadTile(tile.ID{X: 1, Y: 1, Z: 1})
	require.NoError(t, err)
	require.Empty(t, missing)
}

func TestWriterDiscardsWithoutFinalize(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")
	writer, err := mb.NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(tile.ID{}, []byte("lost")))
	require.NoError(t, writer.Close())

	reader, err := mb.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()
	data, err := reader.ReadTile(tile.ID{})
	require.NoError(t, err)
	require.Empty(t, data)
}

func TestWriterFinalizeTwice(t *testing.T) {
	writer, err := mb.NewWriter(filepath.Join(t.TempDir(), "tiles.mbtiles"))
	require.NoError(t, err)
	defer writer.Close()
	require.NoError(t, writer.Finalize())
	require.ErrorIs(t, writer.Finalize(), mb.ErrFinalized)
	require.ErrorIs(t, writer.WriteTile(tile.ID{}, nil), mb.ErrFinalized)
}
