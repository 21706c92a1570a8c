package xyz_test

import (
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-vectiles/tile"
	"github.com/eak1mov/go-vectiles/xyz"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "{z}", "{x}", "{y}.pbf")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 1, Z: 1}: []byte("tile111"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}

	writer, err := xyz.NewWriter(pattern)
	require.NoError(t, err)
	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData))
	}
	require.NoError(t, writer.Finalize())

	// Files not matching the pattern are ignored by VisitTiles.
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "0", "0", "0.pbfx"), []byte("junk"), 0644))

	reader, err := xyz.NewReader(pattern)
	require.NoError(t, err)

	if got, want := maps.Collect(tile.IterTiles(reader)), tiles; !cmp.Equal(got, want) {
		t.Errorf("VisitTiles data mismatch")
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(tileID)
		require.NoError(t, err)
		require.Equal(t, tileData, data, "ReadTile(%v)", tileID)
	}

	tileData, err := reader.ReadTile(tile.ID{X: 9, Y: 9, Z: 9})
	require.NoError(t, err)
	require.Empty(t, tileData)
}

func TestInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"tiles/{z}/{x}.pbf", "tiles/{x}/{y}.pbf", ""} {
		_, err := xyz.NewReader(pattern)
		require.ErrorIs(t, err, xyz.ErrInvalidPattern, "pattern %q", pattern)
	}
}

func TestPatternWithMetaCharacters(t *testing.T) {
	rootDir := filepath.Join(t.TempDir(), "a+b (1)")
	pattern := filepath.Join(rootDir, "{z}-{x}-{y}.pbf")

	writer, err := xyz.NewWriter(pattern)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(tile.ID{X: 2, Y: 3, Z: 2}, []byte("data")))

	reader, err := xyz.NewReader(pattern)
	require.NoError(t, err)
	got := maps.Collect(tile.IterTiles(reader))
	require.Equal(t, map[tile.ID][]byte{{X: 2, Y: 3, Z: 2}: []byte("data")}, got)
}

func TestWriterReplacesTile(t *testing.T) {
	rootDir := t.TempDir()
	w, err := xyz.NewWriter(filepath.Join(rootDir, "{z}-{x}-{y}.pbf"))
	require.NoError(t, err)

	id := tile.ID{X: 1, Y: 2, Z: 3}
	require.NoError(t, w.WriteTile(id, []byte("old")))
	require.NoError(t, w.WriteTile(id, []byte("new")))
	require.NoError(t, w.WriteTile(tile.ID{}, nil))
	require.Equal(t, 2, w.Written())

	entries, err := os.ReadDir(rootDir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temporary files left behind")
	data, err := os.ReadFile(filepath.Join(rootDir, "3-1-2.pbf"))
	require.NoError(t, err)
	require.Equal(t, "new", string(data))
}
