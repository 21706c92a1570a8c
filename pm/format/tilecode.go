package format

import (
	"math/bits"

	"github.com/eak1mov/go-vectiles/tile"
	"github.com/google/hilbert"
)

// EncodeTileID returns the PMTiles tile code: the count of tiles on all lower zoom
// levels plus the position of the tile on the hilbert curve of its level.
func EncodeTileID(tileID tile.ID) uint64 {
	h, _ := hilbert.NewHilbert(1 << tileID.Z)
	position, _ := h.MapInverse(int(tileID.X), int(tileID.Y))
	return levelStart(int(tileID.Z)) + uint64(position)
}

func DecodeTileID(tileCode uint64) tile.ID {
	z := (bits.Len64(3*tileCode+1) - 1) / 2
	h, _ := hilbert.NewHilbert(1 << z)
	x, y, _ := h.Map(int(tileCode - levelStart(z)))
	return tile.ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
}

func levelStart(z int) uint64 {
	return (1<<(z*2) - 1) / 3
}
