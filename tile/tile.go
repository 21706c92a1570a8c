// Package tile provides the tile identifier and the raw tile source interfaces.
package tile

import (
	"cmp"
	"fmt"

	"github.com/paulmach/orb/maptile"
)

// ID represents tile coordinates in the XYZ scheme (Tiled web map).
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (t ID) Valid() bool {
	return t.Z < 32 && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Compare orders tiles by (Z, X, Y).
func (t ID) Compare(o ID) int {
	if c := cmp.Compare(t.Z, o.Z); c != 0 {
		return c
	}
	if c := cmp.Compare(t.X, o.X); c != 0 {
		return c
	}
	return cmp.Compare(t.Y, o.Y)
}

// Parent returns the tile one zoom level up. The parent of a zoom 0 tile is itself.
func (t ID) Parent() ID {
	if t.Z == 0 {
		return t
	}
	return ID{X: t.X / 2, Y: t.Y / 2, Z: t.Z - 1}
}

// Children returns the four tiles one zoom level down, in the order
// (2x,2y), (2x+1,2y), (2x+1,2y+1), (2x,2y+1).
func (t ID) Children() [4]ID {
	x, y, z := t.X*2, t.Y*2, t.Z+1
	return [4]ID{
		{X: x, Y: y, Z: z},
		{X: x + 1, Y: y, Z: z},
		{X: x + 1, Y: y + 1, Z: z},
		{X: x, Y: y + 1, Z: z},
	}
}

// Quad returns the four tiles sharing the parent of t (t included).
func (t ID) Quad() [4]ID {
	if t.Z == 0 {
		return [4]ID{t, t, t, t}
	}
	return t.Parent().Children()
}

// MapTile converts the ID into an orb maptile.
func (t ID) MapTile() maptile.Tile {
	return maptile.New(t.X, t.Y, maptile.Zoom(t.Z))
}

func FromMapTile(mt maptile.Tile) ID {
	return ID{X: mt.X, Y: mt.Y, Z: uint32(mt.Z)}
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers, writes header and indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

// Location represents the absolute location of tile data inside a tileset file.
type Location struct {
	Offset uint64
	Length uint64
}

type LocationReader interface {
	ReadLocation(tileID ID) (Location, error)
}
