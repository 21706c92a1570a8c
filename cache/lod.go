package cache

import (
	"iter"

	"github.com/eak1mov/go-vectiles/tile"
)

// StaleTiles returns the resident tiles an update cycle evicts before it
// inserts anything: tiles at the previous level outside previous, and tiles
// at any other level outside required.
func StaleTiles(resident iter.Seq[tile.ID], required, previous tile.Set, previousZ uint32) []tile.ID {
	var stale []tile.ID
	for id := range resident {
		if id.Z == previousZ {
			if !previous.Contains(id) {
				stale = append(stale, id)
			}
		} else if !required.Contains(id) {
			stale = append(stale, id)
		}
	}
	return stale
}

// SupersededParent returns the parent of id when each of the four tiles
// sharing that parent is resident or not required.
func SupersededParent(id tile.ID, required tile.Set, resident func(tile.ID) bool) (tile.ID, bool) {
	if id.Z == 0 {
		return tile.ID{}, false
	}
	for _, sibling := range id.Quad() {
		if required.Contains(sibling) && !resident(sibling) {
			return tile.ID{}, false
		}
	}
	return id.Parent(), true
}

// StaleChildren returns the finer tiles an inserted tile supersedes.
func StaleChildren(id tile.ID) [4]tile.ID {
	return id.Children()
}
