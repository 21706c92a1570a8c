package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration panics on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ID) ([]byte, error)

func (f ReaderFunc) ReadTile(tileID ID) ([]byte, error) {
	return f(tileID)
}

// MapReader serves tiles from memory. Missing tiles read as empty.
type MapReader map[ID][]byte

func (m MapReader) ReadTile(tileID ID) ([]byte, error) {
	if data, ok := m[tileID]; ok {
		return data, nil
	}
	return make([]byte, 0), nil
}

func (m MapReader) VisitTiles(visitor func(ID, []byte) error) error {
	for _, id := range NewSetFromMap(m).Sorted() {
		if err := visitor(id, m[id]); err != nil {
			return err
		}
	}
	return nil
}

func NewSetFromMap[V any](m map[ID]V) Set {
	s := make(Set, len(m))
	for id := range m {
		s.Add(id)
	}
	return s
}
