package tile

import (
	"iter"
	"maps"
	"slices"
)

// Set is an unordered set of tile IDs.
type Set map[ID]struct{}

func NewSet(ids ...ID) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Set) Add(id ID) {
	s[id] = struct{}{}
}

func (s Set) Contains(id ID) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members ordered by ID.Compare.
func (s Set) Sorted() []ID {
	return slices.SortedFunc(maps.Keys(s), ID.Compare)
}

func (s Set) All() iter.Seq[ID] {
	return maps.Keys(s)
}
