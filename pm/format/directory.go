package format

import (
	"bytes"
	"cmp"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"slices"
)

var ErrInvalidDirectory = errors.New("vectiles: invalid pmtiles directory")

// Entry is a directory entry. RunLength == 0 marks a pointer to a leaf directory.
type Entry struct {
	TileCode  uint64
	Offset    uint64
	Length    uint32
	RunLength uint32
}

func (e Entry) IsLeaf() bool {
	return e.RunLength == 0
}

// SerializeDirectory writes entries column by column: count, tile code deltas,
// run lengths, lengths, offsets (0 meaning "directly after the previous entry").
func SerializeDirectory(entries []Entry) []byte {
	buffer := binary.AppendUvarint(nil, uint64(len(entries)))

	lastCode := uint64(0)
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, entry.TileCode-lastCode)
		lastCode = entry.TileCode
	}
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, uint64(entry.RunLength))
	}
	for _, entry := range entries {
		buffer = binary.AppendUvarint(buffer, uint64(entry.Length))
	}
	for i, entry := range entries {
		if i > 0 && entry.Offset == entries[i-1].Offset+uint64(entries[i-1].Length) {
			buffer = binary.AppendUvarint(buffer, 0)
		} else {
			buffer = binary.AppendUvarint(buffer, entry.Offset+1)
		}
	}
	return buffer
}

func DeserializeDirectory(data []byte) ([]Entry, error) {
	r := bytes.NewReader(data)

	var err error
	next := func() uint64 {
		if err != nil {
			return 0
		}
		var value uint64
		value, err = binary.ReadUvarint(r)
		return value
	}

	count := next()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	// Every entry occupies at least four bytes.
	if count > uint64(len(data))/4 {
		return nil, fmt.Errorf("%w: %d entries in %d bytes", ErrInvalidDirectory, count, len(data))
	}
	entries := make([]Entry, count)

	lastCode := uint64(0)
	for i := range entries {
		lastCode += next()
		entries[i].TileCode = lastCode
	}
	for i := range entries {
		entries[i].RunLength = uint32(next())
	}
	for i := range entries {
		entries[i].Length = uint32(next())
	}
	for i := range entries {
		value := next()
		if value == 0 && i > 0 {
			entries[i].Offset = entries[i-1].Offset + uint64(entries[i-1].Length)
		} else {
			entries[i].Offset = value - 1
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDirectory, err)
	}
	return entries, nil
}

// CompactEntries merges consecutive entries pointing at the same data into runs.
// Entries must be sorted by tile code.
func CompactEntries(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	last := 0
	for _, entry := range entries[1:] {
		run := &entries[last]
		if entry.Offset == run.Offset && entry.TileCode == run.TileCode+uint64(run.RunLength) {
			run.RunLength++
			continue
		}
		last++
		entries[last] = entry
	}
	return entries[:last+1]
}

func SortEntries(entries []Entry) {
	slices.SortFunc(entries, func(a, b Entry) int {
		return cmp.Compare(a.TileCode, b.TileCode)
	})
}

// FindEntry returns the entry holding tileCode, or the leaf pointer whose range may hold it.
func FindEntry(entries []Entry, tileCode uint64) (Entry, bool) {
	idx, _ := slices.BinarySearchFunc(entries, tileCode+1, func(e Entry, code uint64) int {
		return cmp.Compare(e.TileCode, code)
	})
	if idx == 0 {
		return Entry{}, false
	}
	entry := entries[idx-1]
	if entry.IsLeaf() || tileCode < entry.TileCode+uint64(entry.RunLength) {
		return entry, true
	}
	return Entry{}, false
}

// SerializeAll builds the root directory and, when the root would not fit into the
// header block, a set of leaf directories.
func SerializeAll(entries []Entry, compression Compression) (root []byte, leaves []byte, err error) {
	root, err = Compress(SerializeDirectory(entries), compression)
	if err != nil || len(entries) == 0 || len(root) <= RootDirMaxLength {
		return root, nil, err
	}

	entriesCount := float64(len(entries))
	entrySize := float64(len(root)) / entriesCount
	maxRootEntries := float64(RootDirMaxLength) * 0.9 / entrySize
	leafSize := max(entriesCount/maxRootEntries, 4096, math.Sqrt(entriesCount))

	for len(root) > RootDirMaxLength {
		rootEntries := make([]Entry, 0)
		leaves = leaves[:0]

		for chunk := range slices.Chunk(entries, int(leafSize)) {
			leaf, err := Compress(SerializeDirectory(chunk), compression)
			if err != nil {
				return nil, nil, err
			}
			rootEntries = append(rootEntries, Entry{
				TileCode: chunk[0].TileCode,
				Offset:   uint64(len(leaves)),
				Length:   uint32(len(leaf)),
			})
			leaves = append(leaves, leaf...)
		}

		root, err = Compress(SerializeDirectory(rootEntries), compression)
		if err != nil {
			return nil, nil, err
		}
		leafSize *= 1.1
	}
	return root, leaves, nil
}
