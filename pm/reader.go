package pm

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/eak1mov/go-vectiles/pm/format"
	"github.com/eak1mov/go-vectiles/tile"
)

// Reader is a PMTiles archive reader. Implementations are safe for concurrent use.
type Reader interface {
	io.Closer
	tile.Reader
	tile.Visitor
	tile.LocationReader

	HeaderMetadata() HeaderMetadata
	ReadMetadata() ([]byte, error)
}

// FileAccessFunc returns length bytes of the archive starting at offset.
type FileAccessFunc = func(offset, length uint64) ([]byte, error)

type reader struct {
	fileAccess FileAccessFunc
	fileCloser func() error
	header     *format.Header
	root       []format.Entry
	logger     *slog.Logger

	dirCacheSize int
	dirCacheMu   sync.Mutex
	dirCache     map[uint64][]format.Entry
}

// NewFileReader opens a PMTiles archive and reads it with positioned file reads.
func NewFileReader(filePath string, opts ...Option) (Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	fileAccess := func(offset, length uint64) ([]byte, error) {
		buffer := make([]byte, length)
		if _, err := file.ReadAt(buffer, int64(offset)); err != nil {
			return nil, err
		}
		return buffer, nil
	}
	r, err := newReader(fileAccess, file.Close, opts)
	if err != nil {
		return nil, errors.Join(err, file.Close())
	}
	return r, nil
}

// NewReader reads an archive through an arbitrary access function (e.g. HTTP range requests).
func NewReader(fileAccess FileAccessFunc, opts ...Option) (Reader, error) {
	return newReader(fileAccess, func() error { return nil }, opts)
}

func newReader(fileAccess FileAccessFunc, fileCloser func() error, opts []Option) (*reader, error) {
	c := newConfig(opts)

	headerData, err := fileAccess(0, format.HeaderLength)
	if err != nil {
		return nil, err
	}
	header, err := format.DeserializeHeader(headerData)
	if err != nil {
		return nil, err
	}
	if header.TileType != format.TileTypeMvt && header.TileType != format.TileTypeUnknown {
		c.Logger.Warn("vectiles: pmtiles archive does not hold vector tiles", "type", header.TileType)
	}

	r := &reader{
		fileAccess:   fileAccess,
		fileCloser:   fileCloser,
		header:       header,
		logger:       c.Logger,
		dirCacheSize: c.DirCacheSize,
		dirCache:     make(map[uint64][]format.Entry),
	}
	if r.root, err = r.readDirectory(header.RootOffset, header.RootLength); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *reader) Close() error {
	return r.fileCloser()
}

func (r *reader) HeaderMetadata() HeaderMetadata {
	return headerMetadata(r.header)
}

func (r *reader) ReadMetadata() ([]byte, error) {
	data, err := r.fileAccess(r.header.MetadataOffset, r.header.MetadataLength)
	if err != nil {
		return nil, err
	}
	return format.Decompress(data, r.header.InternalCompression)
}

func (r *reader) readDirectory(offset, length uint64) ([]format.Entry, error) {
	compressed, err := r.fileAccess(offset, length)
	if err != nil {
		return nil, err
	}
	data, err := format.Decompress(compressed, r.header.InternalCompression)
	if err != nil {
		return nil, err
	}
	return format.DeserializeDirectory(data)
}

// leafDirectory returns a decoded leaf directory, consulting the cache.
func (r *reader) leafDirectory(offset, length uint64) ([]format.Entry, error) {
	if r.dirCacheSize <= 0 {
		return r.readDirectory(offset, length)
	}

	r.dirCacheMu.Lock()
	entries, ok := r.dirCache[offset]
	r.dirCacheMu.Unlock()
	if ok {
		return entries, nil
	}

	entries, err := r.readDirectory(offset, length)
	if err != nil {
		return nil, err
	}

	r.dirCacheMu.Lock()
	defer r.dirCacheMu.Unlock()
	if len(r.dirCache) >= r.dirCacheSize {
		r.logger.Debug("vectiles: pmtiles directory cache reset", "size", len(r.dirCache))
		clear(r.dirCache)
	}
	r.dirCache[offset] = entries
	return entries, nil
}

// ReadLocation returns a zero Location when the tile is not in the archive.
func (r *reader) ReadLocation(tileID tile.ID) (tile.Location, error) {
	tileCode := format.EncodeTileID(tileID)
	entries := r.root
	// The format allows at most three levels of leaves below the root.
	for range 4 {
		entry, found := format.FindEntry(entries, tileCode)
		if !found {
			return tile.Location{}, nil
		}
		if !entry.IsLeaf() {
			return tile.Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}, nil
		}
		var err error
		entries, err = r.leafDirectory(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length))
		if err != nil {
			return tile.Location{}, err
		}
	}
	return tile.Location{}, fmt.Errorf("%w: directory nesting too deep", format.ErrInvalidDirectory)
}

func (r *reader) ReadTile(tileID tile.ID) ([]byte, error) {
	location, err := r.ReadLocation(tileID)
	if err != nil {
		return nil, err
	}
	if location.Length == 0 {
		return make([]byte, 0), nil
	}
	return r.fileAccess(location.Offset, location.Length)
}

func (r *reader) visitLocations(visitor func(tile.ID, tile.Location) error) error {
	var traverse func(offset, length uint64) error
	traverse = func(offset, length uint64) error {
		entries, err := r.readDirectory(offset, length)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if entry.IsLeaf() {
				if err := traverse(r.header.LeafDirectoryOffset+entry.Offset, uint64(entry.Length)); err != nil {
					return err
				}
				continue
			}
			location := tile.Location{
				Offset: r.header.TileDataOffset + entry.Offset,
				Length: uint64(entry.Length),
			}
			for i := range uint64(entry.RunLength) {
				if err := visitor(format.DecodeTileID(entry.TileCode+i), location); err != nil {
					return err
				}
			}
		}
		return nil
	}
	return traverse(r.header.RootOffset, r.header.RootLength)
}

// VisitTiles visits tiles in tile code (hilbert) order.
func (r *reader) VisitTiles(visitor func(tile.ID, []byte) error) error {
	return r.visitLocations(func(tileID tile.ID, location tile.Location) error {
		tileData, err := r.fileAccess(location.Offset, location.Length)
		if err != nil {
			return err
		}
		return visitor(tileID, tileData)
	})
}
