package pm

import (
	"bufio"
	"crypto/md5"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/eak1mov/go-vectiles/pm/format"
	"github.com/eak1mov/go-vectiles/tile"
)

var ErrFinalized = errors.New("vectiles: writer already finalized")

// Writer implements tile.Writer for PMTiles archives. Identical tiles are stored once.
type Writer struct {
	logger *slog.Logger
	file   *os.File
	header format.Header

	tileWriter *bufio.Writer
	tileOffset uint64

	entries  []format.Entry
	contents map[[md5.Size]byte]int // digest -> index of the first entry with that content
}

// NewWriter creates the archive. Tile data is streamed after a reserved block holding
// the header, the root directory and the metadata; directories are written by Finalize.
func NewWriter(filePath string, opts ...Option) (w *Writer, err error) {
	c := newConfig(opts)

	file, err := os.Create(filePath)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			file.Close()
		}
	}()

	header := format.Header{
		HeaderMagic:         format.HeaderMagicV3,
		Clustered:           true,
		InternalCompression: format.CompressionGzip,
	}
	c.HeaderMetadata.apply(&header)

	offset := uint64(format.HeaderRootDirMaxLength)
	if _, err = file.Seek(int64(offset), io.SeekStart); err != nil {
		return nil, err
	}

	if c.Metadata != nil {
		metadata, err := format.Compress(c.Metadata, header.InternalCompression)
		if err != nil {
			return nil, err
		}
		if _, err = file.Write(metadata); err != nil {
			return nil, err
		}
		header.MetadataOffset = offset
		header.MetadataLength = uint64(len(metadata))
		offset += header.MetadataLength
	}
	header.TileDataOffset = offset

	return &Writer{
		logger:     c.Logger,
		file:       file,
		header:     header,
		tileWriter: bufio.NewWriter(file),
		contents:   make(map[[md5.Size]byte]int),
	}, nil
}

func (w *Writer) WriteTile(tileID tile.ID, tileData []byte) error {
	if w.tileWriter == nil {
		return ErrFinalized
	}
	if len(tileData) == 0 {
		return nil
	}

	entry := format.Entry{
		TileCode:  format.EncodeTileID(tileID),
		Offset:    w.tileOffset,
		Length:    uint32(len(tileData)),
		RunLength: 1,
	}
	w.header.AddressedTilesCount++

	digest := md5.Sum(tileData)
	if idx, ok := w.contents[digest]; ok {
		entry.Offset = w.entries[idx].Offset
		w.entries = append(w.entries, entry)
		return nil
	}

	if _, err := w.tileWriter.Write(tileData); err != nil {
		return err
	}
	w.tileOffset += uint64(len(tileData))
	w.header.TileContentsCount++

	w.contents[digest] = len(w.entries)
	w.entries = append(w.entries, entry)
	return nil
}

// Finalize writes directories and the header, then closes the file.
func (w *Writer) Finalize() error {
	if w.tileWriter == nil {
		return ErrFinalized
	}
	if err := w.tileWriter.Flush(); err != nil {
		return err
	}
	w.tileWriter = nil
	w.header.TileDataLength = w.tileOffset

	format.SortEntries(w.entries)
	w.entries = format.CompactEntries(w.entries)
	w.header.TileEntriesCount = uint64(len(w.entries))
	w.logger.Debug("vectiles: pmtiles entries compacted", "entries", len(w.entries), "tiles", w.header.AddressedTilesCount)

	root, leaves, err := format.SerializeAll(w.entries, w.header.InternalCompression)
	if err != nil {
		return err
	}

	leavesOffset, err := w.file.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	if _, err := w.file.Write(leaves); err != nil {
		return err
	}
	w.header.LeafDirectoryOffset = uint64(leavesOffset)
	w.header.LeafDirectoryLength = uint64(len(leaves))
	w.header.RootOffset = format.RootDirOffset
	w.header.RootLength = uint64(len(root))

	if _, err := w.file.WriteAt(format.SerializeHeader(&w.header), 0); err != nil {
		return err
	}
	if _, err := w.file.WriteAt(root, format.RootDirOffset); err != nil {
		return err
	}

	err = w.file.Close()
	w.file = nil
	w.logger.Debug("vectiles: pmtiles archive written", "bytes", leavesOffset+int64(len(leaves)))
	return err
}

// Close releases the file of an unfinalized writer. It is a no-op after Finalize.
func (w *Writer) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
