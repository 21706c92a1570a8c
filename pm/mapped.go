package pm

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tysonmote/gommap"
)

// NewMappedReader memory-maps the archive. Tile and directory reads are served
// from the mapping without system calls; returned slices are copies.
func NewMappedReader(filePath string, opts ...Option) (Reader, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	mapping, err := gommap.Map(file.Fd(), gommap.PROT_READ, gommap.MAP_PRIVATE)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("mmap %s: %w", filePath, err), file.Close())
	}

	fileAccess := func(offset, length uint64) ([]byte, error) {
		if offset > uint64(len(mapping)) || length > uint64(len(mapping))-offset {
			return nil, fmt.Errorf("read [%d, +%d) beyond %d bytes: %w", offset, length, len(mapping), io.ErrUnexpectedEOF)
		}
		return append([]byte(nil), mapping[offset:offset+length]...), nil
	}
	closer := func() error {
		return errors.Join(mapping.UnsafeUnmap(), file.Close())
	}

	r, err := newReader(fileAccess, closer, opts)
	if err != nil {
		return nil, errors.Join(err, closer())
	}
	return r, nil
}
