package chunkstore

import (
	"os"

	"github.com/edsrzf/mmap-go"

	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// View is a read-only memory-mapped view over a chunk's bytes. The
// underlying file handle is kept open for the view's whole lifetime and is
// only closed by Close, which guarantees the mapping stays valid on every
// platform (some, notably Windows, invalidate a mapping the instant the
// backing handle closes).
type View struct {
	file *os.File
	data mmap.MMap
}

// Bytes returns the mapped chunk content. The slice is only valid until
// Close is called.
func (v *View) Bytes() []byte {
	return v.data
}

// Close unmaps the view and closes the backing file handle.
func (v *View) Close() error {
	var errs []error
	if err := v.data.Unmap(); err != nil {
		errs = append(errs, err)
	}
	if err := v.file.Close(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return rhizoerr.IO("close mmap view", errs[0])
	}
	return nil
}

// Mmap opens a memory-mapped, read-only view of the chunk identified by
// hash.
func (s *Store) Mmap(hash string) (*View, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	path := s.chunkPath(hash)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rhizoerr.ChunkNotFound(hash)
		}
		return nil, rhizoerr.IO("open chunk for mmap", err)
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		_ = f.Close()
		return nil, rhizoerr.IO("mmap chunk", err)
	}
	return &View{file: f, data: data}, nil
}
