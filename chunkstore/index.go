package chunkstore

import (
	"encoding/binary"

	"github.com/dgraph-io/badger/v2"
)

// digestIndex is an in-memory accelerator over the filesystem's real state:
// a badger instance (configured WithInMemory) mapping hash -> size so that
// Exists/ExistsBatch avoid a stat(2) round-trip under high write
// concurrency. The filesystem remains the single source of truth; a missing
// index entry only costs Exists and Put a stat(2) fallback, and
// Get/GetVerified never consult it at all. A stale entry, left when a chunk
// file is removed other than through Store.Delete, makes Exists report the
// chunk as present and Put return its hash without rewriting it; Store.New
// builds a fresh index by walking chunks/ (RebuildIndex), which drops such
// entries.
type digestIndex struct {
	db *badger.DB
}

func newDigestIndex() (*digestIndex, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &digestIndex{db: db}, nil
}

func (d *digestIndex) put(hash string, size int64) error {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(size))
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(hash), buf[:])
	})
}

func (d *digestIndex) exists(hash string) bool {
	found := false
	_ = d.db.View(func(txn *badger.Txn) error {
		if _, err := txn.Get([]byte(hash)); err == nil {
			found = true
		}
		return nil
	})
	return found
}

func (d *digestIndex) delete(hash string) error {
	return d.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(hash))
	})
}

func (d *digestIndex) close() error {
	return d.db.Close()
}
