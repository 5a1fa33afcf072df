// Package chunkstore implements the immutable, content-addressed chunk
// store of spec.md §4.1: put/get/get_verified/exists/delete/mmap, parallel
// batch variants, and orphaned-temp-file cleanup, laid out on disk exactly
// per spec.md §6 so other implementations of the same layout interoperate.
package chunkstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/rhizodata/rhizo/common/hashing"
	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

const chunksDirName = "chunks"

// Store is a filesystem-backed, content-addressed chunk store.
type Store struct {
	root        string
	logger      logging.Logger
	concurrency int

	idx *digestIndex
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithLogger attaches a named logger (see common/logging).
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = logging.Named(l, "chunkstore") }
}

// WithConcurrency bounds the worker pool used by batch operations.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// New opens (creating if necessary) a chunk store rooted at root.
func New(root string, opts ...Option) (*Store, error) {
	s := &Store{
		root:        root,
		logger:      logging.Nop(),
		concurrency: 8,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(root, chunksDirName), 0o755); err != nil {
		return nil, rhizoerr.IO("mkdir chunks root", err)
	}
	idx, err := newDigestIndex()
	if err != nil {
		return nil, rhizoerr.IO("open digest index", err)
	}
	s.idx = idx
	if err := s.RebuildIndex(); err != nil {
		_ = idx.close()
		return nil, err
	}
	return s, nil
}

// Close releases the in-memory digest index. It does not touch on-disk
// chunk data.
func (s *Store) Close() error {
	return s.idx.close()
}

// chunkPath reproduces spec.md §6's derivation exactly:
// chunks/ + hash[0:2] + / + hash[2:4] + / + hash
func (s *Store) chunkPath(hash string) string {
	return filepath.Join(s.root, chunksDirName, hash[0:2], hash[2:4], hash)
}

func validateHash(hash string) error {
	if len(hash) != hashing.HexLen || !hashing.Valid(hash) {
		return rhizoerr.InvalidHash(hash)
	}
	return nil
}

// Put writes data, returning its content hash. Dedup: if the destination
// already holds byte-identical content (another writer raced us, or we've
// seen this exact blob before), this is not an error (spec.md §7).
func (s *Store) Put(data []byte) (string, error) {
	hash := hashing.Sum(data)
	path := s.chunkPath(hash)

	if s.idx.exists(hash) {
		return hash, nil
	}
	if _, err := os.Stat(path); err == nil {
		s.idx.put(hash, int64(len(data))) //nolint:errcheck
		return hash, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", rhizoerr.IO("mkdir chunk dir", err)
	}

	tmpPath := fmt.Sprintf("%s.%s.tmp", path, uuid.NewString())
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return "", rhizoerr.IO("write temp chunk", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		// Another writer may have produced byte-identical content and won
		// the race; if the final path now exists, treat this as success.
		if _, statErr := os.Stat(path); statErr == nil {
			if rmErr := os.Remove(tmpPath); rmErr != nil {
				s.logger.Warn("failed to remove temp file after race", "path", tmpPath, "error", rmErr)
			}
			s.idx.put(hash, int64(len(data))) //nolint:errcheck
			return hash, nil
		}
		if rmErr := os.Remove(tmpPath); rmErr != nil {
			s.logger.Warn("failed to remove temp file after rename failure", "path", tmpPath, "error", rmErr)
		}
		return "", rhizoerr.IO("rename chunk into place", err)
	}

	s.idx.put(hash, int64(len(data))) //nolint:errcheck
	return hash, nil
}

// Get reads the chunk identified by hash.
func (s *Store) Get(hash string) ([]byte, error) {
	if err := validateHash(hash); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.chunkPath(hash))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, rhizoerr.ChunkNotFound(hash)
		}
		return nil, rhizoerr.IO("read chunk", err)
	}
	return data, nil
}

// GetVerified reads the chunk and rehashes it, failing with HashMismatch if
// the on-disk content no longer matches its name (integrity violation —
// spec.md invariant 2).
func (s *Store) GetVerified(hash string) ([]byte, error) {
	data, err := s.Get(hash)
	if err != nil {
		return nil, err
	}
	actual := hashing.Sum(data)
	if actual != hash {
		return nil, rhizoerr.HashMismatch(hash, actual)
	}
	return data, nil
}

// Exists reports whether hash is present, consulting the in-memory index
// first and falling back to a stat(2).
func (s *Store) Exists(hash string) (bool, error) {
	if err := validateHash(hash); err != nil {
		return false, err
	}
	if s.idx.exists(hash) {
		return true, nil
	}
	if _, err := os.Stat(s.chunkPath(hash)); err == nil {
		return true, nil
	} else if !os.IsNotExist(err) {
		return false, rhizoerr.IO("stat chunk", err)
	}
	return false, nil
}

// Delete removes a chunk. Deleting a missing hash is not an error.
func (s *Store) Delete(hash string) error {
	if err := validateHash(hash); err != nil {
		return err
	}
	err := os.Remove(s.chunkPath(hash))
	if err != nil && !os.IsNotExist(err) {
		return rhizoerr.IO("remove chunk", err)
	}
	_ = s.idx.delete(hash)
	return nil
}

// PutBatch parallelizes Put across data across the store's worker pool.
func (s *Store) PutBatch(datas [][]byte) ([]string, error) {
	hashes := make([]string, len(datas))
	errs := make([]error, len(datas))
	s.parallelFor(len(datas), func(i int) {
		h, err := s.Put(datas[i])
		hashes[i] = h
		errs[i] = err
	})
	return hashes, combineErrors(errs)
}

// GetBatch parallelizes Get across hashes.
func (s *Store) GetBatch(hashes []string) ([][]byte, error) {
	out := make([][]byte, len(hashes))
	errs := make([]error, len(hashes))
	s.parallelFor(len(hashes), func(i int) {
		d, err := s.Get(hashes[i])
		out[i] = d
		errs[i] = err
	})
	return out, combineErrors(errs)
}

// ExistsBatch parallelizes Exists across hashes.
func (s *Store) ExistsBatch(hashes []string) ([]bool, error) {
	out := make([]bool, len(hashes))
	errs := make([]error, len(hashes))
	s.parallelFor(len(hashes), func(i int) {
		e, err := s.Exists(hashes[i])
		out[i] = e
		errs[i] = err
	})
	return out, combineErrors(errs)
}

func combineErrors(errs []error) error {
	var merr *multierror.Error
	for _, e := range errs {
		if e != nil {
			merr = multierror.Append(merr, e)
		}
	}
	if merr == nil {
		return nil
	}
	return merr
}

// parallelFor runs fn(i) for i in [0,n) across s.concurrency workers.
func (s *Store) parallelFor(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	workers := s.concurrency
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	var wg sync.WaitGroup
	sem := make(chan struct{}, workers)
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			fn(i)
		}()
	}
	wg.Wait()
}

// RebuildIndex walks chunks/ and repopulates the in-memory digest index.
// Called on construction and safe to call again after out-of-band changes
// to the on-disk tree.
func (s *Store) RebuildIndex() error {
	root := filepath.Join(s.root, chunksDirName)
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return rhizoerr.IO("walk chunks", err)
		}
		if info.IsDir() {
			return nil
		}
		name := filepath.Base(path)
		if len(name) == hashing.HexLen && hashing.Valid(name) {
			s.idx.put(name, info.Size()) //nolint:errcheck
		}
		return nil
	})
}

// CleanupOrphanedTempFiles removes leftover "<hash>.<uuid>.tmp" files from
// crashed writers, returning counts of removed and failed-to-remove files.
func (s *Store) CleanupOrphanedTempFiles() (removed int, failed int, err error) {
	root := filepath.Join(s.root, chunksDirName)
	walkErr := filepath.Walk(root, func(path string, info os.FileInfo, werr error) error {
		if werr != nil {
			if os.IsNotExist(werr) {
				return nil
			}
			return werr
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".tmp" {
			if rmErr := os.Remove(path); rmErr != nil {
				failed++
				s.logger.Warn("failed to remove orphaned temp file", "path", path, "error", rmErr)
			} else {
				removed++
			}
		}
		return nil
	})
	if walkErr != nil {
		return removed, failed, rhizoerr.IO("walk chunks for cleanup", walkErr)
	}
	return removed, failed, nil
}
