// Package merkle builds and diffs Merkle trees over large blobs for
// incremental deduplication (spec.md §4.2).
package merkle

import (
	"sort"

	"github.com/rhizodata/rhizo/common/hashing"
	"github.com/rhizodata/rhizo/common/rhizoerr"
)

// DataChunk is a Merkle leaf describing one contiguous slice of a logical
// blob.
type DataChunk struct {
	Hash       string
	ByteStart  int
	ByteEnd    int // exclusive
	Size       int
	Index      int
}

// Tree is a fixed-branching-factor Merkle tree over a blob's leaves.
type Tree struct {
	RootHash        string
	Chunks          []DataChunk
	InternalNodes   [][]string // InternalNodes[level][i], level 0 = just above the leaves
	TotalSize       int
	ChunkSize       int
	Height          int
	BranchingFactor int
}

// Config controls how a blob is split into leaves and folded upward.
type Config struct {
	ChunkSize      int
	BranchingFactor int
}

// BuildTree splits data into ChunkSize leaves (the last may be short),
// hashes each, and folds them bottom-up into internal nodes of at most
// BranchingFactor children each.
func BuildTree(data []byte, cfg Config) (*Tree, error) {
	if len(data) == 0 {
		return nil, rhizoerr.EmptyData()
	}
	if cfg.ChunkSize <= 0 {
		return nil, rhizoerr.InvalidChunkSize(cfg.ChunkSize)
	}
	branching := cfg.BranchingFactor
	if branching < 2 {
		branching = 2
	}

	var chunks []DataChunk
	for start, idx := 0, 0; start < len(data); start, idx = start+cfg.ChunkSize, idx+1 {
		end := start + cfg.ChunkSize
		if end > len(data) {
			end = len(data)
		}
		chunks = append(chunks, DataChunk{
			Hash:      hashing.Sum(data[start:end]),
			ByteStart: start,
			ByteEnd:   end,
			Size:      end - start,
			Index:     idx,
		})
	}

	tree := &Tree{
		Chunks:          chunks,
		TotalSize:       len(data),
		ChunkSize:       cfg.ChunkSize,
		BranchingFactor: branching,
	}

	if len(chunks) == 1 {
		tree.RootHash = chunks[0].Hash
		tree.Height = 1
		return tree, nil
	}

	level := make([]string, len(chunks))
	for i, c := range chunks {
		level[i] = c.Hash
	}

	height := 1
	for len(level) > 1 {
		next := foldLevel(level, branching)
		tree.InternalNodes = append(tree.InternalNodes, next)
		level = next
		height++
	}
	tree.RootHash = level[0]
	tree.Height = height
	return tree, nil
}

func foldLevel(level []string, branching int) []string {
	next := make([]string, 0, (len(level)+branching-1)/branching)
	for i := 0; i < len(level); i += branching {
		end := i + branching
		if end > len(level) {
			end = len(level)
		}
		next = append(next, hashing.SumConcatHex(level[i:end]))
	}
	return next
}

// Diff is the result of comparing an old and a new tree's leaf sets.
type Diff struct {
	Unchanged  []string
	Removed    []string
	Added      []string
	ReuseRatio float64
}

// DiffTrees computes chunk-level reuse between old and new by comparing
// their leaf hash sets.
func DiffTrees(oldTree, newTree *Tree) Diff {
	oldSet := leafSet(oldTree)
	newSet := leafSet(newTree)

	var unchanged, removed, added []string
	for h := range oldSet {
		if newSet[h] {
			unchanged = append(unchanged, h)
		} else {
			removed = append(removed, h)
		}
	}
	for h := range newSet {
		if !oldSet[h] {
			added = append(added, h)
		}
	}
	sort.Strings(unchanged)
	sort.Strings(removed)
	sort.Strings(added)

	ratio := 1.0
	if len(newSet) > 0 {
		ratio = float64(len(unchanged)) / float64(len(newSet))
	}

	return Diff{Unchanged: unchanged, Removed: removed, Added: added, ReuseRatio: ratio}
}

func leafSet(t *Tree) map[string]bool {
	set := make(map[string]bool, len(t.Chunks))
	for _, c := range t.Chunks {
		set[c.Hash] = true
	}
	return set
}

// FetchFunc retrieves the raw bytes backing a leaf, e.g. from a chunk store.
type FetchFunc func(hash string) ([]byte, error)

// VerifyTree rehashes every leaf from its fetched bytes and every internal
// node from its children, returning an IntegrityError on the first
// mismatch.
func VerifyTree(t *Tree, fetch FetchFunc) error {
	for _, c := range t.Chunks {
		data, err := fetch(c.Hash)
		if err != nil {
			return err
		}
		actual := hashing.Sum(data)
		if actual != c.Hash {
			return rhizoerr.IntegrityError(c.Hash, actual)
		}
	}

	if len(t.Chunks) == 1 {
		if t.Chunks[0].Hash != t.RootHash {
			return rhizoerr.IntegrityError(t.RootHash, t.Chunks[0].Hash)
		}
		return nil
	}

	level := make([]string, len(t.Chunks))
	for i, c := range t.Chunks {
		level[i] = c.Hash
	}
	branching := t.BranchingFactor
	if branching < 2 {
		branching = 2
	}
	for _, expectedLevel := range t.InternalNodes {
		computed := foldLevel(level, branching)
		for i := range computed {
			if computed[i] != expectedLevel[i] {
				return rhizoerr.IntegrityError(expectedLevel[i], computed[i])
			}
		}
		level = expectedLevel
	}
	if level[0] != t.RootHash {
		return rhizoerr.IntegrityError(t.RootHash, level[0])
	}
	return nil
}
