package merkle

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizodata/rhizo/common/hashing"
)

func TestBuildTreeSingleChunk(t *testing.T) {
	tr, err := BuildTree([]byte("small"), Config{ChunkSize: 1024, BranchingFactor: 4})
	require.NoError(t, err)
	require.Equal(t, 1, tr.Height)
	require.Equal(t, hashing.Sum([]byte("small")), tr.RootHash)
}

func TestBuildTreeRejectsEmpty(t *testing.T) {
	_, err := BuildTree(nil, Config{ChunkSize: 1024, BranchingFactor: 4})
	require.Error(t, err)
}

func TestBuildTreeRejectsZeroChunkSize(t *testing.T) {
	_, err := BuildTree([]byte("x"), Config{ChunkSize: 0, BranchingFactor: 4})
	require.Error(t, err)
}

func TestBuildTreeDeterministic(t *testing.T) {
	data := bytes.Repeat([]byte{0x42}, 10000)
	t1, err := BuildTree(data, Config{ChunkSize: 1024, BranchingFactor: 4})
	require.NoError(t, err)
	t2, err := BuildTree(data, Config{ChunkSize: 1024, BranchingFactor: 4})
	require.NoError(t, err)
	require.Equal(t, t1.RootHash, t2.RootHash)
}

func TestBuildTreeLeavesRehash(t *testing.T) {
	data := bytes.Repeat([]byte{0x07}, 4096+37)
	tr, err := BuildTree(data, Config{ChunkSize: 1024, BranchingFactor: 3})
	require.NoError(t, err)
	for _, c := range tr.Chunks {
		require.Equal(t, c.Hash, hashing.Sum(data[c.ByteStart:c.ByteEnd]))
	}
	require.Equal(t, len(data), tr.Chunks[len(tr.Chunks)-1].ByteEnd)
}

func TestVerifyTree(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 4*1024)
	tr, err := BuildTree(data, Config{ChunkSize: 1024, BranchingFactor: 2})
	require.NoError(t, err)

	fetch := func(hash string) ([]byte, error) {
		for _, c := range tr.Chunks {
			if c.Hash == hash {
				return data[c.ByteStart:c.ByteEnd], nil
			}
		}
		return nil, nil
	}
	require.NoError(t, VerifyTree(tr, fetch))
}

func TestVerifyTreeDetectsCorruption(t *testing.T) {
	data := bytes.Repeat([]byte{0x01}, 4*1024)
	tr, err := BuildTree(data, Config{ChunkSize: 1024, BranchingFactor: 2})
	require.NoError(t, err)

	fetch := func(hash string) ([]byte, error) {
		return []byte("wrong content"), nil
	}
	require.Error(t, VerifyTree(tr, fetch))
}

func TestDiffTreesOneChunkChanged(t *testing.T) {
	old := make([]byte, 4*1024)
	for i := range old {
		old[i] = byte(i / 1024)
	}
	newData := make([]byte, len(old))
	copy(newData, old)
	for i := 3 * 1024; i < len(newData); i++ {
		newData[i] = 0xBB
	}

	oldTree, err := BuildTree(old, Config{ChunkSize: 1024, BranchingFactor: 4})
	require.NoError(t, err)
	newTree, err := BuildTree(newData, Config{ChunkSize: 1024, BranchingFactor: 4})
	require.NoError(t, err)

	diff := DiffTrees(oldTree, newTree)
	require.Len(t, diff.Unchanged, 3)
	require.Len(t, diff.Added, 1)
	require.Len(t, diff.Removed, 1)
	require.InDelta(t, 0.75, diff.ReuseRatio, 1e-9)
}

func TestDiffTreesPartitionCoversBothSides(t *testing.T) {
	a, err := BuildTree([]byte("aaaaaaaaaa"), Config{ChunkSize: 3, BranchingFactor: 2})
	require.NoError(t, err)
	b, err := BuildTree([]byte("aaabbbbbbb"), Config{ChunkSize: 3, BranchingFactor: 2})
	require.NoError(t, err)

	diff := DiffTrees(a, b)

	aLeaves := leafSet(a)
	bLeaves := leafSet(b)

	union := map[string]bool{}
	for _, h := range diff.Unchanged {
		union[h] = true
	}
	for _, h := range diff.Removed {
		union[h] = true
	}
	require.Equal(t, len(aLeaves), len(union))

	union2 := map[string]bool{}
	for _, h := range diff.Unchanged {
		union2[h] = true
	}
	for _, h := range diff.Added {
		union2[h] = true
	}
	require.Equal(t, len(bLeaves), len(union2))
}
