package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCommitSequentialVersions(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Commit(TableVersion{TableName: "users", Version: 1, ChunkHashes: []string{"a"}}))
	require.NoError(t, c.Commit(TableVersion{TableName: "users", Version: 2, ChunkHashes: []string{"b"}}))

	versions, err := c.ListVersions("users")
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2}, versions)
}

func TestCommitRejectsNonSequential(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Commit(TableVersion{TableName: "users", Version: 1, ChunkHashes: []string{"a"}}))
	err = c.Commit(TableVersion{TableName: "users", Version: 3, ChunkHashes: []string{"c"}})
	require.Error(t, err)
}

func TestGetVersionLatestDefault(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, c.Commit(TableVersion{TableName: "orders", Version: 1, ChunkHashes: []string{"a"}}))
	require.NoError(t, c.Commit(TableVersion{TableName: "orders", Version: 2, ChunkHashes: []string{"b"}}))

	tv, err := c.GetVersion("orders", nil)
	require.NoError(t, err)
	require.Equal(t, uint64(2), tv.Version)

	var want uint64 = 1
	tv, err = c.GetVersion("orders", &want)
	require.NoError(t, err)
	require.Equal(t, uint64(1), tv.Version)
}

func TestListTables(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, c.Commit(TableVersion{TableName: "a", Version: 1}))
	require.NoError(t, c.Commit(TableVersion{TableName: "b", Version: 1}))

	tables, err := c.ListTables()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, tables)
}

func TestGetVersionNotFound(t *testing.T) {
	c, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = c.GetVersion("missing", nil)
	require.Error(t, err)
}
