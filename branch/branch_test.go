package branch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewCreatesDefaultBranch(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	b, err := m.Get(DefaultBranch)
	require.NoError(t, err)
	require.Equal(t, DefaultBranch, b.Name)
	require.Empty(t, b.Head)
}

func TestCreateCopiesParentHead(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "orders", 3))

	main := DefaultBranch
	require.NoError(t, m.Create("feature/x", &main, nil))

	b, err := m.Get("feature/x")
	require.NoError(t, err)
	require.Equal(t, uint64(3), b.Head["orders"])
	require.Equal(t, DefaultBranch, *b.ParentBranch)
}

func TestCreateRejectsDuplicate(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	err = m.Create(DefaultBranch, nil, nil)
	require.Error(t, err)
}

func TestCreateRejectsInvalidNames(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)

	for _, bad := range []string{"", "_hidden", "a//b", "bad name", "a/_b"} {
		err := m.Create(bad, nil, nil)
		require.Errorf(t, err, "expected %q to be rejected", bad)
	}

	require.NoError(t, m.Create("feature/nested-name_1", nil, nil))
}

func TestDeleteRejectsDefaultBranch(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	err = m.Delete(DefaultBranch)
	require.Error(t, err)
}

func TestDeleteRemovesBranch(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.Create("tmp", nil, nil))
	require.NoError(t, m.Delete("tmp"))

	_, err = m.Get("tmp")
	require.Error(t, err)
}

func TestUpdateHeadPersists(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "users", 5))

	b, err := m.Get(DefaultBranch)
	require.NoError(t, err)
	require.Equal(t, uint64(5), b.Head["users"])
}

func TestListSortsNames(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.Create("zeta", nil, nil))
	require.NoError(t, m.Create("alpha", nil, nil))

	names, err := m.List()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", DefaultBranch, "zeta"}, names)
}

func TestDiffClassifiesTables(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "users", 1))
	require.NoError(t, m.UpdateHead(DefaultBranch, "orders", 1))

	main := DefaultBranch
	require.NoError(t, m.Create("feature", &main, nil))
	require.NoError(t, m.UpdateHead("feature", "orders", 2))
	require.NoError(t, m.UpdateHead("feature", "carts", 1))
	require.NoError(t, m.UpdateHead(DefaultBranch, "invoices", 1))

	d, err := m.Diff("feature", DefaultBranch)
	require.NoError(t, err)
	require.Equal(t, []string{"users"}, d.Unchanged)
	require.Len(t, d.Modified, 1)
	require.Equal(t, "orders", d.Modified[0].Table)
	require.True(t, d.HasConflicts)
	require.Equal(t, "carts", d.AddedInSource[0].Table)
	require.Equal(t, "invoices", d.AddedInTarget[0].Table)
}

func TestCanFastForwardTrueWithoutOverlap(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "users", 1))

	main := DefaultBranch
	require.NoError(t, m.Create("feature", &main, nil))
	require.NoError(t, m.UpdateHead("feature", "carts", 1))

	ok, err := m.CanFastForward("feature", DefaultBranch)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMergeFastForwardAppliesHeads(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "users", 1))

	main := DefaultBranch
	require.NoError(t, m.Create("feature", &main, nil))
	require.NoError(t, m.UpdateHead("feature", "carts", 1))

	require.NoError(t, m.MergeFastForward("feature", DefaultBranch))

	b, err := m.Get(DefaultBranch)
	require.NoError(t, err)
	require.Equal(t, uint64(1), b.Head["carts"])
	require.Equal(t, uint64(1), b.Head["users"])
}

func TestMergeFastForwardRejectsConflict(t *testing.T) {
	m, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, m.UpdateHead(DefaultBranch, "orders", 1))

	main := DefaultBranch
	require.NoError(t, m.Create("feature", &main, nil))
	require.NoError(t, m.UpdateHead("feature", "orders", 2))
	require.NoError(t, m.UpdateHead(DefaultBranch, "orders", 5))

	err = m.MergeFastForward("feature", DefaultBranch)
	require.Error(t, err)
}
