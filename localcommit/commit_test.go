package localcommit

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/vectorclock"
)

func TestCanCommitLocallyRejectsNonAlgebraic(t *testing.T) {
	tx := Transaction{Ops: []Operation{{Key: "k", OpType: algebra.GenericOverwrite, Value: algebra.Int(1)}}}
	require.False(t, tx.CanCommitLocally())

	_, err := CommitLocal(tx, "n1", vectorclock.New())
	require.Error(t, err)
}

func TestCanCommitLocallyRejectsEmpty(t *testing.T) {
	tx := Transaction{}
	require.False(t, tx.CanCommitLocally())
}

func TestCommitLocalTicksClock(t *testing.T) {
	tx := Transaction{Ops: []Operation{{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(10)}}}
	update, err := CommitLocal(tx, "n1", vectorclock.New())
	require.NoError(t, err)
	require.Equal(t, uint64(1), update.Clock.At("n1"))
	require.Equal(t, "n1", update.Origin)
	require.NotEmpty(t, update.UpdateID)
}

func TestMergeUpdatesFoldsSameKey(t *testing.T) {
	u1 := VersionedUpdate{
		Operations: []Operation{{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(10)}},
		Clock:      vectorclock.FromMap(map[string]uint64{"n1": 1}),
		Origin:     "n1",
	}
	u2 := VersionedUpdate{
		Operations: []Operation{{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(20)}},
		Clock:      vectorclock.FromMap(map[string]uint64{"n2": 1}),
		Origin:     "n2",
	}

	merged, err := MergeUpdates(u1, u2)
	require.NoError(t, err)
	require.Len(t, merged.Operations, 1)
	require.True(t, merged.Operations[0].Value.Equal(algebra.Int(30)))
	require.Equal(t, "n1", merged.Origin)
	require.Equal(t, uint64(1), merged.Clock.At("n1"))
	require.Equal(t, uint64(1), merged.Clock.At("n2"))
}

func TestMergeUpdatesRejectsMixedOpTypes(t *testing.T) {
	u1 := VersionedUpdate{Operations: []Operation{{Key: "k", OpType: algebra.AbelianAdd, Value: algebra.Int(1)}}}
	u2 := VersionedUpdate{Operations: []Operation{{Key: "k", OpType: algebra.SemilatticeMax, Value: algebra.Int(1)}}}
	_, err := MergeUpdates(u1, u2)
	require.Error(t, err)
}

func TestMergeAllFiveNodesConverge(t *testing.T) {
	var updates []VersionedUpdate
	for i := 1; i <= 5; i++ {
		tx := Transaction{Ops: []Operation{{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(int64(i * 10))}}}
		u, err := CommitLocal(tx, "n", vectorclock.New())
		require.NoError(t, err)
		updates = append(updates, u)
	}
	merged, err := MergeAll(updates)
	require.NoError(t, err)
	require.True(t, merged.Operations[0].Value.Equal(algebra.Int(150)))
}

func TestMergeAllEmptyFails(t *testing.T) {
	_, err := MergeAll(nil)
	require.Error(t, err)
}
