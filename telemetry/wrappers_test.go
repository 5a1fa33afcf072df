package telemetry

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/rhizodata/rhizo/branch"
	"github.com/rhizodata/rhizo/catalog"
	"github.com/rhizodata/rhizo/chunkstore"
	"github.com/rhizodata/rhizo/localcommit"
	"github.com/rhizodata/rhizo/txn"
)

func TestRegisterIsIdempotent(t *testing.T) {
	require.NotPanics(t, func() {
		Register()
		Register()
	})
}

func TestMeteredChunkStoreCountsPutsAndGets(t *testing.T) {
	store, err := chunkstore.New(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	metered := NewMeteredChunkStore(store)

	before := testutil.ToFloat64(chunkPuts)
	hash, err := metered.Put([]byte("payload"))
	require.NoError(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(chunkPuts))

	beforeGets := testutil.ToFloat64(chunkGets)
	_, err = metered.Get(hash)
	require.NoError(t, err)
	require.Equal(t, beforeGets+1, testutil.ToFloat64(chunkGets))
}

func TestMeteredTxnManagerCountsCommits(t *testing.T) {
	root := t.TempDir()
	cat, err := catalog.New(root)
	require.NoError(t, err)
	br, err := branch.New(root)
	require.NoError(t, err)
	mgr, err := txn.New(root, cat, br, false)
	require.NoError(t, err)
	metered := NewMeteredTxnManager(mgr)

	rec, err := metered.Begin(branch.DefaultBranch)
	require.NoError(t, err)
	require.NoError(t, metered.AddWrite(rec.TxID, "widgets", 1, []string{"deadbeef"}, nil))

	before := testutil.ToFloat64(txCommits)
	_, err = metered.Commit(rec.TxID)
	require.NoError(t, err)
	require.Equal(t, before+1, testutil.ToFloat64(txCommits))
}

func TestInstrumentMergeCountsReceivesAndFailures(t *testing.T) {
	beforeReceives := testutil.ToFloat64(gossipReceives)
	beforeFailures := testutil.ToFloat64(gossipMergeFailures)

	ok := InstrumentMerge(func(localcommit.VersionedUpdate) error { return nil })
	require.NoError(t, ok(localcommit.VersionedUpdate{}))
	require.Equal(t, beforeReceives+1, testutil.ToFloat64(gossipReceives))

	failing := InstrumentMerge(func(localcommit.VersionedUpdate) error { return errors.New("merge failed") })
	require.Error(t, failing(localcommit.VersionedUpdate{}))
	require.Equal(t, beforeFailures+1, testutil.ToFloat64(gossipMergeFailures))
}
