package telemetry

import (
	"context"
	"time"

	"github.com/rhizodata/rhizo/chunkstore"
	"github.com/rhizodata/rhizo/gossip"
	"github.com/rhizodata/rhizo/localcommit"
	"github.com/rhizodata/rhizo/txn"
)

// MeteredChunkStore decorates a *chunkstore.Store with Prometheus counters,
// forwarding every call unchanged (the teacher's metrics-wrapper shape,
// adapted from an interface decorator to a concrete-struct one since
// chunkstore.Store exposes no Backend interface to implement).
type MeteredChunkStore struct {
	*chunkstore.Store
}

// NewMeteredChunkStore registers the package's collectors (idempotent) and
// wraps store.
func NewMeteredChunkStore(store *chunkstore.Store) *MeteredChunkStore {
	Register()
	return &MeteredChunkStore{Store: store}
}

func (m *MeteredChunkStore) Put(data []byte) (string, error) {
	hash, err := m.Store.Put(data)
	if err == nil {
		chunkPuts.Inc()
		chunkBytesPut.Add(float64(len(data)))
	}
	return hash, err
}

func (m *MeteredChunkStore) Get(hash string) ([]byte, error) {
	chunkGets.Inc()
	return m.Store.Get(hash)
}

func (m *MeteredChunkStore) GetVerified(hash string) ([]byte, error) {
	chunkGets.Inc()
	return m.Store.GetVerified(hash)
}

// MeteredTxnManager decorates a *txn.Manager's Commit/Abort with counters
// and commit latency.
type MeteredTxnManager struct {
	*txn.Manager
}

// NewMeteredTxnManager registers the package's collectors (idempotent) and
// wraps manager.
func NewMeteredTxnManager(manager *txn.Manager) *MeteredTxnManager {
	Register()
	return &MeteredTxnManager{Manager: manager}
}

func (m *MeteredTxnManager) Commit(txID uint64) (txn.Record, error) {
	start := time.Now()
	rec, err := m.Manager.Commit(txID)
	txCommitLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		txAborts.WithLabelValues("commit_error").Inc()
		return rec, err
	}
	if rec.Status == txn.Aborted {
		txAborts.WithLabelValues(rec.AbortReason).Inc()
	} else {
		txCommits.Inc()
	}
	return rec, err
}

func (m *MeteredTxnManager) Abort(txID uint64, reason string) error {
	err := m.Manager.Abort(txID, reason)
	if err == nil {
		txAborts.WithLabelValues(reason).Inc()
	}
	return err
}

// MeteredGossipNode decorates a *gossip.Node's Publish call and wraps a
// merge callback so a caller can observe both sides of the transport.
type MeteredGossipNode struct {
	*gossip.Node
}

// NewMeteredGossipNode registers the package's collectors (idempotent) and
// wraps node.
func NewMeteredGossipNode(node *gossip.Node) *MeteredGossipNode {
	Register()
	return &MeteredGossipNode{Node: node}
}

func (m *MeteredGossipNode) Publish(ctx context.Context, update localcommit.VersionedUpdate) error {
	err := m.Node.Publish(ctx, update)
	if err == nil {
		gossipPublishes.Inc()
	}
	return err
}

// InstrumentMerge wraps a gossip merge callback with receive/failure
// counters; pass the result as gossip.NewNode's merge argument.
func InstrumentMerge(merge func(localcommit.VersionedUpdate) error) func(localcommit.VersionedUpdate) error {
	Register()
	return func(u localcommit.VersionedUpdate) error {
		gossipReceives.Inc()
		if err := merge(u); err != nil {
			gossipMergeFailures.Inc()
			return err
		}
		return nil
	}
}
