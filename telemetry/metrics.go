// Package telemetry wires Prometheus metrics around the chunk store,
// transaction manager, and gossip node, and provides opentracing tracer
// constructors plus a StartSpan helper (the wrappers start no spans),
// mirroring the teacher's own "newMetricsWrapper(impl)" decorator pattern
// (storage/init.go) and its package-level collector/Once-registration
// style (worker/storage/committee/node.go).
package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	chunkPuts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_chunkstore_puts_total",
		Help: "Total Put calls against the chunk store.",
	})
	chunkGets = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_chunkstore_gets_total",
		Help: "Total Get/GetVerified calls against the chunk store.",
	})
	chunkBytesPut = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_chunkstore_bytes_put_total",
		Help: "Total bytes written through successful metered Put calls.",
	})

	txCommits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_txn_commits_total",
		Help: "Total successful transaction commits.",
	})
	txAborts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rhizo_txn_aborts_total",
		Help: "Total transaction aborts, by reason.",
	}, []string{"reason"})
	txCommitLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "rhizo_txn_commit_latency_seconds",
		Help:    "Commit call latency in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	gossipPublishes = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_gossip_publishes_total",
		Help: "Total VersionedUpdate messages published to the gossip topic.",
	})
	gossipReceives = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_gossip_receives_total",
		Help: "Total VersionedUpdate messages received and merged from the gossip topic.",
	})
	gossipMergeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rhizo_gossip_merge_failures_total",
		Help: "Total received updates that failed to merge.",
	})

	collectors = []prometheus.Collector{
		chunkPuts, chunkGets, chunkBytesPut,
		txCommits, txAborts, txCommitLatency,
		gossipPublishes, gossipReceives, gossipMergeFailures,
	}

	registerOnce sync.Once
)

// Register installs every rhizo collector with the default Prometheus
// registry, exactly once per process.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(collectors...)
	})
}
