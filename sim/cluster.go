// Package sim implements the deterministic cluster simulator of spec.md
// §4.8, used by convergence property tests: N nodes, each with a vector
// clock and an algebraic key-value state, exchanging committed updates
// through outboxes and a per-edge configurable delivery policy.
package sim

import (
	"math/rand"
	"sort"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/localcommit"
)

type pendingMsg struct {
	update localcommit.VersionedUpdate
	ready  int
}

// Cluster holds a fixed set of nodes and the per-edge delivery policies
// between them. All randomness (the Reordered policy's shuffle) is drawn
// from an explicitly supplied rng, never process-global state, so a
// simulation run is fully reproducible from its seed.
type Cluster struct {
	logger logging.Logger
	rng    *rand.Rand

	ids   []string
	nodes map[string]*Node

	policies map[edge]Policy
	pending  map[edge][]pendingMsg

	round int
}

// Option configures a Cluster at construction.
type Option func(*Cluster)

// WithLogger overrides the cluster's logger (default: discard).
func WithLogger(l logging.Logger) Option {
	return func(c *Cluster) { c.logger = l }
}

// NewCluster builds a cluster of nodes named by ids, defaulting every edge
// to Perfect delivery.
func NewCluster(ids []string, rng *rand.Rand, opts ...Option) *Cluster {
	sorted := append([]string{}, ids...)
	sort.Strings(sorted)

	c := &Cluster{
		logger:   logging.Nop(),
		rng:      rng,
		ids:      sorted,
		nodes:    make(map[string]*Node, len(sorted)),
		policies: make(map[edge]Policy),
		pending:  make(map[edge][]pendingMsg),
	}
	for _, id := range sorted {
		c.nodes[id] = newNode(id)
	}
	return c
}

// Node returns the named node, or nil if it is not part of the cluster.
func (c *Cluster) Node(id string) *Node {
	return c.nodes[id]
}

// NodeIDs returns the cluster's node ids in sorted order.
func (c *Cluster) NodeIDs() []string {
	return append([]string{}, c.ids...)
}

// SetPolicy overrides the delivery policy from sender to receiver. Policies
// are directional: SetPolicy("a", "b", ...) never affects b -> a traffic,
// so asymmetric partitions are expressed by calling it once per direction.
func (c *Cluster) SetPolicy(from, to string, p Policy) {
	c.policies[edge{from, to}] = p
}

func (c *Cluster) policyFor(from, to string) Policy {
	if p, ok := c.policies[edge{from, to}]; ok {
		return p
	}
	return Policy{Kind: Perfect}
}

// Partition drops all from -> to traffic until HealPartitions is called.
// Call it for both directions to partition a pair symmetrically.
func (c *Cluster) Partition(from, to string) {
	c.SetPolicy(from, to, Policy{Kind: Partitioned})
}

// HealPartitions clears every edge currently set to Partitioned, reverting
// it to Perfect delivery; edges with other policies (Delayed, Reordered)
// are left untouched.
func (c *Cluster) HealPartitions() {
	for e, p := range c.policies {
		if p.Kind == Partitioned {
			delete(c.policies, e)
		}
	}
}

// RequeueAllUpdates re-enqueues every node's full committed history onto
// its outbox, so the next PropagateRound re-gossips updates a healed
// partition previously dropped.
func (c *Cluster) RequeueAllUpdates() {
	for _, id := range c.ids {
		c.nodes[id].requeue()
	}
}

// PropagateRound broadcasts every node's outbox to every other node
// subject to the configured policies, applies delivered updates into each
// receiver's state, and advances the round counter used by Delayed.
func (c *Cluster) PropagateRound() error {
	deliveries := make(map[string][]localcommit.VersionedUpdate, len(c.ids))

	c.releaseDue(deliveries)

	batches := make(map[string][]localcommit.VersionedUpdate, len(c.ids))
	for _, id := range c.ids {
		batches[id] = c.nodes[id].drainOutbox()
	}

	for _, sender := range c.ids {
		batch := batches[sender]
		if len(batch) == 0 {
			continue
		}
		for _, receiver := range c.ids {
			if receiver == sender {
				continue
			}
			c.route(sender, receiver, batch, deliveries)
		}
	}

	for _, id := range c.ids {
		for _, update := range deliveries[id] {
			if err := c.nodes[id].applyIncoming(update); err != nil {
				return err
			}
		}
	}

	c.logger.Debug("propagate_round complete", "round", c.round)
	c.round++
	return nil
}

// route dispatches one sender's batch to one receiver per the edge's
// policy: delivered this round into deliveries, queued into c.pending for
// Delayed, or dropped for Partitioned.
func (c *Cluster) route(sender, receiver string, batch []localcommit.VersionedUpdate, deliveries map[string][]localcommit.VersionedUpdate) {
	policy := c.policyFor(sender, receiver)
	switch policy.Kind {
	case Partitioned:
		c.logger.Debug("dropped batch", "sender", sender, "receiver", receiver, "updates", len(batch))
		return
	case Perfect:
		deliveries[receiver] = append(deliveries[receiver], batch...)
	case Reordered:
		perm := c.rng.Perm(len(batch))
		for _, i := range perm {
			deliveries[receiver] = append(deliveries[receiver], batch[i])
		}
	case Delayed:
		e := edge{sender, receiver}
		ready := c.round + policy.DelayRounds
		for _, u := range batch {
			c.pending[e] = append(c.pending[e], pendingMsg{update: u, ready: ready})
		}
	}
}

// releaseDue moves every pending Delayed message whose wait has elapsed
// into this round's deliveries.
func (c *Cluster) releaseDue(deliveries map[string][]localcommit.VersionedUpdate) {
	for e, msgs := range c.pending {
		var remaining []pendingMsg
		for _, m := range msgs {
			if m.ready <= c.round {
				deliveries[e.to] = append(deliveries[e.to], m.update)
			} else {
				remaining = append(remaining, m)
			}
		}
		if len(remaining) == 0 {
			delete(c.pending, e)
		} else {
			c.pending[e] = remaining
		}
	}
}

// PropagateAll runs PropagateRound rounds times, stopping at the first
// error.
func (c *Cluster) PropagateAll(rounds int) error {
	for i := 0; i < rounds; i++ {
		if err := c.PropagateRound(); err != nil {
			return err
		}
	}
	return nil
}

// ConvergenceReport is the result of VerifyConvergence: per disagreeing key,
// the node ids that hold it and the differing values they hold.
type ConvergenceReport struct {
	Converged bool
	Conflicts map[string][]string // key -> "node=value" descriptions
}

// VerifyConvergence holds iff, for every key any node currently has a
// value for, every other node holding that key agrees on its value. Nodes
// that have not yet received an update for a key are not considered a
// disagreement; that's what makes this a convergence check rather than an
// instantaneous-consistency check.
func (c *Cluster) VerifyConvergence() ConvergenceReport {
	byKey := map[string]map[string]algebra.Value{} // key -> node id -> value
	for _, id := range c.ids {
		node := c.nodes[id]
		for _, op := range node.State.Operations {
			if _, ok := byKey[op.Key]; !ok {
				byKey[op.Key] = map[string]algebra.Value{}
			}
			byKey[op.Key][id] = op.Value
		}
	}

	report := ConvergenceReport{Converged: true, Conflicts: map[string][]string{}}
	for key, byNode := range byKey {
		var first algebra.Value
		firstSet := false
		mismatch := false
		for _, id := range c.ids {
			v, ok := byNode[id]
			if !ok {
				continue
			}
			if !firstSet {
				first, firstSet = v, true
				continue
			}
			if !v.Equal(first) {
				mismatch = true
			}
		}
		if mismatch {
			report.Converged = false
			descs := make([]string, 0, len(byNode))
			for _, id := range c.ids {
				if v, ok := byNode[id]; ok {
					descs = append(descs, id+"="+v.String())
				}
			}
			report.Conflicts[key] = descs
		}
	}
	return report
}
