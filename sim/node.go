package sim

import (
	"github.com/eapache/channels"

	"github.com/rhizodata/rhizo/localcommit"
	"github.com/rhizodata/rhizo/vectorclock"
)

// Node is one simulated replica: a vector clock, an algebraic key-value
// state, and an outbox of locally-committed updates awaiting gossip
// (spec.md §4.8).
type Node struct {
	ID    string
	Clock vectorclock.Clock
	State localcommit.VersionedUpdate

	outbox  *channels.InfiniteChannel
	history []localcommit.VersionedUpdate
}

func newNode(id string) *Node {
	return &Node{
		ID:      id,
		Clock:   vectorclock.New(),
		State:   localcommit.VersionedUpdate{Origin: id},
		outbox:  channels.NewInfiniteChannel(),
		history: nil,
	}
}

// Commit validates tx, locally commits it (ticking the node's clock and
// folding it into the node's own state), and enqueues it on the outbox for
// the next propagate_round.
func (n *Node) Commit(tx localcommit.Transaction) error {
	update, err := localcommit.CommitLocal(tx, n.ID, n.Clock)
	if err != nil {
		return err
	}
	merged, err := localcommit.MergeUpdates(n.State, update)
	if err != nil {
		return err
	}
	n.Clock = update.Clock
	n.State = merged
	n.history = append(n.history, update)
	n.outbox.In() <- update
	return nil
}

// drainOutbox removes and returns every update currently buffered in the
// node's outbox, in the order they were enqueued.
func (n *Node) drainOutbox() []localcommit.VersionedUpdate {
	pending := n.outbox.Len()
	out := make([]localcommit.VersionedUpdate, 0, pending)
	for i := 0; i < pending; i++ {
		out = append(out, (<-n.outbox.Out()).(localcommit.VersionedUpdate))
	}
	return out
}

// requeue pushes the node's full committed history back onto its outbox,
// for re-gossip after a partition heals (spec.md §4.8 "requeue_all_updates").
func (n *Node) requeue() {
	for _, u := range n.history {
		n.outbox.In() <- u
	}
}

// applyIncoming merges a delivered update into the node's state.
func (n *Node) applyIncoming(update localcommit.VersionedUpdate) error {
	merged, err := localcommit.MergeUpdates(n.State, update)
	if err != nil {
		return err
	}
	n.State = merged
	n.Clock = vectorclock.Merge(n.Clock, update.Clock)
	return nil
}
