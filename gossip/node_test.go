package gossip

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"

	"github.com/rhizodata/rhizo/algebra"
	"github.com/rhizodata/rhizo/localcommit"
)

type receivedUpdates struct {
	mu  sync.Mutex
	ups []localcommit.VersionedUpdate
}

func (r *receivedUpdates) collect(u localcommit.VersionedUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ups = append(r.ups, u)
	return nil
}

func (r *receivedUpdates) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ups)
}

func bootstrapAddr(t *testing.T, n *Node) string {
	t.Helper()
	addrs, err := peer.AddrInfoToP2pAddrs(&peer.AddrInfo{ID: n.host.ID(), Addrs: n.host.Addrs()})
	require.NoError(t, err)
	require.NotEmpty(t, addrs)
	return addrs[0].String()
}

func TestNodePublishDeliversAcrossGossipsub(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var received receivedUpdates
	nodeA, err := NewNode(ctx, Config{
		ListenAddrs: []string{"/ip4/127.0.0.1/tcp/0"},
		Topic:       "rhizo-test",
	}, func(localcommit.VersionedUpdate) error { return nil }, nil)
	require.NoError(t, err)
	defer nodeA.Close()

	nodeB, err := NewNode(ctx, Config{
		ListenAddrs:    []string{"/ip4/127.0.0.1/tcp/0"},
		Topic:          "rhizo-test",
		BootstrapPeers: []string{bootstrapAddr(t, nodeA)},
	}, received.collect, nil)
	require.NoError(t, err)
	defer nodeB.Close()

	update := localcommit.VersionedUpdate{
		Operations: []localcommit.Operation{
			{Key: "counter", OpType: algebra.AbelianAdd, Value: algebra.Int(7)},
		},
		Origin:   nodeA.ID(),
		UpdateID: "test-update-1",
	}

	require.Eventually(t, func() bool {
		return nodeA.Publish(ctx, update) == nil
	}, 5*time.Second, 50*time.Millisecond)

	require.Eventually(t, func() bool {
		return received.count() == 1
	}, 5*time.Second, 50*time.Millisecond)
}
