// Package gossip implements the real wire transport for algebraic updates
// (SPEC_FULL.md §4.9): a libp2p host and gossipsub topic per replicated
// table namespace, publishing and receiving the same VersionedUpdate the
// in-process simulation harness (sim) exchanges, merged through the
// identical localcommit.MergeUpdates code path.
package gossip

import (
	"context"

	"github.com/cenkalti/backoff/v4"
	libp2p "github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	ma "github.com/multiformats/go-multiaddr"

	"github.com/rhizodata/rhizo/common/logging"
	"github.com/rhizodata/rhizo/common/rhizoerr"
	"github.com/rhizodata/rhizo/localcommit"
)

// Config configures a Node (spec.md §6's "gossip listen address" field,
// plus the topic namespace and optional bootstrap peers).
type Config struct {
	ListenAddrs    []string
	Topic          string
	BootstrapPeers []string
}

// Node wraps one libp2p host subscribed to a single gossipsub topic, and
// folds every received update into a local merged state via merge(u).
type Node struct {
	logger logging.Logger

	host  host.Host
	pub   *pubsub.PubSub
	topic *pubsub.Topic
	sub   *pubsub.Subscription

	merge func(localcommit.VersionedUpdate) error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewNode starts a libp2p host listening on cfg.ListenAddrs, joins
// cfg.Topic over gossipsub, and begins delivering every received
// VersionedUpdate to merge. merge is typically a closure over a node's
// local state, e.g. sim.Node.applyIncoming's wire-transport counterpart.
func NewNode(ctx context.Context, cfg Config, merge func(localcommit.VersionedUpdate) error, logger logging.Logger) (*Node, error) {
	wireLibp2pLogging()
	if logger == nil {
		logger = logging.Nop()
	}

	h, err := libp2p.New(libp2p.ListenAddrStrings(cfg.ListenAddrs...))
	if err != nil {
		return nil, rhizoerr.IO("gossip.libp2p.New", err)
	}

	ps, err := pubsub.NewGossipSub(ctx, h)
	if err != nil {
		_ = h.Close()
		return nil, rhizoerr.IO("gossip.pubsub.NewGossipSub", err)
	}

	topic, err := ps.Join(cfg.Topic)
	if err != nil {
		_ = h.Close()
		return nil, rhizoerr.IO("gossip.pubsub.Join", err)
	}

	sub, err := topic.Subscribe()
	if err != nil {
		_ = h.Close()
		return nil, rhizoerr.IO("gossip.pubsub.Subscribe", err)
	}

	runCtx, cancel := context.WithCancel(ctx)
	n := &Node{
		logger: logging.Named(logger, "gossip"),
		host:   h,
		pub:    ps,
		topic:  topic,
		sub:    sub,
		merge:  merge,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	for _, addr := range cfg.BootstrapPeers {
		if err := n.dialBootstrap(runCtx, addr); err != nil {
			n.logger.Warn("bootstrap dial failed", "addr", addr, "error", err)
		}
	}

	go n.receiveLoop(runCtx)
	return n, nil
}

// ID returns this node's libp2p peer id string, the node identity used as
// its vector-clock key in the real transport (spec.md §3 "Node identity").
func (n *Node) ID() string {
	return n.host.ID().String()
}

// Publish marshals update to its stable wire form and publishes it on the
// node's topic.
func (n *Node) Publish(ctx context.Context, update localcommit.VersionedUpdate) error {
	data, err := marshalUpdate(update)
	if err != nil {
		return err
	}
	if err := n.topic.Publish(ctx, data); err != nil {
		return rhizoerr.IO("gossip.Publish", err)
	}
	return nil
}

// Close tears down the subscription, topic, and host.
func (n *Node) Close() error {
	n.cancel()
	<-n.done
	n.sub.Cancel()
	n.topic.Close()
	return n.host.Close()
}

func (n *Node) receiveLoop(ctx context.Context) {
	defer close(n.done)
	self := n.host.ID()
	for {
		msg, err := n.sub.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			n.logger.Warn("subscription read failed", "error", err)
			return
		}
		if msg.ReceivedFrom == self {
			continue
		}
		update, err := unmarshalUpdate(msg.Data)
		if err != nil {
			n.logger.Warn("dropping malformed update", "from", msg.ReceivedFrom.String(), "error", err)
			continue
		}
		if err := n.merge(update); err != nil {
			n.logger.Warn("merge failed", "from", msg.ReceivedFrom.String(), "error", err)
		}
	}
}

// dialBootstrap connects to a bootstrap peer's multiaddr, retrying with
// exponential backoff (spec.md's gossip transport never blocks startup
// indefinitely on an unreachable seed).
func (n *Node) dialBootstrap(ctx context.Context, addr string) error {
	maddr, err := ma.NewMultiaddr(addr)
	if err != nil {
		return rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", "invalid bootstrap multiaddr: "+addr)
	}
	info, err := peer.AddrInfoFromP2pAddr(maddr)
	if err != nil {
		return rhizoerr.New(rhizoerr.KindInvalidInput, "InvalidInput", "invalid bootstrap peer info: "+addr)
	}

	policy := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(func() error {
		return n.host.Connect(ctx, *info)
	}, policy)
}
