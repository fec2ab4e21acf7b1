// Package node implements the per-peer connection state machine and the
// file-transfer protocol engine: the Peer Session and Local Node components
// of the file-synchronization overlay (spec §2 components 4 and 5). The two
// types share a package, the way the teacher's BFD session FSM and its
// Manager share package bfd, because the Local Node reaches directly into
// Peer Session internals (registry iteration, handshake gating) that an
// import-cycle-avoiding split would otherwise have to expose through a
// narrower interface for no benefit.
package node

import (
	"context"
	"log/slog"
	"sync"

	"github.com/dantte-lp/filesyncd/internal/metrics"
	"github.com/dantte-lp/filesyncd/internal/protocol"
	"github.com/dantte-lp/filesyncd/internal/store"
)

// Node is the process-wide registry of active Peer Sessions (spec §4.4). It
// enforces the configured connection cap and fans local filesystem events
// out to every handshake-completed session.
type Node struct {
	logger  *slog.Logger
	store   store.Store
	metrics *metrics.Collector

	serverHostPort protocol.HostPort
	blockSize      uint64
	maxIncoming    int

	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// Option configures optional Node behavior.
type Option func(*Node)

// WithMetrics registers a Prometheus collector the Node and its sessions
// report to. Nil is a valid Collector (no-op).
func WithMetrics(c *metrics.Collector) Option {
	return func(n *Node) { n.metrics = c }
}

// New creates a Node. serverHostPort is this process's advertised endpoint,
// echoed in every handshake this node originates or accepts.
func New(logger *slog.Logger, st store.Store, serverHostPort protocol.HostPort, blockSize uint64, maxIncoming int, opts ...Option) *Node {
	n := &Node{
		logger:         logger.With(slog.String("component", "node")),
		store:          st,
		serverHostPort: serverHostPort,
		blockSize:      blockSize,
		maxIncoming:    maxIncoming,
		sessions:       make(map[*Session]struct{}),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// ServerHostPort returns this node's advertised endpoint.
func (n *Node) ServerHostPort() protocol.HostPort { return n.serverHostPort }

// BlockSize returns the configured maximum bytes per FILE_BYTES_REQUEST.
func (n *Node) BlockSize() uint64 { return n.blockSize }

// HasReachedMaxConnections reports whether the node is at its incoming
// connection cap (spec §4.3 HANDSHAKE_REQUEST admission rule).
func (n *Node) HasReachedMaxConnections() bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.sessions) >= n.maxIncoming
}

// ConnectedPeerHostPort returns the advertised endpoints of every active,
// handshake-completed session except the one identified by excluding (spec
// invariant: a refusal never hints at the refused peer itself).
func (n *Node) ConnectedPeerHostPort(excluding protocol.HostPort) []protocol.HostPort {
	n.mu.RLock()
	defer n.mu.RUnlock()

	peers := make([]protocol.HostPort, 0, len(n.sessions))
	for s := range n.sessions {
		if !s.handshakeCompleted.Load() {
			continue
		}
		hp := s.ClientHostPort()
		if hp.Equal(excluding) {
			continue
		}
		peers = append(peers, hp)
	}
	return peers
}

// ListSessions returns a snapshot of every registered session for the admin
// surface (SPEC_FULL.md § ADMIN surface).
func (n *Node) ListSessions() []protocol.SessionSummary {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]protocol.SessionSummary, 0, len(n.sessions))
	for s := range n.sessions {
		out = append(out, protocol.SessionSummary{
			HostPort:           s.ClientHostPort(),
			HandshakeCompleted: s.handshakeCompleted.Load(),
		})
	}
	return out
}

// register adds a newly created session to the active set.
func (n *Node) register(s *Session) {
	n.mu.Lock()
	n.sessions[s] = struct{}{}
	n.mu.Unlock()
	if n.metrics != nil {
		n.metrics.Sessions.Inc()
	}
}

// deregister removes a terminated session from the active set.
func (n *Node) deregister(s *Session) {
	n.mu.Lock()
	_, existed := n.sessions[s]
	delete(n.sessions, s)
	n.mu.Unlock()
	if existed && n.metrics != nil {
		n.metrics.Sessions.Dec()
	}
}

// Shutdown closes every active session's socket. It does not wait for their
// reader goroutines to exit; each session's Done channel closes once its
// goroutine has.
func (n *Node) Shutdown() {
	n.mu.RLock()
	sessions := make([]*Session, 0, len(n.sessions))
	for s := range n.sessions {
		sessions = append(sessions, s)
	}
	n.mu.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}

// SessionCount returns the number of currently registered sessions.
func (n *Node) SessionCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.sessions)
}

// HandleFSEvent fans a local filesystem event out to every registered
// session (spec §4.4, §4.5). A panic recovered from one session's handling
// is logged and does not affect the others.
func (n *Node) HandleFSEvent(ctx context.Context, event FSEvent) {
	n.mu.RLock()
	sessions := make([]*Session, 0, len(n.sessions))
	for s := range n.sessions {
		sessions = append(sessions, s)
	}
	n.mu.RUnlock()

	for _, s := range sessions {
		n.dispatchToSession(ctx, s, event)
	}
}

// dispatchToSession delivers event to one session, isolating panics so a
// single misbehaving session cannot break fan-out for the others.
func (n *Node) dispatchToSession(ctx context.Context, s *Session, event FSEvent) {
	defer func() {
		if r := recover(); r != nil {
			n.logger.Error("recovered panic in fs event fan-out",
				slog.Any("panic", r),
				slog.String("peer", s.ClientHostPort().String()),
			)
		}
	}()
	s.HandleFSEvent(ctx, event)
}
