package node

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// Dialer opens an outbound TCP connection to hp. DefaultDialer is the
// production implementation; tests substitute one backed by net.Pipe or an
// in-memory listener.
type Dialer func(ctx context.Context, hp protocol.HostPort) (net.Conn, error)

// DefaultDialer dials hp over real TCP.
func DefaultDialer(ctx context.Context, hp protocol.HostPort) (net.Conn, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", hp.String())
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", hp, err)
	}
	return conn, nil
}

// Session is one Peer Session: the per-connection state machine described
// in spec §3/§4.3. It owns the socket, input/output framing, handshake
// state, the peer-hint candidate list, and the request/response dispatcher.
type Session struct {
	logger *slog.Logger
	node   *Node
	dialer Dialer

	// connMu guards conn/reader swaps (on peer-hint reconnection) and
	// concurrent Close() calls. Only the reader goroutine ever assigns new
	// values; Close() only reads and closes.
	connMu sync.Mutex
	conn   net.Conn
	reader *bufio.Reader

	// writeMu serializes every write to the socket: spec §5 requires the
	// writer half to be touched by at most one of {reader task, FS-event
	// fan-out task} at a time, with each message written atomically.
	writeMu sync.Mutex
	writer  *bufio.Writer

	// hostMu guards clientHostPort, which is read by Node.ConnectedPeerHostPort
	// from the fan-out/admin path concurrently with the reader goroutine
	// rewriting it during peer-hint reconnection.
	hostMu         sync.RWMutex
	clientHostPort protocol.HostPort

	handshakeCompleted atomic.Bool

	// peerCandidates is reader-goroutine-private: only the reader loop
	// (handling CONNECTION_REFUSED) ever reads or mutates it.
	peerCandidates []protocol.HostPort

	// transferStarts is reader-goroutine-private, like peerCandidates: it
	// records when this session issued the first FILE_BYTES_REQUEST for a
	// path, so TransferDuration can be observed once the loader completes.
	transferStarts map[string]time.Time

	closeOnce sync.Once
	done      chan struct{}
}

// newSession builds a Session bound to conn, not yet registered with n.
func newSession(n *Node, conn net.Conn, clientHostPort protocol.HostPort, dialer Dialer) *Session {
	if dialer == nil {
		dialer = DefaultDialer
	}
	s := &Session{
		logger:         n.logger.With(slog.String("peer", clientHostPort.String())),
		node:           n,
		dialer:         dialer,
		conn:           conn,
		reader:         bufio.NewReader(conn),
		writer:         bufio.NewWriter(conn),
		clientHostPort: clientHostPort,
		transferStarts: make(map[string]time.Time),
		done:           make(chan struct{}),
	}
	return s
}

// Accept builds an inbound Session from an already-accepted conn and starts
// its reader loop. The caller supplies conn; clientHostPort is unknown until
// the remote's HANDSHAKE_REQUEST arrives and is filled in then.
func Accept(ctx context.Context, n *Node, conn net.Conn) *Session {
	s := newSession(n, conn, protocol.HostPort{}, nil)
	n.register(s)
	go s.run(ctx)
	return s
}

// Connect dials hp, builds an outbound Session, sends the initial
// HANDSHAKE_REQUEST, and starts its reader loop (spec §4.3: "the initiator
// side sends HANDSHAKE_REQUEST"). dialer may be nil to use DefaultDialer.
func Connect(ctx context.Context, n *Node, hp protocol.HostPort, dialer Dialer) (*Session, error) {
	if dialer == nil {
		dialer = DefaultDialer
	}
	conn, err := dialer(ctx, hp)
	if err != nil {
		return nil, err
	}

	s := newSession(n, conn, hp, dialer)
	if err := s.writeMessage(protocol.NewHandshakeRequest(n.ServerHostPort())); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connect %s: send handshake: %w", hp, err)
	}

	n.register(s)
	go s.run(ctx)
	return s, nil
}

// ClientHostPort returns the remote endpoint this session currently
// believes it is talking to.
func (s *Session) ClientHostPort() protocol.HostPort {
	s.hostMu.RLock()
	defer s.hostMu.RUnlock()
	return s.clientHostPort
}

func (s *Session) setClientHostPort(hp protocol.HostPort) {
	s.hostMu.Lock()
	s.clientHostPort = hp
	s.hostMu.Unlock()
	s.logger = s.logger.With(slog.String("peer", hp.String()))
}

// HandshakeCompleted reports whether this session has completed the
// handshake exactly once (spec §3 invariant: false -> true only).
func (s *Session) HandshakeCompleted() bool {
	return s.handshakeCompleted.Load()
}

// Done is closed once the session's reader loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

// Close terminates the session's current socket. Safe to call concurrently
// and more than once; only the first call has effect. It does not itself
// deregister the session -- that happens when the reader goroutine observes
// the resulting I/O error and returns from run().
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.connMu.Lock()
		c := s.conn
		s.connMu.Unlock()
		if c != nil {
			_ = c.Close()
		}
	})
}

// run is the reader loop (spec §4.3): read one line, decode, dispatch,
// repeat, until an I/O failure, protocol violation, or explicit
// session-ending response.
func (s *Session) run(ctx context.Context) {
	defer s.terminate()

	for {
		s.connMu.Lock()
		r := s.reader
		s.connMu.Unlock()

		line, err := protocol.ReadLine(r)
		if err != nil {
			s.logger.Debug("session read ended", slog.String("error", err.Error()))
			return
		}

		msg, err := protocol.Decode(line)
		if err != nil {
			s.logger.Warn("protocol violation", slog.String("error", err.Error()))
			s.recordViolation("Invalid protocol: the message misses required fields")
			_ = s.writeMessage(protocol.NewInvalidProtocol("Invalid protocol: the message misses required fields"))
			return
		}

		if s.node.metrics != nil {
			s.node.metrics.IncMessagesReceived(s.ClientHostPort().String())
		}

		if !s.dispatch(ctx, msg) {
			return
		}
	}
}

// terminate runs once, when the reader loop returns for any reason: close
// the socket and deregister from the node (spec §3 lifecycle).
func (s *Session) terminate() {
	s.Close()
	s.node.deregister(s)
	close(s.done)
}

func (s *Session) recordViolation(reason string) {
	if s.node.metrics != nil {
		s.node.metrics.IncProtocolViolation(reason)
	}
}

// startTransferTimer marks path as having just received its first
// FILE_BYTES_REQUEST, for the TransferDuration histogram.
func (s *Session) startTransferTimer(path string) {
	s.transferStarts[path] = time.Now()
}

// finishTransferTimer reports the elapsed time since startTransferTimer(path)
// to TransferDuration, if a start was recorded, and forgets path either way.
func (s *Session) finishTransferTimer(path string) {
	start, ok := s.transferStarts[path]
	delete(s.transferStarts, path)
	if !ok {
		return
	}
	if s.node.metrics != nil {
		s.node.metrics.TransferDuration.Observe(time.Since(start).Seconds())
	}
}

// dropTransferTimer forgets path without observing a duration, used when a
// transfer is abandoned rather than completed.
func (s *Session) dropTransferTimer(path string) {
	delete(s.transferStarts, path)
}

// reply is a small alias for writeMessage used from command handlers, kept
// separate so call sites read as "reply to this request" rather than
// "write this message" at the few sites (peer-hint reconnection, FS-event
// fan-out) where the distinction matters.
func (s *Session) reply(msg protocol.Message) error {
	return s.writeMessage(msg)
}

// writeMessage serializes and writes msg to the current socket, holding
// writeMu for the duration so the line is never interleaved with a
// concurrent write from the other writer (spec §5, P3).
func (s *Session) writeMessage(msg protocol.Message) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.connMu.Lock()
	w := s.writer
	s.connMu.Unlock()

	if err := protocol.Encode(w, msg); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flush %s: %w", msg.Cmd(), err)
	}
	if s.node.metrics != nil {
		s.node.metrics.IncMessagesSent(s.ClientHostPort().String())
	}
	return nil
}

// swapConn installs a freshly dialed connection in place of the current
// one, used only by the peer-hint reconnection path in the reader
// goroutine (spec §4.3 CONNECTION_REFUSED handling).
func (s *Session) swapConn(conn net.Conn) {
	s.connMu.Lock()
	old := s.conn
	s.conn = conn
	s.reader = bufio.NewReader(conn)
	s.connMu.Unlock()

	s.writeMu.Lock()
	s.writer = bufio.NewWriter(conn)
	s.writeMu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}
