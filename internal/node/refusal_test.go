package node_test

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/dantte-lp/filesyncd/internal/node"
	"github.com/dantte-lp/filesyncd/internal/protocol"
)

var errDialFailed = errors.New("dial failed")

// TestConnectionRefusedFallback verifies P6/P7: on CONNECTION_REFUSED, a
// session tries each hinted candidate in order and re-handshakes on the
// first one its Dialer can actually reach.
func TestConnectionRefusedFallback(t *testing.T) {
	t.Parallel()

	initial := protocol.HostPort{Host: "initial", Port: 0}
	unreachable := protocol.HostPort{Host: "down", Port: 1}
	reachable := protocol.HostPort{Host: "up", Port: 2}

	initialConn, initialRemote := net.Pipe()
	defer initialConn.Close()
	fallbackConn, fallbackRemote := net.Pipe()
	defer fallbackConn.Close()

	dialer := func(_ context.Context, hp protocol.HostPort) (net.Conn, error) {
		switch {
		case hp.Equal(initial):
			return initialConn, nil
		case hp.Equal(reachable):
			return fallbackConn, nil
		default:
			return nil, errDialFailed
		}
	}

	n, _ := newTestNode(serverHP, 10, 1024)
	// net.Pipe is unbuffered, so Connect's initial HANDSHAKE_REQUEST write
	// blocks until the peer reads it; Connect runs in its own goroutine.
	connectErr := make(chan error, 1)
	go func() {
		_, err := node.Connect(context.Background(), n, initial, dialer)
		connectErr <- err
	}()

	peer := newTestPeer(t, initialRemote)
	peer.recv() // consume the initial HANDSHAKE_REQUEST
	if err := <-connectErr; err != nil {
		t.Fatalf("Connect() error: %v", err)
	}

	peer.send(protocol.NewConnectionRefused("at capacity", []protocol.HostPort{unreachable, reachable}))

	fallbackPeer := newTestPeer(t, fallbackRemote)
	resp := fallbackPeer.recv()
	hr, ok := resp.(protocol.HandshakeRequest)
	if !ok {
		t.Fatalf("recv() on fallback conn = %T, want HandshakeRequest", resp)
	}
	if !hr.HostPort.Equal(serverHP) {
		t.Errorf("HandshakeRequest.HostPort = %v, want %v", hr.HostPort, serverHP)
	}
}

// TestConnectionRefusedAllCandidatesUnreachable verifies the session
// terminates once every hinted candidate fails to dial.
func TestConnectionRefusedAllCandidatesUnreachable(t *testing.T) {
	t.Parallel()

	initial := protocol.HostPort{Host: "initial", Port: 0}
	initialConn, initialRemote := net.Pipe()
	defer initialConn.Close()

	dialer := func(_ context.Context, hp protocol.HostPort) (net.Conn, error) {
		if hp.Equal(initial) {
			return initialConn, nil
		}
		return nil, errDialFailed
	}

	n, _ := newTestNode(serverHP, 10, 1024)
	// Connect blocks on the unbuffered net.Pipe until the peer reads its
	// HANDSHAKE_REQUEST, so it runs in its own goroutine.
	type connectResult struct {
		s   *node.Session
		err error
	}
	connected := make(chan connectResult, 1)
	go func() {
		s, err := node.Connect(context.Background(), n, initial, dialer)
		connected <- connectResult{s: s, err: err}
	}()

	peer := newTestPeer(t, initialRemote)
	peer.recv() // consume the initial HANDSHAKE_REQUEST
	res := <-connected
	if res.err != nil {
		t.Fatalf("Connect() error: %v", res.err)
	}
	s := res.s

	peer.send(protocol.NewConnectionRefused("at capacity", []protocol.HostPort{
		{Host: "down1", Port: 1},
		{Host: "down2", Port: 2},
	}))

	select {
	case <-s.Done():
	case <-timeoutChan():
		t.Fatal("session did not terminate after exhausting all candidates")
	}
}

// TestConnectionRefusedAfterHandshakeIsProtocolViolation verifies a
// CONNECTION_REFUSED arriving after the handshake has already completed is
// rejected rather than triggering the fallback dance.
func TestConnectionRefusedAfterHandshakeIsProtocolViolation(t *testing.T) {
	t.Parallel()

	n, _ := newTestNode(serverHP, 10, 1024)
	clientConn, remote := net.Pipe()
	defer clientConn.Close()
	s := node.Accept(context.Background(), n, remote)
	peer := newTestPeer(t, clientConn)
	handshake(t, peer)

	peer.send(protocol.NewConnectionRefused("late", []protocol.HostPort{{Host: "x", Port: 1}}))

	resp := peer.recv()
	ip, ok := resp.(protocol.InvalidProtocol)
	if !ok {
		t.Fatalf("recv() = %T, want InvalidProtocol", resp)
	}
	want := "Invalid protocol: the message misses required fields"
	if ip.Message != want {
		t.Errorf("Message = %q, want %q", ip.Message, want)
	}

	select {
	case <-s.Done():
	case <-timeoutChan():
		t.Fatal("session did not terminate after late CONNECTION_REFUSED")
	}
}
