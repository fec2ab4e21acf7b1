//go:build integration

// Package integration_test spins up two real filesyncd Nodes on loopback
// TCP sockets and exercises the full handshake + file-transfer protocol
// between them end to end, the way the teacher's test/integration spins up
// two real BFD sessions over UDP loopback.
package integration_test

import (
	"context"
	"crypto/md5" //nolint:gosec // matching memstore's own content-hash algorithm for test fixtures
	"encoding/hex"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/dantte-lp/filesyncd/internal/node"
	"github.com/dantte-lp/filesyncd/internal/protocol"
	"github.com/dantte-lp/filesyncd/internal/store/memstore"
)

// newLoopbackNode starts a Node listening on an ephemeral loopback TCP port
// and returns it alongside the address it is listening on.
func newLoopbackNode(t *testing.T, name string, blockSize uint64, maxIncoming int) (*node.Node, *memstore.Store, protocol.HostPort) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	addr := ln.Addr().(*net.TCPAddr)
	hp := protocol.HostPort{Host: "127.0.0.1", Port: uint16(addr.Port)}

	st := memstore.New("/share")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)).With(slog.String("node", name))
	n := node.New(logger, st, hp, blockSize, maxIncoming)
	t.Cleanup(n.Shutdown)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			node.Accept(ctx, n, conn)
		}
	}()

	return n, st, hp
}

// waitFor polls cond until it returns true or the deadline elapses.
func waitFor(t *testing.T, deadline time.Duration, cond func() bool) {
	t.Helper()
	end := time.Now().Add(deadline)
	for time.Now().Before(end) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !cond() {
		t.Fatalf("condition not met within %s", deadline)
	}
}

func TestHandshakeOverRealTCP(t *testing.T) {
	a, _, _ := newLoopbackNode(t, "a", 1024, 10)
	_, _, bHP := newLoopbackNode(t, "b", 1024, 10)

	ctx := context.Background()
	sess, err := node.Connect(ctx, a, bHP, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}

	waitFor(t, 2*time.Second, sess.HandshakeCompleted)
	waitFor(t, 2*time.Second, func() bool { return a.SessionCount() == 1 })
	if got := sess.ClientHostPort(); got != bHP {
		t.Fatalf("client host port = %v, want %v", got, bHP)
	}
}

func TestFileCreateAndTransferOverRealTCP(t *testing.T) {
	sender, senderStore, _ := newLoopbackNode(t, "sender", 2, 10)
	_, receiverStore, receiverHP := newLoopbackNode(t, "receiver", 2, 10)

	ctx := context.Background()
	sess, err := node.Connect(ctx, sender, receiverHP, nil)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	waitFor(t, 2*time.Second, sess.HandshakeCompleted)

	content := []byte("hello")
	senderStore.Seed("/greeting.txt", content, 100)
	sum := md5.Sum(content) //nolint:gosec
	fd := protocol.FileDescriptor{MD5: hex.EncodeToString(sum[:]), LastModified: 100, FileSize: uint64(len(content))}

	sender.HandleFSEvent(ctx, node.FSEvent{
		Kind:           node.FSEventFileCreate,
		PathName:       "/greeting.txt",
		FileDescriptor: fd,
	})

	waitFor(t, 2*time.Second, func() bool {
		return receiverStore.FileNameExistsWithHash("/greeting.txt", fd.MD5)
	})
}
