package node_test

import (
	"bufio"
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

// md5Of returns the same content hash memstore computes internally, so
// tests can address seeded files by hash without memstore exposing one.
func md5Of(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// testPeer drives the remote end of a net.Pipe() connection accepted as a
// Session, writing and reading raw protocol lines directly — standing in
// for the real peer on the other side of the socket.
type testPeer struct {
	t      *testing.T
	conn   net.Conn
	reader *bufio.Reader
}

func newTestPeer(t *testing.T, conn net.Conn) *testPeer {
	t.Helper()
	return &testPeer{t: t, conn: conn, reader: bufio.NewReader(conn)}
}

func (p *testPeer) send(msg protocol.Message) {
	p.t.Helper()
	if err := protocol.Encode(p.conn, msg); err != nil {
		p.t.Fatalf("send %s: %v", msg.Cmd(), err)
	}
}

func (p *testPeer) sendRaw(line string) {
	p.t.Helper()
	if _, err := p.conn.Write([]byte(line + "\n")); err != nil {
		p.t.Fatalf("sendRaw: %v", err)
	}
}

func (p *testPeer) recv() protocol.Message {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	line, err := protocol.ReadLine(p.reader)
	if err != nil {
		p.t.Fatalf("recv: %v", err)
	}
	msg, err := protocol.Decode(line)
	if err != nil {
		p.t.Fatalf("recv decode: %v", err)
	}
	return msg
}

// expectEOF asserts the peer's connection is closed by the remote side.
func (p *testPeer) expectEOF() {
	p.t.Helper()
	p.conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, err := p.reader.ReadByte()
	if err != io.EOF {
		p.t.Fatalf("expected EOF, got %v", err)
	}
}

// newTestNode builds a Node over a fresh memstore, capped at maxIncoming
// connections, advertising serverHP, with the given block size.
func newTestNode(serverHP protocol.HostPort, maxIncoming int, blockSize uint64) (*node.Node, *memstore.Store) {
	st := memstore.New("/share")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	n := node.New(logger, st, serverHP, blockSize, maxIncoming)
	return n, st
}

// timeoutChan returns a channel that fires once, used as the "this should
// already have happened" arm of a select in tests that assert on session
// termination.
func timeoutChan() <-chan time.Time {
	return time.After(2 * time.Second)
}
