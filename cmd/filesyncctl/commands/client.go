// Package commands implements the filesyncctl CLI commands.
package commands

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// serverAddr is the daemon's TCP listen address (host:port), set via the
// persistent --addr flag.
var serverAddr string

// outputFormat controls the output format for commands that print
// structured data.
var outputFormat string

// dialTimeout bounds how long a single admin round-trip may take.
const dialTimeout = 5 * time.Second

// listSessions opens a short-lived TCP connection to the daemon's listener,
// sends ADMIN_LIST_SESSIONS_REQUEST, and returns the decoded response. The
// admin surface bypasses the handshake entirely (SPEC_FULL.md § ADMIN
// surface), so this is the full round-trip.
func listSessions(addr string) ([]protocol.SessionSummary, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(dialTimeout))

	if err := protocol.Encode(conn, protocol.NewAdminListSessionsRequest()); err != nil {
		return nil, fmt.Errorf("send admin request: %w", err)
	}

	line, err := protocol.ReadLine(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read admin response: %w", err)
	}

	msg, err := protocol.Decode(line)
	if err != nil {
		return nil, fmt.Errorf("decode admin response: %w", err)
	}

	resp, ok := msg.(protocol.AdminListSessionsResponse)
	if !ok {
		return nil, fmt.Errorf("unexpected response command %q", msg.Cmd())
	}

	return resp.Sessions, nil
}
