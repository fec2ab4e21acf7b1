package node

import (
	"context"
	"log/slog"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// handleConnectionRefused implements the peer-candidate fallback path of
// spec §4.3 CONNECTION_REFUSED: queue the hinted peers, then try them in
// order until one accepts a fresh TCP connection and a new handshake can be
// sent on it. Returns true once a candidate accepts, so run()'s reader loop
// continues reading from the swapped-in socket; returns false once every
// candidate has been exhausted, ending the session.
//
// A CONNECTION_REFUSED received after the handshake has already completed
// is a protocol violation (spec §9 open question resolution): the fallback
// dance only makes sense as a reply to this session's own initial
// HANDSHAKE_REQUEST.
func (s *Session) handleConnectionRefused(ctx context.Context, m protocol.ConnectionRefused) bool {
	if s.handshakeCompleted.Load() {
		s.recordViolation("Invalid protocol: the message misses required fields")
		_ = s.writeMessage(protocol.NewInvalidProtocol("Invalid protocol: the message misses required fields"))
		return false
	}

	for _, candidate := range m.Peers {
		if !containsHostPort(s.peerCandidates, candidate) {
			s.peerCandidates = append(s.peerCandidates, candidate)
		}
	}

	for len(s.peerCandidates) > 0 {
		candidate := s.peerCandidates[0]
		s.peerCandidates = s.peerCandidates[1:]

		conn, err := s.dialer(ctx, candidate)
		if err != nil {
			s.logger.Debug("candidate unreachable", slog.String("candidate", candidate.String()), slog.String("error", err.Error()))
			continue
		}

		s.swapConn(conn)
		s.setClientHostPort(candidate)
		if err := s.writeMessage(protocol.NewHandshakeRequest(s.node.ServerHostPort())); err != nil {
			s.logger.Debug("send handshake to candidate failed", slog.String("candidate", candidate.String()), slog.String("error", err.Error()))
			continue
		}
		return true
	}

	s.logger.Debug("no reachable peer candidate, terminating session")
	return false
}

func containsHostPort(list []protocol.HostPort, hp protocol.HostPort) bool {
	for _, existing := range list {
		if existing.Equal(hp) {
			return true
		}
	}
	return false
}
