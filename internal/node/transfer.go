package node

import (
	"encoding/base64"
	"log/slog"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// handleFileBytesResponse implements the chunked-transfer continuation
// logic of spec §4.3 FILE_BYTES_RESPONSE. A malformed Base64 payload is a
// wire-format defect, handled the same way any other framing violation is:
// INVALID_PROTOCOL followed by termination. A store failure is fatal for
// the session per spec §7 error kind 6.
func (s *Session) handleFileBytesResponse(m protocol.FileBytesResponse) bool {
	if !m.Status {
		// Open question in spec §9: on status=false, cancel the loader and
		// stop requesting rather than retrying indefinitely.
		s.logger.Warn("peer reported failed read", slog.String("path", m.PathName), slog.String("message", m.Message))
		s.dropTransferTimer(m.PathName)
		if err := s.node.store.CancelFileLoader(m.PathName); err != nil {
			return s.fatal("cancelFileLoader", err)
		}
		return true
	}

	data, err := base64.StdEncoding.DecodeString(m.Content)
	if err != nil {
		s.recordViolation("Invalid protocol: the message misses required fields")
		_ = s.writeMessage(protocol.NewInvalidProtocol("Invalid protocol: the message misses required fields"))
		s.dropTransferTimer(m.PathName)
		s.Close()
		return false
	}

	if err := s.node.store.WriteFile(m.PathName, data, m.Position); err != nil {
		return s.fatal("writeFile", err)
	}
	if s.node.metrics != nil {
		s.node.metrics.BytesTransferred.Add(float64(len(data)))
	}

	nextPosition := m.Position + m.Length
	var remaining uint64
	if m.FileDescriptor.FileSize > nextPosition {
		remaining = m.FileDescriptor.FileSize - nextPosition
	}
	nextLength := m.Length
	if remaining < nextLength {
		nextLength = remaining
	}

	complete := s.node.store.CheckWriteComplete(m.PathName)
	if !complete && nextLength != 0 {
		s.reply(protocol.NewFileBytesRequest(m.FileDescriptor, m.PathName, nextPosition, nextLength))
		return true
	}

	s.finishTransferTimer(m.PathName)
	if err := s.node.store.CancelFileLoader(m.PathName); err != nil {
		return s.fatal("cancelFileLoader", err)
	}
	return true
}
