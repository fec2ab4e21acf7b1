package node

import (
	"context"
	"log/slog"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// FSEventKind is the closed set of local filesystem events the watcher can
// report (spec §4.5).
type FSEventKind int

const (
	FSEventFileCreate FSEventKind = iota
	FSEventFileModify
	FSEventFileDelete
	FSEventDirectoryCreate
	FSEventDirectoryDelete
)

// FSEvent is one local filesystem change, translated to an outbound
// protocol message per session (spec §4.5). FileDescriptor is unused for
// the two directory kinds.
type FSEvent struct {
	Kind           FSEventKind
	PathName       string
	FileDescriptor protocol.FileDescriptor
}

// HandleFSEvent turns a local filesystem event into the matching outbound
// message and writes it to this session, provided the handshake has
// completed (spec §4.5). I/O failures are logged, not fatal: session
// termination stays reader-driven.
func (s *Session) HandleFSEvent(ctx context.Context, event FSEvent) {
	if !s.handshakeCompleted.Load() {
		return
	}

	var msg protocol.Message
	switch event.Kind {
	case FSEventFileCreate:
		msg = protocol.NewFileCreateRequest(event.FileDescriptor, event.PathName)
	case FSEventFileModify:
		msg = protocol.NewFileModifyRequest(event.FileDescriptor, event.PathName)
	case FSEventFileDelete:
		msg = protocol.NewFileDeleteRequest(event.FileDescriptor, event.PathName)
	case FSEventDirectoryCreate:
		msg = protocol.NewDirectoryCreateRequest(event.PathName)
	case FSEventDirectoryDelete:
		msg = protocol.NewDirectoryDeleteRequest(event.PathName)
	default:
		s.logger.Warn("unknown fs event kind", slog.Int("kind", int(event.Kind)))
		return
	}

	if err := s.writeMessage(msg); err != nil {
		s.logger.Warn("fs event fan-out write failed", slog.String("error", err.Error()), slog.String("path", event.PathName))
	}
}
