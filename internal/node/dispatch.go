package node

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

// dispatch handles one decoded message and reports whether the reader loop
// should continue (false means the session is terminating). This implements
// the per-command rule tables of spec §4.3.
func (s *Session) dispatch(ctx context.Context, msg protocol.Message) bool {
	switch m := msg.(type) {
	case protocol.HandshakeRequest:
		return s.handleHandshakeRequest(m)
	case protocol.HandshakeResponse:
		return s.handleHandshakeResponse(m)
	case protocol.ConnectionRefused:
		return s.handleConnectionRefused(ctx, m)

	case protocol.FileCreateRequest:
		return s.gated(func() bool { return s.handleFileCreateRequest(m) })
	case protocol.FileModifyRequest:
		return s.gated(func() bool { return s.handleFileModifyRequest(m) })
	case protocol.FileDeleteRequest:
		return s.gated(func() bool { return s.handleFileDeleteRequest(m) })
	case protocol.DirectoryCreateRequest:
		return s.gated(func() bool { return s.handleDirectoryCreateRequest(m) })
	case protocol.DirectoryDeleteRequest:
		return s.gated(func() bool { return s.handleDirectoryDeleteRequest(m) })
	case protocol.FileBytesRequest:
		return s.gated(func() bool { return s.handleFileBytesRequest(m) })
	case protocol.FileBytesResponse:
		return s.gated(func() bool { return s.handleFileBytesResponse(m) })

	case protocol.AdminListSessionsRequest:
		return s.handleAdminListSessionsRequest(m)

	default:
		// The FILE_*/DIRECTORY_* mutation responses (whatever their status)
		// have no case above and land here, as does anything else such as a
		// stray INVALID_PROTOCOL from the peer: each is logged at debug
		// level and otherwise ignored.
		s.logger.Debug("ignoring message", slog.String("command", string(msg.Cmd())))
		return true
	}
}

// gated enforces P1 (handshake gate): the handler wrapped by it is skipped,
// and the message silently dropped, before handshake completion. dispatch
// wraps every mutation and byte-transfer request plus FILE_BYTES_RESPONSE;
// HANDSHAKE_*, CONNECTION_REFUSED and ADMIN_LIST_SESSIONS_REQUEST are not
// gated.
func (s *Session) gated(fn func() bool) bool {
	if !s.handshakeCompleted.Load() {
		s.logger.Debug("dropping message before handshake completion")
		return true
	}
	return fn()
}

// fatal logs a store failure and terminates the session (spec §7 error kind
// 6: "Store failure ... surface upward as fatal for the session"). It
// reports false so dispatch's caller stops the reader loop; Close is
// idempotent and terminate() (deferred in run()) handles deregistration.
func (s *Session) fatal(op string, err error) bool {
	s.logger.Error("store failure, terminating session", slog.String("op", op), slog.String("error", err.Error()))
	s.Close()
	return false
}

// -----------------------------------------------------------------------
// Handshake and refusal
// -----------------------------------------------------------------------

func (s *Session) handleHandshakeRequest(m protocol.HandshakeRequest) bool {
	if s.handshakeCompleted.Load() {
		s.recordViolation("handshake has been completed")
		_ = s.writeMessage(protocol.NewInvalidProtocol("handshake has been completed"))
		return false
	}

	if s.node.HasReachedMaxConnections() {
		peers := s.node.ConnectedPeerHostPort(m.HostPort)
		_ = s.writeMessage(protocol.NewConnectionRefused("Connection refused: maximum incoming connections reached", peers))
		return false
	}

	s.setClientHostPort(m.HostPort)
	if err := s.writeMessage(protocol.NewHandshakeResponse(s.node.ServerHostPort())); err != nil {
		s.logger.Debug("write handshake response failed", slog.String("error", err.Error()))
		return false
	}
	s.handshakeCompleted.Store(true)
	return true
}

func (s *Session) handleHandshakeResponse(m protocol.HandshakeResponse) bool {
	s.setClientHostPort(m.HostPort)
	s.handshakeCompleted.Store(true)
	s.peerCandidates = nil
	return true
}

// -----------------------------------------------------------------------
// File operations
// -----------------------------------------------------------------------

func (s *Session) handleFileCreateRequest(m protocol.FileCreateRequest) bool {
	p, fd := m.PathName, m.FileDescriptor

	if !s.node.store.IsSafePathName(p) {
		s.reply(protocol.NewFileCreateResponse(fd, p, false, fmt.Sprintf("Path name is unsafe: %s", p)))
		return true
	}
	if s.node.store.FileNameExistsWithHash(p, fd.MD5) {
		s.reply(protocol.NewFileCreateResponse(fd, p, false, fmt.Sprintf("File with the same content has existed: %s", p)))
		return true
	}
	if s.node.store.FileNameExists(p) {
		ok, err := s.node.store.ModifyFileLoader(p, fd.MD5, fd.LastModified)
		if err != nil {
			return s.fatal("modifyFileLoader", err)
		}
		if !ok {
			s.reply(protocol.NewFileCreateResponse(fd, p, false, fmt.Sprintf("There is a newer version: %s", p)))
			return true
		}
		s.reply(protocol.NewFileCreateResponse(fd, p, true, "Overwrite the older version"))
		return s.requestFirstChunk(fd, p)
	}

	if err := s.node.store.CreateFileLoader(p, fd.MD5, fd.FileSize, fd.LastModified); err != nil {
		return s.fatal("createFileLoader", err)
	}
	shortcut, err := s.node.store.CheckShortcut(p)
	if err != nil {
		return s.fatal("checkShortcut", err)
	}
	if shortcut {
		s.reply(protocol.NewFileCreateResponse(fd, p, false, "There is a file with the same content, no need to transfer it again."))
		return true
	}

	s.reply(protocol.NewFileCreateResponse(fd, p, true, "File loader ready"))
	return s.requestFirstChunk(fd, p)
}

func (s *Session) handleFileModifyRequest(m protocol.FileModifyRequest) bool {
	p, fd := m.PathName, m.FileDescriptor

	if !s.node.store.IsSafePathName(p) {
		s.reply(protocol.NewFileModifyResponse(fd, p, false, fmt.Sprintf("Path name is unsafe: %s", p)))
		return true
	}
	if s.node.store.FileNameExistsWithHash(p, fd.MD5) {
		s.reply(protocol.NewFileModifyResponse(fd, p, false, fmt.Sprintf("File with the same content has existed: %s", p)))
		return true
	}
	ok, err := s.node.store.ModifyFileLoader(p, fd.MD5, fd.LastModified)
	if err != nil {
		return s.fatal("modifyFileLoader", err)
	}
	if !ok {
		s.reply(protocol.NewFileModifyResponse(fd, p, false, "File doesn't exist: File modify request failed"))
		return true
	}
	s.reply(protocol.NewFileModifyResponse(fd, p, true, "Modify file loader ready"))
	return s.requestFirstChunk(fd, p)
}

func (s *Session) handleFileDeleteRequest(m protocol.FileDeleteRequest) bool {
	p, fd := m.PathName, m.FileDescriptor

	if !s.node.store.IsSafePathName(p) {
		s.reply(protocol.NewFileDeleteResponse(fd, p, false, fmt.Sprintf("Path name is unsafe: %s", p)))
		return true
	}
	if !s.node.store.DeleteFile(p, fd.LastModified, fd.MD5) {
		s.reply(protocol.NewFileDeleteResponse(fd, p, false, fmt.Sprintf("File doesn't exist: %s", p)))
		return true
	}
	s.reply(protocol.NewFileDeleteResponse(fd, p, true, "The file was deleted"))
	return true
}

// requestFirstChunk issues the initial FILE_BYTES_REQUEST for a newly
// accepted loader (spec §4.3: "position=0, length=min(blockSize, fd.fileSize)").
func (s *Session) requestFirstChunk(fd protocol.FileDescriptor, path string) bool {
	length := s.node.BlockSize()
	if fd.FileSize < length {
		length = fd.FileSize
	}
	s.startTransferTimer(path)
	s.reply(protocol.NewFileBytesRequest(fd, path, 0, length))
	return true
}

// -----------------------------------------------------------------------
// Directory operations
// -----------------------------------------------------------------------

func (s *Session) handleDirectoryCreateRequest(m protocol.DirectoryCreateRequest) bool {
	p := m.PathName

	if !s.node.store.IsSafePathName(p) {
		s.reply(protocol.NewDirectoryCreateResponse(p, false, fmt.Sprintf("Path name is unsafe: %s", p)))
		return true
	}
	if s.node.store.DirNameExists(p) {
		s.reply(protocol.NewDirectoryCreateResponse(p, false, fmt.Sprintf("Directory name has existed: %s", p)))
		return true
	}
	if err := s.node.store.MakeDirectory(p); err != nil {
		return s.fatal("makeDirectory", err)
	}
	s.reply(protocol.NewDirectoryCreateResponse(p, true, "Directory was created"))
	return true
}

func (s *Session) handleDirectoryDeleteRequest(m protocol.DirectoryDeleteRequest) bool {
	p := m.PathName

	if !s.node.store.IsSafePathName(p) {
		s.reply(protocol.NewDirectoryDeleteResponse(p, false, fmt.Sprintf("Path name is unsafe: %s", p)))
		return true
	}
	if !s.node.store.DirNameExists(p) {
		s.reply(protocol.NewDirectoryDeleteResponse(p, false, fmt.Sprintf("Directory doesn't exist: %s", p)))
		return true
	}
	if err := s.node.store.DeleteDirectory(p); err != nil {
		return s.fatal("deleteDirectory", err)
	}
	s.reply(protocol.NewDirectoryDeleteResponse(p, true, "Directory was deleted"))
	return true
}

// -----------------------------------------------------------------------
// Byte transfer (request side)
// -----------------------------------------------------------------------

func (s *Session) handleFileBytesRequest(m protocol.FileBytesRequest) bool {
	data, err := s.node.store.ReadFile(m.FileDescriptor.MD5, m.Position, m.Length)
	if err != nil {
		return s.fatal("readFile", err)
	}
	content := base64.StdEncoding.EncodeToString(data)
	s.reply(protocol.NewFileBytesResponse(m.FileDescriptor, m.PathName, m.Position, m.Length, content))
	if s.node.metrics != nil {
		s.node.metrics.BytesTransferred.Add(float64(len(data)))
	}
	return true
}

// -----------------------------------------------------------------------
// Admin surface
// -----------------------------------------------------------------------

func (s *Session) handleAdminListSessionsRequest(protocol.AdminListSessionsRequest) bool {
	s.reply(protocol.NewAdminListSessionsResponse(s.node.ListSessions()))
	return true
}
