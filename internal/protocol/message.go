package protocol

// Command is the closed set of wire command names (spec §4.1).
type Command string

// The full closed set of protocol commands.
const (
	CmdHandshakeRequest Command = "HANDSHAKE_REQUEST"
	CmdHandshakeResponse Command = "HANDSHAKE_RESPONSE"
	CmdConnectionRefused Command = "CONNECTION_REFUSED"
	CmdInvalidProtocol    Command = "INVALID_PROTOCOL"

	CmdFileCreateRequest  Command = "FILE_CREATE_REQUEST"
	CmdFileCreateResponse Command = "FILE_CREATE_RESPONSE"
	CmdFileDeleteRequest  Command = "FILE_DELETE_REQUEST"
	CmdFileDeleteResponse Command = "FILE_DELETE_RESPONSE"
	CmdFileModifyRequest  Command = "FILE_MODIFY_REQUEST"
	CmdFileModifyResponse Command = "FILE_MODIFY_RESPONSE"
	CmdFileBytesRequest   Command = "FILE_BYTES_REQUEST"
	CmdFileBytesResponse  Command = "FILE_BYTES_RESPONSE"

	CmdDirectoryCreateRequest  Command = "DIRECTORY_CREATE_REQUEST"
	CmdDirectoryCreateResponse Command = "DIRECTORY_CREATE_RESPONSE"
	CmdDirectoryDeleteRequest  Command = "DIRECTORY_DELETE_REQUEST"
	CmdDirectoryDeleteResponse Command = "DIRECTORY_DELETE_RESPONSE"

	// CmdAdminListSessionsRequest and CmdAdminListSessionsResponse are a
	// SPEC_FULL.md addition (see SPEC_FULL.md § ADMIN surface): a CLI-visible
	// stand-in for the RPC control plane this module could not wire without
	// fabricating generated protobuf code.
	CmdAdminListSessionsRequest  Command = "ADMIN_LIST_SESSIONS_REQUEST"
	CmdAdminListSessionsResponse Command = "ADMIN_LIST_SESSIONS_RESPONSE"
)

// Message is satisfied by every concrete command type. Cmd returns the
// command name carried in the "command" field of the decoded line.
type Message interface {
	Cmd() Command
}

// HandshakeRequest is sent by the connection initiator immediately after
// the socket is established; an admitted inbound handshake is answered
// with a HandshakeResponse.
type HandshakeRequest struct {
	CommandName Command  `json:"command"`
	HostPort    HostPort `json:"hostPort"`
}

// Cmd implements Message.
func (m HandshakeRequest) Cmd() Command { return m.CommandName }

// NewHandshakeRequest builds a HANDSHAKE_REQUEST for hp.
func NewHandshakeRequest(hp HostPort) HandshakeRequest {
	return HandshakeRequest{CommandName: CmdHandshakeRequest, HostPort: hp}
}

// HandshakeResponse completes a handshake.
type HandshakeResponse struct {
	CommandName Command  `json:"command"`
	HostPort    HostPort `json:"hostPort"`
}

// Cmd implements Message.
func (m HandshakeResponse) Cmd() Command { return m.CommandName }

// NewHandshakeResponse builds a HANDSHAKE_RESPONSE for hp.
func NewHandshakeResponse(hp HostPort) HandshakeResponse {
	return HandshakeResponse{CommandName: CmdHandshakeResponse, HostPort: hp}
}

// ConnectionRefused is sent instead of HandshakeResponse when the local
// node has reached its configured connection cap. peers hints at other
// currently-connected peers the remote can try instead.
type ConnectionRefused struct {
	CommandName Command    `json:"command"`
	Message     string     `json:"message"`
	Peers       []HostPort `json:"peers"`
}

// Cmd implements Message.
func (m ConnectionRefused) Cmd() Command { return m.CommandName }

// NewConnectionRefused builds a CONNECTION_REFUSED carrying peers.
func NewConnectionRefused(message string, peers []HostPort) ConnectionRefused {
	if peers == nil {
		peers = []HostPort{}
	}
	return ConnectionRefused{CommandName: CmdConnectionRefused, Message: message, Peers: peers}
}

// InvalidProtocol reports a framing/validation/protocol-state failure. The
// session terminates immediately after sending it.
type InvalidProtocol struct {
	CommandName Command `json:"command"`
	Message     string  `json:"message"`
}

// Cmd implements Message.
func (m InvalidProtocol) Cmd() Command { return m.CommandName }

// NewInvalidProtocol builds an INVALID_PROTOCOL with message.
func NewInvalidProtocol(message string) InvalidProtocol {
	return InvalidProtocol{CommandName: CmdInvalidProtocol, Message: message}
}

// FileCreateRequest announces a new file the sender wants the receiver to
// have.
type FileCreateRequest struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
}

// Cmd implements Message.
func (m FileCreateRequest) Cmd() Command { return m.CommandName }

// NewFileCreateRequest builds a FILE_CREATE_REQUEST.
func NewFileCreateRequest(fd FileDescriptor, path string) FileCreateRequest {
	return FileCreateRequest{CommandName: CmdFileCreateRequest, FileDescriptor: fd, PathName: path}
}

// FileCreateResponse is the reply to FileCreateRequest.
type FileCreateResponse struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
	Message        string         `json:"message"`
	Status         bool           `json:"status"`
}

// Cmd implements Message.
func (m FileCreateResponse) Cmd() Command { return m.CommandName }

// NewFileCreateResponse builds a FILE_CREATE_RESPONSE.
func NewFileCreateResponse(fd FileDescriptor, path string, status bool, message string) FileCreateResponse {
	return FileCreateResponse{
		CommandName: CmdFileCreateResponse, FileDescriptor: fd, PathName: path,
		Status: status, Message: message,
	}
}

// FileModifyRequest announces a changed version of an existing file.
type FileModifyRequest struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
}

// Cmd implements Message.
func (m FileModifyRequest) Cmd() Command { return m.CommandName }

// NewFileModifyRequest builds a FILE_MODIFY_REQUEST.
func NewFileModifyRequest(fd FileDescriptor, path string) FileModifyRequest {
	return FileModifyRequest{CommandName: CmdFileModifyRequest, FileDescriptor: fd, PathName: path}
}

// FileModifyResponse is the reply to FileModifyRequest.
type FileModifyResponse struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
	Message        string         `json:"message"`
	Status         bool           `json:"status"`
}

// Cmd implements Message.
func (m FileModifyResponse) Cmd() Command { return m.CommandName }

// NewFileModifyResponse builds a FILE_MODIFY_RESPONSE.
func NewFileModifyResponse(fd FileDescriptor, path string, status bool, message string) FileModifyResponse {
	return FileModifyResponse{
		CommandName: CmdFileModifyResponse, FileDescriptor: fd, PathName: path,
		Status: status, Message: message,
	}
}

// FileDeleteRequest announces a local deletion.
type FileDeleteRequest struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
}

// Cmd implements Message.
func (m FileDeleteRequest) Cmd() Command { return m.CommandName }

// NewFileDeleteRequest builds a FILE_DELETE_REQUEST.
func NewFileDeleteRequest(fd FileDescriptor, path string) FileDeleteRequest {
	return FileDeleteRequest{CommandName: CmdFileDeleteRequest, FileDescriptor: fd, PathName: path}
}

// FileDeleteResponse is the reply to FileDeleteRequest.
type FileDeleteResponse struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
	Message        string         `json:"message"`
	Status         bool           `json:"status"`
}

// Cmd implements Message.
func (m FileDeleteResponse) Cmd() Command { return m.CommandName }

// NewFileDeleteResponse builds a FILE_DELETE_RESPONSE.
func NewFileDeleteResponse(fd FileDescriptor, path string, status bool, message string) FileDeleteResponse {
	return FileDeleteResponse{
		CommandName: CmdFileDeleteResponse, FileDescriptor: fd, PathName: path,
		Status: status, Message: message,
	}
}

// FileBytesRequest asks the peer for length bytes of the file identified by
// fileDescriptor, starting at position.
type FileBytesRequest struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
	Position       uint64         `json:"position"`
	Length         uint64         `json:"length"`
}

// Cmd implements Message.
func (m FileBytesRequest) Cmd() Command { return m.CommandName }

// NewFileBytesRequest builds a FILE_BYTES_REQUEST.
func NewFileBytesRequest(fd FileDescriptor, path string, position, length uint64) FileBytesRequest {
	return FileBytesRequest{
		CommandName: CmdFileBytesRequest, FileDescriptor: fd, PathName: path,
		Position: position, Length: length,
	}
}

// FileBytesResponse carries the requested chunk, Base64-encoded in Content.
type FileBytesResponse struct {
	CommandName    Command        `json:"command"`
	FileDescriptor FileDescriptor `json:"fileDescriptor"`
	PathName       string         `json:"pathName"`
	Position       uint64         `json:"position"`
	Length         uint64         `json:"length"`
	Content        string         `json:"content"`
	Message        string         `json:"message"`
	Status         bool           `json:"status"`
}

// Cmd implements Message.
func (m FileBytesResponse) Cmd() Command { return m.CommandName }

// NewFileBytesResponse builds a successful FILE_BYTES_RESPONSE.
func NewFileBytesResponse(fd FileDescriptor, path string, position, length uint64, content string) FileBytesResponse {
	return FileBytesResponse{
		CommandName: CmdFileBytesResponse, FileDescriptor: fd, PathName: path,
		Position: position, Length: length, Content: content,
		Status: true, Message: "successful read",
	}
}

// DirectoryCreateRequest announces a new local directory.
type DirectoryCreateRequest struct {
	CommandName Command `json:"command"`
	PathName    string  `json:"pathName"`
}

// Cmd implements Message.
func (m DirectoryCreateRequest) Cmd() Command { return m.CommandName }

// NewDirectoryCreateRequest builds a DIRECTORY_CREATE_REQUEST.
func NewDirectoryCreateRequest(path string) DirectoryCreateRequest {
	return DirectoryCreateRequest{CommandName: CmdDirectoryCreateRequest, PathName: path}
}

// DirectoryCreateResponse is the reply to DirectoryCreateRequest.
type DirectoryCreateResponse struct {
	CommandName Command `json:"command"`
	PathName    string  `json:"pathName"`
	Message     string  `json:"message"`
	Status      bool    `json:"status"`
}

// Cmd implements Message.
func (m DirectoryCreateResponse) Cmd() Command { return m.CommandName }

// NewDirectoryCreateResponse builds a DIRECTORY_CREATE_RESPONSE.
func NewDirectoryCreateResponse(path string, status bool, message string) DirectoryCreateResponse {
	return DirectoryCreateResponse{CommandName: CmdDirectoryCreateResponse, PathName: path, Status: status, Message: message}
}

// DirectoryDeleteRequest announces a local directory removal.
type DirectoryDeleteRequest struct {
	CommandName Command `json:"command"`
	PathName    string  `json:"pathName"`
}

// Cmd implements Message.
func (m DirectoryDeleteRequest) Cmd() Command { return m.CommandName }

// NewDirectoryDeleteRequest builds a DIRECTORY_DELETE_REQUEST.
func NewDirectoryDeleteRequest(path string) DirectoryDeleteRequest {
	return DirectoryDeleteRequest{CommandName: CmdDirectoryDeleteRequest, PathName: path}
}

// DirectoryDeleteResponse is the reply to DirectoryDeleteRequest.
type DirectoryDeleteResponse struct {
	CommandName Command `json:"command"`
	PathName    string  `json:"pathName"`
	Message     string  `json:"message"`
	Status      bool    `json:"status"`
}

// Cmd implements Message.
func (m DirectoryDeleteResponse) Cmd() Command { return m.CommandName }

// NewDirectoryDeleteResponse builds a DIRECTORY_DELETE_RESPONSE.
func NewDirectoryDeleteResponse(path string, status bool, message string) DirectoryDeleteResponse {
	return DirectoryDeleteResponse{CommandName: CmdDirectoryDeleteResponse, PathName: path, Status: status, Message: message}
}

// AdminListSessionsRequest asks a node for a snapshot of its active sessions.
// SPEC_FULL.md addition — see SPEC_FULL.md § ADMIN surface.
type AdminListSessionsRequest struct {
	CommandName Command `json:"command"`
}

// Cmd implements Message.
func (m AdminListSessionsRequest) Cmd() Command { return m.CommandName }

// NewAdminListSessionsRequest builds an ADMIN_LIST_SESSIONS_REQUEST.
func NewAdminListSessionsRequest() AdminListSessionsRequest {
	return AdminListSessionsRequest{CommandName: CmdAdminListSessionsRequest}
}

// SessionSummary is one entry of an AdminListSessionsResponse.
type SessionSummary struct {
	HostPort            HostPort `json:"hostPort"`
	HandshakeCompleted bool     `json:"handshakeCompleted"`
}

// AdminListSessionsResponse answers AdminListSessionsRequest.
type AdminListSessionsResponse struct {
	CommandName Command          `json:"command"`
	Sessions    []SessionSummary `json:"sessions"`
}

// Cmd implements Message.
func (m AdminListSessionsResponse) Cmd() Command { return m.CommandName }

// NewAdminListSessionsResponse builds an ADMIN_LIST_SESSIONS_RESPONSE.
func NewAdminListSessionsResponse(sessions []SessionSummary) AdminListSessionsResponse {
	if sessions == nil {
		sessions = []SessionSummary{}
	}
	return AdminListSessionsResponse{CommandName: CmdAdminListSessionsResponse, Sessions: sessions}
}
