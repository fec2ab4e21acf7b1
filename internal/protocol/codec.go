package protocol

import (
	"bufio"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

// json is a drop-in, faster replacement for encoding/json used throughout
// the codec. The control channel decodes one line per inbound message and
// one line per FILE_BYTES_RESPONSE chunk, making it the hottest JSON path
// in the daemon.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrEmptyLine is returned by Decode when the underlying reader produced a
// blank line where a message was expected.
var ErrEmptyLine = errors.New("protocol: empty line")

// ErrUnknownCommand is returned by Decode when the "command" field is
// missing or outside the closed set enumerated in spec §4.1.
var ErrUnknownCommand = errors.New("protocol: unknown command")

// ErrMissingFields is returned by Decode when the command is recognized but
// one or more of its required fields are absent from the JSON object.
var ErrMissingFields = errors.New("protocol: missing required fields")

// envelope is the shape every message shares; it is decoded first so the
// codec can branch on Command before committing to a concrete type.
type envelope struct {
	Command Command `json:"command"`
}

// requiredFields lists, per command, the JSON keys that must be present
// for the message to be considered valid (spec §6.1).
var requiredFields = map[Command][]string{
	CmdHandshakeRequest:  {"hostPort"},
	CmdHandshakeResponse: {"hostPort"},
	CmdConnectionRefused: {"message", "peers"},
	CmdInvalidProtocol:   {"message"},

	CmdFileCreateRequest:  {"fileDescriptor", "pathName"},
	CmdFileCreateResponse: {"fileDescriptor", "pathName", "message", "status"},
	CmdFileModifyRequest:  {"fileDescriptor", "pathName"},
	CmdFileModifyResponse: {"fileDescriptor", "pathName", "message", "status"},
	CmdFileDeleteRequest:  {"fileDescriptor", "pathName"},
	CmdFileDeleteResponse: {"fileDescriptor", "pathName", "message", "status"},
	CmdFileBytesRequest:   {"fileDescriptor", "pathName", "position", "length"},
	CmdFileBytesResponse:  {"fileDescriptor", "pathName", "position", "length", "content", "message", "status"},

	CmdDirectoryCreateRequest:  {"pathName"},
	CmdDirectoryCreateResponse: {"pathName", "message", "status"},
	CmdDirectoryDeleteRequest:  {"pathName"},
	CmdDirectoryDeleteResponse: {"pathName", "message", "status"},

	CmdAdminListSessionsRequest:  {},
	CmdAdminListSessionsResponse: {"sessions"},
}

// isValid reports whether raw (a decoded JSON object) carries every field
// required for cmd, per spec §4.1/§6.1.
func isValid(cmd Command, raw map[string]jsoniter.RawMessage) bool {
	fields, known := requiredFields[cmd]
	if !known {
		return false
	}
	for _, f := range fields {
		if _, present := raw[f]; !present {
			return false
		}
	}
	return true
}

// Decode reads and parses a single newline-delimited JSON message from line.
// It returns ErrEmptyLine for a blank line, ErrUnknownCommand for an
// unparseable or out-of-set command, and ErrMissingFields when the command
// is recognized but validation per spec §4.1 fails. Any of these is a
// framing/validation failure per spec §7.1: the caller replies
// INVALID_PROTOCOL and terminates the session.
func Decode(line []byte) (Message, error) {
	if len(line) == 0 {
		return nil, ErrEmptyLine
	}

	var raw map[string]jsoniter.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnknownCommand, err)
	}

	var env envelope
	if err := json.Unmarshal(line, &env); err != nil || env.Command == "" {
		return nil, ErrUnknownCommand
	}

	if _, known := requiredFields[env.Command]; !known {
		return nil, ErrUnknownCommand
	}

	if !isValid(env.Command, raw) {
		return nil, ErrMissingFields
	}

	target := newZeroValue(env.Command)
	if target == nil {
		return nil, ErrUnknownCommand
	}
	if err := json.Unmarshal(line, target); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingFields, err)
	}

	return dereference(target), nil
}

// newZeroValue returns a pointer to a zero-valued concrete message struct
// for cmd, suitable as an Unmarshal target.
func newZeroValue(cmd Command) any {
	switch cmd {
	case CmdHandshakeRequest:
		return &HandshakeRequest{}
	case CmdHandshakeResponse:
		return &HandshakeResponse{}
	case CmdConnectionRefused:
		return &ConnectionRefused{}
	case CmdInvalidProtocol:
		return &InvalidProtocol{}
	case CmdFileCreateRequest:
		return &FileCreateRequest{}
	case CmdFileCreateResponse:
		return &FileCreateResponse{}
	case CmdFileModifyRequest:
		return &FileModifyRequest{}
	case CmdFileModifyResponse:
		return &FileModifyResponse{}
	case CmdFileDeleteRequest:
		return &FileDeleteRequest{}
	case CmdFileDeleteResponse:
		return &FileDeleteResponse{}
	case CmdFileBytesRequest:
		return &FileBytesRequest{}
	case CmdFileBytesResponse:
		return &FileBytesResponse{}
	case CmdDirectoryCreateRequest:
		return &DirectoryCreateRequest{}
	case CmdDirectoryCreateResponse:
		return &DirectoryCreateResponse{}
	case CmdDirectoryDeleteRequest:
		return &DirectoryDeleteRequest{}
	case CmdDirectoryDeleteResponse:
		return &DirectoryDeleteResponse{}
	case CmdAdminListSessionsRequest:
		return &AdminListSessionsRequest{}
	case CmdAdminListSessionsResponse:
		return &AdminListSessionsResponse{}
	default:
		return nil
	}
}

// dereference converts a pointer-to-concrete-message produced by
// newZeroValue into the Message interface value callers expect.
func dereference(target any) Message {
	switch v := target.(type) {
	case *HandshakeRequest:
		return *v
	case *HandshakeResponse:
		return *v
	case *ConnectionRefused:
		return *v
	case *InvalidProtocol:
		return *v
	case *FileCreateRequest:
		return *v
	case *FileCreateResponse:
		return *v
	case *FileModifyRequest:
		return *v
	case *FileModifyResponse:
		return *v
	case *FileDeleteRequest:
		return *v
	case *FileDeleteResponse:
		return *v
	case *FileBytesRequest:
		return *v
	case *FileBytesResponse:
		return *v
	case *DirectoryCreateRequest:
		return *v
	case *DirectoryCreateResponse:
		return *v
	case *DirectoryDeleteRequest:
		return *v
	case *DirectoryDeleteResponse:
		return *v
	case *AdminListSessionsRequest:
		return *v
	case *AdminListSessionsResponse:
		return *v
	default:
		return nil
	}
}

// ReadLine reads one newline-terminated line from r, trimming the
// terminator. io.EOF is returned unwrapped when the connection closes
// cleanly between messages.
func ReadLine(r *bufio.Reader) ([]byte, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && len(line) > 0 {
			return trimNewline(line), nil
		}
		return nil, err
	}
	return trimNewline(line), nil
}

func trimNewline(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}

// Encode serializes msg as a single JSON line terminated by '\n' and writes
// it to w. Callers are responsible for holding the per-session writer lock
// around Encode + Flush so the line is written atomically (spec §5).
func Encode(w io.Writer, msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("protocol: encode %s: %w", msg.Cmd(), err)
	}
	b = append(b, '\n')
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("protocol: write %s: %w", msg.Cmd(), err)
	}
	return nil
}
