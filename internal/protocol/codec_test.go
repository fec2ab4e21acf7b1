package protocol_test

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/dantte-lp/filesyncd/internal/protocol"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	fd := protocol.FileDescriptor{MD5: "abc123", LastModified: 100, FileSize: 5}

	tests := []struct {
		name string
		msg  protocol.Message
	}{
		{"handshake request", protocol.NewHandshakeRequest(protocol.HostPort{Host: "a", Port: 1})},
		{"handshake response", protocol.NewHandshakeResponse(protocol.HostPort{Host: "b", Port: 2})},
		{"connection refused", protocol.NewConnectionRefused("refused", []protocol.HostPort{{Host: "c", Port: 3}})},
		{"invalid protocol", protocol.NewInvalidProtocol("bad message")},
		{"file create request", protocol.NewFileCreateRequest(fd, "/a/b")},
		{"file create response", protocol.NewFileCreateResponse(fd, "/a/b", true, "File loader ready")},
		{"file modify request", protocol.NewFileModifyRequest(fd, "/a/b")},
		{"file modify response", protocol.NewFileModifyResponse(fd, "/a/b", false, "File doesn't exist: File modify request failed")},
		{"file delete request", protocol.NewFileDeleteRequest(fd, "/a/b")},
		{"file delete response", protocol.NewFileDeleteResponse(fd, "/a/b", true, "The file was deleted")},
		{"file bytes request", protocol.NewFileBytesRequest(fd, "/a/b", 0, 2)},
		{"file bytes response", protocol.NewFileBytesResponse(fd, "/a/b", 0, 2, "aGVsbG8=")},
		{"directory create request", protocol.NewDirectoryCreateRequest("/a")},
		{"directory create response", protocol.NewDirectoryCreateResponse("/a", true, "Directory was created")},
		{"directory delete request", protocol.NewDirectoryDeleteRequest("/a")},
		{"directory delete response", protocol.NewDirectoryDeleteResponse("/a", true, "Directory was deleted")},
		{"admin list sessions request", protocol.NewAdminListSessionsRequest()},
		{"admin list sessions response", protocol.NewAdminListSessionsResponse([]protocol.SessionSummary{
			{HostPort: protocol.HostPort{Host: "a", Port: 1}, HandshakeCompleted: true},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			if err := protocol.Encode(&buf, tt.msg); err != nil {
				t.Fatalf("Encode() error: %v", err)
			}

			if !strings.HasSuffix(buf.String(), "\n") {
				t.Error("Encode() did not terminate with a newline")
			}

			line, err := protocol.ReadLine(bufio.NewReader(&buf))
			if err != nil {
				t.Fatalf("ReadLine() error: %v", err)
			}

			got, err := protocol.Decode(line)
			if err != nil {
				t.Fatalf("Decode() error: %v", err)
			}

			if got.Cmd() != tt.msg.Cmd() {
				t.Errorf("Cmd() = %v, want %v", got.Cmd(), tt.msg.Cmd())
			}
		})
	}
}

func TestDecodeEmptyLine(t *testing.T) {
	t.Parallel()

	_, err := protocol.Decode(nil)
	if !errors.Is(err, protocol.ErrEmptyLine) {
		t.Errorf("Decode(nil) error = %v, want %v", err, protocol.ErrEmptyLine)
	}
}

func TestDecodeUnknownCommand(t *testing.T) {
	t.Parallel()

	_, err := protocol.Decode([]byte(`{"command":"NOT_A_REAL_COMMAND"}`))
	if !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Errorf("Decode() error = %v, want %v", err, protocol.ErrUnknownCommand)
	}
}

func TestDecodeNonJSON(t *testing.T) {
	t.Parallel()

	_, err := protocol.Decode([]byte(`not json at all`))
	if !errors.Is(err, protocol.ErrUnknownCommand) {
		t.Errorf("Decode() error = %v, want %v", err, protocol.ErrUnknownCommand)
	}
}

func TestDecodeMissingRequiredFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"handshake request missing hostPort", `{"command":"HANDSHAKE_REQUEST"}`},
		{"file create request missing pathName", `{"command":"FILE_CREATE_REQUEST","fileDescriptor":{"md5":"x","lastModified":1,"fileSize":1}}`},
		{"file bytes response missing content", `{"command":"FILE_BYTES_RESPONSE","fileDescriptor":{"md5":"x","lastModified":1,"fileSize":1},"pathName":"/a","position":0,"length":1,"message":"successful read","status":true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := protocol.Decode([]byte(tt.line))
			if !errors.Is(err, protocol.ErrMissingFields) {
				t.Errorf("Decode(%q) error = %v, want %v", tt.line, err, protocol.ErrMissingFields)
			}
		})
	}
}

func TestReadLineHandlesEOFWithoutTrailingNewline(t *testing.T) {
	t.Parallel()

	r := bufio.NewReader(strings.NewReader(`{"command":"INVALID_PROTOCOL","message":"x"}`))
	line, err := protocol.ReadLine(r)
	if err != nil {
		t.Fatalf("ReadLine() error: %v", err)
	}

	msg, err := protocol.Decode(line)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if msg.Cmd() != protocol.CmdInvalidProtocol {
		t.Errorf("Cmd() = %v, want %v", msg.Cmd(), protocol.CmdInvalidProtocol)
	}
}

func TestFileBytesResponseHardcodesSuccessFields(t *testing.T) {
	t.Parallel()

	fd := protocol.FileDescriptor{MD5: "x", LastModified: 1, FileSize: 10}
	msg := protocol.NewFileBytesResponse(fd, "/a", 0, 5, "AAAA")

	if !msg.Status {
		t.Error("NewFileBytesResponse() Status = false, want true")
	}
	if msg.Message != "successful read" {
		t.Errorf("NewFileBytesResponse() Message = %q, want %q", msg.Message, "successful read")
	}
}
