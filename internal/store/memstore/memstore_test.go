package memstore_test

import (
	"crypto/md5" //nolint:gosec // matching memstore's own content-hash algorithm for test fixtures
	"encoding/hex"
	"errors"
	"testing"

	"github.com/dantte-lp/filesyncd/internal/store"
	"github.com/dantte-lp/filesyncd/internal/store/memstore"
)

// md5Of returns the same content hash memstore computes internally, so
// tests can address seeded files by hash without memstore exposing one.
func md5Of(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

func TestIsSafePathName(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")

	if !s.IsSafePathName("/a/b/c") {
		t.Error("IsSafePathName(/a/b/c) = false, want true")
	}
	if s.IsSafePathName("../../etc/passwd") {
		t.Error("IsSafePathName(../../etc/passwd) = true, want false")
	}
}

func TestCreateFileLoaderAndWrite(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")

	if err := s.CreateFileLoader("/f", "md5x", 5, 100); err != nil {
		t.Fatalf("CreateFileLoader() error: %v", err)
	}

	if err := s.WriteFile("/f", []byte("he"), 0); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if s.CheckWriteComplete("/f") {
		t.Error("CheckWriteComplete() = true before all bytes written")
	}

	if err := s.WriteFile("/f", []byte("llo"), 2); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	if !s.CheckWriteComplete("/f") {
		t.Error("CheckWriteComplete() = false after all bytes written")
	}

	if err := s.CancelFileLoader("/f"); err != nil {
		t.Fatalf("CancelFileLoader() error: %v", err)
	}

	if !s.FileNameExists("/f") {
		t.Error("FileNameExists(/f) = false after loader completion")
	}
}

func TestCheckShortcutSucceeds(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	existingContent := []byte("hello")
	s.Seed("/existing", existingContent, 50)

	if err := s.CreateFileLoader("/new", md5Of(existingContent), 5, 100); err != nil {
		t.Fatalf("CreateFileLoader() error: %v", err)
	}

	ok, err := s.CheckShortcut("/new")
	if err != nil {
		t.Fatalf("CheckShortcut() error: %v", err)
	}
	if !ok {
		t.Fatal("CheckShortcut() = false, want true")
	}
	if !s.FileNameExists("/new") {
		t.Error("FileNameExists(/new) = false after shortcut")
	}
}

func TestCheckShortcutNoLoader(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	_, err := s.CheckShortcut("/nope")
	if !errors.Is(err, store.ErrNotALoader) {
		t.Errorf("CheckShortcut() error = %v, want %v", err, store.ErrNotALoader)
	}
}

func TestModifyFileLoaderRejectsStaleVersion(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	s.Seed("/f", []byte("newer content"), 200)

	ok, err := s.ModifyFileLoader("/f", "md5y", 100)
	if err != nil {
		t.Fatalf("ModifyFileLoader() error: %v", err)
	}
	if ok {
		t.Error("ModifyFileLoader() = true for a stale lastModified, want false")
	}
}

func TestModifyFileLoaderAccepts(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	s.Seed("/f", []byte("older"), 100)

	ok, err := s.ModifyFileLoader("/f", "md5z", 200)
	if err != nil {
		t.Fatalf("ModifyFileLoader() error: %v", err)
	}
	if !ok {
		t.Fatal("ModifyFileLoader() = false for a newer lastModified, want true")
	}
}

func TestDeleteFileRequiresExactMatch(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	content := []byte("data")
	s.Seed("/f", content, 100)

	if s.DeleteFile("/f", 100, "wrong-hash") {
		t.Error("DeleteFile() with wrong hash = true, want false")
	}
	if !s.FileNameExists("/f") {
		t.Error("file removed despite mismatched hash")
	}

	if !s.DeleteFile("/f", 100, md5Of(content)) {
		t.Error("DeleteFile() with matching hash/lastModified = false, want true")
	}
	if s.FileNameExists("/f") {
		t.Error("FileNameExists(/f) = true after delete")
	}
}

func TestDirectoryLifecycle(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")

	if s.DirNameExists("/d") {
		t.Error("DirNameExists(/d) = true before creation")
	}
	if err := s.MakeDirectory("/d"); err != nil {
		t.Fatalf("MakeDirectory() error: %v", err)
	}
	if !s.DirNameExists("/d") {
		t.Error("DirNameExists(/d) = false after creation")
	}
	if err := s.DeleteDirectory("/d"); err != nil {
		t.Fatalf("DeleteDirectory() error: %v", err)
	}
	if s.DirNameExists("/d") {
		t.Error("DirNameExists(/d) = true after deletion")
	}
}

func TestReadFileUnknownContent(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	_, err := s.ReadFile("no-such-hash", 0, 10)
	if !errors.Is(err, store.ErrUnknownContent) {
		t.Errorf("ReadFile() error = %v, want %v", err, store.ErrUnknownContent)
	}
}

func TestReadFileChunked(t *testing.T) {
	t.Parallel()

	s := memstore.New("/share")
	content := []byte("hello world")
	s.Seed("/f", content, 100)

	chunk, err := s.ReadFile(md5Of(content), 0, 5)
	if err != nil {
		t.Fatalf("ReadFile() error: %v", err)
	}
	if string(chunk) != "hello" {
		t.Errorf("ReadFile() = %q, want %q", chunk, "hello")
	}
}
