// Package memstore is an in-memory reference implementation of store.Store,
// used by unit tests and by test/integration in place of the real,
// out-of-scope content-addressed file store (spec §6.4). It is a test
// double, not a production store: it keeps everything in process memory and
// uses the standard library's crypto/md5 for content hashing rather than a
// third-party codec, since nothing here is on a hot path worth optimizing.
package memstore

import (
	"crypto/md5" //nolint:gosec // content-addressing hash, not a security boundary
	"encoding/hex"
	"fmt"
	"path"
	"strings"
	"sync"

	"github.com/dantte-lp/filesyncd/internal/store"
)

// fileVersion is one stored file's current content and metadata.
type fileVersion struct {
	data         []byte
	md5          string
	lastModified int64
}

// loader is an in-progress staged write.
type loader struct {
	md5          string
	size         uint64
	lastModified int64
	buf          []byte
	written      []bool
}

func (l *loader) complete() bool {
	if uint64(len(l.buf)) != l.size {
		return false
	}
	for _, w := range l.written {
		if !w {
			return false
		}
	}
	return true
}

// Store is an in-memory store.Store.
type Store struct {
	root string

	mu      sync.Mutex
	files   map[string]*fileVersion
	dirs    map[string]struct{}
	loaders map[string]*loader
}

// New creates an empty in-memory store rooted at root. root is recorded but
// not consulted: paths are resolved against a virtual share root, and no
// real filesystem I/O occurs.
func New(root string) *Store {
	return &Store{
		root:    root,
		files:   make(map[string]*fileVersion),
		dirs:    make(map[string]struct{}),
		loaders: make(map[string]*loader),
	}
}

// Seed installs a file directly, bypassing the loader lifecycle. Useful for
// constructing shortcut/conflict scenarios in tests.
func (s *Store) Seed(p string, data []byte, lastModified int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[clean(p)] = &fileVersion{data: data, md5: hashOf(data), lastModified: lastModified}
}

var _ store.Store = (*Store)(nil)

func clean(p string) string {
	return path.Clean("/" + strings.TrimPrefix(p, "/"))
}

func hashOf(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// IsSafePathName implements store.Store.
func (s *Store) IsSafePathName(p string) bool {
	rel := path.Clean(strings.TrimLeft(p, "/"))
	return rel != ".." && !strings.HasPrefix(rel, "../")
}

// FileNameExists implements store.Store.
func (s *Store) FileNameExists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[clean(p)]
	return ok
}

// FileNameExistsWithHash implements store.Store.
func (s *Store) FileNameExistsWithHash(p, md5sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	fv, ok := s.files[clean(p)]
	return ok && fv.md5 == md5sum
}

// DirNameExists implements store.Store.
func (s *Store) DirNameExists(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.dirs[clean(p)]
	return ok
}

// CreateFileLoader implements store.Store.
func (s *Store) CreateFileLoader(p, md5sum string, size uint64, lastModified int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaders[clean(p)] = &loader{
		md5: md5sum, size: size, lastModified: lastModified,
		buf: make([]byte, size), written: make([]bool, size),
	}
	return nil
}

// ModifyFileLoader implements store.Store.
func (s *Store) ModifyFileLoader(p, md5sum string, lastModified int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	existing, ok := s.files[key]
	if !ok {
		return false, nil
	}
	if existing.lastModified > lastModified {
		return false, nil
	}

	s.loaders[key] = &loader{
		md5: md5sum, size: uint64(len(existing.data)), lastModified: lastModified,
		buf: make([]byte, len(existing.data)), written: make([]bool, len(existing.data)),
	}
	return true, nil
}

// CheckShortcut implements store.Store.
func (s *Store) CheckShortcut(p string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	ld, ok := s.loaders[key]
	if !ok {
		return false, fmt.Errorf("memstore: check shortcut %q: %w", p, store.ErrNotALoader)
	}

	for candidate, fv := range s.files {
		if candidate == key {
			continue
		}
		if fv.md5 == ld.md5 && uint64(len(fv.data)) == ld.size {
			s.files[key] = &fileVersion{data: append([]byte(nil), fv.data...), md5: fv.md5, lastModified: ld.lastModified}
			delete(s.loaders, key)
			return true, nil
		}
	}
	return false, nil
}

// WriteFile implements store.Store.
func (s *Store) WriteFile(p string, data []byte, position uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	ld, ok := s.loaders[key]
	if !ok {
		return fmt.Errorf("memstore: write %q: %w", p, store.ErrNotALoader)
	}
	for i, b := range data {
		idx := position + uint64(i)
		if idx >= uint64(len(ld.buf)) {
			break
		}
		ld.buf[idx] = b
		ld.written[idx] = true
	}
	return nil
}

// CheckWriteComplete implements store.Store.
func (s *Store) CheckWriteComplete(p string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ld, ok := s.loaders[clean(p)]
	return ok && ld.complete()
}

// CancelFileLoader implements store.Store.
func (s *Store) CancelFileLoader(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	ld, ok := s.loaders[key]
	if !ok {
		return nil
	}
	if ld.complete() {
		s.files[key] = &fileVersion{data: ld.buf, md5: ld.md5, lastModified: ld.lastModified}
	}
	delete(s.loaders, key)
	return nil
}

// ReadFile implements store.Store.
func (s *Store) ReadFile(md5sum string, position, length uint64) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, fv := range s.files {
		if fv.md5 != md5sum {
			continue
		}
		end := position + length
		if end > uint64(len(fv.data)) {
			end = uint64(len(fv.data))
		}
		if position > end {
			return nil, nil
		}
		return append([]byte(nil), fv.data[position:end]...), nil
	}
	return nil, fmt.Errorf("memstore: read %q: %w", md5sum, store.ErrUnknownContent)
}

// DeleteFile implements store.Store.
func (s *Store) DeleteFile(p string, lastModified int64, md5sum string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := clean(p)
	fv, ok := s.files[key]
	if !ok || fv.md5 != md5sum || fv.lastModified != lastModified {
		return false
	}
	delete(s.files, key)
	return true
}

// MakeDirectory implements store.Store.
func (s *Store) MakeDirectory(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirs[clean(p)] = struct{}{}
	return nil
}

// DeleteDirectory implements store.Store.
func (s *Store) DeleteDirectory(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.dirs, clean(p))
	return nil
}
