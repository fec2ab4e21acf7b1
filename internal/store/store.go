// Package store defines the contract the connection core assumes from the
// external, content-addressed file store (spec §4.2, §6.4). The store alone
// is responsible for persistence, content hashing, and conflict detection;
// this package only describes the interface and provides a reference
// in-memory implementation (store/memstore) for tests.
package store

import "errors"

// ErrNotALoader is returned by loader operations against a path that has no
// in-progress staged write.
var ErrNotALoader = errors.New("store: no loader staged for path")

// ErrUnknownContent is returned by ReadFile when no local file matches the
// requested content hash.
var ErrUnknownContent = errors.New("store: no local file with that content hash")

// Store is the filesystem-manager contract assumed by internal/node's
// Session/dispatch handlers (spec §4.2).
//
// -------------------------------------------------------------------------
// Safety & existence checks
// -------------------------------------------------------------------------
type Store interface {
	// IsSafePathName reports whether path resolves inside the share root
	// with no traversal outside it.
	IsSafePathName(path string) bool

	// FileNameExists reports whether a file is present at path, regardless
	// of content.
	FileNameExists(path string) bool

	// FileNameExistsWithHash reports whether a file is present at path with
	// exactly the given content hash.
	FileNameExistsWithHash(path, md5 string) bool

	// DirNameExists reports whether a directory is present at path.
	DirNameExists(path string) bool

	// -------------------------------------------------------------------
	// Loader lifecycle (staged, conflict-checked writes)
	// -------------------------------------------------------------------

	// CreateFileLoader opens a staging slot for a brand-new file at path.
	CreateFileLoader(path, md5 string, size uint64, lastModified int64) error

	// ModifyFileLoader opens a staging slot to overwrite an existing file
	// at path. It returns false without error if the on-disk version is
	// already newer than lastModified (spec §4.3 FILE_MODIFY_REQUEST).
	ModifyFileLoader(path, md5 string, lastModified int64) (bool, error)

	// CheckShortcut attempts to satisfy the loader staged at path by
	// copying from another local file that already has the desired content
	// hash, avoiding a network transfer entirely. Returns true if the
	// loader was completed this way.
	CheckShortcut(path string) (bool, error)

	// WriteFile writes a chunk of bytes into the loader staged at path, at
	// the given byte offset.
	WriteFile(path string, data []byte, position uint64) error

	// CheckWriteComplete reports whether the loader staged at path has
	// received every byte of the advertised file size.
	CheckWriteComplete(path string) bool

	// CancelFileLoader finalizes or abandons the loader staged at path,
	// releasing any resources it holds.
	CancelFileLoader(path string) error

	// -------------------------------------------------------------------
	// Reads and mutations outside the loader lifecycle
	// -------------------------------------------------------------------

	// ReadFile reads length bytes starting at position from the local file
	// version identified by md5.
	ReadFile(md5 string, position, length uint64) ([]byte, error)

	// DeleteFile deletes the file at path iff its current version matches
	// lastModified and md5. Returns false if no match, or the file was
	// already gone.
	DeleteFile(path string, lastModified int64, md5 string) bool

	// MakeDirectory creates a directory at path.
	MakeDirectory(path string) error

	// DeleteDirectory removes the directory at path.
	DeleteDirectory(path string) error
}
