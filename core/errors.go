package baar

import (
	"fmt"

	"github.com/meigma/baar/core/internal/baartype"
)

// Sentinel errors re-exported from internal/baartype.
var (
	// ErrNotFound is returned when no entry matches an id or name.
	ErrNotFound = baartype.ErrNotFound

	// ErrAlreadyDeleted is returned when an entry is already tombstoned.
	ErrAlreadyDeleted = baartype.ErrAlreadyDeleted

	// ErrNameCollision is returned when a rename target is occupied under
	// RenameReject.
	ErrNameCollision = baartype.ErrNameCollision

	// ErrInvalidName is returned for empty, malformed or self-nesting names.
	ErrInvalidName = baartype.ErrInvalidName

	// ErrDecompression is returned when a payload fails to inflate.
	ErrDecompression = baartype.ErrDecompression

	// ErrIntegrityMismatch is returned when a checksum does not match.
	// For encrypted entries this usually means the password is wrong.
	ErrIntegrityMismatch = baartype.ErrIntegrityMismatch

	// ErrPasswordRequired is returned when an encrypted entry is read
	// without a session password.
	ErrPasswordRequired = baartype.ErrPasswordRequired

	// ErrIO wraps operating system failures.
	ErrIO = baartype.ErrIO

	// ErrBadMagic is returned for files that are not BAAR archives.
	ErrBadMagic = baartype.ErrBadMagic

	// ErrCorruptHeader is returned when the header cannot be parsed.
	ErrCorruptHeader = baartype.ErrCorruptHeader

	// ErrCorruptCatalog is returned when the catalog cannot be parsed.
	ErrCorruptCatalog = baartype.ErrCorruptCatalog

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = baartype.ErrSizeOverflow

	// ErrClosed is returned by every operation after Close.
	ErrClosed = baartype.ErrClosed
)

// EntryError records a failure tied to a single entry.
type EntryError struct {
	ID   uint32
	Name string
	Err  error
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("entry %d (%s): %v", e.ID, e.Name, e.Err)
}

func (e *EntryError) Unwrap() error {
	return e.Err
}

func entryErr(e *Entry, err error) error {
	return &EntryError{ID: e.ID, Name: e.Name, Err: err}
}

func ioErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
