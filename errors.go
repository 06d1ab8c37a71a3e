package baar

import baarcore "github.com/meigma/baar/core"

// Errors re-exported from core.
var (
	// ErrNotFound is returned when no entry matches an id or name.
	ErrNotFound = baarcore.ErrNotFound

	// ErrAlreadyDeleted is returned when an entry is already tombstoned.
	ErrAlreadyDeleted = baarcore.ErrAlreadyDeleted

	// ErrNameCollision is returned when a rename target is occupied.
	ErrNameCollision = baarcore.ErrNameCollision

	// ErrInvalidName is returned for empty, malformed or self-nesting names.
	ErrInvalidName = baarcore.ErrInvalidName

	// ErrDecompression is returned when a payload fails to inflate.
	ErrDecompression = baarcore.ErrDecompression

	// ErrIntegrityMismatch is returned when a checksum does not match.
	ErrIntegrityMismatch = baarcore.ErrIntegrityMismatch

	// ErrPasswordRequired is returned when an encrypted entry is read
	// without a password.
	ErrPasswordRequired = baarcore.ErrPasswordRequired

	// ErrIO wraps operating system failures.
	ErrIO = baarcore.ErrIO

	// ErrBadMagic is returned for files that are neither BAAR archives nor
	// a recognized foreign format.
	ErrBadMagic = baarcore.ErrBadMagic

	// ErrCorruptHeader is returned when the header cannot be parsed.
	ErrCorruptHeader = baarcore.ErrCorruptHeader

	// ErrCorruptCatalog is returned when the catalog cannot be parsed.
	ErrCorruptCatalog = baarcore.ErrCorruptCatalog

	// ErrSizeOverflow is returned when byte counts exceed supported limits.
	ErrSizeOverflow = baarcore.ErrSizeOverflow

	// ErrClosed is returned by every operation after Close.
	ErrClosed = baarcore.ErrClosed
)

// EntryError records a failure tied to a single entry.
type EntryError = baarcore.EntryError
