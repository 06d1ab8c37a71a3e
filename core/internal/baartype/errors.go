package baartype

import "errors"

// Sentinel errors shared by the engine and its internal packages.
var (
	// ErrNotFound is returned when no live entry matches an id or name.
	ErrNotFound = errors.New("baar: entry not found")

	// ErrAlreadyDeleted is returned when deleting or renaming a tombstoned entry.
	ErrAlreadyDeleted = errors.New("baar: entry already deleted")

	// ErrNameCollision is returned when a rename target is occupied and the
	// rename policy rejects collisions.
	ErrNameCollision = errors.New("baar: name collision")

	// ErrInvalidName is returned for empty, malformed or self-nesting names.
	ErrInvalidName = errors.New("baar: invalid entry name")

	// ErrDecompression is returned when a payload fails to inflate to its
	// recorded size.
	ErrDecompression = errors.New("baar: decompression failed")

	// ErrIntegrityMismatch is returned when the plaintext checksum does not
	// match. For encrypted entries this usually means a wrong password.
	ErrIntegrityMismatch = errors.New("baar: integrity mismatch")

	// ErrPasswordRequired is returned when an encrypted entry is read without
	// a session password.
	ErrPasswordRequired = errors.New("baar: password required")

	// ErrIO wraps operating system read, write, rename and sync failures.
	ErrIO = errors.New("baar: i/o error")

	// ErrBadMagic is returned when a file does not start with the BAAR magic.
	ErrBadMagic = errors.New("baar: bad magic")

	// ErrCorruptHeader is returned when the header cannot be parsed.
	ErrCorruptHeader = errors.New("baar: corrupt header")

	// ErrCorruptCatalog is returned when the catalog cannot be parsed.
	ErrCorruptCatalog = errors.New("baar: corrupt catalog")

	// ErrSizeOverflow is returned when a size exceeds supported limits.
	ErrSizeOverflow = errors.New("baar: size overflow")

	// ErrClosed is returned when operating on a closed archive.
	ErrClosed = errors.New("baar: archive is closed")
)
