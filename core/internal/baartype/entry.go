package baartype

import (
	"io/fs"
	"strings"
	"time"
)

// Flags is the per-entry bitmask stored in the catalog.
type Flags uint8

const (
	// FlagCompressed marks a payload stored deflate-compressed.
	FlagCompressed Flags = 1 << iota
	// FlagEncrypted marks a payload XORed with a password keystream.
	FlagEncrypted
	// FlagDeleted marks a tombstoned entry.
	FlagDeleted
)

// Has reports whether all bits in f2 are set.
func (f Flags) Has(f2 Flags) bool {
	return f&f2 == f2
}

// String returns a compact "CED" style rendering, with '-' for unset bits.
func (f Flags) String() string {
	b := []byte("---")
	if f.Has(FlagCompressed) {
		b[0] = 'C'
	}
	if f.Has(FlagEncrypted) {
		b[1] = 'E'
	}
	if f.Has(FlagDeleted) {
		b[2] = 'D'
	}
	return string(b)
}

// MetaPair is one key/value pair of extensible entry metadata.
type MetaPair struct {
	Key   string
	Value string
}

// Entry represents one catalog record.
type Entry struct {
	// ID is unique within the archive and never reused.
	ID uint32

	// Name is the archive path, '/'-separated. A trailing '/' marks a
	// directory placeholder.
	Name string

	// Flags holds the compressed, encrypted and deleted bits.
	Flags Flags

	// Level is the compression level applied. Only meaningful when
	// FlagCompressed is set.
	Level Level

	// DataOffset is the absolute file offset of the payload.
	DataOffset uint64

	// CompSize is the on-disk payload length, compressed or not.
	CompSize uint64

	// UncompSize is the plaintext length.
	UncompSize uint64

	// CRC32 is the IEEE checksum of the original plaintext.
	CRC32 uint32

	// Mode holds POSIX permission and type bits.
	Mode uint32

	UID uint32
	GID uint32

	// MTime is the modification time in Unix seconds.
	MTime int64

	// Meta is extensible metadata, copied verbatim by rebuilds.
	Meta []MetaPair
}

// IsDir reports whether the entry is a directory placeholder.
func (e *Entry) IsDir() bool {
	return strings.HasSuffix(e.Name, "/")
}

// Live reports whether the entry is not tombstoned.
func (e *Entry) Live() bool {
	return !e.Flags.Has(FlagDeleted)
}

// Compressed reports whether the payload is stored compressed.
func (e *Entry) Compressed() bool {
	return e.Flags.Has(FlagCompressed)
}

// Encrypted reports whether the payload is stored encrypted.
func (e *Entry) Encrypted() bool {
	return e.Flags.Has(FlagEncrypted)
}

// ModTime returns MTime as a time.Time.
func (e *Entry) ModTime() time.Time {
	return time.Unix(e.MTime, 0)
}

// FileMode converts the stored POSIX mode to an fs.FileMode.
func (e *Entry) FileMode() fs.FileMode {
	m := fs.FileMode(e.Mode & 0o777)
	if e.IsDir() {
		m |= fs.ModeDir
	}
	return m
}

// Clone returns a deep copy, so Meta can be mutated independently.
func (e *Entry) Clone() Entry {
	c := *e
	if e.Meta != nil {
		c.Meta = append([]MetaPair(nil), e.Meta...)
	}
	return c
}
