// Package payload turns plaintext into stored entry bytes and back.
//
// Encoding order is checksum, compress, discard-if-not-smaller, encrypt.
// Decoding reverses it and verifies the checksum last.
package payload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/baar/core/integrity"
	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/compress"
	"github.com/meigma/baar/core/internal/sizing"
	"github.com/meigma/baar/core/keystream"
)

type (
	Entry = baartype.Entry
	Level = baartype.Level
)

// DefaultMaxEntrySize is the default per-entry size limit (1GB).
const DefaultMaxEntrySize = 1 << 30

// ByteSource provides random access to archive bytes.
type ByteSource interface {
	io.ReaderAt
	Size() int64
}

// Encoded is the result of encoding one plaintext.
type Encoded struct {
	Data       []byte
	Flags      baartype.Flags
	Level      Level
	UncompSize uint64
	CRC32      uint32
}

// Encode prepares plain for storage. plain is never modified.
//
// The compressed form is kept only when strictly smaller than plain;
// otherwise the entry is stored and Level is reported as LevelStore.
func Encode(ctx context.Context, eng *compress.Engine, plain []byte, level Level, password string, mode keystream.Mode) (Encoded, error) {
	enc := Encoded{
		UncompSize: uint64(len(plain)),
		CRC32:      integrity.Checksum(plain),
		Level:      baartype.LevelStore,
	}

	out, used, err := eng.Compress(ctx, plain, level)
	if err != nil {
		return Encoded{}, err
	}
	if used && len(out) < len(plain) {
		enc.Data = out
		enc.Flags |= baartype.FlagCompressed
		enc.Level = level
	} else {
		enc.Data = bytes.Clone(plain)
	}

	if password != "" && len(plain) > 0 {
		keystream.Apply(enc.Data, password, mode)
		enc.Flags |= baartype.FlagEncrypted
	}
	return enc, nil
}

// Decode reverses Encode for the given entry. stored is consumed: it may be
// decrypted in place.
func Decode(stored []byte, entry *Entry, password string, mode keystream.Mode) ([]byte, error) {
	if entry.Encrypted() {
		if password == "" {
			return nil, baartype.ErrPasswordRequired
		}
		keystream.Apply(stored, password, mode)
	}

	plain := stored
	if entry.Compressed() {
		var err error
		plain, err = compress.Decompress(stored, entry.UncompSize)
		if err != nil {
			return nil, err
		}
	} else if uint64(len(plain)) != entry.UncompSize {
		return nil, fmt.Errorf("%w: stored %d bytes, want %d", baartype.ErrIntegrityMismatch, len(plain), entry.UncompSize)
	}

	if err := integrity.Verify(plain, entry.CRC32); err != nil {
		return nil, fmt.Errorf("%w: %w", baartype.ErrIntegrityMismatch, err)
	}
	return plain, nil
}

// Reader reads and verifies entry payloads from a ByteSource.
type Reader struct {
	source       ByteSource
	maxEntrySize uint64
	mode         keystream.Mode
}

// Option configures a Reader.
type Option func(*Reader)

// WithMaxEntrySize sets the per-entry size limit.
// Set to 0 to disable the limit.
func WithMaxEntrySize(limit uint64) Option {
	return func(r *Reader) {
		r.maxEntrySize = limit
	}
}

// WithMode sets the keystream mode used to decrypt payloads.
func WithMode(m keystream.Mode) Option {
	return func(r *Reader) {
		r.mode = m
	}
}

// NewReader creates a Reader for the given source.
func NewReader(source ByteSource, opts ...Option) *Reader {
	r := &Reader{
		source:       source,
		maxEntrySize: DefaultMaxEntrySize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ReadStored returns the raw on-disk bytes of an entry.
func (r *Reader) ReadStored(entry *Entry) ([]byte, error) {
	if err := ValidateAll(entry, r.source.Size(), r.maxEntrySize); err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	n, err := sizing.ToInt(entry.CompSize)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	off, err := sizing.ToInt64(entry.DataOffset)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	m, err := r.source.ReadAt(buf, off)
	if m == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: short read (%d of %d bytes)", entry.Name, m, n)
	}
	return nil, fmt.Errorf("%w: read %s: %w", baartype.ErrIO, entry.Name, err)
}

// ReadAll reads, decrypts, decompresses and verifies an entry.
func (r *Reader) ReadAll(entry *Entry, password string) ([]byte, error) {
	if entry.IsDir() {
		return []byte{}, nil
	}
	stored, err := r.ReadStored(entry)
	if err != nil {
		return nil, err
	}
	plain, err := Decode(stored, entry, password, r.mode)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", entry.Name, err)
	}
	return plain, nil
}
