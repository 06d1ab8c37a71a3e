package catalog

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/meigma/baar/core/internal/baartype"
)

// HeaderSize is the fixed size of the header in bytes.
const HeaderSize = 32

// MagicString identifies the format and its version.
const MagicString = "BAAR01"

// Magic is MagicString as bytes.
var Magic = [6]byte{'B', 'A', 'A', 'R', '0', '1'}

// Header is the fixed record at offset 0.
type Header struct {
	// IndexOffset is where the catalog begins. Zero means none written yet.
	IndexOffset uint64
}

// Encode serializes the header to exactly HeaderSize bytes.
func (h Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf, Magic[:])
	binary.LittleEndian.PutUint64(buf[len(Magic):], h.IndexOffset)
	return buf
}

// ReadHeader reads and validates the header of a file of the given size.
func ReadHeader(r io.ReaderAt, size int64) (Header, error) {
	buf := make([]byte, HeaderSize)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return Header{}, fmt.Errorf("%w: read header: %w", baartype.ErrIO, err)
	}
	if n < len(Magic) || !bytes.Equal(buf[:len(Magic)], Magic[:]) {
		return Header{}, baartype.ErrBadMagic
	}
	if n < HeaderSize {
		return Header{}, fmt.Errorf("%w: short header (%d bytes)", baartype.ErrCorruptHeader, n)
	}
	h := Header{IndexOffset: binary.LittleEndian.Uint64(buf[len(Magic):])}
	if h.IndexOffset != 0 && (h.IndexOffset < HeaderSize || h.IndexOffset > uint64(size)) { //nolint:gosec // size comes from Stat
		return Header{}, fmt.Errorf("%w: index offset %d outside file of %d bytes", baartype.ErrCorruptHeader, h.IndexOffset, size)
	}
	return h, nil
}

// WriteHeader overwrites the header with one pointing at indexOffset.
func WriteHeader(w io.WriterAt, indexOffset uint64) error {
	if _, err := w.WriteAt(Header{IndexOffset: indexOffset}.Encode(), 0); err != nil {
		return fmt.Errorf("%w: write header: %w", baartype.ErrIO, err)
	}
	return nil
}

// HasMagic reports whether r starts with the BAAR magic.
func HasMagic(r io.ReaderAt) bool {
	buf := make([]byte, len(Magic))
	if _, err := r.ReadAt(buf, 0); err != nil {
		return false
	}
	return bytes.Equal(buf, Magic[:])
}

// EnsureHeader writes a fresh header with IndexOffset 0 unless the file
// already starts with the magic. It reports whether a header was written.
func EnsureHeader(f interface {
	io.ReaderAt
	io.WriterAt
}) (bool, error) {
	if HasMagic(f) {
		return false, nil
	}
	if err := WriteHeader(f, 0); err != nil {
		return false, err
	}
	return true, nil
}
