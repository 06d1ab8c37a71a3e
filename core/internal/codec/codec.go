// Package codec reads and writes the fixed-width little-endian fields and
// u16 length-prefixed strings that make up the archive header and catalog.
package codec

import (
	"encoding/binary"
	"errors"
	"math"
)

var (
	// ErrTruncated is returned when fewer bytes remain than a field requires.
	ErrTruncated = errors.New("codec: truncated input")

	// ErrTooLong is returned when a string does not fit a u16 length prefix.
	ErrTooLong = errors.New("codec: string exceeds 65535 bytes")
)

// Writer appends encoded fields to a growable buffer.
//
// The first error sticks; later writes are no-ops and Err reports it.
type Writer struct {
	buf []byte
	err error
}

// NewWriter returns a Writer with capacity preallocated for n bytes.
func NewWriter(n int) *Writer {
	return &Writer{buf: make([]byte, 0, n)}
}

// U8 appends a single byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends v as two little-endian bytes.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends v as four little-endian bytes.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 appends v as eight little-endian bytes.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// Bytes16 appends b with a u16 length prefix.
func (w *Writer) Bytes16(b []byte) {
	if w.err != nil {
		return
	}
	if len(b) > math.MaxUint16 {
		w.err = ErrTooLong
		return
	}
	w.U16(uint16(len(b))) //nolint:gosec // bounded above
	w.buf = append(w.buf, b...)
}

// Str16 appends s with a u16 length prefix.
func (w *Writer) Str16(s string) {
	w.Bytes16([]byte(s))
}

// Bytes returns the encoded buffer, or the first error encountered.
func (w *Writer) Bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf, nil
}

// Reader decodes fields from a byte slice in order.
//
// Like Writer, the first error sticks and subsequent reads return zero values.
type Reader struct {
	buf []byte
	off int
	err error
}

// NewReader returns a Reader positioned at the start of b.
func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.err = ErrTruncated
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// Bytes16 reads a u16 length-prefixed byte string. The result is a copy.
func (r *Reader) Bytes16() []byte {
	n := r.U16()
	b := r.take(int(n))
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}

// Str16 reads a u16 length-prefixed string.
func (r *Reader) Str16() string {
	n := r.U16()
	b := r.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

// Raw reads exactly n bytes without a prefix. The result aliases the input.
func (r *Reader) Raw(n int) []byte {
	return r.take(n)
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Err returns the first decoding error, if any.
func (r *Reader) Err() error {
	return r.err
}
