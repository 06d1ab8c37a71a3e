package codec

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterReader_Fields(t *testing.T) {
	w := NewWriter(64)
	w.U8(0xAB)
	w.U16(0x1234)
	w.U32(0xDEADBEEF)
	w.U64(1 << 40)
	w.Str16("dir/file.txt")
	w.Bytes16(nil)

	buf, err := w.Bytes()
	require.NoError(t, err)

	// Little-endian layout of the u16.
	assert.Equal(t, []byte{0x34, 0x12}, buf[1:3])

	r := NewReader(buf)
	assert.Equal(t, uint8(0xAB), r.U8())
	assert.Equal(t, uint16(0x1234), r.U16())
	assert.Equal(t, uint32(0xDEADBEEF), r.U32())
	assert.Equal(t, uint64(1<<40), r.U64())
	assert.Equal(t, "dir/file.txt", r.Str16())
	assert.Empty(t, r.Bytes16())
	require.NoError(t, r.Err())
	assert.Equal(t, 0, r.Remaining())
}

func TestReader_Truncated(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		read func(r *Reader)
	}{
		{"u16 from one byte", []byte{1}, func(r *Reader) { r.U16() }},
		{"u32 from three bytes", []byte{1, 2, 3}, func(r *Reader) { r.U32() }},
		{"u64 from empty", nil, func(r *Reader) { r.U64() }},
		{"string body short", []byte{5, 0, 'a', 'b'}, func(r *Reader) { r.Str16() }},
		{"raw past end", []byte{1, 2}, func(r *Reader) { r.Raw(3) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(tt.buf)
			tt.read(r)
			assert.ErrorIs(t, r.Err(), ErrTruncated)
		})
	}
}

func TestReader_ErrorSticks(t *testing.T) {
	r := NewReader([]byte{1})
	assert.Zero(t, r.U32())
	// A read that would fit after the failure must still fail.
	assert.Zero(t, r.U8())
	assert.ErrorIs(t, r.Err(), ErrTruncated)
}

func TestWriter_TooLong(t *testing.T) {
	w := NewWriter(0)
	w.Str16(strings.Repeat("x", 1<<16))
	w.U8(1)
	_, err := w.Bytes()
	assert.ErrorIs(t, err, ErrTooLong)
}

func TestReader_Bytes16Copies(t *testing.T) {
	src := []byte{3, 0, 'a', 'b', 'c'}
	r := NewReader(src)
	got := r.Bytes16()
	src[2] = 'z'
	assert.True(t, bytes.Equal([]byte("abc"), got))
}
