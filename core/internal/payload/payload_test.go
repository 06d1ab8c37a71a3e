package payload

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/compress"
	"github.com/meigma/baar/core/keystream"
	"github.com/meigma/baar/core/testutil"
)

func entryFor(enc Encoded, name string, off uint64) Entry {
	return Entry{
		ID:         1,
		Name:       name,
		Flags:      enc.Flags,
		Level:      enc.Level,
		DataOffset: off,
		CompSize:   uint64(len(enc.Data)),
		UncompSize: enc.UncompSize,
		CRC32:      enc.CRC32,
	}
}

func TestEncodeDecode(t *testing.T) {
	eng := compress.New()
	random := testutil.RandomBytes(42, 1000)

	tests := []struct {
		name           string
		plain          []byte
		level          Level
		password       string
		wantCompressed bool
		wantEncrypted  bool
	}{
		{"ten A fast is stored", bytes.Repeat([]byte("A"), 10), baartype.LevelFast, "", false, false},
		{"text fast", bytes.Repeat([]byte("line of text\n"), 300), baartype.LevelFast, "", true, false},
		{"random store with password", random, baartype.LevelStore, "hunter2", false, true},
		{"random ultra falls back to store", random, baartype.LevelUltra, "", false, false},
		{"text best encrypted", bytes.Repeat([]byte("line of text\n"), 200), baartype.LevelBest, "pw", true, true},
		{"empty", nil, baartype.LevelBalanced, "pw", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orig := bytes.Clone(tt.plain)
			enc, err := Encode(context.Background(), eng, tt.plain, tt.level, tt.password, keystream.ModeDefault)
			require.NoError(t, err)
			assert.Equal(t, orig, tt.plain, "plain must not be modified")

			e := entryFor(enc, "x", 0)
			assert.Equal(t, tt.wantCompressed, e.Compressed())
			assert.Equal(t, tt.wantEncrypted, e.Encrypted())
			if e.Compressed() {
				assert.Less(t, e.CompSize, e.UncompSize)
				assert.Equal(t, tt.level, e.Level)
			} else {
				assert.Equal(t, e.UncompSize, e.CompSize)
				assert.Equal(t, baartype.LevelStore, e.Level)
			}

			got, err := Decode(bytes.Clone(enc.Data), &e, tt.password, keystream.ModeDefault)
			require.NoError(t, err)
			assert.Equal(t, len(orig), len(got))
			assert.True(t, bytes.Equal(orig, got))
		})
	}
}

func TestDecode_WrongPassword(t *testing.T) {
	eng := compress.New()
	for _, level := range []Level{baartype.LevelStore, baartype.LevelBalanced} {
		t.Run(level.String(), func(t *testing.T) {
			plain := bytes.Repeat([]byte("secret data "), 100)
			enc, err := Encode(context.Background(), eng, plain, level, "hunter2", keystream.ModeDefault)
			require.NoError(t, err)
			e := entryFor(enc, "secret.txt", 0)

			_, err = Decode(bytes.Clone(enc.Data), &e, "wrong", keystream.ModeDefault)
			require.Error(t, err)
			assert.True(t,
				errors.Is(err, baartype.ErrIntegrityMismatch) || errors.Is(err, baartype.ErrDecompression),
				"unexpected error: %v", err)

			_, err = Decode(bytes.Clone(enc.Data), &e, "", keystream.ModeDefault)
			require.ErrorIs(t, err, baartype.ErrPasswordRequired)
		})
	}
}

func TestReader_ReadAll(t *testing.T) {
	eng := compress.New()
	plain := bytes.Repeat([]byte("payload "), 64)
	enc, err := Encode(context.Background(), eng, plain, baartype.LevelFast, "", keystream.ModeDefault)
	require.NoError(t, err)

	prefix := bytes.Repeat([]byte{0xEE}, 32)
	src := append(bytes.Clone(prefix), enc.Data...)
	e := entryFor(enc, "p.txt", uint64(len(prefix)))

	r := NewReader(testutil.NewMockByteSource(src))
	got, err := r.ReadAll(&e, "")
	require.NoError(t, err)
	assert.Equal(t, plain, got)

	t.Run("out of bounds", func(t *testing.T) {
		bad := e
		bad.DataOffset = uint64(len(src))
		_, err := r.ReadAll(&bad, "")
		require.ErrorIs(t, err, baartype.ErrCorruptCatalog)
	})

	t.Run("size limit", func(t *testing.T) {
		limited := NewReader(testutil.NewMockByteSource(src), WithMaxEntrySize(8))
		_, err := limited.ReadAll(&e, "")
		require.ErrorIs(t, err, baartype.ErrSizeOverflow)
	})

	t.Run("bit flip", func(t *testing.T) {
		corrupt := bytes.Clone(src)
		corrupt[len(corrupt)-6] ^= 0x01
		_, err := NewReader(testutil.NewMockByteSource(corrupt)).ReadAll(&e, "")
		require.Error(t, err)
	})

	t.Run("directory", func(t *testing.T) {
		dir := Entry{ID: 2, Name: "d/"}
		got, err := r.ReadAll(&dir, "")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestValidateLayout(t *testing.T) {
	tests := []struct {
		name    string
		entry   Entry
		wantErr bool
	}{
		{"stored ok", Entry{Name: "a", CompSize: 4, UncompSize: 4}, false},
		{"stored mismatch", Entry{Name: "a", CompSize: 3, UncompSize: 4}, true},
		{"compressed ok", Entry{Name: "a", Flags: baartype.FlagCompressed, CompSize: 3, UncompSize: 4}, false},
		{"compressed not smaller", Entry{Name: "a", Flags: baartype.FlagCompressed, CompSize: 4, UncompSize: 4}, true},
		{"dir ok", Entry{Name: "d/"}, false},
		{"dir with payload", Entry{Name: "d/", CompSize: 1, UncompSize: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLayout(&tt.entry)
			if tt.wantErr {
				require.ErrorIs(t, err, baartype.ErrCorruptCatalog)
				return
			}
			require.NoError(t, err)
		})
	}
}

type memWriterAt struct {
	buf []byte
}

func (m *memWriterAt) WriteAt(p []byte, off int64) (int, error) {
	if end := int(off) + len(p); end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	return copy(m.buf[off:], p), nil
}

func TestCopyStored(t *testing.T) {
	src := []byte("....hello....")
	e := Entry{Name: "h", DataOffset: 4, CompSize: 5, UncompSize: 5}
	dst := &memWriterAt{}

	n, err := CopyStored(dst, 2, bytes.NewReader(src), &e)
	require.NoError(t, err)
	assert.Equal(t, uint64(5), n)
	assert.Equal(t, []byte("\x00\x00hello"), dst.buf)

	short := Entry{Name: "s", DataOffset: 10, CompSize: 8, UncompSize: 8}
	_, err = CopyStored(dst, 0, bytes.NewReader(src), &short)
	require.ErrorIs(t, err, baartype.ErrCorruptCatalog)
}
