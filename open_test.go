package baar

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_NewArchive(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "new.baar")
	h, err := Open(path)
	require.NoError(t, err)
	defer h.Close()

	assert.Equal(t, FormatBaar, h.Format())
	assert.Equal(t, path, h.Path())
	a, ok := h.Archive()
	require.True(t, ok)
	_, ok = h.Foreign()
	assert.False(t, ok)

	sess := NewSession("pw")
	defer sess.Close()
	res, err := a.Append(context.Background(), sess, Item{Name: "a.txt", Data: []byte("hello"), Level: LevelAuto})
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NoError(t, h.Close())

	h2, err := Open(path)
	require.NoError(t, err)
	defer h2.Close()
	a2, ok := h2.Archive()
	require.True(t, ok)
	got, err := a2.Extract(context.Background(), res.IDs[0], sess)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), got)
}

func TestOpen_EmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	h, err := Open(path)
	require.NoError(t, err)
	defer h.Close()
	assert.Equal(t, FormatBaar, h.Format())
}

func TestOpen_ForeignFormats(t *testing.T) {
	t.Parallel()

	tarHeader := make([]byte, 512)
	copy(tarHeader, "file.txt")
	copy(tarHeader[257:], "ustar\x0000")

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"zip", []byte("PK\x03\x04\x14\x00rest"), "zip"},
		{"empty zip", []byte("PK\x05\x06" + string(make([]byte, 18))), "zip"},
		{"gzip", []byte{0x1f, 0x8b, 0x08, 0x00}, "gzip"},
		{"zstd", []byte{0x28, 0xb5, 0x2f, 0xfd, 0x00}, "zstd"},
		{"xz", []byte{0xfd, '7', 'z', 'X', 'Z', 0x00, 0x00}, "xz"},
		{"bzip2", []byte("BZh91AY&SY"), "bzip2"},
		{"7z", []byte{'7', 'z', 0xbc, 0xaf, 0x27, 0x1c, 0x00, 0x04}, "7z"},
		{"rar", []byte("Rar!\x1a\x07\x01\x00"), "rar"},
		{"tar", tarHeader, "tar"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			path := filepath.Join(t.TempDir(), "f")
			require.NoError(t, os.WriteFile(path, tc.content, 0o644))

			h, err := Open(path)
			require.NoError(t, err)
			assert.Equal(t, FormatForeign, h.Format())
			ff, ok := h.Foreign()
			require.True(t, ok)
			assert.Equal(t, ForeignFormat{Name: tc.want, Path: path}, ff)
			_, ok = h.Archive()
			assert.False(t, ok)
			require.NoError(t, h.Close())

			after, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.True(t, bytes.Equal(tc.content, after), "foreign files are never modified")
		})
	}
}

func TestOpen_Unrecognized(t *testing.T) {
	t.Parallel()

	for _, content := range [][]byte{
		[]byte("plain text notes"),
		[]byte("B"),
		{0x00, 0x01, 0x02},
	} {
		path := filepath.Join(t.TempDir(), "x")
		require.NoError(t, os.WriteFile(path, content, 0o644))
		_, err := Open(path)
		require.ErrorIs(t, err, ErrBadMagic, "%q", content)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, content, after)
	}
}

func TestOpen_TruncatedHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "short.baar")
	require.NoError(t, os.WriteFile(path, []byte("BAAR01\x20\x00"), 0o644))
	_, err := Open(path)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestOpen_RestoresBackupBeforeSniffing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "a.baar")
	h, err := Open(path)
	require.NoError(t, err)
	a, _ := h.Archive()
	_, err = a.Append(context.Background(), nil, Item{Name: "keep", Data: []byte("kept")})
	require.NoError(t, err)
	require.NoError(t, h.Close())

	require.NoError(t, os.Rename(path, path+".bak"))
	require.NoError(t, os.WriteFile(path, []byte("garbage from a crash"), 0o644))

	h, err = Open(path)
	require.NoError(t, err)
	defer h.Close()
	a, ok := h.Archive()
	require.True(t, ok)
	_, ok = a.Lookup("keep")
	assert.True(t, ok)
}

func TestFormat_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "baar", FormatBaar.String())
	assert.Equal(t, "foreign", FormatForeign.String())
	assert.Equal(t, "unknown", Format(0).String())
}
