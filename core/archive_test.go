package baar

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/opencontainers/go-digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/baar/core/internal/catalog"
	"github.com/meigma/baar/core/keystream"
	"github.com/meigma/baar/core/testutil"
)

// openTestArchive opens a fresh archive in a temp dir and closes it on cleanup.
func openTestArchive(t *testing.T, opts ...Option) (*Archive, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.baar")
	a := reopen(t, path, opts...)
	return a, path
}

func reopen(t *testing.T, path string, opts ...Option) *Archive {
	t.Helper()
	opts = append([]Option{WithCipherMode(keystream.ModeDefault)}, opts...)
	a, err := Open(path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	return a
}

// appendData appends one in-memory file and returns its id.
func appendData(t *testing.T, a *Archive, sess *Session, name string, data []byte, level Level) uint32 {
	t.Helper()
	res, err := a.Append(context.Background(), sess, Item{Name: name, Data: data, Level: level})
	require.NoError(t, err)
	require.Len(t, res.IDs, 1)
	return res.IDs[0]
}

func TestOpen_CreatesEmptyArchive(t *testing.T) {
	t.Parallel()

	a, path := openTestArchive(t)
	assert.Empty(t, a.List())
	assert.Equal(t, uint32(1), a.NextID())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, catalog.HeaderSize+4)
	assert.Equal(t, []byte("BAAR01"), raw[:6])
	assert.Equal(t, []byte{catalog.HeaderSize, 0, 0, 0, 0, 0, 0, 0}, raw[6:14])
	assert.Equal(t, make([]byte, 18), raw[14:32])
	assert.Equal(t, []byte{0, 0, 0, 0}, raw[32:])
}

func TestOpen_ExistingEmptyFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "empty.baar")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	a := reopen(t, path)
	assert.Equal(t, 0, a.Len())
	assert.Equal(t, int64(catalog.HeaderSize+4), testutil.FileSize(t, path))
}

func TestOpen_RejectsForeignFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "notes.txt")
	content := []byte("these are not the bytes you are looking for")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrBadMagic)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, content, after, "foreign file must be left untouched")
}

func TestOpen_CorruptHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.baar")
	hdr := catalog.Header{IndexOffset: 1 << 40}.Encode()
	require.NoError(t, os.WriteFile(path, hdr, 0o644))

	_, err := Open(path)
	require.ErrorIs(t, err, ErrCorruptHeader)
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()

	a, path := openTestArchive(t)
	id := appendData(t, a, nil, "notes/today.md", testutil.Text(4000), LevelBalanced)
	require.NoError(t, a.Close())

	b := reopen(t, path)
	list := b.List()
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, "notes/today.md", list[0].Name)
	assert.Equal(t, id+1, b.NextID())

	got, err := b.Extract(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, testutil.Text(4000), got)
}

func TestOpen_RestoresBackup(t *testing.T) {
	t.Parallel()

	a, path := openTestArchive(t)
	id := appendData(t, a, nil, "keep.txt", []byte("precious"), LevelStore)
	require.NoError(t, a.Close())

	// Simulate a crash after the rename-aside: the backup holds the last
	// good state and path holds a partial file.
	require.NoError(t, os.Rename(path, path+BackupSuffix))
	require.NoError(t, os.WriteFile(path, []byte("BAAR01 partial"), 0o644))

	b := reopen(t, path)
	got, err := b.Extract(context.Background(), id, nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("precious"), got)

	_, err = os.Stat(path + BackupSuffix)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestOpen_DuplicateLiveNames(t *testing.T) {
	t.Parallel()

	a, path := openTestArchive(t)
	res, err := a.Append(context.Background(), nil,
		Item{Name: "x", Data: []byte("first"), Level: LevelStore},
		Item{Name: "y", Data: []byte("second"), Level: LevelStore})
	require.NoError(t, err)
	require.NoError(t, a.Close())

	// Rename "y" to "x" in the stored catalog so two live entries share a name.
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	at := bytes.LastIndex(raw, []byte{1, 0, 'y'})
	require.Positive(t, at)
	raw[at+2] = 'x'
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	b := reopen(t, path)
	list := b.List()
	require.Len(t, list, 1)
	assert.Equal(t, res.IDs[1], list[0].ID)
	assert.Equal(t, 1, b.LiveCount())
	got, err := b.ExtractName(context.Background(), "x", nil)
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, b.Delete(res.IDs[1]))
	assert.Empty(t, b.List())
	_, ok := b.Lookup("x")
	assert.False(t, ok)

	require.NoError(t, b.Compact(context.Background()))
	assert.Equal(t, 0, b.LiveCount())
}

func TestArchive_Closed(t *testing.T) {
	t.Parallel()

	a, _ := openTestArchive(t)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "second Close is a no-op")

	ctx := context.Background()
	_, err := a.Append(ctx, nil, Item{Name: "x", Data: []byte("x")})
	require.ErrorIs(t, err, ErrClosed)
	require.ErrorIs(t, a.Delete(1), ErrClosed)
	require.ErrorIs(t, a.Rename(1, "y"), ErrClosed)
	require.ErrorIs(t, a.Compact(ctx), ErrClosed)
	_, err = a.Extract(ctx, 1, nil)
	require.ErrorIs(t, err, ErrClosed)
	_, err = a.VerifyAll(ctx, nil)
	require.ErrorIs(t, err, ErrClosed)
	_, err = a.Digest()
	require.ErrorIs(t, err, ErrClosed)
}

func TestArchive_Digest(t *testing.T) {
	t.Parallel()

	a, path := openTestArchive(t)
	appendData(t, a, nil, "a.bin", testutil.RandomBytes(1, 512), LevelStore)

	d, err := a.Digest()
	require.NoError(t, err)
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, digest.FromBytes(raw), d)
	require.NoError(t, d.Validate())
}

func TestArchive_ProgressEvents(t *testing.T) {
	t.Parallel()

	var events []ProgressEvent
	a, _ := openTestArchive(t, WithProgress(func(e ProgressEvent) {
		events = append(events, e)
	}))
	_, err := a.Append(context.Background(), nil,
		Item{Name: "a", Data: []byte("aaaa")},
		Item{Name: "b", Data: []byte("bbbbbb")},
	)
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, StageAppending, events[1].Stage)
	assert.Equal(t, "b", events[1].Name)
	assert.Equal(t, 100, events[1].Percent())
	assert.Equal(t, uint64(10), events[1].BytesDone)
}

func TestSession(t *testing.T) {
	t.Parallel()

	var nilSess *Session
	assert.False(t, nilSess.HasPassword())
	assert.Empty(t, nilSess.secret())
	require.NoError(t, nilSess.Close())

	s := NewSession("hunter2")
	assert.True(t, s.HasPassword())
	buf := s.password
	require.NoError(t, s.Close())
	assert.False(t, s.HasPassword())
	assert.True(t, bytes.Equal(make([]byte, len(buf)), buf), "password bytes are wiped")

	assert.False(t, NewSession("").HasPassword())
}
