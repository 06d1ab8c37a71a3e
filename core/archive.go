package baar

import (
	_ "crypto/sha256" // registers the digest.Canonical algorithm
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/baar/core/internal/baartype"
	"github.com/meigma/baar/core/internal/catalog"
	"github.com/meigma/baar/core/internal/compress"
	"github.com/meigma/baar/core/internal/payload"
	"github.com/meigma/baar/core/keystream"
)

// Re-export types from internal/baartype for public API.
type (
	// Entry is a catalog record.
	Entry = baartype.Entry

	// Flags is the entry flag byte.
	Flags = baartype.Flags

	// MetaPair is one key/value metadata item.
	MetaPair = baartype.MetaPair

	// Level is a compression level, 0 (store) through 4 (ultra).
	Level = baartype.Level

	// ProgressEvent represents a progress update during operations.
	ProgressEvent = baartype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = baartype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	ProgressFunc = baartype.ProgressFunc
)

// Re-export flag constants.
const (
	FlagCompressed = baartype.FlagCompressed
	FlagEncrypted  = baartype.FlagEncrypted
	FlagDeleted    = baartype.FlagDeleted
)

// Re-export level constants.
const (
	LevelAuto     = baartype.LevelAuto
	LevelStore    = baartype.LevelStore
	LevelFast     = baartype.LevelFast
	LevelBalanced = baartype.LevelBalanced
	LevelBest     = baartype.LevelBest
	LevelUltra    = baartype.LevelUltra
)

// Re-export progress stage constants.
const (
	StageAppending     = baartype.StageAppending
	StageCompacting    = baartype.StageCompacting
	StageRecompressing = baartype.StageRecompressing
	StageVerifying     = baartype.StageVerifying
	StageExtracting    = baartype.StageExtracting
)

// ParseLevel parses "0".."4" or a level name such as "fast".
var ParseLevel = baartype.ParseLevel

// Magic is the signature at the start of every archive file.
const Magic = catalog.MagicString

// BackupSuffix is appended to the archive path while a rebuild is in
// progress. Open restores a leftover backup.
const BackupSuffix = ".bak"

// EntrySummary is the listing view of a live entry.
type EntrySummary struct {
	ID         uint32
	Name       string
	Size       uint64
	StoredSize uint64
	Level      Level
	Compressed bool
	Encrypted  bool
	Dir        bool
	Mode       fs.FileMode
	ModTime    time.Time
	CRC32      uint32
}

// Ratio returns StoredSize/Size, or 1 for empty entries.
func (s EntrySummary) Ratio() float64 {
	if s.Size == 0 {
		return 1
	}
	return float64(s.StoredSize) / float64(s.Size)
}

func summarize(e *Entry) EntrySummary {
	return EntrySummary{
		ID:         e.ID,
		Name:       e.Name,
		Size:       e.UncompSize,
		StoredSize: e.CompSize,
		Level:      e.Level,
		Compressed: e.Compressed(),
		Encrypted:  e.Encrypted(),
		Dir:        e.IsDir(),
		Mode:       e.FileMode(),
		ModTime:    e.ModTime(),
		CRC32:      e.CRC32,
	}
}

// Archive is an open BAAR file.
//
// An Archive assumes exclusive access to its file. It is not safe for
// concurrent use and takes no file lock; a second writer, in this process
// or another, can corrupt the archive.
type Archive struct {
	path   string
	f      *os.File
	cat    *catalog.Catalog
	end    int64 // file size; new payloads and catalogs are written here
	engine *compress.Engine
	closed bool

	logger            *slog.Logger
	progress          ProgressFunc
	mode              keystream.Mode
	modeSet           bool
	renamePolicy      RenamePolicy
	maxEntrySize      uint64
	searchConcurrency int
	readConcurrency   int
	readAheadBytes    uint64
}

// log returns the logger, falling back to a discard logger if nil.
func (a *Archive) log() *slog.Logger {
	if a.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return a.logger
}

// reportProgress sends a progress event if a callback is configured.
func (a *Archive) reportProgress(stage ProgressStage, name string, done, total int, bytesDone uint64) {
	if a.progress == nil {
		return
	}
	a.progress(ProgressEvent{
		Stage:        stage,
		Name:         name,
		EntriesDone:  done,
		EntriesTotal: total,
		BytesDone:    bytesDone,
	})
}

// Open opens the archive at path, creating it when the file is missing or
// empty.
//
// A new archive gets a header and an empty catalog. An existing file must
// start with the BAAR magic; anything else fails with ErrBadMagic and the
// file is left untouched. If a backup from an interrupted Compact or
// Recompress is found next to path, it is restored first.
func Open(path string, opts ...Option) (*Archive, error) {
	a := &Archive{
		path:            path,
		maxEntrySize:    payload.DefaultMaxEntrySize,
		readConcurrency: DefaultReadConcurrency,
		readAheadBytes:  DefaultReadAheadBytes,
	}
	for _, opt := range opts {
		opt(a)
	}
	if !a.modeSet {
		a.mode = keystream.ModeFromEnv()
	}
	a.engine = compress.New(compress.WithConcurrency(a.searchConcurrency))

	if err := a.recoverBackup(); err != nil {
		return nil, err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, ioErr("open", err)
	}
	if err := a.load(f); err != nil {
		f.Close()
		return nil, err
	}

	a.log().Info("opened archive",
		"path", path,
		"entries", a.cat.Len(),
		"live", a.cat.LiveCount(),
		"cipher", a.mode.String())
	return a, nil
}

// recoverBackup restores <path>.bak left behind by an interrupted rebuild.
// The backup always holds the last committed state.
func (a *Archive) recoverBackup() error {
	bak := a.path + BackupSuffix
	info, err := os.Stat(bak)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return ioErr("stat backup", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("%w: backup %s is not a regular file", ErrIO, bak)
	}
	a.log().Warn("restoring archive from backup", "path", a.path, "backup", bak)
	if err := os.Rename(bak, a.path); err != nil {
		return ioErr("restore backup", err)
	}
	return nil
}

// load reads the catalog of f, initializing the file when it is empty.
func (a *Archive) load(f *os.File) error {
	info, err := f.Stat()
	if err != nil {
		return ioErr("stat", err)
	}
	a.f = f

	if info.Size() == 0 {
		a.cat = catalog.New()
		a.end = catalog.HeaderSize
		if _, err := catalog.EnsureHeader(f); err != nil {
			return err
		}
		return a.commit(a.cat)
	}

	cat, _, err := catalog.Load(f, info.Size())
	if err != nil {
		return fmt.Errorf("load %s: %w", a.path, err)
	}
	a.cat = cat
	a.end = info.Size()
	return nil
}

// commit appends cat at the end of the file, points the header at it and
// syncs. cat becomes the archive's catalog only after all three succeed.
func (a *Archive) commit(cat *catalog.Catalog) error {
	off := a.end
	n, err := cat.Write(a.f, off)
	if err != nil {
		return err
	}
	if err := catalog.WriteHeader(a.f, uint64(off)); err != nil { //nolint:gosec // off is a file offset
		return err
	}
	if err := a.f.Sync(); err != nil {
		return ioErr("sync", err)
	}
	a.cat = cat
	a.end = off + n
	return nil
}

func (a *Archive) checkOpen() error {
	if a.closed {
		return ErrClosed
	}
	return nil
}

// reader returns a payload reader over the current file contents.
func (a *Archive) reader() *payload.Reader {
	return payload.NewReader(fileSource{f: a.f, size: a.end},
		payload.WithMaxEntrySize(a.maxEntrySize),
		payload.WithMode(a.mode))
}

// fileSource adapts an *os.File with a known size to payload.ByteSource.
type fileSource struct {
	f    *os.File
	size int64
}

func (s fileSource) ReadAt(p []byte, off int64) (int, error) {
	return s.f.ReadAt(p, off)
}

func (s fileSource) Size() int64 {
	return s.size
}

// Path returns the archive's file path.
func (a *Archive) Path() string {
	return a.path
}

// Size returns the archive file size in bytes.
func (a *Archive) Size() int64 {
	return a.end
}

// Len returns the number of catalog entries, tombstones included.
func (a *Archive) Len() int {
	return a.cat.Len()
}

// LiveCount returns the number of live entries.
func (a *Archive) LiveCount() int {
	return a.cat.LiveCount()
}

// NextID returns the id the next appended entry will receive.
func (a *Archive) NextID() uint32 {
	return a.cat.NextID()
}

// CipherMode returns the keystream mode used for encryption.
func (a *Archive) CipherMode() keystream.Mode {
	return a.mode
}

// List returns the live entries in catalog order.
func (a *Archive) List() []EntrySummary {
	out := make([]EntrySummary, 0, a.cat.LiveCount())
	for e := range a.cat.Live() {
		out = append(out, summarize(&e))
	}
	return out
}

// Entries returns every catalog record, tombstones included, in catalog order.
func (a *Archive) Entries() []Entry {
	return a.cat.Entries()
}

// Entry returns the record with the given id, live or not.
func (a *Archive) Entry(id uint32) (Entry, bool) {
	return a.cat.ByID(id)
}

// Lookup returns the live record stored under name.
func (a *Archive) Lookup(name string) (Entry, bool) {
	return a.cat.LiveByName(name)
}

// Digest returns the SHA-256 digest of the archive file.
func (a *Archive) Digest() (digest.Digest, error) {
	if err := a.checkOpen(); err != nil {
		return "", err
	}
	d, err := digest.Canonical.FromReader(io.NewSectionReader(a.f, 0, a.end))
	if err != nil {
		return "", ioErr("digest", err)
	}
	return d, nil
}

// Close closes the archive file. Further operations return ErrClosed.
func (a *Archive) Close() error {
	if a.closed {
		return nil
	}
	a.closed = true
	if err := a.f.Close(); err != nil {
		return ioErr("close", err)
	}
	a.log().Debug("closed archive", "path", a.path)
	return nil
}
