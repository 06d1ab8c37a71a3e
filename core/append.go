package baar

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/meigma/baar/core/internal/compress"
	"github.com/meigma/baar/core/internal/payload"
	"github.com/meigma/baar/core/internal/platform"
	"github.com/meigma/baar/core/internal/sizing"
	"github.com/meigma/baar/core/internal/source"
)

// POSIX file type bits stored alongside the permission bits.
const (
	modeTypeRegular = 0o100000
	modeTypeDir     = 0o040000

	defaultFileMode = 0o644
	defaultDirMode  = 0o755
)

// Item describes one entry to append.
//
// Content comes from Data, or from the file at Source when Data is nil.
// A Name ending in "/" appends a directory placeholder and ignores Data.
// When Name is empty the base name of Source is used.
type Item struct {
	Name   string
	Data   []byte
	Source string

	// Level selects compression. LevelAuto picks Store, Fast or Balanced
	// from a sample of the content.
	Level Level

	// Mode, UID, GID and ModTime override the values taken from Source.
	// Zero values mean "from Source, or a default".
	Mode    fs.FileMode
	UID     uint32
	GID     uint32
	ModTime time.Time

	Meta []MetaPair
}

// SkippedSource records a source that could not be read during Append.
type SkippedSource struct {
	Path string
	Name string
	Err  error
}

// AppendResult reports the outcome of Append.
type AppendResult struct {
	// IDs holds the id assigned to each appended entry, in item order.
	IDs []uint32

	// Replaced holds the ids of live entries tombstoned because an
	// appended entry took their name.
	Replaced []uint32

	// Skipped lists sources whose stat or read failed.
	Skipped []SkippedSource

	// BytesStored is the number of payload bytes written.
	BytesStored uint64
}

// Append adds items to the archive as one batch.
//
// Each payload is checksummed, compressed when that makes it strictly
// smaller, encrypted when sess carries a password, and written at the end
// of the file. A live entry with the same name is tombstoned first. The new
// catalog is written and synced once, after the whole batch.
//
// Sources that cannot be read are logged and reported in Skipped; they do
// not fail the batch. Any other error leaves the archive as it was.
func (a *Archive) Append(ctx context.Context, sess *Session, items ...Item) (*AppendResult, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	res := &AppendResult{}
	if len(items) == 0 {
		return res, nil
	}

	password := sess.secret()
	cat := a.cat.Clone()
	off := a.end

	a.log().Info("appending entries", "path", a.path, "count", len(items), "encrypted", password != "")

	for i := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		it := &items[i]

		entry, plain, err := a.resolveItem(it)
		if err != nil {
			var skip *skipError
			if errors.As(err, &skip) {
				a.log().Warn("skipping source", "path", it.Source, "error", skip.err)
				res.Skipped = append(res.Skipped, SkippedSource{Path: it.Source, Name: it.Name, Err: skip.err})
				continue
			}
			return nil, err
		}

		id, err := cat.Allocate()
		if err != nil {
			return nil, err
		}
		entry.ID = id
		entry.DataOffset = uint64(off) //nolint:gosec // file offsets are non-negative

		if !entry.IsDir() {
			stored, err := a.writePayload(ctx, &entry, plain, it.Level, password, off)
			if err != nil {
				return nil, err
			}
			off += stored
			res.BytesStored += uint64(stored) //nolint:gosec // stored is a payload length
		}

		if prior, ok := cat.LiveByName(entry.Name); ok {
			if err := cat.Tombstone(prior.ID); err != nil {
				return nil, err
			}
			res.Replaced = append(res.Replaced, prior.ID)
			a.log().Debug("replaced entry", "id", prior.ID, "name", prior.Name)
		}
		if err := cat.Append(entry); err != nil {
			return nil, err
		}
		res.IDs = append(res.IDs, id)

		a.log().Debug("appended entry",
			"id", id,
			"name", entry.Name,
			"level", entry.Level.String(),
			"flags", entry.Flags.String(),
			"size", entry.UncompSize,
			"stored", entry.CompSize)
		a.reportProgress(StageAppending, entry.Name, i+1, len(items), res.BytesStored)
	}

	if len(res.IDs) == 0 {
		return res, nil
	}
	a.end = off
	if err := a.commit(cat); err != nil {
		return nil, err
	}

	a.log().Info("appended entries",
		"path", a.path,
		"added", len(res.IDs),
		"replaced", len(res.Replaced),
		"skipped", len(res.Skipped),
		"bytes", res.BytesStored)
	return res, nil
}

// skipError marks a per-source failure that Append tolerates.
type skipError struct {
	err error
}

func (e *skipError) Error() string { return e.err.Error() }
func (e *skipError) Unwrap() error { return e.err }

// resolveItem validates the item name and gathers content and metadata.
func (a *Archive) resolveItem(it *Item) (Entry, []byte, error) {
	name := it.Name
	if name == "" && it.Source != "" {
		name = filepath.Base(it.Source)
	}
	name = NormalizeName(name)
	if err := ValidateName(name); err != nil {
		return Entry{}, nil, err
	}

	entry := Entry{Name: name, UID: it.UID, GID: it.GID, Meta: it.Meta}
	mode := it.Mode.Perm()
	modTime := it.ModTime
	var plain []byte

	switch {
	case isDirName(name):
		if it.Source != "" {
			info, err := os.Stat(it.Source)
			if err != nil {
				return Entry{}, nil, &skipError{err: err}
			}
			if mode == 0 {
				mode = info.Mode().Perm()
			}
			if modTime.IsZero() {
				modTime = info.ModTime()
			}
			if it.UID == 0 && it.GID == 0 {
				entry.UID, entry.GID = platform.Owner(info)
			}
		}
		if mode == 0 {
			mode = defaultDirMode
		}
		entry.Mode = modeTypeDir | uint32(mode)

	case it.Data != nil || it.Source == "":
		plain = it.Data
		if a.maxEntrySize > 0 && uint64(len(plain)) > a.maxEntrySize {
			return Entry{}, nil, fmt.Errorf("%w: %s is %d bytes", ErrSizeOverflow, name, len(plain))
		}
		if mode == 0 {
			mode = defaultFileMode
		}
		entry.Mode = modeTypeRegular | uint32(mode)

	default:
		limit, err := sizing.ToInt64(a.maxEntrySize)
		if err != nil {
			limit = 0
		}
		f, err := source.Read(it.Source, limit)
		if err != nil {
			return Entry{}, nil, &skipError{err: err}
		}
		plain = f.Data
		if mode == 0 {
			mode = f.Info.Mode().Perm()
		}
		if modTime.IsZero() {
			modTime = f.Info.ModTime()
		}
		if it.UID == 0 && it.GID == 0 {
			entry.UID, entry.GID = f.UID, f.GID
		}
		entry.Mode = modeTypeRegular | uint32(mode)
	}

	if modTime.IsZero() {
		modTime = time.Now()
	}
	entry.MTime = modTime.Unix()
	return entry, plain, nil
}

// writePayload encodes plain and writes it at off, filling in the payload
// fields of entry. It returns the number of bytes written.
func (a *Archive) writePayload(ctx context.Context, entry *Entry, plain []byte, level Level, password string, off int64) (int64, error) {
	if level == LevelAuto {
		level = compress.ChooseLevel(entry.Name, int64(len(plain)), plain)
	}
	if !level.Valid() {
		return 0, fmt.Errorf("append %s: invalid compression level %d", entry.Name, level)
	}

	enc, err := payload.Encode(ctx, a.engine, plain, level, password, a.mode)
	if err != nil {
		return 0, fmt.Errorf("append %s: %w", entry.Name, err)
	}
	if len(enc.Data) > 0 {
		if _, err := a.f.WriteAt(enc.Data, off); err != nil {
			return 0, ioErr("write payload", err)
		}
	}

	entry.Flags = enc.Flags
	entry.Level = enc.Level
	entry.CompSize = uint64(len(enc.Data))
	entry.UncompSize = enc.UncompSize
	entry.CRC32 = enc.CRC32
	return int64(len(enc.Data)), nil
}

// AddPaths appends files and directory trees from the local filesystem.
//
// A directory is walked with EnumerateFiles and stored under its base name;
// a file is stored under its base name. Paths that cannot be read are
// skipped and reported in the result.
func (a *Archive) AddPaths(ctx context.Context, sess *Session, level Level, paths ...string) (*AppendResult, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	var items []Item
	var skipped []SkippedSource
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			a.log().Warn("skipping source", "path", p, "error", err)
			skipped = append(skipped, SkippedSource{Path: p, Err: err})
			continue
		}
		if !info.IsDir() {
			items = append(items, Item{Name: filepath.Base(p), Source: p, Level: level})
			continue
		}
		files, err := EnumerateFiles(p)
		if err != nil {
			a.log().Warn("skipping source", "path", p, "error", err)
			skipped = append(skipped, SkippedSource{Path: p, Err: err})
			continue
		}
		for _, sf := range files {
			items = append(items, Item{Name: sf.Name, Source: sf.Path, Level: level})
		}
	}

	res, err := a.Append(ctx, sess, items...)
	if err != nil {
		return nil, err
	}
	res.Skipped = append(skipped, res.Skipped...)
	return res, nil
}
