package baar

import (
	"context"
	"errors"
	"fmt"

	"github.com/meigma/baar/core/internal/batch"
)

// Extract returns the plaintext of the live entry with the given id.
//
// The payload is decrypted with sess when the entry is encrypted,
// decompressed, and checked against the stored checksum. A wrong password
// surfaces as ErrIntegrityMismatch or ErrDecompression.
func (a *Archive) Extract(ctx context.Context, id uint32, sess *Session) ([]byte, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := a.cat.ByID(id)
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if !e.Live() {
		return nil, entryErr(&e, ErrAlreadyDeleted)
	}
	return a.extract(&e, sess)
}

// ExtractName is Extract for the live entry stored under name.
func (a *Archive) ExtractName(ctx context.Context, name string, sess *Session) ([]byte, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := a.cat.LiveByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return a.extract(&e, sess)
}

func (a *Archive) extract(e *Entry, sess *Session) ([]byte, error) {
	plain, err := a.reader().ReadAll(e, sess.secret())
	if err != nil {
		return nil, entryErr(e, err)
	}
	return plain, nil
}

// ExtractStats reports the outcome of ExtractToDir.
type ExtractStats struct {
	Files   int
	Dirs    int
	Bytes   uint64
	Skipped int
}

// ExtractToDir writes every live entry under dest.
//
// Files are written atomically using temp files and renames. Parent
// directories are created as needed. Names that would escape dest are
// rejected with ErrInvalidName. Payloads are read in offset order and
// decoded concurrently (see WithReadConcurrency).
//
// A failing entry does not stop the others: all per-entry failures are
// returned joined, each as an *EntryError.
//
// By default:
//   - Existing files are skipped (use ExtractWithOverwrite to overwrite)
//   - Modes and times are not preserved (use ExtractWithPreserveMode/Times)
func (a *Archive) ExtractToDir(ctx context.Context, dest string, sess *Session, opts ...ExtractOption) (ExtractStats, error) {
	var stats ExtractStats
	if err := a.checkOpen(); err != nil {
		return stats, err
	}
	cfg := extractConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	sink, err := batch.NewFileSink(dest,
		batch.WithOverwrite(cfg.overwrite),
		batch.WithPreserveMode(cfg.preserveMode),
		batch.WithPreserveTimes(cfg.preserveTimes))
	if err != nil {
		return stats, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer sink.Close()

	entries := a.liveExcept(nil)
	a.log().Info("extracting archive", "path", a.path, "dest", dest, "entries", len(entries))

	var errs []error
	var dirs, files []*Entry
	for i := range entries {
		e := &entries[i]
		if err := ValidateName(e.Name); err != nil {
			errs = append(errs, entryErr(e, err))
			continue
		}
		if !e.IsDir() {
			files = append(files, e)
			continue
		}
		if err := sink.MkdirAll(e); err != nil {
			errs = append(errs, entryErr(e, ioErr("mkdir", err)))
			continue
		}
		dirs = append(dirs, e)
		stats.Dirs++
	}

	ps, err := a.processor(sess, StageExtracting, len(files)).Process(ctx, files, sink)
	stats.Files = ps.Processed
	stats.Skipped = ps.Skipped
	stats.Bytes = ps.TotalBytes
	for _, f := range ps.Failed {
		a.log().Warn("extract failed", "id", f.Entry.ID, "name", f.Entry.Name, "error", f.Err)
		errs = append(errs, entryErr(f.Entry, f.Err))
	}
	if err != nil {
		return stats, errors.Join(append(errs, err)...)
	}

	// Directory metadata last, deepest first, so file writes do not
	// disturb restored times.
	for i := len(dirs) - 1; i >= 0; i-- {
		if err := sink.ApplyDirMetadata(dirs[i]); err != nil {
			errs = append(errs, entryErr(dirs[i], ioErr("set metadata", err)))
		}
	}

	a.log().Info("extracted archive", "dest", dest, "files", stats.Files, "dirs", stats.Dirs, "skipped", stats.Skipped, "failed", len(errs))
	return stats, errors.Join(errs...)
}

// processor returns a batch decoder over the current file contents that
// reports progress under stage.
func (a *Archive) processor(sess *Session, stage ProgressStage, total int) *batch.Processor {
	return batch.NewProcessor(fileSource{f: a.f, size: a.end}, a.maxEntrySize,
		batch.WithPassword(sess.secret(), a.mode),
		batch.WithReadConcurrency(a.readConcurrency),
		batch.WithReadAheadBytes(a.readAheadBytes),
		batch.WithLogger(a.log()),
		batch.WithProgress(func(e *batch.Entry, done int, bytes uint64) {
			a.reportProgress(stage, e.Name, done, total, bytes)
		}))
}
