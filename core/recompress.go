package baar

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/meigma/baar/core/internal/compress"
	"github.com/meigma/baar/core/internal/payload"
)

// Recompress rewrites every live, non-excluded entry at level.
//
// The new archive is built in a temporary file next to path. Plain entries
// are decoded, checked against their stored checksum, and re-encoded with
// the usual rule that compression is kept only when strictly smaller.
// LevelStore stores them and LevelAuto picks a level per entry.
//
// Encrypted entries and directories are copied unchanged. sess is accepted
// for symmetry with Append but never used to decrypt: an encrypted payload
// keeps its original compression.
//
// When the temporary file is complete and synced it is swapped in: path is
// renamed to <path>.bak, the temporary file to path, and the backup removed.
func (a *Archive) Recompress(ctx context.Context, level Level, sess *Session, exclude ...uint32) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	if level != LevelAuto && !level.Valid() {
		return fmt.Errorf("recompress: invalid compression level %d", level)
	}
	bak := a.path + BackupSuffix
	if err := checkNoBackup(bak); err != nil {
		return err
	}
	keep := a.liveExcept(exclude)
	a.log().Info("recompressing archive", "path", a.path, "level", level.String(), "keep", len(keep), "size", a.end)
	if sess.HasPassword() {
		a.log().Debug("recompress leaves encrypted entries as stored")
	}

	dir, base := filepath.Split(a.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return ioErr("create temp file", err)
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	r, end, err := a.recompressInto(ctx, tmp, keep, level)
	if err != nil {
		return err
	}
	if err := tmp.Chmod(filePerm(a.f)); err != nil {
		return ioErr("chmod temp file", err)
	}

	if err := os.Rename(a.path, bak); err != nil {
		return ioErr("rename to backup", err)
	}
	if err := os.Rename(tmpPath, a.path); err != nil {
		return a.restoreBackup(bak, ioErr("rename temp file", err))
	}
	success = true

	before := a.end
	old := a.f
	a.f, a.cat, a.end = tmp, r.cat, end
	old.Close()
	if err := os.Remove(bak); err != nil {
		return ioErr("remove backup", err)
	}

	a.log().Info("recompressed archive", "path", a.path, "before", before, "after", end)
	return nil
}

func (a *Archive) recompressInto(ctx context.Context, tmp *os.File, keep []Entry, level Level) (*rebuild, int64, error) {
	r, err := newRebuild(tmp)
	if err != nil {
		return nil, 0, err
	}
	src := fileSource{f: a.f, size: a.end}
	rd := a.reader()

	for i := range keep {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		e := keep[i]
		if e.IsDir() || e.Encrypted() {
			if err := r.copy(src, e); err != nil {
				return nil, 0, err
			}
			a.log().Debug("copied entry", "id", e.ID, "name", e.Name)
		} else {
			if err := a.reencode(ctx, r, rd, e, level); err != nil {
				return nil, 0, err
			}
		}
		a.reportProgress(StageRecompressing, e.Name, i+1, len(keep), uint64(r.off)) //nolint:gosec // offsets are non-negative
	}

	end, err := r.finish(a.cat)
	if err != nil {
		return nil, 0, err
	}
	return r, end, nil
}

// reencode decodes an unencrypted entry, verifies it, and appends it to r
// compressed at level.
func (a *Archive) reencode(ctx context.Context, r *rebuild, rd *payload.Reader, e Entry, level Level) error {
	plain, err := rd.ReadAll(&e, "")
	if err != nil {
		return entryErr(&e, err)
	}
	if level == LevelAuto {
		level = compress.ChooseLevel(e.Name, int64(len(plain)), plain)
	}
	enc, err := payload.Encode(ctx, a.engine, plain, level, "", a.mode)
	if err != nil {
		return entryErr(&e, err)
	}

	ne := e.Clone()
	ne.Flags = e.Flags&^(FlagCompressed|FlagEncrypted) | enc.Flags
	ne.Level = enc.Level
	ne.UncompSize = enc.UncompSize
	ne.CRC32 = enc.CRC32
	if err := r.add(ne, enc.Data); err != nil {
		return err
	}
	a.log().Debug("recompressed entry",
		"id", e.ID,
		"name", e.Name,
		"level", ne.Level.String(),
		"before", e.CompSize,
		"after", len(enc.Data))
	return nil
}
