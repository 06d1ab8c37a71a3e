package baar

import (
	"context"
	"os"
)

// Compact rewrites the archive without tombstoned entries and without the
// entries listed in exclude.
//
// The current file is first renamed to <path>.bak. A fresh file is then
// built at path: every kept entry's stored bytes are copied verbatim, in
// catalog order, and only its data offset changes. The backup is removed
// once the new file and its catalog are synced. On failure the partial file
// is removed and the backup renamed back, so path always holds either the
// old or the new archive.
func (a *Archive) Compact(ctx context.Context, exclude ...uint32) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	keep := a.liveExcept(exclude)
	bak := a.path + BackupSuffix
	if err := checkNoBackup(bak); err != nil {
		return err
	}

	a.log().Info("compacting archive", "path", a.path, "keep", len(keep), "entries", a.cat.Len(), "size", a.end)
	before := a.end

	perm := filePerm(a.f)
	if err := os.Rename(a.path, bak); err != nil {
		return ioErr("rename to backup", err)
	}
	// a.f still refers to the original file, now at bak.
	nf, err := os.OpenFile(a.path, os.O_RDWR|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return a.restoreBackup(bak, ioErr("create", err))
	}

	r, end, err := a.compactInto(ctx, nf, keep)
	if err != nil {
		nf.Close()
		os.Remove(a.path)
		return a.restoreBackup(bak, err)
	}

	old := a.f
	a.f, a.cat, a.end = nf, r.cat, end
	old.Close()
	if err := os.Remove(bak); err != nil {
		return ioErr("remove backup", err)
	}

	a.log().Info("compacted archive", "path", a.path, "entries", a.cat.Len(), "before", before, "after", end)
	return nil
}

func (a *Archive) compactInto(ctx context.Context, nf *os.File, keep []Entry) (*rebuild, int64, error) {
	r, err := newRebuild(nf)
	if err != nil {
		return nil, 0, err
	}
	src := fileSource{f: a.f, size: a.end}
	for i := range keep {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		if err := r.copy(src, keep[i]); err != nil {
			return nil, 0, err
		}
		a.log().Debug("copied entry", "id", keep[i].ID, "name", keep[i].Name, "stored", keep[i].CompSize)
		a.reportProgress(StageCompacting, keep[i].Name, i+1, len(keep), uint64(r.off)) //nolint:gosec // offsets are non-negative
	}
	end, err := r.finish(a.cat)
	if err != nil {
		return nil, 0, err
	}
	return r, end, nil
}
