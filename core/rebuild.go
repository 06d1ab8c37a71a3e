package baar

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/meigma/baar/core/internal/catalog"
	"github.com/meigma/baar/core/internal/payload"
)

// rebuild writes a fresh archive file one entry at a time.
type rebuild struct {
	f   *os.File
	cat *catalog.Catalog
	off int64
}

func newRebuild(f *os.File) (*rebuild, error) {
	if err := catalog.WriteHeader(f, 0); err != nil {
		return nil, err
	}
	return &rebuild{f: f, cat: catalog.New(), off: catalog.HeaderSize}, nil
}

// copy appends e, copying its stored payload verbatim from src.
// Only DataOffset changes.
func (r *rebuild) copy(src io.ReaderAt, e Entry) error {
	dataOff := r.off
	if e.CompSize > 0 {
		n, err := payload.CopyStored(r.f, r.off, src, &e)
		if err != nil {
			return entryErr(&e, err)
		}
		r.off += int64(n) //nolint:gosec // n equals CompSize, bounded by the source file
	}
	e.DataOffset = uint64(dataOff) //nolint:gosec // file offsets are non-negative
	return r.cat.Append(e)
}

// add appends e with a freshly encoded payload.
func (r *rebuild) add(e Entry, data []byte) error {
	if len(data) > 0 {
		if _, err := r.f.WriteAt(data, r.off); err != nil {
			return ioErr("write payload", err)
		}
	}
	e.DataOffset = uint64(r.off) //nolint:gosec // file offsets are non-negative
	e.CompSize = uint64(len(data))
	r.off += int64(len(data))
	return r.cat.Append(e)
}

// finish writes the catalog and header and syncs the file. It returns the
// final file size.
//
// Ids are never reused, but the catalog does not store its counter: the
// next id is recomputed from the highest id present. When the entry holding
// the highest id was dropped, finish keeps a payload-free tombstone for it
// so prev's counter survives the rebuild.
func (r *rebuild) finish(prev *catalog.Catalog) (int64, error) {
	if next := prev.NextID(); r.cat.NextID() < next {
		if err := r.cat.Append(highWater(prev, next-1)); err != nil {
			return 0, err
		}
	}
	n, err := r.cat.Write(r.f, r.off)
	if err != nil {
		return 0, err
	}
	if err := catalog.WriteHeader(r.f, uint64(r.off)); err != nil { //nolint:gosec // file offsets are non-negative
		return 0, err
	}
	if err := r.f.Sync(); err != nil {
		return 0, ioErr("sync", err)
	}
	return r.off + n, nil
}

// highWater returns a tombstone carrying id and no payload.
func highWater(prev *catalog.Catalog, id uint32) Entry {
	e := Entry{ID: id}
	if last, ok := prev.ByID(id); ok {
		e.Name = last.Name
		e.Mode = last.Mode
		e.MTime = last.MTime
	}
	e.Flags = FlagDeleted
	e.DataOffset = catalog.HeaderSize
	return e
}

// filePerm returns the permission bits of f, defaulting to 0o644.
func filePerm(f *os.File) fs.FileMode {
	info, err := f.Stat()
	if err != nil {
		return 0o644
	}
	return info.Mode().Perm()
}

// restoreBackup moves bak back over path after a failed rebuild.
func (a *Archive) restoreBackup(bak string, cause error) error {
	if err := os.Rename(bak, a.path); err != nil {
		a.log().Error("restoring backup failed", "path", a.path, "backup", bak, "error", err)
		return errors.Join(cause, ioErr("restore backup", err))
	}
	return cause
}

// liveExcept returns live entries in catalog order, minus the excluded ids.
func (a *Archive) liveExcept(exclude []uint32) []Entry {
	skip := make(map[uint32]struct{}, len(exclude))
	for _, id := range exclude {
		skip[id] = struct{}{}
	}
	var out []Entry
	for e := range a.cat.Live() {
		if _, ok := skip[e.ID]; ok {
			continue
		}
		out = append(out, e)
	}
	return out
}

// checkNoBackup refuses to start a rebuild while bak exists. Renaming over
// it would destroy the only copy of a state that Open has not restored yet.
func checkNoBackup(bak string) error {
	_, err := os.Lstat(bak)
	if err == nil {
		return fmt.Errorf("%w: backup %s already exists", ErrIO, bak)
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return ioErr("stat backup", err)
	}
	return nil
}
