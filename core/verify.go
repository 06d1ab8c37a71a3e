package baar

import (
	"context"

	"github.com/meigma/baar/core/internal/batch"
)

// EntryStatus is the verification result for one entry.
type EntryStatus struct {
	ID   uint32
	Name string

	// Err is nil when the entry decoded and matched its checksum.
	Err error
}

// OK reports whether the entry verified.
func (s EntryStatus) OK() bool {
	return s.Err == nil
}

// VerifyAll decodes every live entry and checks its checksum. Statuses are
// returned in catalog order.
//
// A failing entry does not stop the run; every entry gets a status.
// Encrypted entries report ErrPasswordRequired when sess has no password.
// The error result is only set when the archive is closed or ctx is done.
func (a *Archive) VerifyAll(ctx context.Context, sess *Session) ([]EntryStatus, error) {
	if err := a.checkOpen(); err != nil {
		return nil, err
	}
	entries := a.liveExcept(nil)
	ptrs := make([]*Entry, len(entries))
	for i := range entries {
		ptrs[i] = &entries[i]
	}

	discard := batch.SinkFunc(func(*Entry, []byte) error { return nil })
	ps, err := a.processor(sess, StageVerifying, len(ptrs)).Process(ctx, ptrs, discard)
	if err != nil {
		return nil, err
	}

	failed := make(map[uint32]error, len(ps.Failed))
	for _, f := range ps.Failed {
		failed[f.Entry.ID] = entryErr(f.Entry, f.Err)
		a.log().Warn("entry failed verification", "id", f.Entry.ID, "name", f.Entry.Name, "error", f.Err)
	}
	out := make([]EntryStatus, len(entries))
	for i := range entries {
		out[i] = EntryStatus{ID: entries[i].ID, Name: entries[i].Name, Err: failed[entries[i].ID]}
	}

	a.log().Info("verified archive", "path", a.path, "entries", len(out), "failed", len(ps.Failed))
	return out, nil
}
