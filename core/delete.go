package baar

// Delete tombstones the entries with the given ids.
//
// Payload bytes stay on disk until Compact. Every id is checked before
// anything is written: an unknown id fails with ErrNotFound and a
// tombstoned one with ErrAlreadyDeleted, leaving the archive unchanged.
func (a *Archive) Delete(ids ...uint32) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	cat := a.cat.Clone()
	for _, id := range ids {
		e, ok := cat.ByID(id)
		if err := cat.Tombstone(id); err != nil {
			if ok {
				return entryErr(&e, err)
			}
			return err
		}
	}
	if err := a.commit(cat); err != nil {
		return err
	}
	a.log().Info("deleted entries", "path", a.path, "ids", ids)
	return nil
}
