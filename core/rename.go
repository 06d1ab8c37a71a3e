package baar

import (
	"fmt"
	"strings"
)

// Rename gives the entry id a new name.
//
// Files are renamed in place. Renaming a directory also moves every live
// entry under it, so "docs/" to "moved/" turns "docs/a.txt" into
// "moved/a.txt". A file name must not end in "/" and a directory name must,
// and a directory cannot move into itself; these fail with ErrInvalidName.
//
// When a destination name is held by another live entry, the archive's
// RenamePolicy decides: RenameDisplace tombstones the holder and
// RenameReject fails with ErrNameCollision before anything changes.
func (a *Archive) Rename(id uint32, newName string) error {
	if err := a.checkOpen(); err != nil {
		return err
	}
	newName = NormalizeName(newName)
	if err := ValidateName(newName); err != nil {
		return err
	}

	cat := a.cat.Clone()
	e, ok := cat.ByID(id)
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if !e.Live() {
		return entryErr(&e, ErrAlreadyDeleted)
	}
	if e.IsDir() != isDirName(newName) {
		return entryErr(&e, fmt.Errorf("%w: cannot rename %q to %q", ErrInvalidName, e.Name, newName))
	}
	if e.Name == newName {
		return nil
	}
	if e.IsDir() && strings.HasPrefix(newName, e.Name) {
		return entryErr(&e, fmt.Errorf("%w: cannot move %q into itself", ErrInvalidName, e.Name))
	}

	// Collect the moving set: the entry itself plus, for directories,
	// every live descendant.
	names := map[uint32]string{id: newName}
	if e.IsDir() {
		for d := range cat.Live() {
			if d.ID != id && strings.HasPrefix(d.Name, e.Name) {
				names[d.ID] = newName + strings.TrimPrefix(d.Name, e.Name)
			}
		}
	}

	var displaced []uint32
	for mid, name := range names {
		holder, ok := cat.LiveByName(name)
		if !ok {
			continue
		}
		if _, moving := names[holder.ID]; moving {
			continue
		}
		if a.renamePolicy == RenameReject {
			return &EntryError{ID: mid, Name: name, Err: fmt.Errorf("%w: %q is taken by id %d", ErrNameCollision, name, holder.ID)}
		}
		displaced = append(displaced, holder.ID)
	}
	for _, did := range displaced {
		if err := cat.Tombstone(did); err != nil {
			return err
		}
	}
	if err := cat.Relabel(names); err != nil {
		return entryErr(&e, err)
	}

	if err := a.commit(cat); err != nil {
		return err
	}
	a.log().Info("renamed entry",
		"path", a.path,
		"id", id,
		"from", e.Name,
		"to", newName,
		"moved", len(names),
		"displaced", len(displaced))
	return nil
}
