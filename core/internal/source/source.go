// Package source reads files from the local filesystem for archiving.
package source

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/meigma/baar/core/internal/platform"
)

// ErrChanged is returned when a file changes while it is being read.
var ErrChanged = errors.New("source: file changed while reading")

// ErrNotRegular is returned for anything but a regular file.
var ErrNotRegular = errors.New("source: not a regular file")

// ErrTooLarge is returned when a file exceeds the caller's size limit.
var ErrTooLarge = errors.New("source: file too large")

// File is a regular file read fully into memory.
type File struct {
	Data []byte
	Info fs.FileInfo
	UID  uint32
	GID  uint32
}

// Read loads the regular file at path without following a final symlink.
// A limit of 0 disables the size check.
func Read(path string, limit int64) (*File, error) {
	root, err := os.OpenRoot(filepath.Dir(path))
	if err != nil {
		return nil, err
	}
	defer root.Close()

	f, err := platform.OpenSource(root, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	before, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !before.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}
	if limit > 0 && before.Size() > limit {
		return nil, fmt.Errorf("%w: %s is %d bytes", ErrTooLarge, path, before.Size())
	}

	data, err := io.ReadAll(io.LimitReader(f, before.Size()+1))
	if err != nil {
		return nil, err
	}
	if err := CheckUnchanged(f, path, before); err != nil {
		return nil, err
	}
	if int64(len(data)) != before.Size() {
		return nil, fmt.Errorf("%w: %s", ErrChanged, path)
	}

	uid, gid := platform.Owner(before)
	return &File{Data: data, Info: before, UID: uid, GID: gid}, nil
}

// CheckUnchanged verifies a file wasn't modified while it was read by
// comparing size, mtime, and permissions before and after.
func CheckUnchanged(f *os.File, path string, before fs.FileInfo) error {
	after, err := f.Stat()
	if err != nil {
		return err
	}
	if after.Size() != before.Size() || !after.ModTime().Equal(before.ModTime()) || after.Mode().Perm() != before.Mode().Perm() {
		return fmt.Errorf("%w: %s", ErrChanged, path)
	}
	return nil
}

// Resolve classifies a walked directory entry. Symlinks and special files
// are reported with ok=false so the caller can skip them.
func Resolve(root *os.Root, fsPath string, d fs.DirEntry) (info fs.FileInfo, ok bool, err error) {
	dtype := d.Type()
	if dtype&fs.ModeSymlink != 0 {
		return nil, false, nil
	}
	if dtype == 0 || dtype.IsDir() {
		info, err = root.Lstat(fsPath)
		if err != nil {
			return nil, false, err
		}
		mode := info.Mode()
		if mode&fs.ModeSymlink != 0 || (!mode.IsRegular() && !mode.IsDir()) {
			return nil, false, nil
		}
		return info, true, nil
	}
	return nil, false, nil
}
