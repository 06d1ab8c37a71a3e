//go:build !unix

package platform

import (
	"io/fs"
	"os"
)

// OpenSource opens name below root for reading. Without O_NOFOLLOW the
// symlink check is an Lstat before the open.
func OpenSource(root *os.Root, name string) (*os.File, error) {
	info, err := root.Lstat(name)
	if err != nil {
		return nil, err
	}
	if info.Mode()&fs.ModeSymlink != 0 {
		return nil, &fs.PathError{Op: "open source", Path: name, Err: ErrSymlink}
	}
	return root.Open(name)
}
