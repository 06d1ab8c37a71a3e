//go:build unix

package platform

import (
	"errors"
	"io/fs"
	"os"
	"syscall"
)

// OpenSource opens name below root for reading. O_NOFOLLOW makes the open
// fail when the final element is a symlink.
func OpenSource(root *os.Root, name string) (*os.File, error) {
	f, err := root.OpenFile(name, os.O_RDONLY|syscall.O_NOFOLLOW, 0)
	if errors.Is(err, syscall.ELOOP) {
		return nil, &fs.PathError{Op: "open source", Path: name, Err: ErrSymlink}
	}
	return f, err
}
