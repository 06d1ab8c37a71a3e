// Package platform wraps the OS-specific calls used when archiving local
// files: opening a source without following a final symlink, and reading
// the POSIX owner recorded in each entry's uid and gid fields.
package platform

import "errors"

// ErrSymlink is returned when an archive source is a symbolic link.
var ErrSymlink = errors.New("platform: source is a symbolic link")
