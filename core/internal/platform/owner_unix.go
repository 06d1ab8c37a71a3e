//go:build unix

package platform

import (
	"io/fs"
	"syscall"
)

// Owner returns the uid and gid stored with an archived file.
func Owner(info fs.FileInfo) (uid, gid uint32) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0
	}
	return st.Uid, st.Gid
}
