//go:build unix

package tracker

import (
	"io/fs"
	"syscall"
)

// fileID extracts the (device, inode) identity from a stat result.
func fileID(info fs.FileInfo) (FileID, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileID{}, false
	}
	return FileID{Dev: uint64(st.Dev), Ino: uint64(st.Ino)}, true
}
