//go:build !windows

package source

import "syscall"

// fileInode returns the inode number backing path, used for rotation
// detection. Returns false if the file cannot be stat'd.
func fileInode(path string) (uint64, bool) {
	var st syscall.Stat_t
	if err := syscall.Stat(path, &st); err != nil {
		return 0, false
	}
	return uint64(st.Ino), true
}
