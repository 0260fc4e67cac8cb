//go:build windows

package source

import "os"

// fileInode has no stable equivalent on Windows via os.Stat; the tailer
// falls back to size/mtime-only rotation detection on this platform.
func fileInode(path string) (uint64, bool) {
	if _, err := os.Stat(path); err != nil {
		return 0, false
	}
	return 0, false
}
