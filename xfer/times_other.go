//go:build !linux && !darwin

package xfer

import (
	"os"
	"time"
)

// setFileTimes sets mtime via os.Chtimes on platforms with no unix.Timespec
// support wired in; atime preservation degrades to mtime.
func setFileTimes(fd *os.File, atime, mtime time.Time) error {
	return os.Chtimes(fd.Name(), mtime, mtime)
}

// fileTimes has no portable atime accessor outside unix.Stat_t; it returns
// mtime for both.
func fileTimes(info os.FileInfo) (atime, mtime time.Time) {
	mtime = info.ModTime()
	return mtime, mtime
}
