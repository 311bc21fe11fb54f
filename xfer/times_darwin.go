//go:build darwin

package xfer

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// setFileTimes sets atime and mtime by path. Darwin lacks UTIME_OMIT and
// AT_EMPTY_PATH, so this always goes through a path-based utimensat rather
// than the file descriptor.
func setFileTimes(fd *os.File, atime, mtime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, fd.Name(), times, 0); err != nil {
		return fmt.Errorf("utimensat: %w", err)
	}
	return nil
}

// fileTimes extracts atime and mtime from an os.FileInfo obtained via
// os.Stat/os.Lstat on this platform.
func fileTimes(info os.FileInfo) (atime, mtime time.Time) {
	mtime = info.ModTime()
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mtime, mtime
	}
	return time.Unix(stat.Atimespec.Sec, stat.Atimespec.Nsec), mtime
}
