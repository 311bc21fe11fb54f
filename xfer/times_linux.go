//go:build linux

package xfer

import (
	"fmt"
	"os"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fileTimes extracts atime and mtime from an os.FileInfo obtained via
// os.Stat/os.Lstat on this platform.
func fileTimes(info os.FileInfo) (atime, mtime time.Time) {
	mtime = info.ModTime()
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return mtime, mtime
	}
	return time.Unix(stat.Atim.Sec, stat.Atim.Nsec), mtime
}

// setFileTimes sets atime and mtime on an open file descriptor, falling
// back to a path-based call when AT_EMPTY_PATH is unsupported.
func setFileTimes(fd *os.File, atime, mtime time.Time) error {
	times := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	rawFd := int(fd.Fd())
	if err := unix.UtimesNanoAt(rawFd, "", times, unix.AT_EMPTY_PATH); err != nil {
		if err2 := unix.UtimesNanoAt(unix.AT_FDCWD, fd.Name(), times, 0); err2 != nil {
			return fmt.Errorf("utimensat: %w", err)
		}
	}
	return nil
}
