// Package platform implements the OS-accelerated copy paths used by xfer's
// per-file transfer step: copy_file_range/sendfile on Linux, clonefile on
// Darwin, and a portable pread/pwrite fallback everywhere else.
package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// CopyMethod identifies which syscall/strategy was used for a copy.
type CopyMethod int

const (
	ReadWrite     CopyMethod = iota
	CopyFileRange            // Linux copy_file_range(2)
	Sendfile                 // Linux sendfile(2)
	IOURing                  // Linux io_uring
	Clonefile                // macOS clonefile(2)
)

func (m CopyMethod) String() string {
	switch m {
	case ReadWrite:
		return "read_write"
	case CopyFileRange:
		return "copy_file_range"
	case Sendfile:
		return "sendfile"
	case IOURing:
		return "io_uring"
	case Clonefile:
		return "clonefile"
	default:
		return "unknown"
	}
}

// preallocateMinSize is the smallest transfer worth pre-allocating disk
// space for on Linux; below this the fallocate syscall overhead
// outweighs any benefit to kestrel's small-file-heavy workloads.
const preallocateMinSize = 64 << 10

// CopyResult reports the outcome of a copy operation.
type CopyResult struct {
	BytesWritten int64
	Method       CopyMethod
}

// CopyFileParams describes a whole- or partial-file copy. A zero SrcOffset
// and Length means "the whole file" (SrcSize bytes).
type CopyFileParams struct {
	DstFd     *os.File
	SrcPath   string
	SrcOffset int64
	SrcSize   int64
	Length    int64
}

func copyLength(params CopyFileParams) int64 {
	if params.Length > 0 {
		return params.Length
	}
	return params.SrcSize - params.SrcOffset
}

// isFallbackErr reports whether err should trigger a fallback to the next
// copy strategy rather than being treated as a terminal failure.
func isFallbackErr(err error) bool {
	switch err {
	case unix.ENOSYS, unix.EXDEV, unix.EINVAL, unix.ENOTSUP:
		return true
	}
	if e, ok := err.(*os.PathError); ok {
		return isFallbackErr(e.Err)
	}
	return false
}
