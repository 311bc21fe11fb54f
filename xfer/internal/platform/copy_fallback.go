//go:build !linux && !darwin

package platform

// CopyFile is kestrel's transfer path on platforms with no accelerated
// whole-file copy syscall (copy_file_range, sendfile, clonefile): it uses
// the portable read/write strategy. The preallocate call is a no-op on
// these platforms.
func CopyFile(params CopyFileParams) (CopyResult, error) {
	preallocate(params.DstFd, copyLength(params))
	return copyReadWrite(params)
}
