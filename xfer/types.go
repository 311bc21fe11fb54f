package xfer

import "log/slog"

// Progress is a disposable snapshot of a CopyFiles/MoveFiles call's state,
// delivered to CopyOptions.ProgressCallback.
type Progress struct {
	SourceBase     string
	DestBase       string
	BytesCopied    int64
	TotalBytes     int64
	FilesCompleted int
	TotalFiles     int
	CurrentFile    string
	// LastMethod names the OS copy strategy (copy_file_range, sendfile,
	// io_uring, clonefile, read_write) used for CurrentFile.
	LastMethod string
}

// CopyOptions controls a CopyFiles or MoveFiles call.
type CopyOptions struct {
	// Overwrite allows replacing an existing destination file. When false,
	// an existing destination file aborts the operation with a
	// *fserr.CopyError.
	Overwrite bool

	// PreserveMetadata copies mtime, atime, and permission bits from each
	// source file onto its destination after the final write. Failure to
	// apply metadata is logged and does not fail the copy. The library
	// zero value is false, matching every other CopyOptions flag (an
	// unset Options{} never does more than a plain copy); the CLI's
	// copy/move commands default their --preserve flag to true instead,
	// since that is the behavior a user invoking the tool directly wants.
	PreserveMetadata bool

	// ProgressCallback, if set, is invoked with throttled snapshots plus a
	// final call at completion.
	ProgressCallback func(Progress)

	// CallbackIntervalMS is the minimum wall-clock spacing between
	// progress callbacks. Zero or a negative value uses
	// kestrel.Defaults.CallbackIntervalMS (100 ms).
	CallbackIntervalMS int

	// BandwidthLimit caps aggregate throughput in bytes/sec across the
	// whole call's worker pool. Zero means unlimited.
	BandwidthLimit int64

	// Workers sizes the per-file copy pool. Zero defaults to
	// runtime.NumCPU().
	Workers int

	// UseIOURing opts into the io_uring copy path on Linux kernels that
	// support it (5.6+). Ignored when BandwidthLimit is set, since rate
	// limiting requires the portable read/write path. Falls back silently
	// to the accelerated read/write path on unsupported kernels or OSes.
	UseIOURing bool

	// Logger receives non-fatal per-file warnings (metadata preservation
	// failures). Defaults to slog.Default().
	Logger *slog.Logger
}
