// Package fserr defines the error taxonomy shared by walk, hash, xfer,
// watch, and dedup: a common base plus one specialization per component.
package fserr

import "fmt"

// Error is the common interface satisfied by WalkError, HashError,
// CopyError, and WatchError. Path identifies the file or directory the
// failure occurred on; Unwrap reaches the wrapped OS error so
// errors.Is/errors.As pierce through (e.g. errors.Is(err,
// fs.ErrNotExist)).
type Error interface {
	error
	Path() string
	Unwrap() error
}

// base carries the path a failure occurred on and the underlying cause.
// Embedded by every specialization so Unwrap() reaches the OS error.
type base struct {
	op   string
	path string
	err  error
}

func (b *base) Error() string {
	if b.path == "" {
		return fmt.Sprintf("%s: %v", b.op, b.err)
	}
	return fmt.Sprintf("%s %s: %v", b.op, b.path, b.err)
}

func (b *base) Unwrap() error { return b.err }

func (b *base) Path() string { return b.path }

var (
	_ Error = (*WalkError)(nil)
	_ Error = (*HashError)(nil)
	_ Error = (*CopyError)(nil)
	_ Error = (*WatchError)(nil)
)

// WalkError reports a failure during a walk: a fatal failure accessing the
// root, or a per-entry failure (unreadable directory, vanished entry, or a
// symlink cycle detected while following links) that the walk skips.
type WalkError struct{ base }

func NewWalkError(path string, err error) *WalkError {
	return &WalkError{base{op: "walk", path: path, err: err}}
}

// HashError reports a pool-construction failure, an unknown algorithm, or
// a per-file open/read failure that aborted a HashFiles call.
type HashError struct{ base }

func NewHashError(path string, err error) *HashError {
	return &HashError{base{op: "hash", path: path, err: err}}
}

// CopyError reports an enumeration failure, an overwrite refusal, a write
// failure, or a destination-is-a-file conflict.
type CopyError struct{ base }

func NewCopyError(path string, err error) *CopyError {
	return &CopyError{base{op: "copy", path: path, err: err}}
}

// WatchError reports a failed native-watch install or a runtime
// event-source error (overflow, partial loss).
type WatchError struct{ base }

func NewWatchError(path string, err error) *WatchError {
	return &WatchError{base{op: "watch", path: path, err: err}}
}
