//go:build !linux

package platform

import "os"

// preallocate is a no-op off Linux (fallocate is Linux-only; the
// read/write fallback works fine on an unallocated file).
func preallocate(_ *os.File, _ int64) {}
