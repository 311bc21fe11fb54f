//go:build !unix

package hash

import (
	"hash"
	"os"
)

// hashMapped falls back to buffered reads on platforms with no mmap
// support wired in (golang.org/x/sys/unix covers linux and darwin, the
// platforms this module targets).
func hashMapped(f *os.File, _ int64, h hash.Hash) error {
	return hashBuffered(f, h, defaultChunkSize)
}
