//go:build unix

package hash

import (
	"hash"
	"os"

	"golang.org/x/sys/unix"
)

// hashMapped memory-maps the file and feeds the entire mapping to h in
// one pass. Mapping a mutated-in-place file is explicitly unsupported by
// the contract; callers needing a stable snapshot must arrange one
// externally.
func hashMapped(f *os.File, size int64, h hash.Hash) error {
	if size == 0 {
		return nil
	}
	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return err
	}
	defer unix.Munmap(data) //nolint:errcheck // best-effort unmap after hashing

	_, err = h.Write(data)
	return err
}
