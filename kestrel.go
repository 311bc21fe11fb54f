// Package kestrel collects the documented zero-config defaults shared by
// the walk, hash, xfer, watch, and dedup packages, so the CLI can print
// accurate help text and the defaults live in exactly one place instead of
// being repeated at every call site. A package falls back to these values
// on its own where an option left at its Go zero value has a fallback:
// hash's chunk size, dedup's algorithm, partial-hash size and minimum
// size, watch's debounce window, and xfer's progress-callback interval.
// Boolean options keep their Go zero value (false) in the packages'
// option structs, so Recursive and PreserveMetadata are true only where
// the CLI's flags apply them; hash's functions take the algorithm as an
// explicit argument and reject an empty one.
package kestrel

// Defaults holds the documented default of each component option.
var Defaults = struct {
	// Algorithm is dedup's and the CLI's default content-hashing algorithm.
	Algorithm string
	// ChunkSize is hash's default streaming read buffer size, in bytes.
	ChunkSize int64
	// DebounceMS is watch's default coalescing window, in milliseconds.
	DebounceMS int
	// CallbackIntervalMS is xfer's default minimum spacing between
	// progress callbacks, in milliseconds.
	CallbackIntervalMS int
	// PartialHashSize is dedup's default head/tail byte count for its
	// cheap second-stage hash.
	PartialHashSize int
	// MinSize is dedup's default minimum file size considered for
	// duplicate detection; empty files are excluded by default.
	MinSize int64
	// FollowSymlinks is walk's default symlink-following behavior.
	FollowSymlinks bool
	// Recursive is the default of the CLI's dedup and watch --recursive
	// flags; dedup.Options and watch.Options leave it false when unset.
	Recursive bool
	// Overwrite is xfer's default destination-conflict behavior.
	Overwrite bool
	// PreserveMetadata is the default of the CLI's copy/move --preserve
	// flag; xfer.CopyOptions leaves it false when unset.
	PreserveMetadata bool
}{
	Algorithm:          "blake3",
	ChunkSize:          1 << 20,
	DebounceMS:         500,
	CallbackIntervalMS: 100,
	PartialHashSize:    4096,
	MinSize:            1,
	FollowSymlinks:     false,
	Recursive:          true,
	Overwrite:          false,
	PreserveMetadata:   true,
}
