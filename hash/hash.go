// Package hash implements component C2: single- and multi-file content
// hashing with adaptive memory-mapped/buffered I/O and a per-call worker
// pool.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"runtime"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/fserr"
)

// Algorithm identifies a supported digest function.
type Algorithm string

const (
	SHA256 Algorithm = "sha256"
	BLAKE3 Algorithm = "blake3"
)

func (a Algorithm) newHasher() (hash.Hash, error) {
	switch a {
	case SHA256:
		return sha256.New(), nil
	case BLAKE3:
		return blake3.New(), nil
	default:
		return nil, fmt.Errorf("unknown algorithm: %q", a)
	}
}

// mmapThreshold is the fixed file-size cutoff above which hashing
// memory-maps the file instead of reading it in chunks.
const mmapThreshold = 4 * 1024 * 1024

var defaultChunkSize = int(kestrel.Defaults.ChunkSize)

// Result is an immutable record of one completed hash.
type Result struct {
	Path      string
	Algorithm Algorithm
	HashHex   string
	FileSize  int64
}

// Equal compares two Results by (algorithm, hash_hex) only, per the
// toolkit-wide equality contract for HashResult.
func (r Result) Equal(other Result) bool {
	return r.Algorithm == other.Algorithm && r.HashHex == other.HashHex
}

// HashFile hashes one file with the given algorithm and chunk size
// (chunk size is only consulted for the buffered-read path; mmap'd files
// ignore it). A chunkSize of 0 uses the default of 1 MiB.
func HashFile(_ context.Context, path string, algo Algorithm, chunkSize int) (Result, error) {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	h, err := algo.newHasher()
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}
	size := info.Size()

	if size > mmapThreshold {
		if err := hashMapped(f, size, h); err != nil {
			return Result{}, fserr.NewHashError(path, err)
		}
	} else if err := hashBuffered(f, h, chunkSize); err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}

	return Result{
		Path:      path,
		Algorithm: algo,
		HashHex:   hex.EncodeToString(h.Sum(nil)),
		FileSize:  size,
	}, nil
}

func hashBuffered(r io.Reader, h hash.Hash, chunkSize int) error {
	buf := make([]byte, chunkSize)
	_, err := io.CopyBuffer(h, r, buf)
	return err
}

// HashFiles hashes many files concurrently with a worker pool sized by
// maxWorkers (defaulting to runtime.NumCPU()). callback, if non-nil, is
// invoked once per completed file in completion order, from whichever
// worker goroutine finished it. If any file fails, the whole call
// returns a *fserr.HashError and discards every result gathered so far —
// there is no partial return.
func HashFiles(
	ctx context.Context,
	paths []string,
	algo Algorithm,
	chunkSize int,
	maxWorkers int,
	callback func(Result),
) ([]Result, error) {
	if len(paths) == 0 {
		return nil, nil
	}
	if maxWorkers <= 0 {
		maxWorkers = runtime.NumCPU()
	}
	if _, err := algo.newHasher(); err != nil {
		return nil, fserr.NewHashError("", err)
	}

	type outcome struct {
		res Result
		err error
	}

	work := make(chan string, maxWorkers*2)
	results := make(chan outcome, maxWorkers*2)

	var wg sync.WaitGroup
	for range maxWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for path := range work {
				select {
				case <-ctx.Done():
					results <- outcome{err: ctx.Err()}
					continue
				default:
				}
				res, err := HashFile(ctx, path, algo, chunkSize)
				if err == nil && callback != nil {
					callback(res)
				}
				results <- outcome{res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, p := range paths {
			select {
			case work <- p:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]Result, 0, len(paths))
	var firstErr error
	for o := range results {
		if o.err != nil {
			if firstErr == nil {
				firstErr = o.err
			}
			continue
		}
		out = append(out, o.res)
	}

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// PartialHash hashes the first size bytes concatenated with the last
// size bytes of the file at path. If the file is smaller than 2*size
// (which also covers files shorter than size), the whole file is hashed
// instead — this is also what stage 2 of Deduper relies on.
func PartialHash(_ context.Context, path string, algo Algorithm, size int) (Result, error) {
	h, err := algo.newHasher()
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}

	f, err := os.Open(path)
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fserr.NewHashError(path, err)
	}
	fileSize := info.Size()

	if fileSize <= int64(2*size) {
		if err := hashBuffered(f, h, defaultChunkSize); err != nil {
			return Result{}, fserr.NewHashError(path, err)
		}
	} else {
		head := make([]byte, size)
		if _, err := io.ReadFull(f, head); err != nil {
			return Result{}, fserr.NewHashError(path, err)
		}
		h.Write(head)

		tail := make([]byte, size)
		if _, err := f.Seek(-int64(size), io.SeekEnd); err != nil {
			return Result{}, fserr.NewHashError(path, err)
		}
		if _, err := io.ReadFull(f, tail); err != nil {
			return Result{}, fserr.NewHashError(path, err)
		}
		h.Write(tail)
	}

	return Result{
		Path:      path,
		Algorithm: algo,
		HashHex:   hex.EncodeToString(h.Sum(nil)),
		FileSize:  fileSize,
	}, nil
}
