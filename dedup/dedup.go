// Package dedup implements component C5: staged duplicate-file detection
// on top of the walk and hash packages. Candidates are narrowed by exact
// size, then by a cheap partial hash, and only the survivors of both
// filters are fully hashed.
package dedup

import (
	"context"
	"log/slog"
	"os"
	"runtime"
	"sort"
	"sync"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/fserr"
	"github.com/kestrelfs/kestrel/hash"
	"github.com/kestrelfs/kestrel/walk"
)

// DuplicateGroup is an immutable record of files sharing one digest.
type DuplicateGroup struct {
	HashHex  string
	FileSize int64
	Paths    []string
}

// WastedBytes is the space reclaimed by keeping only one copy.
func (g DuplicateGroup) WastedBytes() int64 {
	if len(g.Paths) <= 1 {
		return 0
	}
	return g.FileSize * int64(len(g.Paths)-1)
}

// Options configures FindDuplicates.
type Options struct {
	// Recursive expands directory inputs fully; false limits expansion to
	// their direct children (walk.MaxDepth=1).
	Recursive bool

	// MinSize excludes files smaller than this from consideration. Zero or
	// a negative value means kestrel.Defaults.MinSize (1 byte), so empty
	// files are never considered.
	MinSize int64

	// Algorithm is used for both the partial and full hash stages.
	Algorithm hash.Algorithm

	// PartialHashSize is the head/tail byte count for stage 2. Zero uses
	// a 4 KiB default.
	PartialHashSize int

	// MaxWorkers bounds stage 2/3 hashing concurrency; zero defaults to
	// runtime.NumCPU().
	MaxWorkers int

	// ProgressCallback, if non-nil, is invoked when a stage finishes, not
	// per file, with the number of files the stage kept (processed) and
	// the number it was given (total). stage is "collecting" (reported
	// twice: after enumeration and after size grouping), "partial_hash",
	// or "full_hash".
	ProgressCallback func(stage string, processed, total int)

	// Logger receives collection-stage per-entry warnings. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (o Options) algorithm() hash.Algorithm {
	if o.Algorithm == "" {
		return hash.Algorithm(kestrel.Defaults.Algorithm)
	}
	return o.Algorithm
}

func (o Options) partialSize() int {
	if o.PartialHashSize <= 0 {
		return kestrel.Defaults.PartialHashSize
	}
	return o.PartialHashSize
}

// minSize is opts.MinSize defaulted to kestrel.Defaults.MinSize. No
// setting admits empty files: any value below 1 becomes the default.
func (o Options) minSize() int64 {
	if o.MinSize <= 0 {
		return kestrel.Defaults.MinSize
	}
	return o.MinSize
}

func (o Options) maxWorkers() int {
	if o.MaxWorkers > 0 {
		return o.MaxWorkers
	}
	return runtime.NumCPU()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) report(stage string, processed, total int) {
	if o.ProgressCallback != nil {
		o.ProgressCallback(stage, processed, total)
	}
}

type fileEntry struct {
	path string
	size int64
}

// FindDuplicates runs the collect -> size-group -> partial-hash ->
// full-hash pipeline over paths, which may be a mix of files and
// directories. It returns groups of two or more files with identical
// content, sorted by bytes wasted (descending).
func FindDuplicates(ctx context.Context, paths []string, opts Options) ([]DuplicateGroup, error) {
	entries, err := collect(ctx, paths, opts)
	if err != nil {
		return nil, err
	}
	opts.report("collecting", len(entries), len(entries))

	sizeGroups := groupBySize(entries)
	candidates := dropSingletons(sizeGroups)

	candidateCount := countFiles(candidates)
	opts.report("collecting", candidateCount, len(entries))

	partialGroups, err := partialHashStage(ctx, candidates, opts)
	if err != nil {
		return nil, err
	}
	afterPartial := dropSingletonKeyed(partialGroups)

	partialCount := countKeyedFiles(afterPartial)
	opts.report("partial_hash", partialCount, candidateCount)

	fullGroups, err := fullHashStage(ctx, afterPartial, opts)
	if err != nil {
		return nil, err
	}
	afterFull := dropSingletonKeyed(fullGroups)

	groups := make([]DuplicateGroup, 0, len(afterFull))
	for k, files := range afterFull {
		paths := make([]string, len(files))
		for i, f := range files {
			paths[i] = f.path
		}
		sort.Strings(paths)
		groups = append(groups, DuplicateGroup{
			HashHex:  k.digest,
			FileSize: k.size,
			Paths:    paths,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		wi, wj := groups[i].WastedBytes(), groups[j].WastedBytes()
		if wi != wj {
			return wi > wj
		}
		if groups[i].FileSize != groups[j].FileSize {
			return groups[i].FileSize > groups[j].FileSize
		}
		return groups[i].HashHex < groups[j].HashHex
	})

	dupCount := 0
	for _, g := range groups {
		dupCount += len(g.Paths)
	}
	opts.report("full_hash", dupCount, partialCount)

	return groups, nil
}

// collect expands paths into a flat list of candidate files, filtering
// out anything smaller than opts.MinSize. Per-entry walk failures, and
// top-level paths that cannot be stat'ed, are logged and skipped; a walk
// of a top-level directory that fails at its root is returned as an error.
func collect(ctx context.Context, paths []string, opts Options) ([]fileEntry, error) {
	var entries []fileEntry

	for _, p := range paths {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		info, err := os.Stat(p)
		if err != nil {
			opts.logger().Warn("dedup: cannot access path", "path", p, "error", err)
			continue
		}

		if !info.IsDir() {
			if info.Size() >= opts.minSize() {
				entries = append(entries, fileEntry{path: p, size: info.Size()})
			}
			continue
		}

		walkOpts := walk.Options{
			FileType: walk.FileTypeFile,
			Logger:   opts.logger(),
		}
		if !opts.Recursive {
			one := 1
			walkOpts.MaxDepth = &one
		}

		found, err := walk.Collect(ctx, p, walkOpts)
		if err != nil {
			return nil, err
		}
		for _, e := range found {
			if e.FileSize >= opts.minSize() {
				entries = append(entries, fileEntry{path: e.Path, size: e.FileSize})
			}
		}
	}

	return entries, nil
}

func groupBySize(entries []fileEntry) map[int64][]fileEntry {
	groups := make(map[int64][]fileEntry)
	for _, e := range entries {
		groups[e.size] = append(groups[e.size], e)
	}
	return groups
}

func dropSingletons(groups map[int64][]fileEntry) map[int64][]fileEntry {
	out := make(map[int64][]fileEntry)
	for size, files := range groups {
		if len(files) > 1 {
			out[size] = files
		}
	}
	return out
}

func countFiles(groups map[int64][]fileEntry) int {
	n := 0
	for _, files := range groups {
		n += len(files)
	}
	return n
}

type sizeDigest struct {
	size   int64
	digest string
}

func dropSingletonKeyed(groups map[sizeDigest][]fileEntry) map[sizeDigest][]fileEntry {
	out := make(map[sizeDigest][]fileEntry)
	for k, files := range groups {
		if len(files) > 1 {
			out[k] = files
		}
	}
	return out
}

func countKeyedFiles(groups map[sizeDigest][]fileEntry) int {
	n := 0
	for _, files := range groups {
		n += len(files)
	}
	return n
}

// partialHashStage hashes every file within each size group in parallel
// and regroups by (size, partial_digest).
func partialHashStage(ctx context.Context, sizeGroups map[int64][]fileEntry, opts Options) (map[sizeDigest][]fileEntry, error) {
	out := make(map[sizeDigest][]fileEntry)
	for size, files := range sizeGroups {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		digests, err := hashAll(ctx, files, opts, func(ctx context.Context, path string) (hash.Result, error) {
			return hash.PartialHash(ctx, path, opts.algorithm(), opts.partialSize())
		})
		if err != nil {
			return nil, err
		}
		for i, f := range files {
			k := sizeDigest{size: size, digest: digests[i]}
			out[k] = append(out[k], f)
		}
	}
	return out, nil
}

// fullHashStage fully hashes every file within each surviving partial-hash
// subgroup and regroups by (size, full_digest).
func fullHashStage(ctx context.Context, partialGroups map[sizeDigest][]fileEntry, opts Options) (map[sizeDigest][]fileEntry, error) {
	out := make(map[sizeDigest][]fileEntry)
	for k, files := range partialGroups {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		digests, err := hashAll(ctx, files, opts, func(ctx context.Context, path string) (hash.Result, error) {
			return hash.HashFile(ctx, path, opts.algorithm(), 0)
		})
		if err != nil {
			return nil, err
		}
		for i, f := range files {
			fk := sizeDigest{size: k.size, digest: digests[i]}
			out[fk] = append(out[fk], f)
		}
	}
	return out, nil
}

// hashAll hashes files concurrently with a worker pool sized by
// opts.maxWorkers, returning digests in the same order as files. Any
// failure aborts the whole call.
func hashAll(ctx context.Context, files []fileEntry, opts Options, hashFn func(context.Context, string) (hash.Result, error)) ([]string, error) {
	digests := make([]string, len(files))
	errs := make([]error, len(files))

	workers := opts.maxWorkers()
	if workers > len(files) {
		workers = len(files)
	}
	if workers < 1 {
		workers = 1
	}

	idxCh := make(chan int, len(files))
	for i := range files {
		idxCh <- i
	}
	close(idxCh)

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range idxCh {
				select {
				case <-ctx.Done():
					errs[i] = ctx.Err()
					continue
				default:
				}
				res, err := hashFn(ctx, files[i].path)
				if err != nil {
					errs[i] = fserr.NewHashError(files[i].path, err)
					continue
				}
				digests[i] = res.HashHex
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return digests, nil
}
