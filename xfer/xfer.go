// Package xfer implements component C3: copying and moving files and
// directory trees with OS-accelerated per-file transfer, atomic
// temp-then-rename writes, metadata preservation, and throttled progress
// reporting.
package xfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/fserr"
	"github.com/kestrelfs/kestrel/walk"
	"github.com/kestrelfs/kestrel/xfer/internal/platform"
)

var errDestExists = errors.New("destination already exists")

func (o CopyOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o CopyOptions) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.NumCPU()
}

// fileTask is one (source file, destination file) pairing produced by
// enumeration.
type fileTask struct {
	srcPath string
	dstPath string
	size    int64
}

// planDestinations resolves, for each top-level source, the destination
// path its contents are copied into, and validates the destination shape.
func planDestinations(sources []string, destination string) (map[string]string, bool, error) {
	hasDirSource := false
	srcInfos := make(map[string]os.FileInfo, len(sources))
	for _, src := range sources {
		info, err := os.Lstat(src)
		if err != nil {
			return nil, false, fserr.NewCopyError(src, err)
		}
		srcInfos[src] = info
		if info.IsDir() {
			hasDirSource = true
		}
	}

	destInfo, destErr := os.Stat(destination)
	destExists := destErr == nil
	multi := len(sources) > 1 || hasDirSource

	if multi {
		if destExists && !destInfo.IsDir() {
			return nil, hasDirSource, fserr.NewCopyError(destination, errors.New("destination exists and is not a directory"))
		}
		if err := os.MkdirAll(destination, 0o755); err != nil {
			return nil, hasDirSource, fserr.NewCopyError(destination, err)
		}
	}

	dests := make(map[string]string, len(sources))
	for _, src := range sources {
		switch {
		case multi:
			dests[src] = filepath.Join(destination, filepath.Base(src))
		case destExists && destInfo.IsDir():
			dests[src] = filepath.Join(destination, filepath.Base(src))
		default:
			if err := os.MkdirAll(filepath.Dir(destination), 0o755); err != nil {
				return nil, hasDirSource, fserr.NewCopyError(destination, err)
			}
			dests[src] = destination
		}
	}
	return dests, hasDirSource, nil
}

// enumerate walks every source and returns the flat list of file-level
// copy tasks, plus the total byte count.
func enumerate(ctx context.Context, sources []string, dests map[string]string) ([]fileTask, int64, error) {
	var tasks []fileTask
	var totalBytes int64

	for _, src := range sources {
		dst := dests[src]
		info, err := os.Lstat(src)
		if err != nil {
			return nil, 0, fserr.NewCopyError(src, err)
		}

		if !info.IsDir() {
			tasks = append(tasks, fileTask{srcPath: src, dstPath: dst, size: info.Size()})
			totalBytes += info.Size()
			continue
		}

		entries, err := walk.Collect(ctx, src, walk.Options{FileType: walk.FileTypeFile, Sort: true})
		if err != nil {
			return nil, 0, fserr.NewCopyError(src, err)
		}
		for _, e := range entries {
			rel, err := filepath.Rel(src, e.Path)
			if err != nil {
				return nil, 0, fserr.NewCopyError(e.Path, err)
			}
			tasks = append(tasks, fileTask{srcPath: e.Path, dstPath: filepath.Join(dst, rel), size: e.FileSize})
			totalBytes += e.FileSize
		}
	}

	return tasks, totalBytes, nil
}

// progressTracker owns the canonical, monotonically advancing state behind
// the disposable Progress snapshots handed to callbacks.
type progressTracker struct {
	mu         sync.Mutex
	p          Progress
	lastFire   time.Time
	intervalMS int
	cb         func(Progress)
}

func newProgressTracker(opts CopyOptions, sourceBase, destBase string, totalFiles int, totalBytes int64) *progressTracker {
	interval := opts.CallbackIntervalMS
	if interval <= 0 {
		interval = kestrel.Defaults.CallbackIntervalMS
	}
	return &progressTracker{
		p: Progress{
			SourceBase: sourceBase,
			DestBase:   destBase,
			TotalFiles: totalFiles,
			TotalBytes: totalBytes,
		},
		intervalMS: interval,
		cb:         opts.ProgressCallback,
	}
}

func (t *progressTracker) addBytes(n int64) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.p.BytesCopied += n
	t.mu.Unlock()
	t.maybeFire(false)
}

func (t *progressTracker) fileDone(path string, method platform.CopyMethod) {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.p.FilesCompleted++
	t.p.CurrentFile = path
	t.p.LastMethod = method.String()
	t.mu.Unlock()
	t.maybeFire(false)
}

func (t *progressTracker) maybeFire(final bool) {
	if t.cb == nil {
		return
	}
	t.mu.Lock()
	elapsed := time.Since(t.lastFire)
	due := final || t.lastFire.IsZero() || elapsed >= time.Duration(t.intervalMS)*time.Millisecond
	var snap Progress
	if due {
		snap = t.p
		t.lastFire = time.Now()
	}
	t.mu.Unlock()
	if due {
		t.cb(snap)
	}
}

// CopyFiles copies each source into destination. Directory sources are
// copied recursively, preserving their relative structure under
// destination. It returns the destination paths that completed
// successfully before any abort.
func CopyFiles(ctx context.Context, sources []string, destination string, opts CopyOptions) ([]string, error) {
	return transfer(ctx, sources, destination, opts, false)
}

// MoveFiles moves each source into destination. Per top-level source, it
// first attempts os.Rename; on syscall.EXDEV it falls back to a full copy
// followed by removal of the source, once the copy has fully succeeded.
func MoveFiles(ctx context.Context, sources []string, destination string, opts CopyOptions) ([]string, error) {
	return transfer(ctx, sources, destination, opts, true)
}

func transfer(ctx context.Context, sources []string, destination string, opts CopyOptions, move bool) ([]string, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	dests, _, err := planDestinations(sources, destination)
	if err != nil {
		return nil, err
	}

	if move {
		return moveSources(ctx, sources, dests, opts)
	}

	tasks, totalBytes, err := enumerate(ctx, sources, dests)
	if err != nil {
		return nil, err
	}
	for dir := range touchedDirs(tasks) {
		cleanupOrphanedTmp(dir)
	}

	tracker := newProgressTracker(opts, sources[0], destination, len(tasks), totalBytes)
	completed, err := runCopyTasks(ctx, tasks, opts, tracker)
	tracker.maybeFire(true)
	return completed, err
}

func touchedDirs(tasks []fileTask) map[string]struct{} {
	dirs := make(map[string]struct{})
	for _, t := range tasks {
		dirs[filepath.Dir(t.dstPath)] = struct{}{}
	}
	return dirs
}

// runCopyTasks runs tasks through a bounded worker pool, stopping all
// workers on the first failure. The returned slice lists destination
// paths that completed before the abort, in completion order per worker
// but not globally ordered across workers.
func runCopyTasks(ctx context.Context, tasks []fileTask, opts CopyOptions, tracker *progressTracker) ([]string, error) {
	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var limiter *rate.Limiter
	if opts.BandwidthLimit > 0 {
		limiter = newBandwidthLimiter(opts.BandwidthLimit)
	}

	var iouring *platform.IOURingCopier
	if opts.UseIOURing && limiter == nil {
		c, err := platform.NewIOURingCopier(128)
		if err != nil {
			opts.logger().Warn("io_uring setup failed, falling back to accelerated read/write", "error", err)
		} else if c != nil {
			iouring = c
			defer c.Close()
		}
	}

	work := make(chan fileTask)
	var mu sync.Mutex
	var completed []string
	var firstErr error

	var wg sync.WaitGroup
	for range opts.workers() {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for task := range work {
				select {
				case <-ctx.Done():
					continue
				default:
				}
				if err := copyOneFile(ctx, task, opts, limiter, iouring, tracker); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
						cancel()
					}
					mu.Unlock()
					continue
				}
				mu.Lock()
				completed = append(completed, task.dstPath)
				mu.Unlock()
			}
		}()
	}

	go func() {
		defer close(work)
		for _, t := range tasks {
			select {
			case work <- t:
			case <-ctx.Done():
				return
			}
		}
	}()

	wg.Wait()

	if firstErr != nil {
		return completed, firstErr
	}
	// A cancelled or expired caller context leaves tasks unrun, so it is
	// an error even though no file failed.
	if err := parent.Err(); err != nil {
		return completed, err
	}
	return completed, nil
}

func copyOneFile(ctx context.Context, task fileTask, opts CopyOptions, limiter *rate.Limiter, iouring *platform.IOURingCopier, tracker *progressTracker) error {
	if err := os.MkdirAll(filepath.Dir(task.dstPath), 0o755); err != nil {
		return fserr.NewCopyError(task.dstPath, err)
	}

	if !opts.Overwrite {
		if _, err := os.Lstat(task.dstPath); err == nil {
			return fserr.NewCopyError(task.dstPath, errDestExists)
		}
	}

	srcInfo, err := os.Stat(task.srcPath)
	if err != nil {
		return fserr.NewCopyError(task.srcPath, err)
	}

	dir := filepath.Dir(task.dstPath)
	base := filepath.Base(task.dstPath)
	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.%s", base, uuid.New().String()[:8], tmpSuffix))

	registerTmp(tmpPath)
	defer func() {
		deregisterTmp(tmpPath)
		_ = os.Remove(tmpPath) // no-op once renamed into place
	}()

	tmpFd, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, srcInfo.Mode().Perm())
	if err != nil {
		return fserr.NewCopyError(tmpPath, err)
	}

	written, method, err := copyData(ctx, task.srcPath, tmpFd, task.size, limiter, iouring)
	if err != nil {
		tmpFd.Close()
		return fserr.NewCopyError(task.srcPath, err)
	}
	opts.logger().Debug("copy file", "path", task.srcPath, "method", method, "bytes", written)

	if opts.PreserveMetadata {
		if err := applyMetadata(tmpFd, srcInfo); err != nil {
			opts.logger().Warn("preserve metadata failed", "path", task.dstPath, "error", err)
		}
	}

	if err := tmpFd.Close(); err != nil {
		return fserr.NewCopyError(tmpPath, err)
	}

	if err := os.Rename(tmpPath, task.dstPath); err != nil {
		return fserr.NewCopyError(task.dstPath, err)
	}

	tracker.addBytes(written)
	tracker.fileDone(task.dstPath, method)
	return nil
}

func copyData(ctx context.Context, srcPath string, dstFd *os.File, size int64, limiter *rate.Limiter, iouring *platform.IOURingCopier) (int64, platform.CopyMethod, error) {
	if limiter == nil {
		params := platform.CopyFileParams{
			SrcPath: srcPath,
			DstFd:   dstFd,
			SrcSize: size,
		}
		if iouring != nil {
			result, err := iouring.CopyFile(params)
			if err == nil {
				return result.BytesWritten, result.Method, nil
			}
			// io_uring failed for this file; fall through to the
			// accelerated read/write path rather than aborting the copy.
		}
		result, err := platform.CopyFile(params)
		return result.BytesWritten, result.Method, err
	}

	srcFd, err := os.Open(srcPath)
	if err != nil {
		return 0, platform.ReadWrite, err
	}
	defer srcFd.Close()

	buf := make([]byte, 1<<20)
	n, err := io.CopyBuffer(dstFd, newRateLimitedReader(ctx, srcFd, limiter), buf)
	return n, platform.ReadWrite, err
}

func applyMetadata(fd *os.File, srcInfo os.FileInfo) error {
	if err := fd.Chmod(srcInfo.Mode().Perm()); err != nil {
		return fmt.Errorf("chmod: %w", err)
	}
	atime, mtime := fileTimes(srcInfo)
	return setFileTimes(fd, atime, mtime)
}

// moveSources attempts a whole-source rename first; on EXDEV it falls back
// to a full recursive copy of that one source followed by removing it.
func moveSources(ctx context.Context, sources []string, dests map[string]string, opts CopyOptions) ([]string, error) {
	var moved []string
	for _, src := range sources {
		dst := dests[src]

		if !opts.Overwrite {
			if _, err := os.Lstat(dst); err == nil {
				return moved, fserr.NewCopyError(dst, errDestExists)
			}
		}

		if err := os.Rename(src, dst); err == nil {
			moved = append(moved, dst)
			continue
		} else if !errors.Is(err, syscall.EXDEV) {
			return moved, fserr.NewCopyError(src, err)
		}

		tasks, totalBytes, err := enumerate(ctx, []string{src}, map[string]string{src: dst})
		if err != nil {
			return moved, err
		}
		for dir := range touchedDirs(tasks) {
			cleanupOrphanedTmp(dir)
		}

		tracker := newProgressTracker(opts, src, dst, len(tasks), totalBytes)
		completed, err := runCopyTasks(ctx, tasks, opts, tracker)
		tracker.maybeFire(true)
		if err != nil {
			return append(moved, completed...), err
		}

		if err := os.RemoveAll(src); err != nil {
			return append(moved, completed...), fserr.NewCopyError(src, err)
		}
		moved = append(moved, dst)
	}
	return moved, nil
}
