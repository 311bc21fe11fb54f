// Package watch implements component C4: a recursive filesystem watcher
// built on fsnotify, with debounced change coalescing and glob-based
// ignore filtering.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kestrelfs/kestrel"
	"github.com/kestrelfs/kestrel/fserr"
	"github.com/kestrelfs/kestrel/glob"
)

// ChangeType classifies a FileChange.
type ChangeType int

const (
	Created ChangeType = iota
	Modified
	Deleted
)

var changeTypeNames = [...]string{
	Created:  "created",
	Modified: "modified",
	Deleted:  "deleted",
}

func (c ChangeType) String() string {
	if int(c) < len(changeTypeNames) {
		return changeTypeNames[c]
	}
	return "unknown"
}

// FileChange is one canonical, debounced filesystem event.
type FileChange struct {
	Path       string
	ChangeType ChangeType
	IsDir      bool
	Timestamp  float64 // unix seconds, fractional
}

// Options configures a Watcher.
type Options struct {
	// Recursive watches newly created subdirectories as they appear.
	Recursive bool

	// DebounceMS is the period of the aggregation tick: every tick, all
	// changes coalesced since the previous one are delivered as one batch.
	// It is not a per-path quiet timer; a path with further events is not
	// held back past the next tick. Zero or a negative value uses
	// kestrel.Defaults.DebounceMS (500 ms).
	DebounceMS int

	// IgnorePatterns are globs matched against the absolute path; `**`
	// spans directory separators. A match drops the raw event before
	// debouncing.
	IgnorePatterns []string

	// Logger receives runtime event-source errors. Defaults to
	// slog.Default().
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o Options) debounce() time.Duration {
	if o.DebounceMS <= 0 {
		return time.Duration(kestrel.Defaults.DebounceMS) * time.Millisecond
	}
	return time.Duration(o.DebounceMS) * time.Millisecond
}

// pending tracks the net effect of a coalescing window for one path.
type pending struct {
	change ChangeType
	isDir  bool
	sawOld bool // a created event opened this window with no intervening delivery
}

// Watcher watches one root path for filesystem changes.
type Watcher struct {
	root    string
	opts    Options
	ignore  []*glob.Matcher
	fsw     *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pend    map[string]*pending
	ticker  *time.Ticker

	batches chan []FileChange
	errs    chan error
	stopCh  chan struct{}
	once    sync.Once
	wg      sync.WaitGroup
}

// New installs a native filesystem watch rooted at path. When
// opts.Recursive is true, every existing subdirectory is added too.
func New(path string, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fserr.NewWatchError(path, err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fserr.NewWatchError(abs, err)
	}

	matchers := make([]*glob.Matcher, 0, len(opts.IgnorePatterns))
	for _, pat := range opts.IgnorePatterns {
		m, err := glob.CompilePath(pat)
		if err != nil {
			fsw.Close()
			return nil, fserr.NewWatchError(abs, err)
		}
		matchers = append(matchers, m)
	}

	w := &Watcher{
		root:    abs,
		opts:    opts,
		ignore:  matchers,
		fsw:     fsw,
		logger:  opts.logger(),
		pend:    make(map[string]*pending),
		batches: make(chan []FileChange, 64),
		errs:    make(chan error, 16),
		stopCh:  make(chan struct{}),
	}

	if err := w.addRecursive(abs); err != nil {
		fsw.Close()
		return nil, fserr.NewWatchError(abs, err)
	}

	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	if err := w.fsw.Add(root); err != nil {
		return err
	}
	if !w.opts.Recursive {
		return nil
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil // root itself is watched; unreadable children are skipped
	}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		child := filepath.Join(root, e.Name())
		if w.isIgnored(child) {
			continue
		}
		if err := w.addRecursive(child); err != nil {
			w.logger.Warn("watch add failed", "path", child, "error", err)
		}
	}
	return nil
}

func (w *Watcher) isIgnored(path string) bool {
	for _, m := range w.ignore {
		if m.MatchPath(path) {
			return true
		}
	}
	return false
}

// Start begins delivering events. It returns immediately; events arrive via
// PollEvents or Changes() until ctx is cancelled or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	w.ticker = time.NewTicker(w.opts.debounce())
	w.wg.Add(1)
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	defer w.wg.Done()
	defer w.ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.flush(true)
			return
		case <-w.stopCh:
			w.flush(true)
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.deliverError(err)
		case <-w.ticker.C:
			w.flush(false)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if w.isIgnored(ev.Name) {
		return
	}

	if w.opts.Recursive && ev.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := w.addRecursive(ev.Name); err != nil {
				w.logger.Warn("watch add failed", "path", ev.Name, "error", err)
			}
		}
	}

	ct, isDir := w.classify(ev)

	w.mu.Lock()
	defer w.mu.Unlock()

	cur, ok := w.pend[ev.Name]
	if !ok {
		w.pend[ev.Name] = &pending{change: ct, isDir: isDir, sawOld: ct == Created}
		return
	}

	switch {
	case ct == Deleted:
		cur.change = Deleted
	case cur.change == Deleted:
		// a delete already pending this window is not overridden by a
		// later create/modify of the same path within the same window
	case ct == Created && cur.sawOld:
		// first event was already a create with nothing delivered yet;
		// net effect of create-then-create-again is still a single create
		cur.change = Created
	case cur.sawOld && ct == Modified:
		// create-then-modify with nothing delivered yet still nets to a
		// single create
		cur.change = Created
	default:
		cur.change = Modified
	}
	cur.isDir = isDir
}

func (w *Watcher) classify(ev fsnotify.Event) (ChangeType, bool) {
	isDir := false
	if info, err := os.Stat(ev.Name); err == nil {
		isDir = info.IsDir()
	}

	switch {
	case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
		return Deleted, isDir
	case ev.Op&fsnotify.Create != 0:
		return Created, isDir
	default:
		return Modified, isDir
	}
}

func (w *Watcher) flush(final bool) {
	w.mu.Lock()
	if len(w.pend) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]FileChange, 0, len(w.pend))
	now := float64(time.Now().UnixNano()) / 1e9
	for path, p := range w.pend {
		batch = append(batch, FileChange{Path: path, ChangeType: p.change, IsDir: p.isDir, Timestamp: now})
	}
	w.pend = make(map[string]*pending)
	w.mu.Unlock()

	select {
	case w.batches <- batch:
	case <-w.stopCh:
		if !final {
			return
		}
		// final flush: deliver even if Stop is concurrently tearing down,
		// best effort.
		select {
		case w.batches <- batch:
		default:
		}
	}
}

func (w *Watcher) deliverError(err error) {
	werr := fserr.NewWatchError(w.root, err)
	w.logger.Error("watch runtime error", "error", werr)
	select {
	case w.errs <- werr:
	default:
		// errs buffer full: the caller isn't draining it, drop rather
		// than block the event loop.
	}
}

// PollEvents waits up to timeout for the next batch or runtime error,
// whichever arrives first, returning an empty batch if neither arrives in
// time. A runtime event-source error (fsnotify buffer overflow or similar)
// is returned as a *fserr.WatchError with a nil batch; the watcher keeps
// running unless fsnotify's own channels have since closed.
func (w *Watcher) PollEvents(timeout time.Duration) ([]FileChange, error) {
	select {
	case batch, ok := <-w.batches:
		if !ok {
			return nil, fserr.NewWatchError(w.root, errStopped)
		}
		return batch, nil
	case err := <-w.errs:
		return nil, err
	case <-time.After(timeout):
		return nil, nil
	}
}

// Changes returns the channel batches are delivered on. It is closed when
// Stop is called. Runtime event-source errors are delivered separately, on
// Errors().
func (w *Watcher) Changes() <-chan []FileChange {
	return w.batches
}

// Errors returns the channel runtime event-source errors are delivered on,
// each wrapped as a *fserr.WatchError. It is unbuffered beyond a small
// backlog; a caller that never reads it simply drops late-arriving errors.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Stop halts the watcher. It is idempotent and safe to call even if Start
// was never called.
func (w *Watcher) Stop() {
	w.once.Do(func() {
		close(w.stopCh)
		_ = w.fsw.Close()
		w.wg.Wait()
		close(w.batches)
	})
}

var errStopped = stoppedErr{}

type stoppedErr struct{}

func (stoppedErr) Error() string { return "watcher stopped" }
