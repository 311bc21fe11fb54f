package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectBatch(t *testing.T, w *Watcher, timeout time.Duration) []FileChange {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var all []FileChange
	for time.Now().Before(deadline) {
		batch, err := w.PollEvents(50 * time.Millisecond)
		require.NoError(t, err)
		all = append(all, batch...)
	}
	return all
}

func TestWatcher_DetectsCreate(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	p := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	batch := collectBatch(t, w, 2*time.Second)
	require.NotEmpty(t, batch)

	var found bool
	for _, c := range batch {
		if c.Path == p {
			found = true
			assert.Equal(t, Created, c.ChangeType)
		}
	}
	assert.True(t, found)
}

func TestWatcher_DetectsDelete(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "existing.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	w, err := New(dir, Options{DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	require.NoError(t, os.Remove(p))

	batch := collectBatch(t, w, 2*time.Second)
	require.NotEmpty(t, batch)

	var found bool
	for _, c := range batch {
		if c.Path == p {
			found = true
			assert.Equal(t, Deleted, c.ChangeType)
		}
	}
	assert.True(t, found)
}

// TestWatcher_CreateThenModifyCollapsesToCreated drives handleEvent
// directly with a synthetic CREATE followed by a synthetic WRITE for the
// same path within one (unflushed) debounce window. Real OS events can
// coalesce a create-write pair into a single fsnotify delivery depending
// on timing, so exercising the coalescer directly is the only reliable
// way to pin this behavior down.
func TestWatcher_CreateThenModifyCollapsesToCreated(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	p := filepath.Join(dir, "new.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Create})
	w.handleEvent(fsnotify.Event{Name: p, Op: fsnotify.Write})
	w.flush(true)

	select {
	case batch := <-w.batches:
		require.Len(t, batch, 1)
		assert.Equal(t, p, batch[0].Path)
		assert.Equal(t, Created, batch[0].ChangeType)
	case <-time.After(time.Second):
		t.Fatal("expected a flushed batch")
	}
}

func TestWatcher_IgnorePattern(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{DebounceMS: 10, IgnorePatterns: []string{"*.tmp"}})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	p := filepath.Join(dir, "skip.tmp")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	batch := collectBatch(t, w, 500*time.Millisecond)
	for _, c := range batch {
		assert.NotEqual(t, p, c.Path)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{})
	require.NoError(t, err)

	w.Stop()
	w.Stop() // must not panic
}

func TestChangeType_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "deleted", Deleted.String())
	assert.Equal(t, "unknown", ChangeType(99).String())
}

func TestWatcher_DeliverErrorSurfacesViaPollEvents(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	w.deliverError(assert.AnError)

	batch, pollErr := w.PollEvents(time.Second)
	require.Error(t, pollErr)
	assert.Nil(t, batch)
	assert.Contains(t, pollErr.Error(), assert.AnError.Error())
}

func TestWatcher_DeliverErrorSurfacesViaErrorsChannel(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	w.deliverError(assert.AnError)

	select {
	case err := <-w.Errors():
		require.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("expected an error on Errors()")
	}
}

func TestWatcher_RecursiveAddsNewSubdir(t *testing.T) {
	dir := t.TempDir()
	w, err := New(dir, Options{Recursive: true, DebounceMS: 10})
	require.NoError(t, err)
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))
	time.Sleep(100 * time.Millisecond) // let the watcher pick up the new dir

	p := filepath.Join(sub, "inner.txt")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	batch := collectBatch(t, w, 2*time.Second)
	var found bool
	for _, c := range batch {
		if c.Path == p {
			found = true
		}
	}
	assert.True(t, found)
}
