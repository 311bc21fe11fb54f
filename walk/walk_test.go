package walk

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTree reproduces the fixture used throughout this toolkit's
// reference test suites:
//
//	a/file1.txt   a/b/file2.py   a/b/c/file3.txt   d/file4.rs
//	top.txt       extra.log
func createTestTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "a", "b", "c"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "d"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "file1.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "file2.py"), []byte("world"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a", "b", "c", "file3.txt"), []byte("deep"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "d", "file4.rs"), []byte("rust"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "top.txt"), []byte("top"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.log"), []byte("logs"), 0o644))
	return root
}

func TestCollect_All(t *testing.T) {
	root := createTestTree(t)
	entries, err := Collect(context.Background(), root, Options{Sort: true})
	require.NoError(t, err)
	// 4 dirs (a, a/b, a/b/c, d) + 6 files = 10 entries.
	assert.Len(t, entries, 10)
}

func TestCollect_FilesOnly(t *testing.T) {
	root := createTestTree(t)
	entries, err := Collect(context.Background(), root, Options{Sort: true, FileType: FileTypeFile})
	require.NoError(t, err)
	assert.Len(t, entries, 6)
	for _, e := range entries {
		assert.True(t, e.IsFile)
	}
}

func TestCollect_SkipHidden(t *testing.T) {
	root := createTestTree(t)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "config"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".hidden"), []byte("x"), 0o644))

	entries, err := Collect(context.Background(), root, Options{Sort: true, SkipHidden: true, FileType: FileTypeFile})
	require.NoError(t, err)
	assert.Len(t, entries, 6) // .hidden and .git/config pruned
	for _, e := range entries {
		assert.NotContains(t, e.Path, ".git")
		assert.NotContains(t, e.Path, ".hidden")
	}
}

func TestCollect_GlobFilter(t *testing.T) {
	root := createTestTree(t)
	entries, err := Collect(context.Background(), root, Options{
		Sort: true, FileType: FileTypeFile, GlobPattern: "*.txt",
	})
	require.NoError(t, err)
	assert.Len(t, entries, 3) // file1.txt, file3.txt, top.txt
	for _, e := range entries {
		assert.Contains(t, e.Path, ".txt")
	}
}

func TestCollect_MaxDepth1(t *testing.T) {
	root := createTestTree(t)
	depth1 := 1
	entries, err := Collect(context.Background(), root, Options{Sort: true, MaxDepth: &depth1})
	require.NoError(t, err)
	for _, e := range entries {
		assert.LessOrEqual(t, e.Depth, 1)
	}
}

func TestCollect_MaxDepth0YieldsRootOnly(t *testing.T) {
	root := createTestTree(t)
	zero := 0
	entries, err := Collect(context.Background(), root, Options{MaxDepth: &zero})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, root, entries[0].Path)
	assert.True(t, entries[0].IsDir)
}

func TestCollect_RootDoesNotExist(t *testing.T) {
	_, err := Collect(context.Background(), "/nonexistent/path/for/kestrel/tests", Options{})
	assert.Error(t, err)
}

// TestWalk_CancellationUnblocksProducer builds a tree wide enough to fill
// the bounded out channel and then cancels the context without draining
// it further. The producer goroutine must select against ctx.Done() at
// every send, so both channels are still expected to close promptly
// instead of leaving a goroutine blocked forever on a full channel.
func TestWalk_CancellationUnblocksProducer(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 200; i++ {
		writeFileN(t, root, i)
	}

	ctx, cancel := context.WithCancel(context.Background())
	out, errs := Walk(ctx, root, Options{Workers: 1})

	// Read a single entry, then cancel before draining the rest; with a
	// small buffer and a single worker the producer should still be
	// blocked trying to send when cancellation lands.
	<-out
	cancel()

	done := make(chan struct{})
	go func() {
		for range out {
		}
		for range errs {
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("channels did not close after context cancellation; producer likely leaked")
	}
}

func writeFileN(t *testing.T, dir string, n int) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("file%d.txt", n)), []byte("x"), 0o644))
}

func TestWalk_Streaming(t *testing.T) {
	root := createTestTree(t)
	out, errs := Walk(context.Background(), root, Options{FileType: FileTypeFile})

	var count int
	for range out {
		count++
	}
	for range errs {
	}
	assert.Equal(t, 6, count)
}
