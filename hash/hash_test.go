package hash

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, content, 0o644))
	return p
}

func TestHashFile_KnownVectors(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "greeting.txt", []byte("hello world"))

	b3, err := HashFile(context.Background(), p, BLAKE3, 0)
	require.NoError(t, err)
	assert.Equal(t, "d74981efa70a0c880b8d8c1985d075dbcbf679b99a5f9914e5aaf96b831a9e24", b3.HashHex)
	assert.Len(t, b3.HashHex, 64)

	s256, err := HashFile(context.Background(), p, SHA256, 0)
	require.NoError(t, err)
	assert.Equal(t, "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9", s256.HashHex)
	assert.Len(t, s256.HashHex, 64)
}

func TestHashFile_EmptyFile(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "empty", nil)

	res, err := HashFile(context.Background(), p, BLAKE3, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.FileSize)
	assert.NotEmpty(t, res.HashHex)
	assert.Len(t, res.HashHex, 64)
}

func TestHashFile_UnknownAlgorithm(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "x", []byte("x"))
	_, err := HashFile(context.Background(), p, Algorithm("md5"), 0)
	assert.Error(t, err)
}

func TestHashFile_LargeMmapPath(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 5*1024*1024) // above the 4 MiB mmap threshold
	for i := range content {
		content[i] = byte(i % 251)
	}
	p := writeFile(t, dir, "big.bin", content)

	viaMmap, err := HashFile(context.Background(), p, BLAKE3, 0)
	require.NoError(t, err)

	small := filepath.Join(dir, "small.bin")
	require.NoError(t, os.WriteFile(small, content, 0o644))
	// A head/tail size covering the whole file makes PartialHash read it
	// through the buffered path, never mmap.
	viaBuffered, err := PartialHash(context.Background(), small, BLAKE3, len(content))
	require.NoError(t, err)

	assert.Equal(t, viaBuffered.HashHex, viaMmap.HashHex)
}

func TestHashFiles_CallbackAndOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a", []byte("aaa")),
		writeFile(t, dir, "b", []byte("bbb")),
		writeFile(t, dir, "c", []byte("ccc")),
	}

	var seen []string
	results, err := HashFiles(context.Background(), paths, BLAKE3, 0, 2, func(r Result) {
		seen = append(seen, r.Path)
	})
	require.NoError(t, err)
	assert.Len(t, results, 3)
	assert.Len(t, seen, 3)
	assert.ElementsMatch(t, paths, seen)
}

func TestHashFiles_AbortsOnFailure(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good", []byte("ok"))
	missing := filepath.Join(dir, "does-not-exist")

	results, err := HashFiles(context.Background(), []string{good, missing}, BLAKE3, 0, 2, nil)
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestHashFiles_Empty(t *testing.T) {
	results, err := HashFiles(context.Background(), nil, BLAKE3, 0, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestPartialHash_SmallFileEqualsFull(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "small", []byte("0123456789"))

	partial, err := PartialHash(context.Background(), p, BLAKE3, 4096)
	require.NoError(t, err)
	full, err := HashFile(context.Background(), p, BLAKE3, 0)
	require.NoError(t, err)
	assert.Equal(t, full.HashHex, partial.HashHex)
}

func TestPartialHash_LargeFileDiffersFromFull(t *testing.T) {
	dir := t.TempDir()
	content := make([]byte, 20000)
	for i := range content {
		content[i] = byte(i % 256)
	}
	p := writeFile(t, dir, "large", content)

	partial, err := PartialHash(context.Background(), p, BLAKE3, 4096)
	require.NoError(t, err)
	full, err := HashFile(context.Background(), p, BLAKE3, 0)
	require.NoError(t, err)
	assert.NotEqual(t, full.HashHex, partial.HashHex)
	assert.Equal(t, int64(20000), partial.FileSize)
}

func TestResult_EqualityIgnoresPathAndSize(t *testing.T) {
	a := Result{Path: "/a", Algorithm: BLAKE3, HashHex: "deadbeef", FileSize: 1}
	b := Result{Path: "/b", Algorithm: BLAKE3, HashHex: "deadbeef", FileSize: 999}
	assert.True(t, a.Equal(b))
}
