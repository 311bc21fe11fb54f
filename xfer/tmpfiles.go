package xfer

import (
	"os"
	"path/filepath"
	"sync"
)

const tmpSuffix = "kestrel-tmp"

// tmpRegistry tracks in-progress temporary files for defense-in-depth
// cleanup within this process.
var globalTmpRegistry = &tmpRegistry{}

type tmpRegistry struct {
	mu    sync.Mutex
	paths map[string]struct{}
}

// registerTmp adds a temporary file path to the global registry.
func registerTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	if globalTmpRegistry.paths == nil {
		globalTmpRegistry.paths = make(map[string]struct{})
	}
	globalTmpRegistry.paths[path] = struct{}{}
}

// deregisterTmp removes a temporary file path from the global registry.
func deregisterTmp(path string) {
	globalTmpRegistry.mu.Lock()
	defer globalTmpRegistry.mu.Unlock()
	delete(globalTmpRegistry.paths, path)
}

// cleanupOrphanedTmp best-effort removes stale kestrel tmp files left
// behind in dir by a crashed prior process — it has no record of them in
// globalTmpRegistry since that only tracks the current process's writes.
func cleanupOrphanedTmp(dir string) {
	matches, err := filepath.Glob(filepath.Join(dir, ".*."+tmpSuffix))
	if err != nil {
		return
	}
	for _, m := range matches {
		_ = os.Remove(m)
	}
}
