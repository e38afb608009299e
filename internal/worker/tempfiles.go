package worker

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// TempFiles tracks files created during a run.
type TempFiles struct {
	mu    sync.Mutex
	paths []string
}

func (t *TempFiles) Add(path string) {
	t.mu.Lock()
	t.paths = append(t.paths, path)
	t.mu.Unlock()
}

// Cleanup removes every tracked file. It is safe to call more than once.
func (t *TempFiles) Cleanup() {
	t.mu.Lock()
	paths := t.paths
	t.paths = nil
	t.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			slog.Debug("cleanup temp file", "file", filepath.Base(p), "err", err)
		}
	}
	if len(paths) > 0 {
		slog.Debug("temp file cleanup complete", "count", len(paths))
	}
}
