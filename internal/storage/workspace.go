package storage

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Workspace is a request-scoped scratch directory. Everything a request
// writes lives under it, so one Release removes all of it.
type Workspace struct {
	dir    string
	logger *slog.Logger
	once   sync.Once
}

func newWorkspace(dir string, logger *slog.Logger) *Workspace {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{dir: dir, logger: logger}
}

// Dir returns the workspace root.
func (w *Workspace) Dir() string {
	return w.dir
}

// Subdir creates and returns a directory below the workspace root.
func (w *Workspace) Subdir(elem ...string) (string, error) {
	dir := filepath.Join(append([]string{w.dir}, elem...)...)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("create workspace directory: %w", err)
	}
	return dir, nil
}

// Release removes the workspace and everything in it. Failures are logged,
// never returned. Calling Release more than once is a no-op.
func (w *Workspace) Release() {
	w.once.Do(func() {
		RemoveDir(w.logger, w.dir)
	})
}

// RemoveDir deletes dir recursively, logging instead of failing.
func RemoveDir(logger *slog.Logger, dir string) {
	if dir == "" {
		return
	}
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Warn("failed to remove directory",
			slog.String("dir", dir),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("removed directory", slog.String("dir", dir))
}
