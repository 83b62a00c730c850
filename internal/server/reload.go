package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ppiankov/hookgate/internal/diag"
)

// reloadDebounce collapses editor write bursts into one reload.
const reloadDebounce = 500 * time.Millisecond

// Reloader watches rule files and reloads the server when they change.
// It watches parent directories so files replaced by rename are still seen.
type Reloader struct {
	watcher *fsnotify.Watcher
	server  *Server
	files   map[string]bool
}

// NewReloader creates a watcher for paths. Paths whose directory does not
// exist are skipped.
func NewReloader(server *Server, paths []string) (*Reloader, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	files := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, p := range paths {
		if p == "" {
			continue
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		dir := filepath.Dir(abs)
		if _, err := os.Stat(dir); err != nil {
			continue
		}
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, fmt.Errorf("failed to watch %q: %w", dir, err)
			}
			dirs[dir] = true
		}
		files[abs] = true
	}

	return &Reloader{
		watcher: watcher,
		server:  server,
		files:   files,
	}, nil
}

// Watching reports how many files are being watched.
func (r *Reloader) Watching() int {
	return len(r.files)
}

// Run reloads on change until ctx is cancelled.
func (r *Reloader) Run(ctx context.Context) error {
	defer r.watcher.Close()

	var debounce *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return nil

		case event, ok := <-r.watcher.Events:
			if !ok {
				return nil
			}
			if !r.files[filepath.Clean(event.Name)] {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(reloadDebounce, func() {
					if err := r.server.ReloadRules(); err != nil {
						r.server.log.Error("hot-reload failed", diag.Fields{"error": err})
						fmt.Fprintf(os.Stderr, "hot-reload failed: %v\n", err)
					}
				})
			}

		case err, ok := <-r.watcher.Errors:
			if !ok {
				return nil
			}
			r.server.log.Warn("file watcher error", diag.Fields{"error": err})
		}
	}
}
