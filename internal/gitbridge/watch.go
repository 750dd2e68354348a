package gitbridge

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch is an enrichment beyond spec.md's boot-time-only detection: it
// watches the project tree for live external changes between sessions
// and calls onChange with a debounced, deduplicated batch of paths. It
// returns once ctx is cancelled.
func (b *Bridge) Watch(ctx context.Context, logger *slog.Logger, debounce time.Duration, onChange func([]string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := addRecursive(watcher, b.projectRoot); err != nil {
		return err
	}

	pending := map[string]bool{}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			pending[ev.Name] = true
			timer.Reset(debounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("gitbridge: watcher error", "error", err)
		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			var paths []string
			for p := range pending {
				paths = append(paths, p)
			}
			pending = map[string]bool{}
			onChange(paths)
		}
	}
}

// addRecursive registers every directory under root with the watcher.
// fsnotify has no native recursive mode, so BranchManager/GitBridge's
// shared pattern of walking once at setup time is the idiomatic fix.
func addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if d.Name() == ".git" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return watcher.Add(path)
		}
		return nil
	})
}
