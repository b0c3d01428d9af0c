package seed

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long Watch waits for more changes before reseeding.
const DefaultDebounce = 300 * time.Millisecond

// Watch calls fn whenever a file matching one of patterns is written,
// created, renamed or removed. Bursts of events within debounce are
// coalesced into one call. Watch blocks until ctx is done.
func Watch(ctx context.Context, patterns []string, debounce time.Duration, logger *slog.Logger, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating seed watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(patterns)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
	}
	logger.Info("watching seed files", "dirs", len(dirs))

	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod || !matchesAny(patterns, event.Name) {
				continue
			}
			logger.Debug("seed file changed", "file", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("seed watcher error: %w", err)

		case <-timer.C:
			fn()
		}
	}
}

// watchDirs returns the directories holding current matches plus the
// static base of each pattern, so new files are noticed too.
func watchDirs(patterns []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(dir string) {
		dir = filepath.Clean(dir)
		if _, ok := seen[dir]; ok {
			return
		}
		seen[dir] = struct{}{}
		dirs = append(dirs, dir)
	}

	for _, pattern := range patterns {
		base, _ := doublestar.SplitPattern(filepath.ToSlash(pattern))
		add(filepath.FromSlash(base))

		matches, err := doublestar.FilepathGlob(pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(filepath.Dir(m))
		}
	}
	return dirs, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		ok, err := doublestar.PathMatch(filepath.Clean(pattern), filepath.Clean(name))
		if err == nil && ok {
			return true
		}
	}
	return false
}
