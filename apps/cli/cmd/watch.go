package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/abdul-hamid-achik/srcguard/packages/core/runner"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

// watchSet tracks the files whose changes trigger a re-run and the
// directories watched to observe them.
type watchSet struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	dirs    map[string]bool
}

func newWatchSet(w *fsnotify.Watcher) *watchSet {
	return &watchSet{
		watcher: w,
		files:   make(map[string]bool),
		dirs:    make(map[string]bool),
	}
}

// add watches the parent directory of every path. Editors often replace
// files on save, which a watch on the file itself would lose.
func (ws *watchSet) add(paths ...string) {
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		ws.files[abs] = true

		dir := filepath.Dir(abs)
		if ws.dirs[dir] {
			continue
		}
		if err := ws.watcher.Add(dir); err != nil {
			logger.Warn("cannot watch directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		ws.dirs[dir] = true
	}
}

func (ws *watchSet) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	abs, err := filepath.Abs(event.Name)
	if err != nil {
		return false
	}
	return ws.files[abs]
}

func watch(ctx context.Context, cmd *cobra.Command, s *runSettings, r *runner.Runner, inspected []string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	ws := newWatchSet(watcher)
	ws.add(s.files...)
	ws.add(inspected...)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n\n")

	// Debounce timer for rapid file changes
	debounce := time.NewTimer(WatchDebounceDelay)
	debounce.Stop()
	var changed string

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ws.relevant(event) {
				changed = event.Name
				debounce.Reset(WatchDebounceDelay)
			}

		case <-debounce.C:
			fmt.Fprintf(out, "\nFile changed: %s\nRe-running checks...\n\n", changed)

			outcome, err := runOnce(ctx, cmd, s, r)
			if err != nil {
				return err
			}
			ws.add(outcome.inspected...)

			fmt.Fprintf(out, "\nWatching for changes... (press Ctrl+C to stop)\n")

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		}
	}
}
