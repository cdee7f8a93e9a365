package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchedOps = fsnotify.Write | fsnotify.Create | fsnotify.Rename

// Watcher reports the last file touched in each burst of changes, once the
// burst has been quiet for the debounce interval.
type Watcher struct {
	files    map[string]bool
	debounce time.Duration
	onChange func(changed string)

	stopOnce sync.Once
	quit     chan struct{}
	done     sync.WaitGroup
}

// NewWatcher watches the given files; empty paths are ignored.
func NewWatcher(debounce time.Duration, onChange func(changed string), paths ...string) *Watcher {
	files := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p != "" {
			files[filepath.Clean(p)] = true
		}
	}
	return &Watcher{files: files, debounce: debounce, onChange: onChange, quit: make(chan struct{})}
}

// Start registers the watches and returns; events are handled in the
// background until Stop or ctx cancellation.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Parent directories, so editors that save by rename are still seen.
	for _, dir := range w.dirs() {
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return err
		}
	}
	slog.Info("watching for changes", "files", len(w.files))

	w.done.Add(1)
	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) dirs() []string {
	seen := make(map[string]bool)
	var out []string
	for f := range w.files {
		if dir := filepath.Dir(f); !seen[dir] {
			seen[dir] = true
			out = append(out, dir)
		}
	}
	return out
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer w.done.Done()
	defer fsw.Close()

	quiet := time.NewTimer(w.debounce)
	quiet.Stop()
	defer quiet.Stop()
	var last string

	for {
		select {
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			name := filepath.Clean(ev.Name)
			if !w.files[name] || ev.Op&watchedOps == 0 {
				continue
			}
			last = name
			quiet.Reset(w.debounce)
		case <-quiet.C:
			if last == "" {
				continue
			}
			slog.Info("change detected", "path", last)
			w.onChange(last)
			last = ""
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher error", "error", err)
		case <-w.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
	w.done.Wait()
}
