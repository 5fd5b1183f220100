// Package watcher polls a fixed set of files and reports changes in debounced
// batches. It drives "tsembed watch": the script and its local lib files are
// recompiled whenever one of them changes.
package watcher

import (
	"context"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/zeebo/xxh3"
)

// Op is the kind of change seen for a file.
type Op string

const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
)

// Event represents a file change event.
type Event struct {
	Path string
	Op   Op
}

// DefaultPollInterval is the default polling interval for file change detection.
const DefaultPollInterval = 500 * time.Millisecond

// Watcher polls an explicit list of files.
type Watcher struct {
	paths        []string
	debounce     time.Duration
	pollInterval time.Duration
	onChange     func(events []Event)

	mu      sync.Mutex
	pending []Event
	timer   *time.Timer
}

// New creates a watcher over paths. onChange receives each debounced batch,
// sorted by path.
func New(paths []string, debounce time.Duration, onChange func(events []Event)) *Watcher {
	return &Watcher{
		paths:        slices.Clone(paths),
		debounce:     debounce,
		pollInterval: DefaultPollInterval,
		onChange:     onChange,
	}
}

// SetPollInterval sets the polling interval for file change detection.
func (w *Watcher) SetPollInterval(d time.Duration) {
	w.pollInterval = d
}

// Paths returns the watched paths.
func (w *Watcher) Paths() []string {
	return slices.Clone(w.paths)
}

// Watch polls until ctx is done. Missing files are not an error; they show up
// as created once they appear.
func (w *Watcher) Watch(ctx context.Context) error {
	snapshot := w.buildSnapshot()

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			next := w.buildSnapshot()
			if events := diff(snapshot, next); len(events) > 0 {
				w.schedule(events)
			}
			snapshot = next
		}
	}
}

func (w *Watcher) schedule(events []Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending = append(w.pending, events...)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	pending := w.pending
	w.pending = nil
	w.mu.Unlock()

	if len(pending) == 0 {
		return
	}
	slices.SortStableFunc(pending, func(a, b Event) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	w.onChange(pending)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pending = nil
}

// fileInfo identifies one version of a file. The content hash catches writes
// that keep both size and modification time.
type fileInfo struct {
	modTime time.Time
	size    int64
	hash    uint64
}

func (w *Watcher) buildSnapshot() map[string]fileInfo {
	snap := make(map[string]fileInfo, len(w.paths))
	for _, path := range w.paths {
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			continue
		}
		fi := fileInfo{modTime: info.ModTime(), size: info.Size()}
		if data, err := os.ReadFile(path); err == nil {
			fi.hash = xxh3.Hash(data)
		}
		snap[path] = fi
	}
	return snap
}

func diff(old, new map[string]fileInfo) []Event {
	var events []Event

	for path, newInfo := range new {
		if oldInfo, ok := old[path]; ok {
			if newInfo != oldInfo {
				events = append(events, Event{Path: path, Op: OpWrite})
			}
		} else {
			events = append(events, Event{Path: path, Op: OpCreate})
		}
	}

	for path := range old {
		if _, ok := new[path]; !ok {
			events = append(events, Event{Path: path, Op: OpRemove})
		}
	}

	return events
}
