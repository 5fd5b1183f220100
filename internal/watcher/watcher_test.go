package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_BuildSnapshot(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script1.ts")
	lib := filepath.Join(dir, "env.d.ts")
	os.WriteFile(script, []byte("let x = 1;"), 0644)
	os.WriteFile(filepath.Join(dir, "other.ts"), []byte("not watched"), 0644)

	w := New([]string{script, lib}, 100*time.Millisecond, nil)
	snap := w.buildSnapshot()

	if len(snap) != 1 {
		t.Fatalf("expected 1 file in snapshot, got %d", len(snap))
	}
	if _, ok := snap[script]; !ok {
		t.Fatalf("expected %s in snapshot", script)
	}
}

func TestWatcher_BuildSnapshot_SkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	w := New([]string{dir}, 100*time.Millisecond, nil)
	if snap := w.buildSnapshot(); len(snap) != 0 {
		t.Fatalf("expected directories to be skipped, got %v", snap)
	}
}

func TestWatcher_BuildSnapshot_SameSizeRewrite(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script1.ts")
	os.WriteFile(script, []byte("let a = 1;"), 0644)

	w := New([]string{script}, 100*time.Millisecond, nil)
	before := w.buildSnapshot()

	info, err := os.Stat(script)
	if err != nil {
		t.Fatal(err)
	}
	os.WriteFile(script, []byte("let b = 2;"), 0644)
	os.Chtimes(script, info.ModTime(), info.ModTime())

	events := diff(before, w.buildSnapshot())
	if len(events) != 1 || events[0].Op != OpWrite {
		t.Fatalf("expected a write for a same-size same-mtime rewrite, got %v", events)
	}
}

func TestDiff_Create(t *testing.T) {
	old := map[string]fileInfo{}
	new := map[string]fileInfo{
		"/a.ts": {modTime: time.Now(), size: 10},
	}
	events := diff(old, new)
	if len(events) != 1 || events[0].Op != OpCreate {
		t.Errorf("expected 1 create event, got %v", events)
	}
}

func TestDiff_Write(t *testing.T) {
	now := time.Now()
	old := map[string]fileInfo{"/a.ts": {modTime: now, size: 10}}
	new := map[string]fileInfo{"/a.ts": {modTime: now.Add(time.Second), size: 15}}
	events := diff(old, new)
	if len(events) != 1 || events[0].Op != OpWrite {
		t.Errorf("expected 1 write event, got %v", events)
	}
}

func TestDiff_Remove(t *testing.T) {
	old := map[string]fileInfo{"/a.ts": {modTime: time.Now(), size: 10}}
	new := map[string]fileInfo{}
	events := diff(old, new)
	if len(events) != 1 || events[0].Op != OpRemove {
		t.Errorf("expected 1 remove event, got %v", events)
	}
}

func TestDiff_NoChange(t *testing.T) {
	snap := map[string]fileInfo{"/a.ts": {modTime: time.Now(), size: 10, hash: 42}}
	if events := diff(snap, snap); len(events) != 0 {
		t.Errorf("expected 0 events, got %v", events)
	}
}

func TestDiff_MultipleEvents(t *testing.T) {
	now := time.Now()
	old := map[string]fileInfo{
		"/a.ts": {modTime: now, size: 10},
		"/b.ts": {modTime: now, size: 20},
	}
	new := map[string]fileInfo{
		"/a.ts": {modTime: now, size: 10, hash: 7}, // modified
		"/c.ts": {modTime: now, size: 30},          // created
		// /b.ts removed
	}
	events := diff(old, new)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d: %v", len(events), events)
	}

	ops := make(map[Op]bool)
	for _, e := range events {
		ops[e.Op] = true
	}
	if !ops[OpWrite] || !ops[OpCreate] || !ops[OpRemove] {
		t.Errorf("expected write, create, and remove events, got %v", events)
	}
}

func TestWatcher_WatchDebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	script := filepath.Join(dir, "script1.ts")
	lib := filepath.Join(dir, "env.d.ts")
	os.WriteFile(script, []byte("let a = 1;"), 0644)

	batches := make(chan []Event, 4)
	w := New([]string{script, lib}, 50*time.Millisecond, func(events []Event) {
		batches <- events
	})
	w.SetPollInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Watch(ctx) }()

	time.Sleep(30 * time.Millisecond)
	os.WriteFile(script, []byte("let a = 12;"), 0644)
	os.WriteFile(lib, []byte("declare var b: number;"), 0644)

	select {
	case events := <-batches:
		if len(events) != 2 {
			t.Fatalf("expected both changes in one batch, got %v", events)
		}
		if events[0].Path != lib || events[0].Op != OpCreate {
			t.Errorf("events[0] = %+v, want create of %s", events[0], lib)
		}
		if events[1].Path != script || events[1].Op != OpWrite {
			t.Errorf("events[1] = %+v, want write of %s", events[1], script)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change batch")
	}

	cancel()
	if err := <-done; err != context.Canceled {
		t.Fatalf("Watch returned %v, want context.Canceled", err)
	}
}
