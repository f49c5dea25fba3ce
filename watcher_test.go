package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.frag")
	if err := os.WriteFile(path, []byte("one"), 0o644); err != nil {
		t.Fatal(err)
	}
	w := NewWatcher(time.Second, path, "")
	now := time.Unix(0, 0)
	w.now = func() time.Time { return now }

	if changed := w.Poll(); len(changed) != 0 {
		t.Fatalf("unchanged file reported: %v", changed)
	}
	if err := os.WriteFile(path, []byte("three"), 0o644); err != nil {
		t.Fatal(err)
	}
	now = now.Add(500 * time.Millisecond)
	if changed := w.Poll(); len(changed) != 0 {
		t.Fatal("polled inside the interval")
	}
	now = now.Add(time.Second)
	if changed := w.Poll(); len(changed) != 1 || changed[0] != path {
		t.Fatalf("changed = %v", changed)
	}
	now = now.Add(time.Second)
	if changed := w.Poll(); len(changed) != 0 {
		t.Fatalf("change reported twice: %v", changed)
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if changed := w.Poll(); len(changed) != 0 {
		t.Fatalf("removal reported: %v", changed)
	}
	if err := os.WriteFile(path, []byte("back"), 0o644); err != nil {
		t.Fatal(err)
	}
	now = now.Add(time.Second)
	if changed := w.Poll(); len(changed) != 1 {
		t.Fatalf("recreated file not reported: %v", changed)
	}
}

func TestWatcherMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.sketch")
	w := NewWatcher(0, path)
	if changed := w.Poll(); len(changed) != 0 {
		t.Fatalf("missing file reported: %v", changed)
	}
	if err := os.WriteFile(path, []byte("{ } >setup { } >draw"), 0o644); err != nil {
		t.Fatal(err)
	}
	if changed := w.Poll(); len(changed) != 1 {
		t.Fatalf("new file not reported: %v", changed)
	}
}
