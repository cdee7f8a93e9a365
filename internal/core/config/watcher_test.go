package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReportsChanges(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "model.json")
	other := filepath.Join(dir, "other.json")
	if err := os.WriteFile(watched, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 4)
	w := NewWatcher(20*time.Millisecond, func(path string) { changed <- path }, watched, "")
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(other, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(watched, []byte(`{"classes":[]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-changed:
		if got != filepath.Clean(watched) {
			t.Errorf("unexpected path %q", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
}

func TestWatcher_CoalescesBurst(t *testing.T) {
	dir := t.TempDir()
	watched := filepath.Join(dir, "mangle.toml")
	if err := os.WriteFile(watched, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}

	changed := make(chan string, 8)
	w := NewWatcher(200*time.Millisecond, func(path string) { changed <- path }, watched)
	if err := w.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	for i := 0; i < 3; i++ {
		if err := os.WriteFile(watched, []byte("seed = 1\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-changed:
	case <-time.After(5 * time.Second):
		t.Fatal("no change reported")
	}
	select {
	case got := <-changed:
		t.Errorf("expected a single report per burst, got another for %q", got)
	case <-time.After(500 * time.Millisecond):
	}
}
