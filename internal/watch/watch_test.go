package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"
)

type countingListener struct {
	ch chan string
}

func (l countingListener) OnChange(_ context.Context, path string) {
	l.ch <- path
}

func TestWatcherFiresOnFileWrite(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "watched.txt")
	if err := os.WriteFile(p, []byte("v1"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := New(rate.Every(10*time.Millisecond), 1)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	events := make(chan string, 8)
	if err := w.Add(dir, countingListener{ch: events}); err != nil {
		t.Fatalf("add: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(p, []byte("v2"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	select {
	case got := <-events:
		if got != p {
			t.Fatalf("expected event for %s, got %s", p, got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a change event")
	}
}

func TestAllowDebouncesRepeatedPath(t *testing.T) {
	w, err := New(rate.Every(time.Hour), 1)
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Close()

	if !w.allow("/tmp/x") {
		t.Fatal("first call for a fresh path should be allowed")
	}
	if w.allow("/tmp/x") {
		t.Fatal("second call within the burst window should be debounced")
	}
}
