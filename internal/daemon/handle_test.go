package daemon

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/subdex/subdex/internal/suffixstore"
)

func TestHandleExpandSearchAndCheckpoint(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	e, err := suffixstore.OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	h := NewHandle(e, dbPath)

	if err := h.Expand(ctx, []byte("banana"), "/docs/fruit.txt"); err != nil {
		t.Fatalf("expand: %v", err)
	}

	count, err := h.Search(ctx, []byte("nana"), func(uint32) {})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 match before checkpoint, got %d", count)
	}

	if err := h.Checkpoint(ctx); err != nil {
		t.Fatalf("checkpoint: %v", err)
	}

	count, err = h.Search(ctx, []byte("nana"), func(uint32) {})
	if err != nil {
		t.Fatalf("search after checkpoint: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected match to survive checkpoint, got %d", count)
	}

	if err := h.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}
