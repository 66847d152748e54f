package archive

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/subdex/subdex/internal/subdexlog"
)

func TestSweepRotatesOldSnapshotsIntoZips(t *testing.T) {
	liveDir := t.TempDir()
	archDir := t.TempDir()

	old := filepath.Join(liveDir, "index.db~old")
	if err := os.WriteFile(old, []byte("stale snapshot"), 0o644); err != nil {
		t.Fatalf("write old snapshot: %v", err)
	}
	oldTime := time.Now().Add(-time.Hour)
	if err := os.Chtimes(old, oldTime, oldTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	fresh := filepath.Join(liveDir, "index.db~fresh")
	if err := os.WriteFile(fresh, []byte("fresh snapshot"), 0o644); err != nil {
		t.Fatalf("write fresh snapshot: %v", err)
	}

	a := New(Config{RootDir: archDir}, filepath.Join(liveDir, "index.db~*"), nil, subdexlog.Default{})

	n, err := a.Sweep(context.Background(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 snapshot rotated, got %d", n)
	}

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected stale snapshot to be removed, stat err = %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh snapshot should survive the sweep: %v", err)
	}

	zipPath := filepath.Join(archDir, "index.db~old.zip")
	zr, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("open rotated zip: %v", err)
	}
	defer zr.Close()
	if len(zr.File) != 1 || zr.File[0].Name != "index.db~old" {
		t.Fatalf("unexpected zip contents: %+v", zr.File)
	}
}

func TestSweepDeleteInsteadSkipsZipping(t *testing.T) {
	liveDir := t.TempDir()
	old := filepath.Join(liveDir, "index.db~old")
	if err := os.WriteFile(old, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	oldTime := time.Now().Add(-time.Hour)
	os.Chtimes(old, oldTime, oldTime)

	a := New(Config{DeleteInstead: true}, filepath.Join(liveDir, "index.db~*"), nil, subdexlog.Default{})
	n, err := a.Sweep(context.Background(), time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 removed, got %d", n)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected snapshot removed, stat err = %v", err)
	}
}
