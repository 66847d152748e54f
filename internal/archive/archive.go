// Package archive rotates closed database snapshots out of the live
// directory: each rotated file is zipped into a local archive directory
// (and, if configured, copied on to an S3 bucket) instead of being
// deleted outright, mirroring the reference store's periodic
// checkpoint-to-zip sweep but applied to whole database files instead of
// per-host metric checkpoints.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/subdex/subdex/internal/subdexlog"
)

// Config controls one Archiver.
type Config struct {
	// RootDir holds the rotated zip files.
	RootDir string
	// Interval is how often Run sweeps for snapshots older than Interval.
	Interval time.Duration
	// DeleteInstead removes the snapshot rather than zipping it.
	DeleteInstead bool
}

// Archiver periodically rotates snapshot files matching a glob pattern
// out of a live directory.
type Archiver struct {
	cfg     Config
	pattern string
	log     subdexlog.Logger
	backend Backend
}

// Backend receives the bytes of a rotated zip archive after it has been
// written locally. A nil Backend means local-only rotation.
type Backend interface {
	Upload(ctx context.Context, name string, r io.Reader) error
}

func New(cfg Config, snapshotGlob string, backend Backend, log subdexlog.Logger) *Archiver {
	return &Archiver{cfg: cfg, pattern: snapshotGlob, backend: backend, log: log}
}

// Run blocks, sweeping on cfg.Interval until ctx is cancelled.
func (a *Archiver) Run(ctx context.Context) {
	if a.cfg.Interval <= 0 {
		return
	}
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-a.cfg.Interval)
			n, err := a.Sweep(ctx, cutoff)
			if err != nil {
				a.log.Log(ctx, subdexlog.LevelVerbose, "archive sweep failed: %v", err)
				continue
			}
			a.log.Log(ctx, subdexlog.LevelVerbose, "archive sweep: %d snapshot(s) rotated", n)
		}
	}
}

// Sweep rotates every file matching the configured glob whose mtime is
// older than before, returning the count rotated.
func (a *Archiver) Sweep(ctx context.Context, before time.Time) (int, error) {
	matches, err := filepath.Glob(a.pattern)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, path := range matches {
		fi, err := os.Stat(path)
		if err != nil || fi.ModTime().After(before) {
			continue
		}
		if a.cfg.DeleteInstead {
			if err := os.Remove(path); err != nil {
				return n, err
			}
			n++
			continue
		}
		if err := a.rotateOne(ctx, path); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (a *Archiver) rotateOne(ctx context.Context, path string) error {
	if err := os.MkdirAll(a.cfg.RootDir, 0o755); err != nil {
		return err
	}
	zipName := filepath.Join(a.cfg.RootDir, filepath.Base(path)+".zip")
	if err := zipFile(path, zipName); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	if a.backend != nil {
		f, err := os.Open(zipName)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := a.backend.Upload(ctx, filepath.Base(zipName), f); err != nil {
			return fmt.Errorf("upload %s: %w", zipName, err)
		}
	}
	return nil
}

func zipFile(src, dstZip string) error {
	out, err := os.Create(dstZip)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	defer zw.Close()

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	w, err := zw.Create(filepath.Base(src))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, in)
	return err
}
