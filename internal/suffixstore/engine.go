// Package suffixstore implements the on-disk generalized suffix tree
// engine: byte-exact serialization, bounded-memory cache/eviction,
// expansion/truncation, and exact/approximate substring search. It owns
// exactly one database file per Engine instance and is not safe for
// concurrent use by more than one goroutine — callers that need
// concurrent access (the daemon collaborator) must serialize calls behind
// their own mutex, the same division of responsibility the corpus uses
// between its in-process store and its HTTP layer.
package suffixstore

import (
	"context"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/subdex/subdex/internal/subdexlog"
)

const defaultMemoryLimit = 8 << 20 // 8 MiB, bounds node memory only

// Engine is a single open database. It is not goroutine-safe.
type Engine struct {
	finalPath string
	workPath  string
	file      *os.File
	w         *window
	writable  bool

	files *fileTable
	pl    *pool
	root  *node

	memoryLimit     int
	usedMemory      int
	mutationCounter int

	log subdexlog.Logger
}

// Option configures an Engine at open time.
type Option func(*Engine)

func WithLogger(l subdexlog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithMemoryLimit(bytes int) Option {
	return func(e *Engine) { e.memoryLimit = bytes }
}

func WithBufferSize(_ int) Option { return func(e *Engine) {} } // reserved for window tuning

// OpenRW opens path for read-write. If the path does not exist, a fresh
// database is created. If it exists and carries the tragic (in-progress)
// magic, it is discarded and the engine starts fresh. Either way, all
// live mutation happens against a sibling working file; `path` itself is
// only ever touched by the atomic rename performed on Close, so a crash
// mid-session can never leave it partially written.
func OpenRW(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	e := &Engine{finalPath: path, writable: true, memoryLimit: defaultMemoryLimit, log: subdexlog.Default{}}
	for _, o := range opts {
		o(e)
	}

	fresh := true
	if fileExists(path) {
		if magic, ok := peekMagic(path); ok {
			if isReal(magic[:]) {
				fresh = false
			} else if isTragic(magic[:]) {
				e.log.Log(ctx, subdexlog.LevelVerbose, "discarding tragic database %s", path)
			} else {
				return nil, formatErr("open_rw", nil)
			}
		}
	}

	e.workPath = tempWorkPath(path)
	f, err := os.OpenFile(e.workPath, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, ioErr("open_rw", err)
	}
	e.file = f
	if err := lockFile(f, true); err != nil {
		f.Close()
		return nil, err
	}
	w, err := newWindow(f, defaultBufSize, true)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.w = w

	if fresh {
		e.files = newFileTable()
		e.pl = newPool()
		e.root = newSingleton(0)
		e.root.mlsSize = 1
		if _, err := e.w.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		if err := writePrologue(e.w, tragicMagic, 0); err != nil {
			return nil, err
		}
		if err := e.w.Flush(); err != nil {
			return nil, err
		}
		return e, nil
	}

	if err := e.copyInto(path, f); err != nil {
		f.Close()
		return nil, err
	}
	if err := e.loadFrom(w); err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

// OpenRO opens path read-only. A nonexistent database is an error.
func OpenRO(ctx context.Context, path string, opts ...Option) (*Engine, error) {
	if !fileExists(path) {
		return nil, ioErr("open_ro", os.ErrNotExist)
	}
	if magic, ok := peekMagic(path); ok && !isReal(magic[:]) {
		return nil, usageErr("open_ro", nil)
	}
	e := &Engine{finalPath: path, writable: false, memoryLimit: defaultMemoryLimit, log: subdexlog.Default{}}
	for _, o := range opts {
		o(e)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr("open_ro", err)
	}
	if err := lockFile(f, false); err != nil {
		f.Close()
		return nil, err
	}
	e.file = f
	w, err := newWindow(f, defaultBufSize, false)
	if err != nil {
		f.Close()
		return nil, err
	}
	e.w = w
	if err := e.loadFrom(w); err != nil {
		f.Close()
		return nil, err
	}
	return e, nil
}

// copyInto duplicates an existing real-magic database into the working
// file so in-place mutation never touches the last-good copy at path.
func (e *Engine) copyInto(path string, dst *os.File) error {
	src, err := os.Open(path)
	if err != nil {
		return ioErr("open_rw", err)
	}
	defer src.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return ioErr("open_rw", err)
	}
	return nil
}

func (e *Engine) loadFrom(w *window) error {
	if _, err := w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	magic, headerOffset, err := readPrologue(w)
	if err != nil {
		return err
	}
	if !isTragic(magic[:]) && !isReal(magic[:]) {
		return formatErr("open", nil)
	}
	if _, err := w.Seek(int64(headerOffset), io.SeekStart); err != nil {
		return err
	}
	hdr, err := readHeader(w)
	if err != nil {
		return err
	}
	e.files = hdr.files
	e.pl = hdr.pool
	if hdr.rootOffset == 0 {
		e.root = newSingleton(0)
	} else {
		if _, err := w.Seek(int64(hdr.rootOffset), io.SeekStart); err != nil {
			return err
		}
		root, err := readNodeRun(w)
		if err != nil {
			return err
		}
		e.root = root
	}
	e.usedMemory = estimateNodeSize(e.root)
	return nil
}

// peekMagic reads the first 8 bytes of path without disturbing anything
// else; used by OpenRW to decide whether an existing file is real,
// tragic, or malformed before committing to a strategy.
func peekMagic(path string) ([8]byte, bool) {
	var out [8]byte
	f, err := os.Open(path)
	if err != nil {
		return out, false
	}
	defer f.Close()
	if _, err := io.ReadFull(f, out[:]); err != nil {
		return out, false
	}
	return out, true
}

func lockFile(f *os.File, exclusive bool) error {
	how := unix.LOCK_SH | unix.LOCK_NB
	if exclusive {
		how = unix.LOCK_EX | unix.LOCK_NB
	}
	if err := unix.Flock(int(f.Fd()), how); err != nil {
		return ioErr("lock", err)
	}
	return nil
}

// Close writes every resident node, appends a fresh header carrying the
// root offset, rewrites the prologue with the real magic and the header's
// offset, and atomically renames the working file over the original path.
func (e *Engine) Close(ctx context.Context) error {
	if !e.writable {
		if err := unix.Flock(int(e.file.Fd()), unix.LOCK_UN); err != nil {
			return ioErr("close", err)
		}
		return e.file.Close()
	}

	if _, err := e.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	rootOff, err := writeNodeRun(e.w, e.root)
	if err != nil {
		return err
	}

	// The header (path/file/pool tables plus the now-known root offset) is
	// always appended fresh at end-of-file, strictly after every node
	// record. Only the fixed-size 16-byte prologue at offset 0 is ever
	// rewritten in place, so a header that grew or shrank since the last
	// Close can never collide with node data.
	if _, err := e.w.Seek(0, io.SeekEnd); err != nil {
		return err
	}
	headerOffset := e.w.Tell()
	if err := writeHeader(e.w, e.files, e.pl, uint64(rootOff)); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return err
	}
	if _, err := e.w.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := writePrologue(e.w, realMagic, uint64(headerOffset)); err != nil {
		return err
	}
	if err := e.w.Flush(); err != nil {
		return err
	}
	if err := e.file.Sync(); err != nil {
		return ioErr("close", err)
	}
	if err := unix.Flock(int(e.file.Fd()), unix.LOCK_UN); err != nil {
		return ioErr("close", err)
	}
	if err := e.file.Close(); err != nil {
		return ioErr("close", err)
	}
	if err := os.Rename(e.workPath, e.finalPath); err != nil {
		return ioErr("close", err)
	}
	e.log.Log(ctx, subdexlog.LevelVerbose, "closed database %s", e.finalPath)
	return nil
}

// SetMemoryLimit changes the node-memory budget, triggering eviction
// immediately if the new limit is already exceeded.
func (e *Engine) SetMemoryLimit(bytes int) error {
	e.memoryLimit = bytes
	if e.usedMemory > e.memoryLimit {
		return e.maybeEvict(nil)
	}
	return nil
}

func (e *Engine) FileCount() int { return e.files.count() }

func (e *Engine) FileAt(i int) (path string, mtime uint32, ok bool) {
	fe, ok := e.files.at(i)
	if !ok {
		return "", 0, false
	}
	return fe.path, fe.mtime, true
}
