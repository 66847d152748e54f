// Package daemon provides the long-running process around an Engine:
// mutex-serialized access (Engine itself is not goroutine-safe), a
// gocron-driven periodic sweep, a NATS control subject for remote
// commands with a Unix-domain-socket fallback, and graceful shutdown.
package daemon

import (
	"context"
	"sync"

	"github.com/subdex/subdex/internal/suffixstore"
)

// Handle serializes every call into one Engine behind a single mutex,
// the division of responsibility the core engine's own package doc
// comment assigns to its caller: Engine is not safe for concurrent use,
// so exactly one collaborator (this one) must own the lock.
type Handle struct {
	mu     sync.Mutex
	e      *suffixstore.Engine
	dbPath string
	opts   []suffixstore.Option
}

func NewHandle(e *suffixstore.Engine, dbPath string, opts ...suffixstore.Option) *Handle {
	return &Handle{e: e, dbPath: dbPath, opts: opts}
}

func (h *Handle) Expand(ctx context.Context, keyword []byte, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Expand(ctx, keyword, path)
}

func (h *Handle) TruncateOne(ctx context.Context, path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.TruncateOne(ctx, path)
}

func (h *Handle) TruncateDeleted(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.TruncateDeleted(ctx)
}

func (h *Handle) TruncateModified(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.TruncateModified(ctx)
}

func (h *Handle) Search(ctx context.Context, needle []byte, cb suffixstore.MatchFunc) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Search(ctx, needle, cb)
}

func (h *Handle) SearchApprox(ctx context.Context, budget int, ignoreCase bool, needle []byte, cb suffixstore.MatchFunc) (int, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.SearchApprox(ctx, budget, ignoreCase, needle, cb)
}

func (h *Handle) Stats() suffixstore.Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Stats()
}

func (h *Handle) FileCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.FileCount()
}

func (h *Handle) FileAt(i int) (string, uint32, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.FileAt(i)
}

// Checkpoint closes and reopens the underlying Engine, forcing a full
// write-then-rename cycle (and, as a side effect, flushing every
// resident node to disk). No indexed data is lost; after the reopen only
// the root is resident, and other nodes are loaded again on demand.
func (h *Handle) Checkpoint(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.e.Close(ctx); err != nil {
		return err
	}
	e, err := suffixstore.OpenRW(ctx, h.dbPath, h.opts...)
	if err != nil {
		return err
	}
	h.e = e
	return nil
}

// Close releases the underlying Engine.
func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.e.Close(ctx)
}
