// Package watch implements the file-change-monitoring collaborator: a
// fsnotify watcher that re-indexes a path when it changes, debounced so a
// burst of writes to the same file (a compiler rewriting an object file
// over and over, an editor's atomic-save dance) triggers one re-index
// instead of one per write.
package watch

import (
	"context"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/time/rate"

	"github.com/subdex/subdex/internal/subdexlog"
)

// Listener is notified once per debounced change on a watched path.
type Listener interface {
	OnChange(ctx context.Context, path string)
}

// Watcher wraps one fsnotify.Watcher plus a per-path rate limiter so
// repeated events on the same file collapse into a single callback.
type Watcher struct {
	Log subdexlog.Logger

	mu        sync.Mutex
	w         *fsnotify.Watcher
	listeners []Listener
	limiters  map[string]*rate.Limiter
	burstRate rate.Limit
	burst     int

	done chan struct{}
}

// New creates a Watcher. burstRate/burst bound how often OnChange may fire
// for a single path (e.g. rate.Every(500*time.Millisecond), burst 1).
func New(burstRate rate.Limit, burst int) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		Log:       subdexlog.Default{},
		w:         w,
		limiters:  map[string]*rate.Limiter{},
		burstRate: burstRate,
		burst:     burst,
		done:      make(chan struct{}),
	}, nil
}

// Add starts watching path (file or directory) and registers l to be
// notified of debounced changes under it.
func (w *Watcher) Add(path string, l Listener) error {
	w.mu.Lock()
	w.listeners = append(w.listeners, l)
	w.mu.Unlock()
	return w.w.Add(path)
}

// Run drives the event loop until ctx is cancelled or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case err, ok := <-w.w.Errors:
			if !ok {
				return
			}
			w.Log.Log(ctx, subdexlog.LevelVerbose, "watch error: %v", err)
		case ev, ok := <-w.w.Events:
			if !ok {
				return
			}
			if !w.allow(ev.Name) {
				continue
			}
			w.mu.Lock()
			ls := append([]Listener(nil), w.listeners...)
			w.mu.Unlock()
			for _, l := range ls {
				l.OnChange(ctx, ev.Name)
			}
		}
	}
}

func (w *Watcher) allow(path string) bool {
	w.mu.Lock()
	lim, ok := w.limiters[path]
	if !ok {
		lim = rate.NewLimiter(w.burstRate, w.burst)
		w.limiters[path] = lim
	}
	w.mu.Unlock()
	return lim.Allow()
}

// Close stops the underlying fsnotify watcher and the event loop.
func (w *Watcher) Close() error {
	close(w.done)
	return w.w.Close()
}
