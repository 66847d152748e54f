// Package httpapi exposes a small debug/search HTTP surface over a
// running Engine: exact and approximate substring search, tree
// statistics, and a health probe, plus Prometheus metrics for the
// request and cache path.
package httpapi

import (
	"context"

	"github.com/subdex/subdex/internal/suffixstore"
)

// Store is the read surface httpapi needs from an Engine. The daemon
// collaborator supplies an implementation that serializes calls behind a
// mutex, since Engine itself is not safe for concurrent use.
type Store interface {
	Search(ctx context.Context, needle []byte, cb suffixstore.MatchFunc) (int, error)
	SearchApprox(ctx context.Context, budget int, ignoreCase bool, needle []byte, cb suffixstore.MatchFunc) (int, error)
	Stats() suffixstore.Stats
	FileCount() int
	FileAt(i int) (path string, mtime uint32, ok bool)
}
