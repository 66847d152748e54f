package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subdex/subdex/internal/subdexlog"
	"github.com/subdex/subdex/internal/suffixstore"
	"github.com/subdex/subdex/pkg/lrucache"
)

// fakeStore is a mock Store backed by an in-memory path list.
type fakeStore struct {
	paths      []string
	searches   int
	statsValue suffixstore.Stats
}

func (f *fakeStore) Search(_ context.Context, needle []byte, cb suffixstore.MatchFunc) (int, error) {
	f.searches++
	n := 0
	for i, p := range f.paths {
		if contains(p, string(needle)) {
			cb(uint32(i))
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) SearchApprox(ctx context.Context, budget int, ignoreCase bool, needle []byte, cb suffixstore.MatchFunc) (int, error) {
	return f.Search(ctx, needle, cb)
}

func (f *fakeStore) Stats() suffixstore.Stats { return f.statsValue }
func (f *fakeStore) FileCount() int           { return len(f.paths) }
func (f *fakeStore) FileAt(i int) (string, uint32, bool) {
	if i < 0 || i >= len(f.paths) {
		return "", 0, false
	}
	return f.paths[i], 0, true
}

func contains(s, sub string) bool {
	return len(sub) == 0 || (len(s) >= len(sub) && indexOf(s, sub) >= 0)
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

func newTestServer(store Store) *Server {
	s := &Server{
		store:          store,
		log:            subdexlog.Default{},
		searchCache:    lrucache.New(1 << 20),
		searchCacheTTL: time.Minute,
	}
	s.metrics = newMetrics(prometheus.NewRegistry(), func() float64 { return 0 })
	return s
}

func TestHandleSearchReturnsMatches(t *testing.T) {
	store := &fakeStore{paths: []string{"/a/readme.txt", "/b/other.txt"}}
	s := newTestServer(store)

	req := httptest.NewRequest(http.MethodGet, "/search?q=readme", nil)
	rec := httptest.NewRecorder()
	s.handleSearch(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var got searchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, 1, got.Count)
	assert.Equal(t, []string{"/a/readme.txt"}, got.Matches)
}

func TestHandleSearchMissingQueryIsBadRequest(t *testing.T) {
	s := newTestServer(&fakeStore{})

	req := httptest.NewRequest(http.MethodGet, "/search", nil)
	rec := httptest.NewRecorder()
	s.handleSearch(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleSearchCachesRepeatedQuery(t *testing.T) {
	store := &fakeStore{paths: []string{"/a/readme.txt"}}
	s := newTestServer(store)

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/search?q=readme", nil)
		rec := httptest.NewRecorder()
		s.handleSearch(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, store.searches, "a repeated identical query should hit the cache instead of calling Search again")
}

func TestHandleHealthz(t *testing.T) {
	s := newTestServer(&fakeStore{})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.handleHealthz(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}
