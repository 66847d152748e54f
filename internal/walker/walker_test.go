package walker

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subdex/subdex/internal/extractor"
)

// recordingTarget is a mock ExpandTarget recording every (keyword, path) pair.
type recordingTarget struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingTarget) Expand(_ context.Context, keyword []byte, path string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, string(keyword)+"@"+path)
	return nil
}

func TestIndexOneExpandsEverySuffix(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "note.txt")
	require.NoError(t, os.WriteFile(p, []byte("ab"), 0o644))

	w, err := New(extractor.New(), Options{})
	require.NoError(t, err)

	target := &recordingTarget{}
	require.NoError(t, w.IndexOne(context.Background(), target, p))

	assert.Contains(t, target.calls, "ab@"+p)
	assert.Contains(t, target.calls, "b@"+p)
}

func TestIndexOneIndexesFilenameWhenEnabled(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "report.log")
	require.NoError(t, os.WriteFile(p, []byte(""), 0o644))

	w, err := New(extractor.New(), Options{IndexFilenames: true})
	require.NoError(t, err)

	target := &recordingTarget{}
	require.NoError(t, w.IndexOne(context.Background(), target, p))

	assert.Contains(t, target.calls, "report.log@"+p)
}

func TestWalkPrunesMatchingDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skip"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "skip", "x.txt"), []byte("secret"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "keep.txt"), []byte("visible"), 0o644))

	w, err := New(extractor.New(), Options{Prune: `isDir && name == "skip"`})
	require.NoError(t, err)

	target := &recordingTarget{}
	require.NoError(t, w.Walk(context.Background(), target, root))

	for _, c := range target.calls {
		assert.NotContains(t, c, "secret")
	}
}

func TestNewRejectsInvalidPruneExpression(t *testing.T) {
	_, err := New(extractor.New(), Options{Prune: "this is not an expression((("})
	assert.Error(t, err)
}
