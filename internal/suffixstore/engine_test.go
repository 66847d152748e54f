package suffixstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func expandSuffixes(t *testing.T, e *Engine, ctx context.Context, keyword []byte, path string) {
	t.Helper()
	for i := range keyword {
		if err := e.Expand(ctx, keyword[i:], path); err != nil {
			t.Fatalf("expand %q: %v", keyword[i:], err)
		}
	}
}

func collectMatches(t *testing.T, e *Engine, ctx context.Context, needle string) []uint32 {
	t.Helper()
	var got []uint32
	seen := map[uint32]bool{}
	_, err := e.Search(ctx, []byte(needle), func(f uint32) {
		if !seen[f] {
			seen[f] = true
			got = append(got, f)
		}
	})
	if err != nil {
		t.Fatalf("search %q: %v", needle, err)
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	return got
}

func TestExpandAndSearchExact(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}

	expandSuffixes(t, e, ctx, []byte("banana"), "/a/one.txt")
	expandSuffixes(t, e, ctx, []byte("bandana"), "/a/two.txt")

	one, _ := e.files.lookup("/a/one.txt")
	two, _ := e.files.lookup("/a/two.txt")

	for _, tc := range []struct {
		needle string
		want   []uint32
	}{
		{"ana", sortedU32(uint32(one), uint32(two))},
		{"nan", []uint32{uint32(one)}},
		{"band", []uint32{uint32(two)}},
		{"xyz", nil},
	} {
		got := collectMatches(t, e, ctx, tc.needle)
		if !equalU32(got, tc.want) {
			t.Fatalf("search %q: got %v, want %v", tc.needle, got, tc.want)
		}
	}

	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	e, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	expandSuffixes(t, e, ctx, []byte("mississippi"), "/x/doc.txt")
	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}

	if _, err := os.Stat(dbPath); err != nil {
		t.Fatalf("expected real database file at %s: %v", dbPath, err)
	}

	e2, err := OpenRO(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer e2.Close(ctx)

	got := collectMatches(t, e2, ctx, "issi")
	if len(got) != 1 {
		t.Fatalf("expected one match after reopen, got %v", got)
	}
}

func TestReopenAndExpandFurther(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")

	e, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	expandSuffixes(t, e, ctx, []byte("alpha"), "/one.txt")
	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}

	e2, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	expandSuffixes(t, e2, ctx, []byte("alpine"), "/two.txt")
	if err := e2.Close(ctx); err != nil {
		t.Fatal(err)
	}

	e3, err := OpenRO(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer e3.Close(ctx)

	if e3.FileCount() != 2 {
		t.Fatalf("expected 2 files after two sessions, got %d", e3.FileCount())
	}
	got := collectMatches(t, e3, ctx, "alp")
	if len(got) != 2 {
		t.Fatalf("expected both files to match 'alp', got %v", got)
	}
}

func TestTruncateRemovesMatches(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	expandSuffixes(t, e, ctx, []byte("cats"), "/a.txt")
	expandSuffixes(t, e, ctx, []byte("cattle"), "/b.txt")

	if got := collectMatches(t, e, ctx, "cat"); len(got) != 2 {
		t.Fatalf("expected 2 matches before truncate, got %v", got)
	}

	if err := e.TruncateOne(ctx, "/a.txt"); err != nil {
		t.Fatal(err)
	}

	got := collectMatches(t, e, ctx, "cat")
	if len(got) != 1 {
		t.Fatalf("expected 1 match after truncate, got %v", got)
	}
	if e.FileCount() != 1 {
		t.Fatalf("expected file table to shrink to 1, got %d", e.FileCount())
	}

	if err := e.Close(ctx); err != nil {
		t.Fatal(err)
	}
}

func TestSearchApproxToleratesSubstitution(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, err := OpenRW(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close(ctx)

	expandSuffixes(t, e, ctx, []byte("kitten"), "/a.txt")

	var hits int
	_, err = e.SearchApprox(ctx, 1, false, []byte("kitxen"), func(f uint32) { hits++ })
	if err != nil {
		t.Fatal(err)
	}
	if hits == 0 {
		t.Fatal("expected approximate search with budget 1 to find a one-substitution match")
	}
}

func TestMemoryLimitTriggersEviction(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	e, err := OpenRW(ctx, dbPath, WithMemoryLimit(1))
	if err != nil {
		t.Fatal(err)
	}
	defer e.Close(ctx)

	for i := 0; i < 50; i++ {
		word := []byte{byte('a' + i%26), byte('a' + (i/26)%26), byte('a' + (i/676)%26)}
		if err := e.Expand(ctx, word, filepath.Join("/", string(rune('a'+i%26)))); err != nil {
			t.Fatalf("expand iteration %d: %v", i, err)
		}
	}
	// No assertion on internal residency here (an implementation detail);
	// this just exercises the eviction path under a byte-sized budget
	// without panicking or corrupting the tree, confirmed by re-searching.
	got := collectMatches(t, e, ctx, "a")
	if len(got) == 0 {
		t.Fatal("expected at least one match to survive eviction")
	}
}

func sortedU32(vs ...uint32) []uint32 {
	sort.Slice(vs, func(i, j int) bool { return vs[i] < vs[j] })
	return vs
}

func equalU32(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
