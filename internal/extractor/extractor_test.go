package extractor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestExtractSplitsOnNonAlnum(t *testing.T) {
	x := New()
	p := writeTemp(t, "a.txt", []byte("hello, world! foo_bar 123"))

	got, err := x.Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	want := []string{"hello", "world", "foo", "bar", "123"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestExtractSkipsBinary(t *testing.T) {
	x := New()
	p := writeTemp(t, "b.bin", []byte{0x00, 0x01, 0x02, 'h', 'i'})

	got, err := x.Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no keywords from a binary file, got %v", got)
	}
}

func TestExtractCapsKeywordLength(t *testing.T) {
	x := &TextExtractor{MaxFileBytes: 1 << 20, MinWordLen: 1}
	long := strings.Repeat("a", MaxKeywordBytes+100)
	p := writeTemp(t, "long.txt", []byte(long))

	got, err := x.Extract(context.Background(), p)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(got) != 1 || len(got[0]) != MaxKeywordBytes {
		t.Fatalf("expected one keyword capped at %d bytes, got %d keyword(s) of length %d", MaxKeywordBytes, len(got), len(got[0]))
	}
}
