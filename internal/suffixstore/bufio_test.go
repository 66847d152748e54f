package suffixstore

import (
	"os"
	"testing"
)

func newTestWindow(t *testing.T) *window {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "window-*")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	w, err := newWindow(f, defaultBufSize, true)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestUintRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 255, 256, 65535, 65536, 1 << 24, 0xFFFFFFFF}
	w := newTestWindow(t)
	for _, v := range values {
		if err := w.WriteUint(v); err != nil {
			t.Fatalf("write %d: %v", v, err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	for _, want := range values {
		got, err := w.ReadUint()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if got != want {
			t.Fatalf("got %d, want %d", got, want)
		}
	}
}

func TestUlongPairRoundTrip(t *testing.T) {
	type pair struct{ a, b uint64 }
	values := []pair{{0, 0}, {1, 2}, {1 << 40, 1 << 8}, {0xFF, 0xFFFFFFFFFFFFFFFF}}
	w := newTestWindow(t)
	for _, v := range values {
		if err := w.WriteUlongPair(v.a, v.b); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	for _, want := range values {
		a, b, err := w.ReadUlongPair()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if a != want.a || b != want.b {
			t.Fatalf("got (%d,%d), want (%d,%d)", a, b, want.a, want.b)
		}
	}
}

func TestZTStringRoundTrip(t *testing.T) {
	values := [][]byte{nil, []byte("a"), []byte("hello world"), make([]byte, 5000)}
	for i := range values[3] {
		values[3][i] = byte(i)
	}
	w := newTestWindow(t)
	for _, v := range values {
		if err := w.WriteZTString(v); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	for _, want := range values {
		got, err := w.ReadZTString()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if len(got) != len(want) {
			t.Fatalf("length mismatch: got %d want %d", len(got), len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("byte %d mismatch", i)
			}
		}
	}
}

func TestReadPastEndFails(t *testing.T) {
	w := newTestWindow(t)
	if err := w.Write([]byte("ab")); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Seek(0, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := w.Read(10); err == nil {
		t.Fatal("expected a short-read error")
	}
}
