package suffixstore

import (
	"bytes"

	"golang.org/x/crypto/blake2b"
)

// poolRef locates a byte range inside the interned-string pool: entry
// pool[index][offset : offset+length].
type poolRef struct {
	index  uint32
	offset uint32
	length uint16
}

// pool is the growable sequence of owned keyword bodies. Tree nodes never
// own string bytes directly; they reference a range inside an entry here,
// so the same byte run can be shared by every node whose label is a
// substring of it. byWholeHash indexes entries that are themselves a
// complete, previously-interned keyword (not a substring fragment of a
// longer one) by a blake2b-256 digest, so a repeat of the same keyword
// skips the O(entries) substring scan in intern.
type pool struct {
	entries     [][]byte
	byWholeHash map[[32]byte]uint32
}

func newPool() *pool {
	return &pool{byWholeHash: map[[32]byte]uint32{}}
}

func hashKeyword(s []byte) [32]byte {
	return blake2b.Sum256(s)
}

func (p *pool) len() int { return len(p.entries) }

func (p *pool) at(i uint32) []byte {
	if int(i) >= len(p.entries) {
		return nil
	}
	return p.entries[i]
}

func (p *pool) slice(ref poolRef) []byte {
	e := p.at(ref.index)
	if e == nil {
		return nil
	}
	end := int(ref.offset) + int(ref.length)
	if end > len(e) {
		return nil
	}
	return e[ref.offset:end]
}

func (p *pool) append(s []byte) uint32 {
	cp := make([]byte, len(s))
	copy(cp, s)
	p.entries = append(p.entries, cp)
	idx := uint32(len(p.entries) - 1)
	p.byWholeHash[hashKeyword(cp)] = idx
	return idx
}

// intern returns a poolRef for keyword, reusing storage when possible:
// first it looks up an identical whole entry by its blake2b hash, then
// tries the tail of the most recent entry (the common case during
// sequential expansion of a keyword's suffixes), then a substring search
// across all entries (the optional optimization from the design), and
// finally appends the whole keyword as one new entry. The returned ref's
// length is clamped to 255 bytes — callers needing a longer label chain
// further refs at increasing offsets into the same entry, node by node
// (see makeLabelChain in expand.go).
func (p *pool) intern(keyword []byte) poolRef {
	if idx, ok := p.byWholeHash[hashKeyword(keyword)]; ok && bytes.Equal(p.entries[idx], keyword) {
		return poolRef{index: idx, offset: 0, length: clampLen(len(keyword))}
	}
	if n := len(p.entries); n > 0 {
		last := p.entries[n-1]
		if idx := suffixIndex(last, keyword); idx >= 0 {
			return poolRef{index: uint32(n - 1), offset: uint32(idx), length: clampLen(len(keyword))}
		}
	}
	for i := len(p.entries) - 1; i >= 0; i-- {
		if idx := bytes.Index(p.entries[i], keyword); idx >= 0 {
			return poolRef{index: uint32(i), offset: uint32(idx), length: clampLen(len(keyword))}
		}
	}
	idx := p.append(keyword)
	return poolRef{index: idx, offset: 0, length: clampLen(len(keyword))}
}

func clampLen(n int) uint16 {
	if n > 255 {
		return 255
	}
	return uint16(n)
}

// suffixIndex returns the starting offset of needle as a trailing suffix
// of haystack, or -1.
func suffixIndex(haystack, needle []byte) int {
	if len(needle) > len(haystack) {
		return -1
	}
	start := len(haystack) - len(needle)
	if bytes.Equal(haystack[start:], needle) {
		return start
	}
	return -1
}
