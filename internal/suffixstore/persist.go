package suffixstore

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

var realMagic = [8]byte{'D', 'O', 'O', 0, '0', '0', '0', '7'}
var tragicMagic = [8]byte{'X', 'O', 'O', 0, '0', '0', '0', '1'}

// pathTable dedups the directory component shared by many file entries,
// per the on-disk file-table layout in §4.5.
type pathTable struct {
	dirs  []string
	index map[string]uint32
}

func newPathTable() *pathTable {
	return &pathTable{index: map[string]uint32{}}
}

func (t *pathTable) ensure(dir string) uint32 {
	if i, ok := t.index[dir]; ok {
		return i
	}
	i := uint32(len(t.dirs))
	t.dirs = append(t.dirs, dir)
	t.index[dir] = i
	return i
}

func (t *pathTable) at(i uint32) string {
	if int(i) >= len(t.dirs) {
		return ""
	}
	return t.dirs[i]
}

// splitPath separates a path into its directory and base name using the
// same convention as filepath.Split.
func splitPath(p string) (dir, base string) {
	dir, base = filepath.Split(p)
	return dir, base
}

// prologueSize is the fixed byte length of the file's leading record:
// an 8-byte magic plus an 8-byte absolute offset of the header proper.
// Keeping this fixed-size, written once at offset 0 and always rewritten
// whole, is what lets Close() flip the magic and repoint the header
// without ever risking an overlapping write into node data: the header
// itself is always appended fresh at end-of-file, after every node
// record, so its size growing or shrinking between sessions never
// collides with anything.
const prologueSize = 16

func writePrologue(w *window, magic [8]byte, headerOffset uint64) error {
	if err := w.Write(magic[:]); err != nil {
		return err
	}
	return w.WriteUlongFull(headerOffset)
}

func readPrologue(w *window) (magic [8]byte, headerOffset uint64, err error) {
	b, err := w.Read(8)
	if err != nil {
		return magic, 0, err
	}
	copy(magic[:], b)
	headerOffset, err = w.ReadUlongFull()
	return magic, headerOffset, err
}

// writeHeader writes the path table, file table, pool, and the now-known
// root offset. Called once per Close, always at the current end of file,
// strictly after every node record has already been written.
func writeHeader(w *window, ft *fileTable, pl *pool, rootOffset uint64) error {
	pt := newPathTable()
	type splitEntry struct {
		dirIdx uint32
		base   string
		mtime  uint32
	}
	splits := make([]splitEntry, len(ft.entries))
	for i, fe := range ft.entries {
		dir, base := splitPath(fe.path)
		splits[i] = splitEntry{dirIdx: pt.ensure(dir), base: base, mtime: fe.mtime}
	}

	if err := w.WriteUint(uint32(len(pt.dirs))); err != nil {
		return err
	}
	for _, d := range pt.dirs {
		if err := w.WriteZTString([]byte(d)); err != nil {
			return err
		}
	}

	if err := w.WriteUint(uint32(len(splits))); err != nil {
		return err
	}
	for _, s := range splits {
		if err := w.WriteUint(s.dirIdx); err != nil {
			return err
		}
		if err := w.WriteZTString([]byte(s.base)); err != nil {
			return err
		}
		if err := w.WriteUint(s.mtime); err != nil {
			return err
		}
	}

	if err := w.WriteUint(uint32(pl.len())); err != nil {
		return err
	}
	for i := 0; i < pl.len(); i++ {
		if err := w.WriteZTString(pl.entries[i]); err != nil {
			return err
		}
	}

	return w.WriteUlongFull(rootOffset)
}

type loadedHeader struct {
	files      *fileTable
	pool       *pool
	rootOffset uint64
}

// readHeader decodes the path table, file table, pool, and trailing root
// offset starting at the window's current position. The caller is
// responsible for having already seeked to the header's start (found via
// the prologue) and for having validated the magic.
func readHeader(w *window) (*loadedHeader, error) {
	pt := newPathTable()
	dirCount, err := w.ReadUint()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < dirCount; i++ {
		d, err := w.ReadZTString()
		if err != nil {
			return nil, err
		}
		pt.ensure(string(d))
	}

	ft := newFileTable()
	fileCount, err := w.ReadUint()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < fileCount; i++ {
		dirIdx, err := w.ReadUint()
		if err != nil {
			return nil, err
		}
		base, err := w.ReadZTString()
		if err != nil {
			return nil, err
		}
		mtime, err := w.ReadUint()
		if err != nil {
			return nil, err
		}
		if dirIdx >= uint32(len(pt.dirs)) {
			return nil, formatErr("read-header", nil)
		}
		full := pt.at(dirIdx) + string(base)
		ft.ensure(full, mtime)
	}

	pl := newPool()
	poolCount, err := w.ReadUint()
	if err != nil {
		return nil, err
	}
	for i := uint32(0); i < poolCount; i++ {
		s, err := w.ReadZTString()
		if err != nil {
			return nil, err
		}
		pl.append(s)
	}

	rootOffset, err := w.ReadUlongFull()
	if err != nil {
		return nil, err
	}

	return &loadedHeader{files: ft, pool: pl, rootOffset: rootOffset}, nil
}

func isReal(b []byte) bool {
	for i, c := range realMagic {
		if b[i] != c {
			return false
		}
	}
	return true
}

func isTragic(b []byte) bool {
	for i, c := range tragicMagic {
		if b[i] != c {
			return false
		}
	}
	return true
}

// writeNodeRun serializes n (and, transitively, any still-resident child
// or link it owns) at the end of the file, returning the offset n itself
// lands at. Subtrees already evicted to disk (child == nil, childOff != 0)
// are left untouched — their offset is already correct.
func writeNodeRun(w *window, n *node) (int64, error) {
	if n.child == nil {
		return n.selfOff, nil
	}

	var childOffs, linkOffs []int64 = make([]int64, n.slots()), make([]int64, n.slots())
	for i := 0; i < n.slots(); i++ {
		if n.child[i] != nil {
			off, err := writeNodeRun(w, n.child[i])
			if err != nil {
				return 0, err
			}
			childOffs[i] = off
		} else {
			childOffs[i] = n.childOff[i]
		}
	}
	var linkOff int64
	if n.link != nil {
		off, err := writeNodeRun(w, n.link)
		if err != nil {
			return 0, err
		}
		linkOff = off
	} else {
		linkOff = n.linkOff
	}
	linkOffs[n.slots()-1] = linkOff

	if _, err := w.Seek(0, io.SeekEnd); err != nil {
		return 0, err
	}
	self := w.Tell()

	if n.mlsSize > 1 {
		if err := w.Write([]byte{0, n.mlsSize, n.firstByte}); err != nil {
			return 0, err
		}
	} else if n.labelLen == 1 {
		// Ordinary singleton with a one-byte label: still addressed via a
		// pool entry (the inline-byte shortcut is reserved for MLS runs).
		if err := w.Write([]byte{1}); err != nil {
			return 0, err
		}
		if err := w.WriteUint(n.labelRef.index); err != nil {
			return 0, err
		}
		if err := w.WriteUint(uint32(n.labelRef.offset)); err != nil {
			return 0, err
		}
	} else {
		if err := w.Write([]byte{byte(n.labelLen)}); err != nil {
			return 0, err
		}
		if err := w.WriteUint(n.labelRef.index); err != nil {
			return 0, err
		}
		if err := w.WriteUint(uint32(n.labelRef.offset)); err != nil {
			return 0, err
		}
	}

	for i := 0; i < n.slots(); i++ {
		rel := relOffset(self, childOffs[i])
		if i == n.slots()-1 {
			lrel := relOffset(self, linkOffs[i])
			if err := w.WriteUlongPair(uint64(lrel), uint64(rel)); err != nil {
				return 0, err
			}
		} else {
			if err := w.WriteUlong(uint64(rel)); err != nil {
				return 0, err
			}
		}
		matches := n.matches[i]
		if err := w.WriteUint(uint32(len(matches))); err != nil {
			return 0, err
		}
		j := 0
		for ; j+1 < len(matches); j += 2 {
			if err := w.WriteUintPair(matches[j], matches[j+1]); err != nil {
				return 0, err
			}
		}
		if j < len(matches) {
			if err := w.WriteUint(matches[j]); err != nil {
				return 0, err
			}
		}
	}

	n.selfOff = self
	n.child = nil
	n.childOff = childOffs
	n.link = nil
	n.linkOff = linkOff
	for i := range n.slotModified {
		n.slotModified[i] = false
	}
	return self, nil
}

// relOffset stores an edge as the positive difference referrer - referee,
// or 0 for "no such edge".
func relOffset(referrer, referee int64) int64 {
	if referee == 0 {
		return 0
	}
	return referrer - referee
}

func resolveRel(referrer int64, rel int64) int64 {
	if rel == 0 {
		return 0
	}
	return referrer - rel
}

// readNodeRun decodes a single node (and its MLS run) at the current
// position, leaving child/link unresolved (pointer nil, offset set) for
// lazy loading.
func readNodeRun(w *window) (*node, error) {
	self := w.Tell()
	hdr, err := w.Read(1)
	if err != nil {
		return nil, err
	}
	clen := hdr[0]

	n := &node{selfOff: self}
	if clen == 0 {
		b, err := w.Read(2)
		if err != nil {
			return nil, err
		}
		n.mlsSize = b[0]
		n.firstByte = b[1]
		n.labelLen = 1
	} else {
		n.mlsSize = 1
		n.labelLen = uint16(clen)
		idx, err := w.ReadUint()
		if err != nil {
			return nil, err
		}
		off, err := w.ReadUint()
		if err != nil {
			return nil, err
		}
		n.labelRef = poolRef{index: idx, offset: off, length: uint16(clen)}
		if clen == 1 {
			n.firstByte = 0 // resolved lazily from the pool on first use
		}
	}

	slots := n.slots()
	n.child = make([]*node, slots)
	n.childOff = make([]int64, slots)
	n.matches = make([][]uint32, slots)
	n.slotModified = make([]bool, slots)

	for i := 0; i < slots; i++ {
		var rel int64
		if i == slots-1 {
			lrel, crel, err := w.ReadUlongPair()
			if err != nil {
				return nil, err
			}
			n.linkOff = resolveRel(self, int64(lrel))
			rel = int64(crel)
		} else {
			crel, err := w.ReadUlong()
			if err != nil {
				return nil, err
			}
			rel = int64(crel)
		}
		n.childOff[i] = resolveRel(self, rel)

		count, err := w.ReadUint()
		if err != nil {
			return nil, err
		}
		matches := make([]uint32, 0, count)
		remaining := int(count)
		for remaining >= 2 {
			a, b, err := w.ReadUintPair()
			if err != nil {
				return nil, err
			}
			matches = append(matches, a, b)
			remaining -= 2
		}
		if remaining == 1 {
			v, err := w.ReadUint()
			if err != nil {
				return nil, err
			}
			matches = append(matches, v)
		}
		n.matches[i] = matches
	}

	return n, nil
}

// tempWorkPath returns a unique sibling name for the in-progress database,
// derived from the final path with a uuid suffix so concurrent close
// attempts against the same path never collide.
func tempWorkPath(finalPath string) string {
	return finalPath + "~" + uuid.NewString()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
