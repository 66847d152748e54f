package suffixstore

// fileEntry is one (path, mtime) tuple. Entries are addressed by their
// zero-based index, which tree nodes store in their matches sets.
type fileEntry struct {
	path  string
	mtime uint32
}

// fileTable is the growable list of indexed files. Deletion swaps the
// freed slot with the current tail so compacting the slice never shifts
// every later element.
type fileTable struct {
	entries []fileEntry
	byPath  map[string]int
}

func newFileTable() *fileTable {
	return &fileTable{byPath: map[string]int{}}
}

func (t *fileTable) count() int { return len(t.entries) }

func (t *fileTable) at(i int) (fileEntry, bool) {
	if i < 0 || i >= len(t.entries) {
		return fileEntry{}, false
	}
	return t.entries[i], true
}

// lookup returns the index of path via the byPath map.
func (t *fileTable) lookup(path string) (int, bool) {
	i, ok := t.byPath[path]
	return i, ok
}

// ensure returns path's index, appending a new entry (2x geometric growth
// is implicit in append) if it isn't already present.
func (t *fileTable) ensure(path string, mtime uint32) int {
	if i, ok := t.byPath[path]; ok {
		t.entries[i].mtime = mtime
		return i
	}
	i := len(t.entries)
	t.entries = append(t.entries, fileEntry{path: path, mtime: mtime})
	t.byPath[path] = i
	return i
}

// removeResult describes how a removal altered the index space so the
// caller (truncate.go) can rewrite node.matches entries referencing the
// moved tail slot.
type removeResult struct {
	removedIndex int
	movedFrom    int // -1 if the removed slot was already the tail
	movedTo      int
}

// remove swaps the tail entry into the freed slot at index i and shrinks
// the table by one, returning the remap so callers can fix up references.
func (t *fileTable) remove(i int) removeResult {
	last := len(t.entries) - 1
	res := removeResult{removedIndex: i, movedFrom: -1}
	delete(t.byPath, t.entries[i].path)
	if i != last {
		t.entries[i] = t.entries[last]
		t.byPath[t.entries[i].path] = i
		res.movedFrom = last
		res.movedTo = i
	}
	t.entries = t.entries[:last]
	return res
}
