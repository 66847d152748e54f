package suffixstore

// node is a tree node, or — when mlsSize > 1 — the head of a multi-link
// sibling (MLS) run: a compact representation of k consecutive siblings
// whose first label bytes are contiguous (b, b+1, ..., b+k-1) and whose
// labels are each a single byte. The spec's design notes call out that an
// MLS run may be modeled either as a tagged variant or as a run of slots
// sharing one mls_size field; this engine takes the latter shape but
// realizes "a run of slots" as parallel slices on a single Go struct
// instead of a chain of node-sized memory slots, since Go slices already
// give O(1) indexed access without the manual slot arithmetic the original
// C layout needed. Slot i of a run (0 <= i < mlsSize) therefore lives at
// child[i]/matches[i]/etc. of the same *node, and its first label byte is
// firstByte+i.
//
// A singleton (mlsSize == 1) stores its label as a pool reference, also
// when labelLen == 1; firstByte then holds the byte only for nodes built
// in memory, and is 0 for one read back from disk.
type node struct {
	parent *node

	link   *node
	linkOff int64

	mlsSize uint8 // number of slots in this run, always >= 1

	firstByte byte    // slot 0's byte; slot i's byte is firstByte+i
	labelRef  poolRef // valid only when mlsSize == 1
	labelLen  uint16  // length of slot 0's label when mlsSize == 1; always 1 when mlsSize > 1

	child      []*node
	childOff   []int64
	matches    [][]uint32
	slotModified []bool

	useCounter uint32 // eviction heuristic, shared by the whole run

	selfOff int64 // this node/run's own on-disk offset, 0 until first written
}

func newSingleton(firstByte byte) *node {
	return &node{
		mlsSize:   1,
		firstByte: firstByte,
		labelLen:  1,
		child:     make([]*node, 1),
		childOff:  make([]int64, 1),
		matches:   make([][]uint32, 1),
		slotModified: make([]bool, 1),
	}
}

func newLabeledNode(ref poolRef) *node {
	n := &node{
		mlsSize:  1,
		labelRef: ref,
		labelLen: ref.length,
		child:    make([]*node, 1),
		childOff: make([]int64, 1),
		matches:  make([][]uint32, 1),
		slotModified: make([]bool, 1),
	}
	if ref.length > 0 {
		// firstByte is left 0 here; makeLabelChain sets it for one-byte
		// labels.
	}
	return n
}

func (n *node) slots() int { return int(n.mlsSize) }

// labelLenAt returns slot i's label length: always 1 for slots inside a
// run of size > 1, otherwise the singleton's labelLen.
func (n *node) labelLenAt(i int) int {
	if n.mlsSize > 1 {
		return 1
	}
	return int(n.labelLen)
}

func (n *node) firstByteAt(i int) byte {
	return n.firstByte + byte(i)
}

// labelBytes returns slot 0's full label (singleton case only); callers
// in a run access individual slot bytes via firstByteAt instead, since a
// run's slots are always length-1 labels.
func (n *node) labelBytes(p *pool) []byte {
	if n.labelLen == 1 {
		return []byte{n.firstByte}
	}
	return p.slice(n.labelRef)
}

func (n *node) isModified(slot int) bool { return n.slotModified[slot] }

func (n *node) markModified(slot int) { n.slotModified[slot] = true }

func (n *node) markAllModified() {
	for i := range n.slotModified {
		n.slotModified[i] = true
	}
}

func (n *node) anyModified() bool {
	for _, m := range n.slotModified {
		if m {
			return true
		}
	}
	return false
}

// slotEmpty reports whether slot i has no child (resident or on disk) and
// no matches. Run size is not considered here; callers check it, per
// invariant 4: a node either has a child, a match, or is part of an MLS
// run of size > 1.
func (n *node) slotEmpty(i int) bool {
	return n.child[i] == nil && n.childOff[i] == 0 && len(n.matches[i]) == 0
}

func (n *node) allSlotsEmpty() bool {
	for i := 0; i < n.slots(); i++ {
		if !n.slotEmpty(i) {
			return false
		}
	}
	return true
}

// addMatch appends f to slot i's matches set if not already present.
func addMatch(set []uint32, f uint32) ([]uint32, bool) {
	for _, v := range set {
		if v == f {
			return set, false
		}
	}
	return append(set, f), true
}

// removeMatches deletes every index in dead from set, returning the
// filtered slice.
func removeMatches(set []uint32, dead map[uint32]bool) []uint32 {
	if len(dead) == 0 {
		return set
	}
	out := set[:0]
	for _, v := range set {
		if !dead[v] {
			out = append(out, v)
		}
	}
	return out
}

// remapMatches rewrites any index equal to `from` to `to`, used after a
// file-table swap-with-last compaction.
func remapMatches(set []uint32, from, to uint32) {
	for i, v := range set {
		if v == from {
			set[i] = to
		}
	}
}
