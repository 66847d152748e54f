package suffixstore

import (
	"context"
	"os"
)

// edge names a position that owns an outgoing pointer to the next node in
// a sibling chain: either a parent's slot-indexed child, or a node's link.
// Unifying the two lets the insertion walk below treat "first sibling at
// this depth" and "next sibling via link" the same way.
type edge struct {
	isLink bool
	owner  *node
	slot   int
}

func childEdge(owner *node, slot int) edge { return edge{owner: owner, slot: slot} }
func linkEdge(owner *node) edge            { return edge{isLink: true, owner: owner} }

func (ed edge) get(e *Engine) (*node, error) {
	if ed.isLink {
		return e.resolveLink(ed.owner)
	}
	return e.resolveChild(ed.owner, ed.slot)
}

func (ed edge) set(n *node) {
	if ed.isLink {
		ed.owner.link = n
		ed.owner.linkOff = 0
		return
	}
	ed.owner.child[ed.slot] = n
	ed.owner.childOff[ed.slot] = 0
	ed.owner.slotModified[ed.slot] = true
}

// Expand inserts one suffix of a keyword for a file. Callers loop over
// every suffix of the keyword themselves, the same contract the original
// indexer used: the engine only ever inserts exactly one suffix per call.
func (e *Engine) Expand(ctx context.Context, keyword []byte, path string) error {
	if len(keyword) == 0 {
		return usageErr("expand", nil)
	}
	if !e.writable {
		return usageErr("expand", nil)
	}
	fi, err := os.Stat(path)
	if err != nil {
		return ioErr("expand", err)
	}
	mtime := uint32(fi.ModTime().Unix())
	f := uint32(e.files.ensure(path, mtime))

	ref := e.pl.intern(keyword)
	_ = ref // the chain built below re-derives offsets as it splits across 255-byte windows

	keep := []*node{e.root}
	if err := e.insert(childEdge(e.root, 0), keyword, f, keep); err != nil {
		return err
	}
	return e.afterMutation(keep)
}

// insert walks the sibling chain reachable through ed, inserting suffix
// for file f, following the case table of §4.7.
func (e *Engine) insert(ed edge, suffix []byte, f uint32, keep []*node) error {
	cur, err := ed.get(e)
	if err != nil {
		return err
	}
	if cur == nil {
		nn := e.makeLabelChain(suffix)
		tail := chainTail(nn)
		tail.matches[lastSlot(tail)], _ = addMatch(tail.matches[lastSlot(tail)], f)
		tail.slotModified[lastSlot(tail)] = true
		ed.set(nn)
		return nil
	}

	keep = append(keep, cur)

	// MLS direct jump: suffix[0] already falls inside this run's byte
	// range.
	if cur.mlsSize > 1 && suffix[0] >= cur.firstByte && int(suffix[0]) < int(cur.firstByte)+int(cur.mlsSize) {
		idx := int(suffix[0] - cur.firstByte)
		rest := suffix[1:]
		if len(rest) == 0 {
			cur.matches[idx], _ = addMatch(cur.matches[idx], f)
			cur.slotModified[idx] = true
			return nil
		}
		return e.insert(childEdge(cur, idx), rest, f, keep)
	}

	fb := e.firstByteOf(cur)

	switch {
	case suffix[0] < fb:
		nn := e.makeLabelChain(suffix)
		tail := chainTail(nn)
		tail.matches[lastSlot(tail)], _ = addMatch(tail.matches[lastSlot(tail)], f)
		tail.slotModified[lastSlot(tail)] = true
		nn.link = cur
		nn.linkOff = 0
		ed.set(nn)
		return nil

	case suffix[0] == fb:
		label := e.labelOf(cur)
		k := commonPrefixLen(label, suffix)
		if k == len(label) {
			rest := suffix[k:]
			if len(rest) == 0 {
				cur.matches[0], _ = addMatch(cur.matches[0], f)
				cur.slotModified[0] = true
				return nil
			}
			return e.insert(childEdge(cur, 0), rest, f, keep)
		}
		e.splitNode(cur, k)
		ed.set(cur) // offset/pointer bookkeeping only; cur is unchanged as a pointer
		rest := suffix[k:]
		if len(rest) == 0 {
			cur.matches[0], _ = addMatch(cur.matches[0], f)
			cur.slotModified[0] = true
			return nil
		}
		return e.insert(childEdge(cur, 0), rest, f, keep)

	default: // suffix[0] > fb
		if suffix[0] == fb+byte(maxByte1(cur)) {
			if e.tryExtendMLS(cur, suffix[0]) {
				idx := int(suffix[0] - cur.firstByte)
				rest := suffix[1:]
				if len(rest) == 0 {
					cur.matches[idx], _ = addMatch(cur.matches[idx], f)
					cur.slotModified[idx] = true
					return nil
				}
				return e.insert(childEdge(cur, idx), rest, f, keep)
			}
		}
		return e.insert(linkEdge(cur), suffix, f, keep)
	}
}

// maxByte1 returns how many contiguous bytes this run already spans (1
// for a plain singleton of label length 1, mlsSize otherwise). Multi-byte
// singleton labels never extend.
func maxByte1(n *node) int {
	if n.labelLen != 1 {
		return -1 // never matches the extend condition
	}
	return int(n.mlsSize)
}

// tryExtendMLS absorbs cur's next sibling into cur's run when doing so
// would make wantByte directly addressable, per the "extend/join" case.
// Only a next sibling that is itself a length-1 singleton is absorbed;
// deeper joins across two multi-slot runs are left as a documented
// simplification (see DESIGN.md).
func (e *Engine) tryExtendMLS(cur *node, wantByte byte) bool {
	if cur.labelLen != 1 {
		return false
	}
	nxt, err := e.resolveLink(cur)
	if err != nil || nxt == nil {
		return false
	}
	if nxt.mlsSize != 1 || nxt.labelLen != 1 {
		return false
	}
	if e.firstByteOf(nxt) != wantByte {
		return false
	}
	if cur.mlsSize == 1 {
		cur.firstByte = e.firstByteOf(cur)
	}
	cur.mlsSize++
	if nxt.child[0] != nil {
		nxt.child[0].parent = cur
	}
	cur.child = append(cur.child, nxt.child[0])
	cur.childOff = append(cur.childOff, nxt.childOff[0])
	cur.matches = append(cur.matches, nxt.matches[0])
	cur.slotModified = append(cur.slotModified, true)
	cur.link = nxt.link
	cur.linkOff = nxt.linkOff
	return true
}

// splitNode splits cur's label at position k (1 <= k < len(label)): a
// fresh node inherits cur's sibling-chain position and the first k label
// bytes; cur itself becomes that node's sole child, keeping bytes [k:],
// its matches, and its own child pointer.
func (e *Engine) splitNode(cur *node, k int) {
	prefixRef := poolRef{index: cur.labelRef.index, offset: cur.labelRef.offset, length: uint16(k)}
	inner := newLabeledNode(prefixRef)
	inner.child[0] = cur
	inner.slotModified[0] = true
	inner.link = cur.link
	inner.linkOff = cur.linkOff
	cur.link = nil
	cur.linkOff = 0
	cur.labelRef = poolRef{index: cur.labelRef.index, offset: cur.labelRef.offset + uint32(k), length: cur.labelRef.length - uint16(k)}
	cur.labelLen -= uint16(k)

	swapNodeContents(cur, inner)
}

// swapNodeContents exchanges the field values of two node structs so that
// the pointer the caller already holds (cur) now represents what used to
// be `inner`, and a freshly allocated struct (assigned to *tmp) represents
// the demoted original. This keeps every existing pointer-to-cur elsewhere
// in the tree valid without having to rewrite them, since Go has no
// pointer-retargeting primitive.
//
// cur keeps its place in the grandparent's slot/link, so it must keep its
// original parent pointer across the swap. inner takes on cur's demoted
// content, including any already-resident children and link sibling, whose
// own parent pointers must be retargeted from cur's address to inner's —
// otherwise ancestorChain would skip over inner entirely and the eviction
// walk could evict it out from under a live keep-chain.
func swapNodeContents(cur, inner *node) {
	origParent := cur.parent
	demoted := *cur
	*cur = *inner
	*inner = demoted
	cur.parent = origParent
	cur.child[0] = inner
	inner.parent = cur
	for _, c := range inner.child {
		if c != nil {
			c.parent = inner
		}
	}
	if inner.link != nil {
		inner.link.parent = inner.parent
	}
}

func lastSlot(n *node) int { return n.slots() - 1 }

func chainTail(head *node) *node {
	n := head
	for n.child[0] != nil && n.labelLen == 255 {
		n = n.child[0]
	}
	return n
}

func commonPrefixLen(a, b []byte) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

func (e *Engine) firstByteOf(n *node) byte {
	if n.mlsSize > 1 {
		return n.firstByte
	}
	b := e.labelOf(n)
	if len(b) == 0 {
		return n.firstByte
	}
	return b[0]
}

func (e *Engine) labelOf(n *node) []byte {
	if n.labelLen == 1 && n.mlsSize == 1 {
		b := e.pl.slice(n.labelRef)
		if b != nil {
			return b
		}
		return []byte{n.firstByte}
	}
	return e.pl.slice(n.labelRef)
}

// makeLabelChain builds a chain of singleton nodes describing bytes,
// splitting across nodes of at most 255 bytes each per the on-disk
// clength field's range (Open Question: behavior at exactly 256 bytes —
// this engine splits as soon as the remainder exceeds 255, so a 256-byte
// keyword becomes a 255-byte node followed by a 1-byte node, never a
// single 256-byte node, which would be inexpressible).
func (e *Engine) makeLabelChain(bytes []byte) *node {
	ref := e.pl.intern(bytes)
	var head, tail *node
	offset := 0
	for offset < len(bytes) {
		n := len(bytes) - offset
		if n > 255 {
			n = 255
		}
		chunk := poolRef{index: ref.index, offset: ref.offset + uint32(offset), length: uint16(n)}
		nd := newLabeledNode(chunk)
		if n == 1 {
			nd.firstByte = bytes[offset]
		}
		nd.slotModified[0] = true
		if head == nil {
			head = nd
		} else {
			tail.child[0] = nd
			nd.parent = tail
		}
		tail = nd
		offset += n
	}
	return head
}
