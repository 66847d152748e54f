package suffixstore

import "context"

// MaxNeedleLen is the longest useful needle. Search and SearchApprox
// themselves reject only needles longer than HardNeedleCap, which is
// twice that.
const MaxNeedleLen = 128
const HardNeedleCap = 2 * MaxNeedleLen

// MatchFunc receives one matching file-table index. It may be called more
// than once for the same index; callers deduplicate.
type MatchFunc func(fileIndex uint32)

// Search performs an exact substring search, walking from the root and
// emitting every file whose keywords contain needle as a substring.
func (e *Engine) Search(ctx context.Context, needle []byte, cb MatchFunc) (int, error) {
	if len(needle) == 0 || len(needle) > HardNeedleCap {
		return 0, usageErr("search", nil)
	}
	return e.searchWalk(childEdge(e.root, 0), needle, cb)
}

func (e *Engine) searchWalk(ed edge, needle []byte, cb MatchFunc) (int, error) {
	cur, err := ed.get(e)
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, nil
	}

	if cur.mlsSize > 1 && needle[0] >= cur.firstByte && int(needle[0]) < int(cur.firstByte)+int(cur.mlsSize) {
		idx := int(needle[0] - cur.firstByte)
		rest := needle[1:]
		if len(rest) == 0 {
			return e.enumerateSlot(cur, idx, cb)
		}
		return e.searchWalk(childEdge(cur, idx), rest, cb)
	}

	fb := e.firstByteOf(cur)
	switch {
	case needle[0] < fb:
		return 0, nil
	case needle[0] == fb:
		label := e.labelOf(cur)
		k := commonPrefixLen(label, needle)
		if k < len(label) {
			if k == len(needle) {
				// needle consumed entirely inside a longer label: still a
				// match, since every string spelled further down still
				// has needle as a prefix.
				return e.enumerateSlot(cur, 0, cb)
			}
			return 0, nil
		}
		rest := needle[k:]
		if len(rest) == 0 {
			return e.enumerateSlot(cur, 0, cb)
		}
		return e.searchWalk(childEdge(cur, 0), rest, cb)
	default:
		return e.searchWalk(linkEdge(cur), needle, cb)
	}
}

// enumerateSlot emits slot's own matches then every match in its subtree.
func (e *Engine) enumerateSlot(n *node, slot int, cb MatchFunc) (int, error) {
	count := 0
	for _, f := range n.matches[slot] {
		cb(f)
		count++
	}
	child, err := e.resolveChild(n, slot)
	if err != nil {
		return count, err
	}
	c2, err := e.enumerateChain(child, cb)
	return count + c2, err
}

// enumerateChain emits matches for every node in the sibling chain headed
// by n and, recursively, every descendant — the exact-search "no siblings
// at the landing node, every descendant below it" rule.
func (e *Engine) enumerateChain(n *node, cb MatchFunc) (int, error) {
	count := 0
	for cur := n; cur != nil; {
		for i := 0; i < cur.slots(); i++ {
			for _, f := range cur.matches[i] {
				cb(f)
				count++
			}
			child, err := e.resolveChild(cur, i)
			if err != nil {
				return count, err
			}
			c2, err := e.enumerateChain(child, cb)
			if err != nil {
				return count, err
			}
			count += c2
		}
		nxt, err := e.resolveLink(cur)
		if err != nil {
			return count, err
		}
		cur = nxt
	}
	return count, nil
}

// SearchApprox performs a bounded edit-distance substring search: budget
// single-byte insertions, deletions, or substitutions are allowed while
// consuming needle against the tree. ignoreCase applies ASCII-only
// case folding (Open Question in the design notes resolved in favor of
// the simpler byte-level behavior; see DESIGN.md).
//
// Edits are costed at node-label granularity rather than per byte inside
// a multi-byte label — a documented simplification that keeps the
// traversal tractable; single-byte labels (the common case once MLS runs
// and short alphabets dominate) are unaffected.
func (e *Engine) SearchApprox(ctx context.Context, budget int, ignoreCase bool, needle []byte, cb MatchFunc) (int, error) {
	if len(needle) == 0 || len(needle) > HardNeedleCap || budget < 0 {
		return 0, usageErr("search_approx", nil)
	}
	return e.approxWalk(childEdge(e.root, 0), needle, budget, ignoreCase, cb)
}

func (e *Engine) approxWalk(ed edge, needle []byte, budget int, ignoreCase bool, cb MatchFunc) (int, error) {
	cur, err := ed.get(e)
	if err != nil {
		return 0, err
	}
	if cur == nil {
		return 0, nil
	}
	total := 0

	if cur.mlsSize > 1 {
		for i := 0; i < cur.slots(); i++ {
			c, err := e.approxAtByte(cur, i, cur.firstByte+byte(i), needle, budget, ignoreCase, cb)
			if err != nil {
				return total, err
			}
			total += c
		}
	} else {
		label := e.labelOf(cur)
		c, err := e.approxAtLabel(cur, label, needle, budget, ignoreCase, cb)
		if err != nil {
			return total, err
		}
		total += c
	}

	nxt, err := e.resolveLink(cur)
	if err != nil {
		return total, err
	}
	if nxt != nil {
		c, err := e.approxWalk(linkEdge(cur), needle, budget, ignoreCase, cb)
		if err != nil {
			return total, err
		}
		total += c
	}
	return total, nil
}

func (e *Engine) approxAtByte(n *node, slot int, labelByte byte, needle []byte, budget int, ignoreCase bool, cb MatchFunc) (int, error) {
	total := 0
	if len(needle) > 0 && byteEq(labelByte, needle[0], ignoreCase) {
		rest := needle[1:]
		if len(rest) == 0 {
			c, err := e.enumerateSlot(n, slot, cb)
			if err != nil {
				return total, err
			}
			total += c
		} else {
			c, err := e.approxWalk(childEdge(n, slot), rest, budget, ignoreCase, cb)
			if err != nil {
				return total, err
			}
			total += c
		}
	}
	if budget <= 0 {
		return total, nil
	}

	// deletion: extra byte in the tree, needle unchanged
	c, err := e.approxWalk(childEdge(n, slot), needle, budget-1, ignoreCase, cb)
	if err != nil {
		return total, err
	}
	total += c

	// insertion: extra byte in the query, tree position unchanged
	if len(needle) > 0 {
		rest := needle[1:]
		if len(rest) == 0 {
			c, err := e.enumerateSlot(n, slot, cb)
			if err != nil {
				return total, err
			}
			total += c
		} else {
			c, err := e.approxAtByte(n, slot, labelByte, rest, budget-1, ignoreCase, cb)
			if err != nil {
				return total, err
			}
			total += c
		}
	}

	// substitution: consume both regardless of match (no-op cost when they
	// already matched above is accepted as documented over-emission).
	if len(needle) > 0 {
		rest := needle[1:]
		if len(rest) == 0 {
			c, err := e.enumerateSlot(n, slot, cb)
			if err != nil {
				return total, err
			}
			total += c
		} else {
			c, err := e.approxWalk(childEdge(n, slot), rest, budget-1, ignoreCase, cb)
			if err != nil {
				return total, err
			}
			total += c
		}
	}
	return total, nil
}

func (e *Engine) approxAtLabel(n *node, label []byte, needle []byte, budget int, ignoreCase bool, cb MatchFunc) (int, error) {
	total := 0
	if len(label) == 0 {
		return 0, nil
	}
	if len(needle) > 0 && byteEq(label[0], needle[0], ignoreCase) {
		k := commonPrefixLenFold(label, needle, ignoreCase)
		rest := needle[k:]
		if k == len(label) {
			if len(rest) == 0 {
				c, err := e.enumerateSlot(n, 0, cb)
				if err != nil {
					return total, err
				}
				total += c
			} else {
				c, err := e.approxWalk(childEdge(n, 0), rest, budget, ignoreCase, cb)
				if err != nil {
					return total, err
				}
				total += c
			}
		} else if budget > 0 {
			if len(rest) == 0 {
				c, err := e.enumerateSlot(n, 0, cb)
				if err != nil {
					return total, err
				}
				total += c
			} else {
				c, err := e.approxWalk(childEdge(n, 0), rest[1:], budget-1, ignoreCase, cb)
				if err != nil {
					return total, err
				}
				total += c
			}
		}
	}
	if budget <= 0 {
		return total, nil
	}

	// deletion: skip the whole label (extra chars in the tree)
	c, err := e.approxWalk(childEdge(n, 0), needle, budget-1, ignoreCase, cb)
	if err != nil {
		return total, err
	}
	total += c

	// insertion: skip one needle byte, retry the same label
	if len(needle) > 0 {
		rest := needle[1:]
		if len(rest) == 0 {
			c, err := e.enumerateSlot(n, 0, cb)
			if err != nil {
				return total, err
			}
			total += c
		} else {
			c, err := e.approxAtLabel(n, label, rest, budget-1, ignoreCase, cb)
			if err != nil {
				return total, err
			}
			total += c
		}
	}
	return total, nil
}

func byteEq(a, b byte, ignoreCase bool) bool {
	if a == b {
		return true
	}
	if !ignoreCase {
		return false
	}
	return foldASCII(a) == foldASCII(b)
}

func foldASCII(b byte) byte {
	if b >= 'A' && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}

func commonPrefixLenFold(a, b []byte, ignoreCase bool) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && byteEq(a[i], b[i], ignoreCase) {
		i++
	}
	return i
}
