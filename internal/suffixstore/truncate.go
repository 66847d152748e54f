package suffixstore

import (
	"context"
	"os"
)

// TruncateOne removes every reference to path.
func (e *Engine) TruncateOne(ctx context.Context, path string) error {
	return e.TruncateMultiple(ctx, []string{path})
}

// TruncateMultiple removes all references to the given paths in one
// sweep: every matching file index is stripped from every node's matches,
// the file table is compacted by swap-with-last, and any node left
// without children, matches, or MLS membership is unlinked and freed.
func (e *Engine) TruncateMultiple(ctx context.Context, paths []string) error {
	if !e.writable {
		return usageErr("truncate", nil)
	}
	if len(paths) == 0 {
		return nil
	}

	dead := map[uint32]bool{}
	for _, p := range paths {
		if i, ok := e.files.lookup(p); ok {
			dead[uint32(i)] = true
		}
	}
	if len(dead) == 0 {
		return nil
	}

	if err := e.stripMatches(e.root, dead); err != nil {
		return err
	}

	// Compact the file table; each removal can move the tail into the
	// freed slot, so every remaining reference to that moved index must be
	// rewritten before the next removal picks a new tail.
	sortedDead := make([]int, 0, len(dead))
	for i := range dead {
		sortedDead = append(sortedDead, int(i))
	}
	sortDescending(sortedDead)
	for _, idx := range sortedDead {
		res := e.files.remove(idx)
		if res.movedFrom >= 0 {
			if err := e.remapAll(e.root, uint32(res.movedFrom), uint32(res.movedTo)); err != nil {
				return err
			}
		}
	}

	if err := e.pruneEmpty(e.root); err != nil {
		return err
	}

	return e.afterMutation([]*node{e.root})
}

// TruncateDeleted removes files that no longer exist or are no longer
// regular files, per an external stat-capable collaborator.
func (e *Engine) TruncateDeleted(ctx context.Context) error {
	var gone []string
	for i := 0; i < e.files.count(); i++ {
		fe, _ := e.files.at(i)
		fi, err := os.Stat(fe.path)
		if err != nil || !fi.Mode().IsRegular() {
			gone = append(gone, fe.path)
		}
	}
	if len(gone) == 0 {
		return nil
	}
	return e.TruncateMultiple(ctx, gone)
}

// TruncateModified removes files whose on-disk mtime differs from the
// stored one.
func (e *Engine) TruncateModified(ctx context.Context) error {
	var changed []string
	for i := 0; i < e.files.count(); i++ {
		fe, _ := e.files.at(i)
		fi, err := os.Stat(fe.path)
		if err != nil {
			continue
		}
		if uint32(fi.ModTime().Unix()) != fe.mtime {
			changed = append(changed, fe.path)
		}
	}
	if len(changed) == 0 {
		return nil
	}
	return e.TruncateMultiple(ctx, changed)
}

func (e *Engine) stripMatches(n *node, dead map[uint32]bool) error {
	if n == nil {
		return nil
	}
	for i := 0; i < n.slots(); i++ {
		before := len(n.matches[i])
		n.matches[i] = removeMatches(n.matches[i], dead)
		if len(n.matches[i]) != before {
			n.slotModified[i] = true
		}
		child, err := e.resolveChild(n, i)
		if err != nil {
			return err
		}
		if err := e.stripMatches(child, dead); err != nil {
			return err
		}
	}
	link, err := e.resolveLink(n)
	if err != nil {
		return err
	}
	return e.stripMatches(link, dead)
}

func (e *Engine) remapAll(n *node, from, to uint32) error {
	if n == nil {
		return nil
	}
	for i := 0; i < n.slots(); i++ {
		remapMatches(n.matches[i], from, to)
		child, err := e.resolveChild(n, i)
		if err != nil {
			return err
		}
		if err := e.remapAll(child, from, to); err != nil {
			return err
		}
	}
	link, err := e.resolveLink(n)
	if err != nil {
		return err
	}
	return e.remapAll(link, from, to)
}

// pruneEmpty removes child/link edges that point at nodes which are now
// empty, have no child, and aren't carrying MLS membership (size 1 runs
// only — empty slots embedded inside a larger run are left as
// placeholders, per §4.8).
func (e *Engine) pruneEmpty(n *node) error {
	if n == nil {
		return nil
	}
	for i := 0; i < n.slots(); i++ {
		child, err := e.resolveChild(n, i)
		if err != nil {
			return err
		}
		if child == nil {
			continue
		}
		if err := e.pruneEmpty(child); err != nil {
			return err
		}
		if child.mlsSize == 1 && child.allSlotsEmpty() {
			link, err := e.resolveLink(child)
			if err != nil {
				return err
			}
			n.child[i] = link
			n.childOff[i] = 0
			n.slotModified[i] = true
		}
	}
	link, err := e.resolveLink(n)
	if err != nil {
		return err
	}
	if link != nil {
		if err := e.pruneEmpty(link); err != nil {
			return err
		}
		if link.mlsSize == 1 && link.allSlotsEmpty() {
			next, err := e.resolveLink(link)
			if err != nil {
				return err
			}
			n.link = next
			n.linkOff = 0
		}
	}
	return nil
}

func sortDescending(s []int) {
	for i := 1; i < len(s); i++ {
		v := s[i]
		j := i - 1
		for j >= 0 && s[j] < v {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = v
	}
}
