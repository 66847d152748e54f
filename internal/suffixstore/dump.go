package suffixstore

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes a human-readable tree listing to w, one line per node/run,
// indented by depth — a debug aid grounded on the original indexer's
// `-s`/profiling output, not a persisted format.
func (e *Engine) Dump(w io.Writer) error {
	fmt.Fprintf(w, "files: %d, pool entries: %d\n", e.files.count(), e.pl.len())
	return e.dumpNode(w, e.root, 0)
}

func (e *Engine) dumpNode(w io.Writer, n *node, depth int) error {
	if n == nil {
		return nil
	}
	indent := strings.Repeat("  ", depth)
	if n.mlsSize > 1 {
		fmt.Fprintf(w, "%smls[%c-%c]\n", indent, n.firstByte, n.firstByte+n.mlsSize-1)
	} else {
		fmt.Fprintf(w, "%s%q matches=%v\n", indent, e.labelOf(n), n.matches[0])
	}
	for i := 0; i < n.slots(); i++ {
		child, err := e.resolveChild(n, i)
		if err != nil {
			return err
		}
		if child != nil {
			if n.mlsSize > 1 {
				fmt.Fprintf(w, "%s  slot %d matches=%v\n", indent, i, n.matches[i])
			}
			if err := e.dumpNode(w, child, depth+1); err != nil {
				return err
			}
		}
	}
	link, err := e.resolveLink(n)
	if err != nil {
		return err
	}
	return e.dumpNode(w, link, depth)
}
