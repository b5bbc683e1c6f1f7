package btree

import (
	"fmt"
	"strings"

	"github.com/gjbauer/blocktree/cache"
)

// Print renders a breadth-first dump of the tree, one level per line, for
// the CLI's `print` verb and for debugging test failures.
func (t *Tree) Print() (string, error) {
	var b strings.Builder

	level := []cache.BlockNumber{t.root}
	depth := 0
	for len(level) > 0 {
		fmt.Fprintf(&b, "level %d:", depth)

		var next []cache.BlockNumber
		for _, blockNum := range level {
			node, err := t.loadNode(blockNum)
			if err != nil {
				return "", err
			}

			if node.IsLeaf {
				fmt.Fprintf(&b, " [leaf#%d keys=%v]", blockNum, node.Keys[:node.NumKeys])
			} else {
				fmt.Fprintf(&b, " [node#%d keys=%v]", blockNum, node.Keys[:node.NumKeys])
				for i := 0; i <= int(node.NumKeys); i++ {
					next = append(next, cache.BlockNumber(node.Children[i]))
				}
			}
		}

		b.WriteByte('\n')
		level = next
		depth++
	}

	return b.String(), nil
}
