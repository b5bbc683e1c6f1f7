package btree

import (
	"github.com/gjbauer/blocktree/alloc"
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// Tree is a disk-resident B-tree. It names blocks by number and only ever
// reaches a node through the Cache; it holds no in-memory pointer graph
// between nodes (spec.md §9).
type Tree struct {
	c     *cache.Cache
	alloc *alloc.Allocator
	root  cache.BlockNumber
}

// Open attaches a Tree to an existing root block.
func Open(c *cache.Cache, a *alloc.Allocator, root cache.BlockNumber) *Tree {
	return &Tree{c: c, alloc: a, root: root}
}

// Create allocates a fresh root block (an empty leaf) and returns a Tree
// rooted there.
func Create(c *cache.Cache, a *alloc.Allocator) (*Tree, error) {
	rootBlock, err := a.Alloc(c)
	if err != nil {
		return nil, err
	}

	root := &Node{BlockNumber: rootBlock, IsLeaf: true}
	t := &Tree{c: c, alloc: a, root: rootBlock}
	if err := t.saveNode(root); err != nil {
		return nil, err
	}

	return t, nil
}

// Root returns the tree's root block number. It never changes identity
// across any sequence of insertions or deletions (spec.md §4.7, §8
// invariant 8).
func (t *Tree) Root() cache.BlockNumber {
	return t.root
}

func (t *Tree) loadNode(blockNum cache.BlockNumber) (*Node, error) {
	slot, err := t.c.Get(cache.RootInode, blockNum)
	if err != nil {
		return nil, err
	}
	return decode(slot.Data())
}

func (t *Tree) saveNode(n *Node) error {
	slot, err := t.c.Get(cache.RootInode, n.BlockNumber)
	if err != nil {
		return err
	}
	cache.SetTag(slot.Data(), cache.BlockTypeBTreeNode)
	if err := encode(n, slot.Data()); err != nil {
		return err
	}
	return t.c.Write(cache.RootInode, n.BlockNumber, slot.Data())
}

func (t *Tree) freeNode(n *Node) error {
	return t.alloc.Free(t.c, n.BlockNumber)
}

// childIndexFor implements the shared descent rule from spec.md §4.7: the
// smallest i such that key <= keys[i]; if none, the rightmost child.
func childIndexFor(n *Node, key uint64) int {
	for i := 0; i < int(n.NumKeys); i++ {
		if key <= n.Keys[i] {
			return i
		}
	}
	return int(n.NumKeys)
}

// childPositionIn returns the index of block within parent.Children, if
// present.
func childPositionIn(parent *Node, block cache.BlockNumber) (int, bool) {
	for i := 0; i <= int(parent.NumKeys); i++ {
		if cache.BlockNumber(parent.Children[i]) == block {
			return i, true
		}
	}
	return 0, false
}

// maxKeyOfSubtree returns the largest key stored anywhere under blockNum, by
// following rightmost children down to a leaf.
func (t *Tree) maxKeyOfSubtree(blockNum cache.BlockNumber) (uint64, error) {
	node, err := t.loadNode(blockNum)
	if err != nil {
		return 0, err
	}
	if node.NumKeys == 0 {
		if node.IsLeaf {
			return 0, blkerr.ErrCorruptTree.WithMessage("empty leaf has no maximum key")
		}
		// An internal node with zero keys has exactly one child (the
		// promote_root case mid-flight); its maximum is that child's.
		return t.maxKeyOfSubtree(cache.BlockNumber(node.Children[0]))
	}
	if node.IsLeaf {
		return node.Keys[node.NumKeys-1], nil
	}
	return t.maxKeyOfSubtree(cache.BlockNumber(node.Children[node.NumKeys]))
}

// descendToLeaf walks from the root to the leaf that would hold key, using
// the shared descent rule.
func (t *Tree) descendToLeaf(key uint64) (*Node, error) {
	node, err := t.loadNode(t.root)
	if err != nil {
		return nil, err
	}

	for !node.IsLeaf {
		i := childIndexFor(node, key)
		childBlock := cache.BlockNumber(node.Children[i])
		node, err = t.loadNode(childBlock)
		if err != nil {
			return nil, err
		}
	}
	return node, nil
}

// Search descends from the root and returns the value associated with key,
// or ErrNotFound.
func (t *Tree) Search(key uint64) (uint64, error) {
	leaf, err := t.descendToLeaf(key)
	if err != nil {
		return 0, err
	}

	for i := 0; i < int(leaf.NumKeys); i++ {
		if leaf.Keys[i] == key {
			return leaf.Value(i), nil
		}
	}
	return 0, blkerr.ErrNotFound
}
