package btree

import (
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// expanded is a node's keys and children spread into ordinary slices so a
// pending insertion can push it one entry past MaxKeys before the split
// point is decided. It never touches disk on its own.
type expanded struct {
	isLeaf   bool
	keys     []uint64
	children []uint64
}

func expandNode(n *Node) *expanded {
	e := &expanded{isLeaf: n.IsLeaf}
	e.keys = append([]uint64(nil), n.Keys[:n.NumKeys]...)
	if n.IsLeaf {
		e.children = append([]uint64(nil), n.Children[:n.NumKeys]...)
	} else {
		e.children = append([]uint64(nil), n.Children[:n.NumKeys+1]...)
	}
	return e
}

// insertSeparator inserts key at position pos (shifting later keys right)
// and child at position pos+1 (shifting later children right). It is only
// meaningful for internal nodes: a freshly split child's separator and new
// sibling pointer always enter the parent this way.
func (e *expanded) insertSeparator(pos int, key uint64, child cache.BlockNumber) {
	e.keys = append(e.keys, 0)
	copy(e.keys[pos+1:], e.keys[pos:len(e.keys)-1])
	e.keys[pos] = key

	e.children = append(e.children, 0)
	copy(e.children[pos+2:], e.children[pos+1:len(e.children)-1])
	e.children[pos+1] = uint64(child)
}

func (e *expanded) overflow() bool {
	return len(e.keys) > MaxKeys
}

// blockReserve is a pool of block numbers reserved from the allocator before
// a split cascade begins mutating anything, so an allocator exhausted partway
// through a multi-level split aborts cleanly instead of leaving a
// newly-populated sibling unlinked from its parent (spec.md §7: "implementations
// reserve required blocks before modifying structure"). take() hands out
// reserved blocks in the order the cascade consumes them; release() frees
// whatever is left unconsumed (normally nothing, since reservation is sized
// exactly to the cascade it guards).
type blockReserve struct {
	t      *Tree
	blocks []cache.BlockNumber
}

func (t *Tree) reserveBlocks(n int) (*blockReserve, error) {
	r := &blockReserve{t: t, blocks: make([]cache.BlockNumber, 0, n)}
	for i := 0; i < n; i++ {
		b, err := t.alloc.Alloc(t.c)
		if err != nil {
			r.release()
			return nil, err
		}
		r.blocks = append(r.blocks, b)
	}
	return r, nil
}

func (r *blockReserve) take() cache.BlockNumber {
	b := r.blocks[0]
	r.blocks = r.blocks[1:]
	return b
}

func (r *blockReserve) release() {
	for _, b := range r.blocks {
		r.t.alloc.Free(r.t.c, b)
	}
	r.blocks = nil
}

func newSplitNode(blockNum cache.BlockNumber, isLeaf bool) *Node {
	return &Node{BlockNumber: blockNum, IsLeaf: isLeaf}
}

// reserveForInsertSplit walks from leaf up toward the root, following the
// same overflow test the cascade itself uses (a node only splits if it is
// already Full), and counts exactly how many new blocks that cascade will
// need: one sibling per non-root split, or two fresh children for a root
// split, which always terminates the walk.
func (t *Tree) reserveForInsertSplit(leaf *Node) (*blockReserve, error) {
	needed := 0
	node := leaf
	for {
		if node.IsRoot() {
			if node.Full() {
				needed += 2
			}
			break
		}
		if !node.Full() {
			break
		}
		needed++

		parent, err := t.loadNode(node.Parent)
		if err != nil {
			return nil, err
		}
		node = parent
	}
	return t.reserveBlocks(needed)
}

// writeBack copies keys/children (which must fit) back into n's fixed
// arrays and sets NumKeys.
func writeBack(n *Node, keys, children []uint64) {
	n.NumKeys = uint16(len(keys))
	for i := range n.Keys {
		n.Keys[i] = 0
	}
	for i := range n.Children {
		n.Children[i] = 0
	}
	copy(n.Keys[:], keys)
	copy(n.Children[:], children)
}

// insertIntoLeafSorted inserts (key, value) into leaf at its sorted
// position. leaf must not be full.
func insertIntoLeafSorted(leaf *Node, key, value uint64) {
	pos := 0
	for pos < int(leaf.NumKeys) && leaf.Keys[pos] < key {
		pos++
	}
	for i := int(leaf.NumKeys); i > pos; i-- {
		leaf.Keys[i] = leaf.Keys[i-1]
		leaf.Children[i] = leaf.Children[i-1]
	}
	leaf.Keys[pos] = key
	leaf.Children[pos] = value
	leaf.NumKeys++
}

// Insert adds (key, value) to the tree. If the target leaf is full it is
// split first, the split cascading upward through full ancestors, and the
// descent is then retried (spec.md §4.7).
func (t *Tree) Insert(key, value uint64) error {
	leaf, err := t.descendToLeaf(key)
	if err != nil {
		return err
	}

	if !leaf.Full() {
		insertIntoLeafSorted(leaf, key, value)
		if err := t.saveNode(leaf); err != nil {
			return err
		}
		return t.reconcileAncestorKeys(leaf.BlockNumber)
	}

	reserve, err := t.reserveForInsertSplit(leaf)
	if err != nil {
		return err
	}

	if leaf.IsRoot() {
		err = t.splitRoot(leaf, reserve)
	} else {
		err = t.splitLeafChild(leaf, reserve)
	}
	reserve.release()
	if err != nil {
		return err
	}

	// The leaf that was full no longer is (or no longer exists, having been
	// replaced by the post-split tree shape); redo the descent and insert.
	return t.Insert(key, value)
}

// splitRoot handles a full root with no parent: it distributes the root's
// current entries into two brand-new children and rewrites the root in
// place as a single-key internal node (spec.md §4.7).
func (t *Tree) splitRoot(root *Node, reserve *blockReserve) error {
	e := expandNode(root)
	return t.splitRootFromExpanded(root, e, reserve)
}

func (t *Tree) splitRootFromExpanded(root *Node, e *expanded, reserve *blockReserve) error {
	leftCount := MinKeys
	aKeys, bKeys := e.keys[:leftCount], e.keys[leftCount:]

	var aChildren, bChildren []uint64
	if e.isLeaf {
		aChildren, bChildren = e.children[:leftCount], e.children[leftCount:]
	} else {
		// keys[leftCount] bounds childA's rightmost child; it becomes the
		// root's separator (maxA below), not a key of childB.
		bKeys = e.keys[leftCount+1:]
		aChildren, bChildren = e.children[:leftCount+1], e.children[leftCount+1:]
	}

	childA := newSplitNode(reserve.take(), e.isLeaf)
	childB := newSplitNode(reserve.take(), e.isLeaf)

	writeBack(childA, aKeys, aChildren)
	writeBack(childB, bKeys, bChildren)
	childA.Parent, childB.Parent = root.BlockNumber, root.BlockNumber
	childA.LeftSibling, childA.RightSibling = 0, childB.BlockNumber
	childB.LeftSibling, childB.RightSibling = childA.BlockNumber, 0

	if !e.isLeaf {
		if err := t.reparentChildren(childA); err != nil {
			return err
		}
		if err := t.reparentChildren(childB); err != nil {
			return err
		}
	}

	if err := t.saveNode(childA); err != nil {
		return err
	}
	if err := t.saveNode(childB); err != nil {
		return err
	}

	maxA, err := t.maxKeyOfSubtree(childA.BlockNumber)
	if err != nil {
		return err
	}

	root.IsLeaf = false
	root.NumKeys = 1
	for i := range root.Keys {
		root.Keys[i] = 0
	}
	for i := range root.Children {
		root.Children[i] = 0
	}
	root.Keys[0] = maxA
	root.Children[0] = uint64(childA.BlockNumber)
	root.Children[1] = uint64(childB.BlockNumber)
	root.LeftSibling, root.RightSibling = 0, 0

	return t.saveNode(root)
}

// reparentChildren loads every child of n and sets its Parent to n's block
// number. Used after a split moves a run of children to a new node.
func (t *Tree) reparentChildren(n *Node) error {
	for i := 0; i <= int(n.NumKeys); i++ {
		child, err := t.loadNode(cache.BlockNumber(n.Children[i]))
		if err != nil {
			return err
		}
		child.Parent = n.BlockNumber
		if err := t.saveNode(child); err != nil {
			return err
		}
	}
	return nil
}

// splitLeafChild splits a full, non-root leaf: a new sibling is allocated,
// the upper half of the leaf's entries move to it, and the separator is
// inserted into the parent (cascading further splits upward if needed).
func (t *Tree) splitLeafChild(leaf *Node, reserve *blockReserve) error {
	e := expandNode(leaf)
	leftCount := MinKeys + 1
	leftKeys, rightKeys := e.keys[:leftCount], e.keys[leftCount:]
	leftChildren, rightChildren := e.children[:leftCount], e.children[leftCount:]

	sibling := newSplitNode(reserve.take(), true)
	oldRight := leaf.RightSibling

	writeBack(leaf, leftKeys, leftChildren)
	leaf.RightSibling = sibling.BlockNumber

	writeBack(sibling, rightKeys, rightChildren)
	sibling.LeftSibling = leaf.BlockNumber
	sibling.RightSibling = oldRight
	sibling.Parent = leaf.Parent

	if oldRight != 0 {
		oldRightNode, err := t.loadNode(oldRight)
		if err != nil {
			return err
		}
		oldRightNode.LeftSibling = sibling.BlockNumber
		if err := t.saveNode(oldRightNode); err != nil {
			return err
		}
	}

	if err := t.saveNode(leaf); err != nil {
		return err
	}
	if err := t.saveNode(sibling); err != nil {
		return err
	}

	separator := leftKeys[len(leftKeys)-1]

	parent, err := t.loadNode(leaf.Parent)
	if err != nil {
		return err
	}
	idx, ok := childPositionIn(parent, leaf.BlockNumber)
	if !ok {
		return blkerr.ErrCorruptTree.WithMessage("split leaf missing from parent's children")
	}

	return t.insertSeparatorAt(parent, idx, separator, sibling.BlockNumber, reserve)
}

// insertSeparatorAt inserts (key, newChild) into node at the position
// following node.Children[idx], splitting node (and cascading upward, via
// splitRootFromExpanded or splitInternalFromExpanded) if it overflows.
func (t *Tree) insertSeparatorAt(node *Node, idx int, key uint64, newChild cache.BlockNumber, reserve *blockReserve) error {
	e := expandNode(node)
	e.insertSeparator(idx, key, newChild)

	if !e.overflow() {
		writeBack(node, e.keys, e.children)
		if err := t.saveNode(node); err != nil {
			return err
		}
		return t.reconcileAncestorKeys(node.BlockNumber)
	}

	if node.IsRoot() {
		return t.splitRootFromExpanded(node, e, reserve)
	}
	return t.splitInternalFromExpanded(node, e, reserve)
}

// splitInternalFromExpanded splits an overflowing internal node: the node
// keeps its own block number for the left half, a new sibling takes the
// right half, and the separator propagates into the grandparent.
func (t *Tree) splitInternalFromExpanded(node *Node, e *expanded, reserve *blockReserve) error {
	leftCount := MinKeys + 1
	leftKeys, rightKeys := e.keys[:leftCount], e.keys[leftCount:]

	var leftChildren, rightChildren []uint64
	if e.isLeaf {
		leftChildren, rightChildren = e.children[:leftCount], e.children[leftCount:]
	} else {
		// keys[leftCount] bounds the left half's rightmost child; it moves up
		// as the separator, not into the sibling.
		rightKeys = e.keys[leftCount+1:]
		leftChildren, rightChildren = e.children[:leftCount+1], e.children[leftCount+1:]
	}

	sibling := newSplitNode(reserve.take(), e.isLeaf)
	oldRight := node.RightSibling

	writeBack(node, leftKeys, leftChildren)
	node.RightSibling = sibling.BlockNumber

	writeBack(sibling, rightKeys, rightChildren)
	sibling.LeftSibling = node.BlockNumber
	sibling.RightSibling = oldRight
	sibling.Parent = node.Parent

	if !e.isLeaf {
		if err := t.reparentChildren(sibling); err != nil {
			return err
		}
	}

	if oldRight != 0 {
		oldRightNode, err := t.loadNode(oldRight)
		if err != nil {
			return err
		}
		oldRightNode.LeftSibling = sibling.BlockNumber
		if err := t.saveNode(oldRightNode); err != nil {
			return err
		}
	}

	if err := t.saveNode(node); err != nil {
		return err
	}
	if err := t.saveNode(sibling); err != nil {
		return err
	}

	separator, err := t.maxKeyOfSubtree(node.BlockNumber)
	if err != nil {
		return err
	}

	parent, err := t.loadNode(node.Parent)
	if err != nil {
		return err
	}
	idx, ok := childPositionIn(parent, node.BlockNumber)
	if !ok {
		return blkerr.ErrCorruptTree.WithMessage("split node missing from parent's children")
	}

	return t.insertSeparatorAt(parent, idx, separator, sibling.BlockNumber, reserve)
}

// reconcileAncestorKeys walks from start up to the root, refreshing every
// ancestor's separator key to the true maximum of the subtree it bounds.
// Plain inserts that grow a leaf's maximum, and splits that change a node's
// own maximum without propagating a new separator, both rely on this to
// keep every ancestor's keys consistent (spec.md §8, invariant 5).
func (t *Tree) reconcileAncestorKeys(start cache.BlockNumber) error {
	current := start
	for {
		node, err := t.loadNode(current)
		if err != nil {
			return err
		}
		if node.IsRoot() {
			return nil
		}

		parent, err := t.loadNode(node.Parent)
		if err != nil {
			return err
		}
		idx, ok := childPositionIn(parent, current)
		if !ok {
			return blkerr.ErrCorruptTree.WithMessage("node missing from its recorded parent's children")
		}

		if idx < int(parent.NumKeys) {
			maxV, err := t.maxKeyOfSubtree(current)
			if err != nil {
				return err
			}
			if parent.Keys[idx] != maxV {
				parent.Keys[idx] = maxV
				if err := t.saveNode(parent); err != nil {
					return err
				}
			}
		}

		current = parent.BlockNumber
	}
}
