package btree

import (
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// Delete removes key from the tree, rebalancing underfull nodes by
// borrowing from a sibling or merging (spec.md §4.7).
func (t *Tree) Delete(key uint64) error {
	leaf, err := t.descendToLeaf(key)
	if err != nil {
		return err
	}

	pos := -1
	for i := 0; i < int(leaf.NumKeys); i++ {
		if leaf.Keys[i] == key {
			pos = i
			break
		}
	}
	if pos == -1 {
		return blkerr.ErrNotFound
	}

	for i := pos; i < int(leaf.NumKeys)-1; i++ {
		leaf.Keys[i] = leaf.Keys[i+1]
		leaf.Children[i] = leaf.Children[i+1]
	}
	leaf.NumKeys--

	return t.rebalanceAfterRemoval(leaf)
}

// sameParentSibling returns node's left (wantLeft) or right sibling, but
// only if it shares node's immediate parent — borrowing and merging never
// cross a parent boundary even though the sibling chain itself spans the
// whole level (spec.md §6).
func (t *Tree) sameParentSibling(node *Node, wantLeft bool) (*Node, bool, error) {
	var siblingBlock cache.BlockNumber
	if wantLeft {
		siblingBlock = node.LeftSibling
	} else {
		siblingBlock = node.RightSibling
	}
	if siblingBlock == 0 {
		return nil, false, nil
	}

	sibling, err := t.loadNode(siblingBlock)
	if err != nil {
		return nil, false, err
	}
	if sibling.Parent != node.Parent {
		return nil, false, nil
	}
	return sibling, true, nil
}

// rebalanceAfterRemoval restores the minimum-occupancy invariant for node
// after a key (or, during a merge cascade, an entire child) was removed
// from it, recursing upward as far as the changes propagate.
func (t *Tree) rebalanceAfterRemoval(node *Node) error {
	if node.IsRoot() {
		if !node.IsLeaf && node.NumKeys == 0 {
			return t.promoteRoot(node)
		}
		return t.saveNode(node)
	}

	if int(node.NumKeys) >= MinKeys {
		if err := t.saveNode(node); err != nil {
			return err
		}
		return t.reconcileAncestorKeys(node.BlockNumber)
	}

	if err := t.saveNode(node); err != nil {
		return err
	}

	parent, err := t.loadNode(node.Parent)
	if err != nil {
		return err
	}

	left, haveLeft, err := t.sameParentSibling(node, true)
	if err != nil {
		return err
	}
	if haveLeft && int(left.NumKeys) > MinKeys {
		if err := t.borrowFromLeft(node, left); err != nil {
			return err
		}
		if err := t.saveNode(node); err != nil {
			return err
		}
		if err := t.saveNode(left); err != nil {
			return err
		}
		return t.reconcileAncestorKeys(left.BlockNumber)
	}

	right, haveRight, err := t.sameParentSibling(node, false)
	if err != nil {
		return err
	}
	if haveRight && int(right.NumKeys) > MinKeys {
		if err := t.borrowFromRight(node, right); err != nil {
			return err
		}
		if err := t.saveNode(node); err != nil {
			return err
		}
		if err := t.saveNode(right); err != nil {
			return err
		}
		return t.reconcileAncestorKeys(node.BlockNumber)
	}

	if haveLeft {
		return t.mergeNodes(left, node, parent)
	}
	if haveRight {
		return t.mergeNodes(node, right, parent)
	}

	// An only child of its parent never underflows below what the parent
	// itself can absorb by promotion; reaching here means the tree shape is
	// inconsistent with spec.md §6's fanout bounds.
	return blkerr.ErrCorruptTree.WithMessage("underfull node has no same-parent sibling to rebalance with")
}

// borrowFromLeft moves left's rightmost entry into node's leftmost slot.
func (t *Tree) borrowFromLeft(node, left *Node) error {
	if node.IsLeaf {
		k := left.Keys[left.NumKeys-1]
		v := left.Children[left.NumKeys-1]
		left.NumKeys--

		for i := int(node.NumKeys); i > 0; i-- {
			node.Keys[i] = node.Keys[i-1]
			node.Children[i] = node.Children[i-1]
		}
		node.Keys[0] = k
		node.Children[0] = v
		node.NumKeys++
		return nil
	}

	borrowed := cache.BlockNumber(left.Children[left.NumKeys])
	left.NumKeys--

	for i := int(node.NumKeys) + 1; i > 0; i-- {
		node.Children[i] = node.Children[i-1]
	}
	node.Children[0] = uint64(borrowed)
	for i := int(node.NumKeys); i > 0; i-- {
		node.Keys[i] = node.Keys[i-1]
	}
	maxV, err := t.maxKeyOfSubtree(borrowed)
	if err != nil {
		return err
	}
	node.Keys[0] = maxV
	node.NumKeys++

	child, err := t.loadNode(borrowed)
	if err != nil {
		return err
	}
	child.Parent = node.BlockNumber
	return t.saveNode(child)
}

// borrowFromRight moves right's leftmost entry into node's rightmost slot.
func (t *Tree) borrowFromRight(node, right *Node) error {
	if node.IsLeaf {
		k := right.Keys[0]
		v := right.Children[0]
		for i := 0; i < int(right.NumKeys)-1; i++ {
			right.Keys[i] = right.Keys[i+1]
			right.Children[i] = right.Children[i+1]
		}
		right.NumKeys--

		node.Keys[node.NumKeys] = k
		node.Children[node.NumKeys] = v
		node.NumKeys++
		return nil
	}

	borrowed := cache.BlockNumber(right.Children[0])
	for i := 0; i < int(right.NumKeys)-1; i++ {
		right.Keys[i] = right.Keys[i+1]
	}
	for i := 0; i < int(right.NumKeys); i++ {
		right.Children[i] = right.Children[i+1]
	}
	right.NumKeys--

	oldRightmost := cache.BlockNumber(node.Children[node.NumKeys])
	boundKey, err := t.maxKeyOfSubtree(oldRightmost)
	if err != nil {
		return err
	}
	node.Keys[node.NumKeys] = boundKey
	node.Children[node.NumKeys+1] = uint64(borrowed)
	node.NumKeys++

	child, err := t.loadNode(borrowed)
	if err != nil {
		return err
	}
	child.Parent = node.BlockNumber
	return t.saveNode(child)
}

// mergeNodes concatenates right's entries into left (plus, for internal
// nodes, the separator key the parent held between them), frees right, and
// removes the separator entry from the parent, cascading the rebalance
// upward.
func (t *Tree) mergeNodes(left, right, parent *Node) error {
	idx, ok := childPositionIn(parent, left.BlockNumber)
	if !ok {
		return blkerr.ErrCorruptTree.WithMessage("merge target missing from parent's children")
	}

	var newKeys, newChildren []uint64
	if left.IsLeaf {
		newKeys = append(append([]uint64(nil), left.Keys[:left.NumKeys]...), right.Keys[:right.NumKeys]...)
		newChildren = append(append([]uint64(nil), left.Children[:left.NumKeys]...), right.Children[:right.NumKeys]...)
	} else {
		newKeys = append([]uint64(nil), left.Keys[:left.NumKeys]...)
		newKeys = append(newKeys, parent.Keys[idx])
		newKeys = append(newKeys, right.Keys[:right.NumKeys]...)
		newChildren = append(append([]uint64(nil), left.Children[:left.NumKeys+1]...), right.Children[:right.NumKeys+1]...)
	}

	oldRight := right.RightSibling
	writeBack(left, newKeys, newChildren)
	left.RightSibling = oldRight
	if oldRight != 0 {
		oldRightNode, err := t.loadNode(oldRight)
		if err != nil {
			return err
		}
		oldRightNode.LeftSibling = left.BlockNumber
		if err := t.saveNode(oldRightNode); err != nil {
			return err
		}
	}

	if !left.IsLeaf {
		if err := t.reparentChildren(left); err != nil {
			return err
		}
	}
	if err := t.saveNode(left); err != nil {
		return err
	}
	if err := t.freeNode(right); err != nil {
		return err
	}

	for i := idx; i < int(parent.NumKeys)-1; i++ {
		parent.Keys[i] = parent.Keys[i+1]
	}
	for i := idx + 1; i < int(parent.NumKeys); i++ {
		parent.Children[i] = parent.Children[i+1]
	}
	parent.NumKeys--

	return t.rebalanceAfterRemoval(parent)
}

// promoteRoot replaces an internal root that was reduced to a single child
// with that child's own contents, keeping the root's block number
// (spec.md §8, invariant 8).
func (t *Tree) promoteRoot(root *Node) error {
	childBlock := cache.BlockNumber(root.Children[0])
	child, err := t.loadNode(childBlock)
	if err != nil {
		return err
	}

	root.IsLeaf = child.IsLeaf
	root.NumKeys = child.NumKeys
	root.Keys = child.Keys
	root.Children = child.Children
	root.LeftSibling, root.RightSibling = 0, 0

	if !child.IsLeaf {
		if err := t.reparentChildren(root); err != nil {
			return err
		}
	}

	if err := t.freeNode(child); err != nil {
		return err
	}
	return t.saveNode(root)
}
