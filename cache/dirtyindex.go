package cache

// dirtyBlockNode is one entry in a per-inode singly linked set of dirty
// block numbers.
type dirtyBlockNode struct {
	block BlockNumber
	next  *dirtyBlockNode
}

// DirtyIndex is a chained map from inode ID to the set of DATA block numbers
// dirtied under that inode. It exists so Fsync(inode) can find exactly the
// blocks it's responsible for without scanning the whole cache.
type DirtyIndex struct {
	byInode map[InodeID]*dirtyBlockNode
}

// NewDirtyIndex creates an empty DirtyIndex.
func NewDirtyIndex() *DirtyIndex {
	return &DirtyIndex{byInode: make(map[InodeID]*dirtyBlockNode)}
}

// Insert records blockNum as dirty under inode. Idempotent: inserting a
// block number already present for that inode is a no-op.
func (idx *DirtyIndex) Insert(inode InodeID, blockNum BlockNumber) {
	for n := idx.byInode[inode]; n != nil; n = n.next {
		if n.block == blockNum {
			return
		}
	}
	idx.byInode[inode] = &dirtyBlockNode{block: blockNum, next: idx.byInode[inode]}
}

// RemoveBlock removes blockNum from inode's dirty set, if present. When the
// set becomes empty the inode's entry is deleted entirely so Lookup/range
// never has to skip empty entries.
func (idx *DirtyIndex) RemoveBlock(inode InodeID, blockNum BlockNumber) {
	var prev *dirtyBlockNode
	for n := idx.byInode[inode]; n != nil; n = n.next {
		if n.block == blockNum {
			if prev == nil {
				idx.byInode[inode] = n.next
			} else {
				prev.next = n.next
			}
			if idx.byInode[inode] == nil {
				delete(idx.byInode, inode)
			}
			return
		}
		prev = n
	}
}

// Lookup returns the list of block numbers dirty under inode, or nil if
// there are none.
func (idx *DirtyIndex) Lookup(inode InodeID) []BlockNumber {
	var blocks []BlockNumber
	for n := idx.byInode[inode]; n != nil; n = n.next {
		blocks = append(blocks, n.block)
	}
	return blocks
}

// HasInode reports whether inode currently has any dirty blocks recorded.
func (idx *DirtyIndex) HasInode(inode InodeID) bool {
	return idx.byInode[inode] != nil
}
