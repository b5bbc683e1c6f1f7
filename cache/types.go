package cache

import "github.com/gjbauer/blocktree/blockdev"

// InodeID is an opaque 64-bit owner identifier used to group DATA blocks for
// per-owner Fsync. The cache does not interpret inode semantics beyond this
// grouping.
type InodeID uint64

// RootInode is the inode grouping used for B-tree metadata pages: BTREE_NODE
// blocks never enter the per-inode dirty index (see BlockType), so the exact
// inode value is cosmetic, but the B-tree always passes this constant for
// clarity when it calls Get/Write.
const RootInode InodeID = 0

// BlockType is the tag stored in the first byte of every block. Only DATA
// blocks participate in per-inode dirty tracking.
type BlockType byte

const (
	BlockTypeData BlockType = iota
	BlockTypeBTreeNode
	BlockTypeBitmap
	BlockTypeInode
	BlockTypeSuper
)

// TagOf decodes the block type tag from the first byte of buf. This is the
// canonical location chosen to resolve the open question in spec.md §9: the
// tag is compared by value, not by pointer, and always lives at byte 0.
func TagOf(buf []byte) BlockType {
	if len(buf) == 0 {
		return BlockTypeData
	}
	return BlockType(buf[0])
}

// SetTag writes the block type tag into the first byte of buf.
func SetTag(buf []byte, t BlockType) {
	if len(buf) > 0 {
		buf[0] = byte(t)
	}
}

// BlockNumber is re-exported from blockdev so callers of this package rarely
// need to import blockdev directly just to name a block.
type BlockNumber = blockdev.BlockNumber
