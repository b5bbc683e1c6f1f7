// Package alloc implements the first-fit block allocator backed by the
// allocation bitmap stored in block 0. All mutation of the bitmap goes
// through the Cache like any other block, so allocation and free both mark
// block 0 dirty the ordinary way (spec.md §4.3).
package alloc

import (
	"github.com/gjbauer/blocktree/bitmap"
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// BitmapBlockNumber is the reserved block holding the allocation bitmap.
const BitmapBlockNumber cache.BlockNumber = 0

// Allocator is a first-fit bitmap allocator over [0, totalBlocks).
type Allocator struct {
	totalBlocks uint64
}

// NewAllocator creates an Allocator for a device of totalBlocks blocks.
func NewAllocator(totalBlocks uint64) *Allocator {
	return &Allocator{totalBlocks: totalBlocks}
}

// bitmapView returns a Bitmap over block 0's payload region. Byte 0 of every
// block is reserved for the cache's block-type tag (spec.md §9's resolution
// of the tag-location open question), so the allocation bitmap's bit i lives
// at bit i of the block starting from byte 1, not byte 0.
func bitmapView(slot *cache.Slot, totalBlocks uint64) *bitmap.Bitmap {
	return bitmap.FromBytes(slot.Data()[1:], int(totalBlocks))
}

// ReservedBlocks is the count of low block numbers spec.md §6 carves out
// before any tree node or data block may be allocated: block 0 (the
// allocation bitmap itself), block 1 (superblock), and block 2 (inode
// bitmap). Format marks all three allocated so the first real Alloc always
// returns block 3, giving the B-tree a predictable root block number across
// a format/reopen cycle without needing a superblock reader.
const ReservedBlocks = 3

// Format initializes a fresh allocation bitmap: every bit clear except the
// reserved low blocks (spec.md §6), which come back marked allocated.
func (a *Allocator) Format(c *cache.Cache) error {
	slot, err := c.Get(cache.RootInode, BitmapBlockNumber)
	if err != nil {
		return err
	}

	cache.SetTag(slot.Data(), cache.BlockTypeBitmap)
	bm := bitmapView(slot, a.totalBlocks)
	for i := 0; i < int(a.totalBlocks); i++ {
		bm.Clear(i)
	}

	reserved := ReservedBlocks
	if uint64(reserved) > a.totalBlocks {
		reserved = int(a.totalBlocks)
	}
	for i := 0; i < reserved; i++ {
		bm.Put(i, 1)
	}

	return c.Write(cache.RootInode, BitmapBlockNumber, slot.Data())
}

// Alloc scans the allocation bitmap left to right for the first clear bit in
// [0, totalBlocks), sets it, marks block 0 dirty, and returns the index. It
// returns ErrNoSpace if no free bit exists. Tie-breaks are strict first-fit.
func (a *Allocator) Alloc(c *cache.Cache) (cache.BlockNumber, error) {
	slot, err := c.Get(cache.RootInode, BitmapBlockNumber)
	if err != nil {
		return 0, err
	}

	bm := bitmapView(slot, a.totalBlocks)
	for i := 0; i < int(a.totalBlocks); i++ {
		if bm.Get(i) == 0 {
			bm.Put(i, 1)
			if err := c.Write(cache.RootInode, BitmapBlockNumber, slot.Data()); err != nil {
				return 0, err
			}
			return cache.BlockNumber(i), nil
		}
	}

	return 0, blkerr.ErrNoSpace
}

// Free clears the bit for blockNum and marks block 0 dirty.
func (a *Allocator) Free(c *cache.Cache, blockNum cache.BlockNumber) error {
	if uint64(blockNum) >= a.totalBlocks {
		return blkerr.ErrInvalidArgument
	}

	slot, err := c.Get(cache.RootInode, BitmapBlockNumber)
	if err != nil {
		return err
	}

	bm := bitmapView(slot, a.totalBlocks)
	bm.Clear(int(blockNum))

	return c.Write(cache.RootInode, BitmapBlockNumber, slot.Data())
}

// IsAllocated reports whether blockNum is currently marked allocated.
func (a *Allocator) IsAllocated(c *cache.Cache, blockNum cache.BlockNumber) (bool, error) {
	slot, err := c.Get(cache.RootInode, BitmapBlockNumber)
	if err != nil {
		return false, err
	}

	bm := bitmapView(slot, a.totalBlocks)
	return bm.Get(int(blockNum)) != 0, nil
}
