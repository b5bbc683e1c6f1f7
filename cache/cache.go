// Package cache implements the block cache described in spec.md §4.6: a
// fixed-size array of slots bound together by a block-number-to-slot hash
// index, an LRU list driving write-back eviction, and per-inode dirty
// tracking so a single owner's blocks can be flushed without walking the
// whole cache.
package cache

import (
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/gjbauer/blocktree/blockdev"
	"github.com/gjbauer/blocktree/internal/blkerr"
	"github.com/gjbauer/blocktree/internal/intrusive"
)

// Device is the backing store the cache reads from and writes back to. A
// *blockdev.Device satisfies this.
type Device interface {
	Read(blockNum blockdev.BlockNumber, buf []byte) error
	Write(blockNum blockdev.BlockNumber, buf []byte) error
	TotalBlocks() uint64
}

// Cache is the block cache. It owns all slot buffers and every index
// structure (HashIndex, LRUList, FreeSlotList, DirtyIndex, global dirty
// list) exclusively; nothing outside this package ever touches them
// directly.
type Cache struct {
	device Device
	slots  []Slot

	hash        *HashIndex
	free        *intrusive.SList
	lru         *intrusive.DList
	globalDirty *intrusive.DList
	dirtyIdx    *DirtyIndex
}

// NewCache allocates a cache with room for numSlots blocks over device. This
// is spec.md's alloc_cache().
func NewCache(device Device, numSlots int) *Cache {
	slots := make([]Slot, numSlots)

	free := intrusive.NewSList(numSlots)
	for i := numSlots - 1; i >= 0; i-- {
		slots[i].data = make([]byte, blockdev.BlockSize)
		free.Push(i)
	}

	return &Cache{
		device:      device,
		slots:       slots,
		hash:        NewHashIndex(),
		free:        free,
		lru:         intrusive.NewDList(numSlots),
		globalDirty: intrusive.NewDList(numSlots),
		dirtyIdx:    NewDirtyIndex(),
	}
}

// FreeCache releases the cache's structures. Any unflushed dirty data is
// lost; callers that need durability must call SyncAll first. This is
// spec.md's free_cache().
func (c *Cache) FreeCache() {
	c.slots = nil
	c.hash = nil
	c.free = nil
	c.lru = nil
	c.globalDirty = nil
	c.dirtyIdx = nil
}

// SlotCount returns the total number of slots the cache was constructed
// with. |FreeSlotList| + |LRUList| must always equal this (spec.md §8,
// invariant 3).
func (c *Cache) SlotCount() int {
	return len(c.slots)
}

// FreeCount and ResidentCount expose the sizes of the free and LRU lists for
// the property tests in spec.md §8.
func (c *Cache) FreeCount() int     { return c.free.Len() }
func (c *Cache) ResidentCount() int { return c.lru.Len() }
func (c *Cache) HashSize() int      { return c.hash.Size() }

// Get returns the slot holding blockNum, loading it from the device on a
// miss (evicting a victim first if the cache is full). On a hit, the slot is
// moved to the LRU head. inode is the owner recorded for a freshly loaded
// slot; it has no effect on a hit (a resident slot keeps whatever owner it
// was loaded under, same as the source design: ownership is set once, at
// load time).
func (c *Cache) Get(inode InodeID, blockNum BlockNumber) (*Slot, error) {
	if slotIdx, ok := c.hash.Lookup(blockNum); ok {
		c.lru.MoveToFront(slotIdx)
		return &c.slots[slotIdx], nil
	}

	if c.free.Len() == 0 {
		if err := c.evictOne(); err != nil {
			return nil, err
		}
	}

	slotIdx, ok := c.free.Pop()
	if !ok {
		// evictOne succeeded but somehow freed nothing: a logic error, not a
		// condition callers can recover from.
		return nil, blkerr.ErrCacheFull
	}

	slot := &c.slots[slotIdx]
	if err := c.device.Read(blockNum, slot.data); err != nil {
		// Put the slot back on the free list; the miss never happened as far
		// as the cache's bookkeeping is concerned.
		c.free.Push(slotIdx)
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	slot.dirty = false
	slot.pinCount = 0
	slot.blockNumber = blockNum
	slot.owningInode = inode
	slot.resident = true

	c.hash.Insert(blockNum, slotIdx)
	c.lru.PushFront(slotIdx)

	return slot, nil
}

// Write loads blockNum if necessary, copies BlockSize bytes from buf into
// its slot, marks the slot dirty, and — only if the block's tag is DATA —
// records (inode, blockNum) in the per-inode dirty index.
func (c *Cache) Write(inode InodeID, blockNum BlockNumber, buf []byte) error {
	if len(buf) != blockdev.BlockSize {
		return blkerr.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"buffer must be exactly %d bytes, got %d", blockdev.BlockSize, len(buf)))
	}

	slot, err := c.Get(inode, blockNum)
	if err != nil {
		return err
	}

	slotIdx, ok := c.hash.Lookup(blockNum)
	if !ok {
		return blkerr.ErrCorruptTree.WithMessage("slot vanished between Get and Write")
	}

	copy(slot.data, buf)

	if !slot.dirty {
		slot.dirty = true
		c.globalDirty.PushFront(slotIdx)
	}

	if TagOf(slot.data) == BlockTypeData {
		c.dirtyIdx.Insert(inode, blockNum)
	}

	return nil
}

// Pin prevents slot from being chosen as an eviction victim until a matching
// Unpin. No caller in this package's own operations takes a pin today; it
// exists for the multithreaded extension in spec.md §5 and must still be
// honored by eviction.
func (c *Cache) Pin(slot *Slot) {
	slot.pinCount++
}

// Unpin releases one pin taken with Pin.
func (c *Cache) Unpin(slot *Slot) {
	if slot.pinCount > 0 {
		slot.pinCount--
	}
}

// evictOne finds the least-recently-used unpinned slot, writes it back if
// dirty, removes it from every index, and pushes it onto the free list. It
// returns ErrCacheFull if every resident slot is pinned.
func (c *Cache) evictOne() error {
	cur, ok := c.lru.Tail()
	for ok {
		slot := &c.slots[cur]
		if !slot.Pinned() {
			if err := c.writeBackAndEvict(cur, slot); err != nil {
				return err
			}
			return nil
		}
		cur, ok = c.lru.Prev(cur)
	}
	return blkerr.ErrCacheFull
}

func (c *Cache) writeBackAndEvict(slotIdx int, slot *Slot) error {
	if slot.dirty {
		if err := c.device.Write(slot.blockNumber, slot.data); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
		slot.dirty = false
		c.globalDirty.Remove(slotIdx)
		if TagOf(slot.data) == BlockTypeData {
			c.dirtyIdx.RemoveBlock(slot.owningInode, slot.blockNumber)
		}
	}

	c.hash.Delete(slot.blockNumber)
	c.lru.Remove(slotIdx)
	slot.resident = false
	c.free.Push(slotIdx)
	return nil
}

// Fsync writes back every block dirtied under inode, most recently recorded
// first (the order DirtyIndex.Lookup returns), and removes them from both
// dirty structures. It is idempotent:
// calling Fsync twice in a row with no intervening Write is equivalent to
// calling it once (spec.md §8, invariant 9).
func (c *Cache) Fsync(inode InodeID) error {
	blocks := c.dirtyIdx.Lookup(inode)

	var errs *multierror.Error
	for _, blockNum := range blocks {
		slotIdx, ok := c.hash.Lookup(blockNum)
		if !ok {
			errs = multierror.Append(errs, blkerr.ErrCorruptTree.WithMessage(fmt.Sprintf(
				"inode %d dirty block %d has no resident slot", inode, blockNum)))
			continue
		}

		slot := &c.slots[slotIdx]
		if err := c.device.Write(blockNum, slot.data); err != nil {
			errs = multierror.Append(errs, blkerr.ErrIOFailed.WrapError(err))
			continue
		}

		slot.dirty = false
		c.globalDirty.Remove(slotIdx)
		c.dirtyIdx.RemoveBlock(inode, blockNum)
	}

	return errs.ErrorOrNil()
}

// SyncAll writes back every dirty slot in the cache and clears both dirty
// structures. All slots dirty at entry are on disk at return (spec.md §8,
// invariant 2).
func (c *Cache) SyncAll() error {
	pending := c.globalDirty.ToSlice()

	var errs *multierror.Error
	for _, slotIdx := range pending {
		slot := &c.slots[slotIdx]
		if err := c.device.Write(slot.blockNumber, slot.data); err != nil {
			errs = multierror.Append(errs, blkerr.ErrIOFailed.WrapError(err))
			continue
		}

		slot.dirty = false
		c.globalDirty.Remove(slotIdx)
		if TagOf(slot.data) == BlockTypeData {
			c.dirtyIdx.RemoveBlock(slot.owningInode, slot.blockNumber)
		}
	}

	return errs.ErrorOrNil()
}
