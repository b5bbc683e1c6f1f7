package cache

// Slot is an in-memory record holding one block's worth of data plus the
// bookkeeping the cache needs to place it in the hash index, the LRU list,
// and the dirty lists. Slots live in a fixed-size array allocated once at
// cache construction (see NewCache); "handles" into the LRU list and global
// dirty list are just the slot's own index, per the intrusive-list design in
// spec.md §9.
type Slot struct {
	dirty       bool
	pinCount    int
	blockNumber BlockNumber
	owningInode InodeID
	data        []byte
	resident    bool // false while the slot sits on the free list
}

// Dirty reports whether the slot's buffer differs from the on-disk block.
func (s *Slot) Dirty() bool {
	return s.dirty
}

// Pinned reports whether the slot currently has at least one pin held
// against it, preventing eviction.
func (s *Slot) Pinned() bool {
	return s.pinCount > 0
}

// BlockNumber returns the block number currently resident in the slot.
func (s *Slot) BlockNumber() BlockNumber {
	return s.blockNumber
}

// Data returns the slot's buffer. Callers must not retain this slice past
// the next cache operation that could evict or reuse the slot; in a
// multithreaded build (spec.md §5) this is only safe to hold while pinned.
func (s *Slot) Data() []byte {
	return s.data
}
