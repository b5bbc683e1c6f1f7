package cache

// HashmapSize is the fixed bucket count for the block-number-to-slot index,
// per spec.md §6 (`HASHMAP_SIZE = 32`).
const HashmapSize = 32

type hashNode struct {
	key  BlockNumber
	slot int
	next *hashNode
}

// HashIndex is a chained hash table mapping a block number to the index of
// the cache slot holding it. Callers must ensure lookup-miss before Insert;
// duplicate keys are never expected and are not checked for.
type HashIndex struct {
	buckets [HashmapSize]*hashNode
}

// NewHashIndex creates an empty HashIndex.
func NewHashIndex() *HashIndex {
	return &HashIndex{}
}

func bucketFor(key BlockNumber) int {
	return int(uint64(key) % HashmapSize)
}

// Lookup returns the slot index holding blockNum, or (0, false) if absent.
func (h *HashIndex) Lookup(blockNum BlockNumber) (int, bool) {
	for n := h.buckets[bucketFor(blockNum)]; n != nil; n = n.next {
		if n.key == blockNum {
			return n.slot, true
		}
	}
	return 0, false
}

// Insert prepends a new (blockNum -> slot) mapping to its bucket.
func (h *HashIndex) Insert(blockNum BlockNumber, slot int) {
	b := bucketFor(blockNum)
	h.buckets[b] = &hashNode{key: blockNum, slot: slot, next: h.buckets[b]}
}

// Delete removes the mapping for blockNum, if any.
func (h *HashIndex) Delete(blockNum BlockNumber) {
	b := bucketFor(blockNum)
	var prev *hashNode
	for n := h.buckets[b]; n != nil; n = n.next {
		if n.key == blockNum {
			if prev == nil {
				h.buckets[b] = n.next
			} else {
				prev.next = n.next
			}
			return
		}
		prev = n
	}
}

// Size returns the total number of entries across all buckets. Used by
// property tests to check invariant 3 in spec.md §8 (HashIndex size ==
// |LRUList|).
func (h *HashIndex) Size() int {
	total := 0
	for _, b := range h.buckets {
		for n := b; n != nil; n = n.next {
			total++
		}
	}
	return total
}
