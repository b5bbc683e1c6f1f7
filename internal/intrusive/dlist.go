// Package intrusive implements arena-style linked lists over dense integer
// indices (cache slot indices) instead of heap-allocated nodes. The cache's
// LRU list and global dirty list both need O(1) removal of an arbitrary,
// already-known node; storing the list linkage in parallel index arrays and
// handing back the slot index itself as the "handle" gives that without a
// separate node allocator. See spec.md's B-tree/cache design notes on
// intrusive doubly linked lists with handles.
package intrusive

const none = -1

// DList is an intrusive doubly linked list over slot indices in
// [0, capacity). A slot is a member of at most one DList at a time from the
// caller's perspective (the cache never puts the same slot in two lists).
type DList struct {
	prev, next []int
	member     []bool
	head, tail int
	size       int
}

// NewDList creates a DList capable of holding indices in [0, capacity).
func NewDList(capacity int) *DList {
	d := &DList{
		prev:   make([]int, capacity),
		next:   make([]int, capacity),
		member: make([]bool, capacity),
		head:   none,
		tail:   none,
	}
	for i := range d.prev {
		d.prev[i] = none
		d.next[i] = none
	}
	return d
}

// Len returns the number of elements currently in the list.
func (d *DList) Len() int {
	return d.size
}

// Contains reports whether index i is currently linked into the list.
func (d *DList) Contains(i int) bool {
	return d.member[i]
}

// PushFront inserts i at the head (most recently used end). i must not
// already be a member of the list.
func (d *DList) PushFront(i int) {
	d.prev[i] = none
	d.next[i] = d.head
	if d.head != none {
		d.prev[d.head] = i
	}
	d.head = i
	if d.tail == none {
		d.tail = i
	}
	d.member[i] = true
	d.size++
}

// Remove unlinks i from the list in O(1). It is a no-op if i is not a
// member.
func (d *DList) Remove(i int) {
	if !d.member[i] {
		return
	}

	p, n := d.prev[i], d.next[i]
	if p != none {
		d.next[p] = n
	} else {
		d.head = n
	}
	if n != none {
		d.prev[n] = p
	} else {
		d.tail = p
	}

	d.prev[i] = none
	d.next[i] = none
	d.member[i] = false
	d.size--
}

// MoveToFront removes i (if present) and reinserts it at the head. This is
// how the cache implements "touch on access" for its LRU list.
func (d *DList) MoveToFront(i int) {
	d.Remove(i)
	d.PushFront(i)
}

// PopBack removes and returns the tail (least recently used) element. ok is
// false if the list is empty.
func (d *DList) PopBack() (index int, ok bool) {
	if d.tail == none {
		return 0, false
	}
	tail := d.tail
	d.Remove(tail)
	return tail, true
}

// Tail returns the tail element without removing it.
func (d *DList) Tail() (index int, ok bool) {
	if d.tail == none {
		return 0, false
	}
	return d.tail, true
}

// Prev returns the element preceding i in the list (towards the head),
// without removing anything. Used by the cache's eviction scan to walk past
// pinned slots without disturbing list order.
func (d *DList) Prev(i int) (index int, ok bool) {
	p := d.prev[i]
	if p == none {
		return 0, false
	}
	return p, true
}

// ToSlice returns the elements from head to tail. Used when the caller needs
// a stable snapshot to iterate while mutating the list (e.g. SyncAll).
func (d *DList) ToSlice() []int {
	out := make([]int, 0, d.size)
	for i := d.head; i != none; i = d.next[i] {
		out = append(out, i)
	}
	return out
}
