package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashIndexInsertLookupDelete(t *testing.T) {
	h := NewHashIndex()
	h.Insert(5, 2)
	h.Insert(37, 9) // collides with 5 in a 32-bucket table (37 % 32 == 5)

	slot, ok := h.Lookup(5)
	assert.True(t, ok)
	assert.Equal(t, 2, slot)

	slot, ok = h.Lookup(37)
	assert.True(t, ok)
	assert.Equal(t, 9, slot)

	assert.Equal(t, 2, h.Size())

	h.Delete(5)
	_, ok = h.Lookup(5)
	assert.False(t, ok)
	assert.Equal(t, 1, h.Size())
}

func TestDirtyIndexTracksPerInode(t *testing.T) {
	idx := NewDirtyIndex()
	idx.Insert(1, 10)
	idx.Insert(1, 11)
	idx.Insert(2, 20)

	assert.ElementsMatch(t, []BlockNumber{10, 11}, idx.Lookup(1))
	assert.True(t, idx.HasInode(2))

	idx.RemoveBlock(1, 10)
	assert.ElementsMatch(t, []BlockNumber{11}, idx.Lookup(1))

	idx.RemoveBlock(1, 11)
	assert.False(t, idx.HasInode(1))
}

func TestDirtyIndexInsertIsIdempotent(t *testing.T) {
	idx := NewDirtyIndex()
	idx.Insert(1, 10)
	idx.Insert(1, 10)
	assert.Equal(t, []BlockNumber{10}, idx.Lookup(1))
}
