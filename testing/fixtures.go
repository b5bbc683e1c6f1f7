// Package testing provides fixtures shared by this module's package-level
// tests: an in-memory device, a cache sized for it, and a freshly formatted
// tree, built the way github.com/dargueta/disko's own testing package
// builds its disk images and block caches.
package testing

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/alloc"
	"github.com/gjbauer/blocktree/blockdev"
	"github.com/gjbauer/blocktree/btree"
	"github.com/gjbauer/blocktree/cache"
)

// NewMemoryCache builds a cache of numSlots slots over a fresh in-memory
// device of totalBlocks blocks. It is guaranteed to either return a usable
// cache or fail the test and abort.
func NewMemoryCache(t *testing.T, totalBlocks uint64, numSlots int) (*cache.Cache, *blockdev.Device) {
	dev := blockdev.NewMemoryDevice(totalBlocks)
	c := cache.NewCache(dev, numSlots)
	return c, dev
}

// NewFormattedTree builds a memory-backed cache, formats its allocation
// bitmap, and returns a freshly created (empty) tree plus the allocator and
// cache backing it, for tests that only care about tree behavior.
func NewFormattedTree(t *testing.T, totalBlocks uint64, numSlots int) (*btree.Tree, *cache.Cache, *alloc.Allocator) {
	c, _ := NewMemoryCache(t, totalBlocks, numSlots)

	a := alloc.NewAllocator(totalBlocks)
	require.NoError(t, a.Format(c))

	tr, err := btree.Create(c, a)
	require.NoError(t, err)

	return tr, c, a
}
