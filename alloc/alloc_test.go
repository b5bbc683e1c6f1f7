package alloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/alloc"
	"github.com/gjbauer/blocktree/blockdev"
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

func newCache(totalBlocks uint64) *cache.Cache {
	dev := blockdev.NewMemoryDevice(totalBlocks)
	return cache.NewCache(dev, 16)
}

func TestFormatReservesBitmapBlock(t *testing.T) {
	c := newCache(8)
	a := alloc.NewAllocator(8)
	require.NoError(t, a.Format(c))

	allocated, err := a.IsAllocated(c, alloc.BitmapBlockNumber)
	require.NoError(t, err)
	assert.True(t, allocated)
}

func TestAllocIsFirstFit(t *testing.T) {
	c := newCache(8)
	a := alloc.NewAllocator(8)
	require.NoError(t, a.Format(c))

	// Format reserves blocks 0-2, so the first free blocks are 3 and 4.
	first, err := a.Alloc(c)
	require.NoError(t, err)
	assert.Equal(t, cache.BlockNumber(3), first)

	second, err := a.Alloc(c)
	require.NoError(t, err)
	assert.Equal(t, cache.BlockNumber(4), second)
}

func TestFreeMakesBlockAvailableAgain(t *testing.T) {
	c := newCache(4)
	a := alloc.NewAllocator(4)
	require.NoError(t, a.Format(c))

	b, err := a.Alloc(c)
	require.NoError(t, err)

	require.NoError(t, a.Free(c, b))
	reAllocated, err := a.Alloc(c)
	require.NoError(t, err)
	assert.Equal(t, b, reAllocated)
}

func TestAllocExhaustionReturnsNoSpace(t *testing.T) {
	c := newCache(4)
	a := alloc.NewAllocator(4)
	require.NoError(t, a.Format(c))

	// Format reserves blocks 0-2; only block 3 is free.
	_, err := a.Alloc(c)
	require.NoError(t, err)

	_, err = a.Alloc(c)
	assert.ErrorIs(t, err, blkerr.ErrNoSpace)
}
