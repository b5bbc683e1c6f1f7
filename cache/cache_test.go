package cache_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/blockdev"
	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// dataBlock builds a BlockSize buffer tagged BlockTypeData (byte 0 == 0) so
// it participates in per-inode dirty tracking, filled with fill elsewhere.
func dataBlock(fill byte) []byte {
	buf := bytes.Repeat([]byte{fill}, blockdev.BlockSize)
	cache.SetTag(buf, cache.BlockTypeData)
	return buf
}

func TestWriteThenGetRoundTrips(t *testing.T) {
	dev := blockdev.NewMemoryDevice(4)
	c := cache.NewCache(dev, 4)

	buf := dataBlock(0x42)
	require.NoError(t, c.Write(1, 0, buf))

	slot, err := c.Get(1, 0)
	require.NoError(t, err)
	assert.Equal(t, buf, slot.Data())
}

func TestSlotAccountingInvariant(t *testing.T) {
	dev := blockdev.NewMemoryDevice(8)
	c := cache.NewCache(dev, 3)

	for i := 0; i < 3; i++ {
		_, err := c.Get(1, cache.BlockNumber(i))
		require.NoError(t, err)
	}
	assert.Equal(t, c.SlotCount(), c.FreeCount()+c.ResidentCount())
	assert.Equal(t, c.ResidentCount(), c.HashSize())
}

// TestEvictionWritesBackDirtyBlock is spec.md S5: with 2 slots and 3
// distinct blocks, writing all three evicts the first and re-reading it
// reloads the written bytes from the device, not stale data.
func TestEvictionWritesBackDirtyBlock(t *testing.T) {
	dev := blockdev.NewMemoryDevice(8)
	c := cache.NewCache(dev, 2)

	a := dataBlock('A')
	b := dataBlock('B')
	cc := dataBlock('C')

	require.NoError(t, c.Write(1, 1, a))
	require.NoError(t, c.Write(1, 2, b))
	require.NoError(t, c.Write(1, 3, cc))

	assert.Equal(t, 2, c.ResidentCount())

	slot, err := c.Get(1, 1)
	require.NoError(t, err)
	assert.Equal(t, a, slot.Data())
}

// TestFsyncThenUnsyncedWriteSurvivesOnlyInCache is spec.md S6: only the
// fsynced write reaches the device file; a later un-synced overwrite is lost
// on a simulated crash (a fresh Device reading the same file), but a
// subsequent SyncAll makes it durable.
func TestFsyncThenUnsyncedWriteSurvivesOnlyInCache(t *testing.T) {
	path := t.TempDir() + "/dev.img"
	const totalBlocks = 4

	dev, err := blockdev.Create(path, totalBlocks)
	require.NoError(t, err)
	defer dev.Close()

	c := cache.NewCache(dev, 4)

	a := dataBlock('A')
	bVal := dataBlock('B')

	require.NoError(t, c.Write(1, 1, a))
	require.NoError(t, c.Fsync(1))
	require.NoError(t, c.Write(1, 1, bVal))

	crashView, err := blockdev.Open(path, totalBlocks)
	require.NoError(t, err)
	got := make([]byte, blockdev.BlockSize)
	require.NoError(t, crashView.Read(1, got))
	assert.Equal(t, a, got)
	require.NoError(t, crashView.Close())

	require.NoError(t, c.Write(1, 1, bVal))
	require.NoError(t, c.SyncAll())

	afterSync, err := blockdev.Open(path, totalBlocks)
	require.NoError(t, err)
	defer afterSync.Close()

	got2 := make([]byte, blockdev.BlockSize)
	require.NoError(t, afterSync.Read(1, got2))
	assert.Equal(t, bVal, got2)
}

func TestFsyncIsIdempotent(t *testing.T) {
	dev := blockdev.NewMemoryDevice(4)
	c := cache.NewCache(dev, 4)

	require.NoError(t, c.Write(1, 0, dataBlock('X')))
	require.NoError(t, c.Fsync(1))
	require.NoError(t, c.Fsync(1))
}

func TestWriteRejectsWrongSizedBuffer(t *testing.T) {
	dev := blockdev.NewMemoryDevice(4)
	c := cache.NewCache(dev, 4)

	err := c.Write(1, 0, []byte{1, 2, 3})
	assert.ErrorIs(t, err, blkerr.ErrInvalidArgument)
}
