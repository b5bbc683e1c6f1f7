package btree_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/internal/blkerr"
	fixtures "github.com/gjbauer/blocktree/testing"
)

func TestInsertIntoEmptyTreeThenSearchHitAndMiss(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)

	require.NoError(t, tr.Insert(10, 100))

	v, err := tr.Search(10)
	require.NoError(t, err)
	assert.Equal(t, uint64(100), v)

	_, err = tr.Search(11)
	assert.ErrorIs(t, err, blkerr.ErrNotFound)
}

func TestInsertTriggersSplitRoot(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)

	for _, k := range []uint64{1, 2, 3, 4, 5} {
		require.NoError(t, tr.Insert(k, k*10))
	}

	for _, k := range []uint64{1, 2, 3, 4, 5} {
		v, err := tr.Search(k)
		require.NoError(t, err)
		assert.Equal(t, k*10, v)
	}

	dump, err := tr.Print()
	require.NoError(t, err)
	assert.Contains(t, dump, "level 0:")
	assert.Contains(t, dump, "level 1:")
}

func TestInsertRightLeafSplitsAgainHeightStable(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)

	for k := uint64(1); k <= 9; k++ {
		require.NoError(t, tr.Insert(k, k*10))
	}

	for k := uint64(1); k <= 9; k++ {
		v, err := tr.Search(k)
		require.NoError(t, err)
		assert.Equal(t, k*10, v)
	}
}

func TestDeleteRebalances(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)

	for k := uint64(1); k <= 9; k++ {
		require.NoError(t, tr.Insert(k, k*10))
	}

	require.NoError(t, tr.Delete(3))

	_, err := tr.Search(3)
	assert.ErrorIs(t, err, blkerr.ErrNotFound)

	for _, k := range []uint64{1, 2, 4, 5, 6, 7, 8, 9} {
		v, err := tr.Search(k)
		require.NoError(t, err)
		assert.Equal(t, k*10, v)
	}
}

func TestDeleteAllKeysLeavesEmptyTree(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)

	for k := uint64(1); k <= 20; k++ {
		require.NoError(t, tr.Insert(k, k))
	}
	for k := uint64(1); k <= 20; k++ {
		require.NoError(t, tr.Delete(k))
	}
	for k := uint64(1); k <= 20; k++ {
		_, err := tr.Search(k)
		assert.ErrorIs(t, err, blkerr.ErrNotFound)
	}
}

func TestDeleteMissingKeyReturnsNotFound(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)
	require.NoError(t, tr.Insert(1, 1))

	err := tr.Delete(999)
	assert.ErrorIs(t, err, blkerr.ErrNotFound)
}

// TestInsertExhaustionDuringSplitLeafCascadeLeavesTreeConsistent exercises spec.md §7's
// requirement that a split cascade reserves every block it might need before
// it mutates anything: with the allocator sized to have exactly enough free
// blocks for the first split but none left over, a later insert that needs
// one more sibling must fail with ErrNoSpace and leave every previously
// inserted key exactly where it was, rather than writing a populated sibling
// that never gets linked into its parent.
func TestInsertExhaustionDuringSplitLeafCascadeLeavesTreeConsistent(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 6, 16)

	// Fills the root leaf (keys 1-4), then triggers the root split on
	// insert 5 (consumes the device's only two free blocks), then lands 6
	// in the resulting right child with no further allocation.
	for _, k := range []uint64{1, 2, 3, 4, 5, 6} {
		require.NoError(t, tr.Insert(k, k*10))
	}

	rootBefore := tr.Root()

	// The device is now fully allocated; inserting 7 overflows the right
	// child's leaf and needs one more block that doesn't exist.
	err := tr.Insert(7, 70)
	assert.ErrorIs(t, err, blkerr.ErrNoSpace)

	assert.Equal(t, rootBefore, tr.Root())
	for _, k := range []uint64{1, 2, 3, 4, 5, 6} {
		v, err := tr.Search(k)
		require.NoError(t, err)
		assert.Equal(t, k*10, v)
	}
	_, err = tr.Search(7)
	assert.ErrorIs(t, err, blkerr.ErrNotFound)
}

func TestRootBlockNumberInvariantAcrossMutation(t *testing.T) {
	tr, _, _ := fixtures.NewFormattedTree(t, 64, 16)
	rootBefore := tr.Root()

	for k := uint64(1); k <= 30; k++ {
		require.NoError(t, tr.Insert(k, k))
	}
	assert.Equal(t, rootBefore, tr.Root())

	for k := uint64(1); k <= 25; k++ {
		require.NoError(t, tr.Delete(k))
	}
	assert.Equal(t, rootBefore, tr.Root())
}
