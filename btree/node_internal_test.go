package btree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/cache"
)

func TestNodeEncodeDecodeRoundTrip(t *testing.T) {
	n := &Node{
		BlockNumber:  7,
		IsLeaf:       true,
		NumKeys:      3,
		Keys:         [MaxKeys]uint64{1, 2, 3, 0},
		Children:     [MaxKeys + 1]uint64{10, 20, 30, 0, 0},
		Parent:       4,
		LeftSibling:  0,
		RightSibling: 9,
	}

	buf := make([]byte, 4096)
	cache.SetTag(buf, cache.BlockTypeBTreeNode)
	require.NoError(t, encode(n, buf))

	assert.Equal(t, byte(cache.BlockTypeBTreeNode), buf[0])

	got, err := decode(buf)
	require.NoError(t, err)

	assert.Equal(t, n.BlockNumber, got.BlockNumber)
	assert.Equal(t, n.IsLeaf, got.IsLeaf)
	assert.Equal(t, n.NumKeys, got.NumKeys)
	assert.Equal(t, n.Keys, got.Keys)
	assert.Equal(t, n.Children, got.Children)
	assert.Equal(t, n.Parent, got.Parent)
	assert.Equal(t, n.RightSibling, got.RightSibling)
}

func TestDecodeRejectsCorruptNumKeys(t *testing.T) {
	buf := make([]byte, 4096)
	n := &Node{BlockNumber: 1, NumKeys: MaxKeys}
	require.NoError(t, encode(n, buf))

	// Corrupt num_keys to exceed MaxKeys.
	buf[nodeHeaderOffset+8+1] = byte(MaxKeys + 5)

	_, err := decode(buf)
	assert.Error(t, err)
}
