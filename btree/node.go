// Package btree implements the disk-resident B-tree described in spec.md
// §4.7: fixed-fanout nodes, one per disk block, reached and mutated only
// through the block cache.
package btree

import (
	"bytes"
	"encoding/binary"

	"github.com/noxer/bytewriter"

	"github.com/gjbauer/blocktree/cache"
	"github.com/gjbauer/blocktree/internal/blkerr"
)

// MaxKeys and MinKeys are the node fanout bounds from spec.md §6
// (`MAX_KEYS = 4`, `MIN_KEYS = 2`).
const (
	MaxKeys = 4
	MinKeys = MaxKeys / 2
)

// nodeHeaderOffset is where node fields begin within a block, immediately
// after the cache's one-byte block-type tag (spec.md §9's resolution of the
// tag-location open question: the tag always lives at byte 0, decoded by
// value, which means every other on-block layout in this repo — including
// the B-tree node layout of spec.md §6 — starts one byte later than its
// literal description).
const nodeHeaderOffset = 1

// Node is the in-memory decoding of one on-disk B-tree node. Keys are sorted
// ascending. For an internal node, children[i] is the subtree whose maxima
// are <= keys[i]; children[NumKeys] holds values greater than the last key.
// For a leaf, children[i] is the value associated with keys[i], and
// children[NumKeys] is unused (spec.md §9's resolution of the leaf-value
// open question).
type Node struct {
	BlockNumber  cache.BlockNumber
	IsLeaf       bool
	NumKeys      uint16
	Keys         [MaxKeys]uint64
	Children     [MaxKeys + 1]uint64
	Parent       cache.BlockNumber
	LeftSibling  cache.BlockNumber
	RightSibling cache.BlockNumber
}

// Value returns the value stored at position i in a leaf node.
func (n *Node) Value(i int) uint64 {
	return n.Children[i]
}

// SetValue sets the value stored at position i in a leaf node.
func (n *Node) SetValue(i int, v uint64) {
	n.Children[i] = v
}

// IsRoot reports whether this node is the tree's root (parent == 0).
func (n *Node) IsRoot() bool {
	return n.Parent == 0
}

// Full reports whether the node already holds MaxKeys entries.
func (n *Node) Full() bool {
	return int(n.NumKeys) >= MaxKeys
}

// encode serializes the node into buf, a cache slot's BlockSize buffer. Byte
// 0 (the block-type tag) is left untouched; callers set it via
// cache.SetTag before the first encode.
func encode(n *Node, buf []byte) error {
	w := bytewriter.New(buf[nodeHeaderOffset:])

	fields := []any{
		uint64(n.BlockNumber),
		boolToByte(n.IsLeaf),
		n.NumKeys,
	}
	for _, f := range fields {
		if err := binary.Write(w, binary.LittleEndian, f); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
	}
	for i := 0; i < MaxKeys; i++ {
		if err := binary.Write(w, binary.LittleEndian, n.Keys[i]); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
	}
	for i := 0; i < MaxKeys+1; i++ {
		if err := binary.Write(w, binary.LittleEndian, n.Children[i]); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
	}
	trailer := []uint64{uint64(n.Parent), uint64(n.LeftSibling), uint64(n.RightSibling)}
	for _, v := range trailer {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
	}

	return nil
}

// decode deserializes a node from buf, a cache slot's BlockSize buffer.
func decode(buf []byte) (*Node, error) {
	r := bytes.NewReader(buf[nodeHeaderOffset:])

	var n Node
	var blockNum uint64
	var isLeaf byte
	if err := binary.Read(r, binary.LittleEndian, &blockNum); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &isLeaf); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &n.NumKeys); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}
	for i := 0; i < MaxKeys; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.Keys[i]); err != nil {
			return nil, blkerr.ErrCorruptTree.WrapError(err)
		}
	}
	for i := 0; i < MaxKeys+1; i++ {
		if err := binary.Read(r, binary.LittleEndian, &n.Children[i]); err != nil {
			return nil, blkerr.ErrCorruptTree.WrapError(err)
		}
	}
	var parent, left, right uint64
	if err := binary.Read(r, binary.LittleEndian, &parent); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &left); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}
	if err := binary.Read(r, binary.LittleEndian, &right); err != nil {
		return nil, blkerr.ErrCorruptTree.WrapError(err)
	}

	n.BlockNumber = cache.BlockNumber(blockNum)
	n.IsLeaf = isLeaf != 0
	n.Parent = cache.BlockNumber(parent)
	n.LeftSibling = cache.BlockNumber(left)
	n.RightSibling = cache.BlockNumber(right)

	if n.NumKeys > MaxKeys {
		return nil, blkerr.ErrCorruptTree.WithMessage("num_keys exceeds MAX_KEYS")
	}

	return &n, nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
