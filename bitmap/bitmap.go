// Package bitmap provides a packed bit vector over a single block's worth of
// bytes, used as the view over the on-disk allocation bitmap.
package bitmap

import (
	"fmt"
	"strings"

	bb "github.com/boljen/go-bitmap"
)

// Bitmap wraps a packed bit vector of a fixed number of bits.
type Bitmap struct {
	bits bb.Bitmap
	size int
}

// New allocates a new Bitmap with room for at least `numBits` bits, all
// initially clear.
func New(numBits int) *Bitmap {
	return &Bitmap{
		bits: bb.New(numBits),
		size: numBits,
	}
}

// FromBytes wraps an existing byte slice (e.g. the contents of a cache slot's
// buffer) as a Bitmap without copying it. Mutations through Get/Put write
// straight through to `buf`.
func FromBytes(buf []byte, numBits int) *Bitmap {
	return &Bitmap{
		bits: bb.Bitmap(buf),
		size: numBits,
	}
}

// Bytes returns the backing byte slice.
func (m *Bitmap) Bytes() []byte {
	return []byte(m.bits)
}

// Len returns the number of addressable bits.
func (m *Bitmap) Len() int {
	return m.size
}

// Get returns the value of the bit at index i: 0 or 1.
//
// No bounds checking is performed; callers must respect the size of the
// backing buffer.
func (m *Bitmap) Get(i int) int {
	if m.bits.Get(i) {
		return 1
	}
	return 0
}

// Put sets the bit at index i to v (nonzero means set).
func (m *Bitmap) Put(i int, v int) {
	m.bits.Set(i, v != 0)
}

// Clear unsets the bit at index i. Equivalent to Put(i, 0).
func (m *Bitmap) Clear(i int) {
	m.bits.Set(i, false)
}

// Print writes a diagnostic rendering of the first n bits to a string, one
// character per bit ('1' or '0'), useful for debugging allocator state.
func (m *Bitmap) Print(n int) string {
	if n > m.size {
		n = m.size
	}

	var sb strings.Builder
	for i := 0; i < n; i++ {
		sb.WriteString(fmt.Sprintf("%d", m.Get(i)))
	}
	return sb.String()
}
