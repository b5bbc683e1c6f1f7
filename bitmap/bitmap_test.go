package bitmap_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjbauer/blocktree/bitmap"
)

func TestNewAllBitsClear(t *testing.T) {
	m := bitmap.New(16)
	for i := 0; i < 16; i++ {
		assert.Equal(t, 0, m.Get(i))
	}
}

func TestPutAndClear(t *testing.T) {
	m := bitmap.New(8)
	m.Put(3, 1)
	assert.Equal(t, 1, m.Get(3))
	for i := 0; i < 8; i++ {
		if i != 3 {
			assert.Equalf(t, 0, m.Get(i), "bit %d should still be clear", i)
		}
	}

	m.Clear(3)
	assert.Equal(t, 0, m.Get(3))
}

func TestFromBytesWritesThrough(t *testing.T) {
	buf := make([]byte, 4)
	m := bitmap.FromBytes(buf, 32)

	m.Put(0, 1)
	m.Put(9, 1)

	assert.Equal(t, 1, m.Get(0))
	assert.Equal(t, 1, m.Get(9))
	assert.Equal(t, 0, m.Get(1))

	reloaded := bitmap.FromBytes(buf, 32)
	assert.Equal(t, 1, reloaded.Get(0))
	assert.Equal(t, 1, reloaded.Get(9))
}
