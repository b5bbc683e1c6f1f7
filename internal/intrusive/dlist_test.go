package intrusive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjbauer/blocktree/internal/intrusive"
)

func TestDListPushFrontOrder(t *testing.T) {
	d := intrusive.NewDList(4)
	d.PushFront(0)
	d.PushFront(1)
	d.PushFront(2)

	assert.Equal(t, []int{2, 1, 0}, d.ToSlice())
	assert.Equal(t, 3, d.Len())
}

func TestDListMoveToFront(t *testing.T) {
	d := intrusive.NewDList(4)
	d.PushFront(0)
	d.PushFront(1)
	d.PushFront(2)

	d.MoveToFront(0)
	assert.Equal(t, []int{0, 2, 1}, d.ToSlice())
}

func TestDListRemoveMiddle(t *testing.T) {
	d := intrusive.NewDList(4)
	d.PushFront(0)
	d.PushFront(1)
	d.PushFront(2)

	d.Remove(1)
	assert.Equal(t, []int{2, 0}, d.ToSlice())
	assert.False(t, d.Contains(1))
}

func TestDListTailAndPrevWalk(t *testing.T) {
	d := intrusive.NewDList(4)
	d.PushFront(0)
	d.PushFront(1)
	d.PushFront(2)

	tail, ok := d.Tail()
	assert.True(t, ok)
	assert.Equal(t, 0, tail)

	prev, ok := d.Prev(tail)
	assert.True(t, ok)
	assert.Equal(t, 1, prev)

	_, ok = d.Prev(2)
	assert.False(t, ok)
}

func TestDListPopBackEmpty(t *testing.T) {
	d := intrusive.NewDList(2)
	_, ok := d.PopBack()
	assert.False(t, ok)
}
