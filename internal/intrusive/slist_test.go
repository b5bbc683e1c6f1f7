package intrusive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjbauer/blocktree/internal/intrusive"
)

func TestSListLIFOOrder(t *testing.T) {
	s := intrusive.NewSList(4)
	s.Push(0)
	s.Push(1)
	s.Push(2)
	assert.Equal(t, 3, s.Len())

	top, ok := s.Pop()
	assert.True(t, ok)
	assert.Equal(t, 2, top)

	top, ok = s.Pop()
	assert.True(t, ok)
	assert.Equal(t, 1, top)
}

func TestSListPopEmpty(t *testing.T) {
	s := intrusive.NewSList(2)
	_, ok := s.Pop()
	assert.False(t, ok)
}
