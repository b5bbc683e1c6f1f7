package blkerr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gjbauer/blocktree/internal/blkerr"
)

func TestWithMessagePreservesSentinel(t *testing.T) {
	err := blkerr.ErrNotFound.WithMessage("key 42")
	assert.ErrorIs(t, err, blkerr.ErrNotFound)
	assert.Contains(t, err.Error(), "key 42")
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("device offline")
	err := blkerr.ErrIOFailed.WrapError(cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "device offline")
}

func TestWrapErrorPreservesSentinel(t *testing.T) {
	cause := errors.New("device offline")
	err := blkerr.ErrIOFailed.WrapError(cause)
	assert.ErrorIs(t, err, blkerr.ErrIOFailed)
	assert.ErrorIs(t, err, cause)
}

func TestWrapErrorChainedWithMessageStillClassifiesAsSentinel(t *testing.T) {
	cause := errors.New("short read")
	err := blkerr.ErrCorruptTree.WrapError(cause).WithMessage("node 7")
	assert.ErrorIs(t, err, blkerr.ErrCorruptTree)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "node 7")
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.NotErrorIs(t, blkerr.ErrNotFound.WithMessage("x"), blkerr.ErrCorruptTree)
}
