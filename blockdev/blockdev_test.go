package blockdev_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gjbauer/blocktree/blockdev"
)

func TestMemoryDeviceRoundTrip(t *testing.T) {
	dev := blockdev.NewMemoryDevice(4)
	assert.Equal(t, uint64(4), dev.TotalBlocks())

	want := bytes.Repeat([]byte{0xAB}, blockdev.BlockSize)
	require.NoError(t, dev.Write(2, want))

	got := make([]byte, blockdev.BlockSize)
	require.NoError(t, dev.Read(2, got))
	assert.Equal(t, want, got)
}

func TestMemoryDeviceRejectsOutOfRangeBlock(t *testing.T) {
	dev := blockdev.NewMemoryDevice(2)
	buf := make([]byte, blockdev.BlockSize)
	err := dev.Write(5, buf)
	assert.Error(t, err)
}

func TestMemoryDeviceRejectsWrongSizedBuffer(t *testing.T) {
	dev := blockdev.NewMemoryDevice(2)
	err := dev.Read(0, make([]byte, 10))
	assert.Error(t, err)
}

func TestCreateAndOpenFileBackedDevice(t *testing.T) {
	path := t.TempDir() + "/device.img"

	dev, err := blockdev.Create(path, 8)
	require.NoError(t, err)

	payload := bytes.Repeat([]byte{0x5A}, blockdev.BlockSize)
	require.NoError(t, dev.Write(3, payload))
	require.NoError(t, dev.Close())

	reopened, err := blockdev.Open(path, 8)
	require.NoError(t, err)
	defer reopened.Close()

	got := make([]byte, blockdev.BlockSize)
	require.NoError(t, reopened.Read(3, got))
	assert.Equal(t, payload, got)
}
