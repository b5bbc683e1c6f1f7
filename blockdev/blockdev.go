// Package blockdev implements the fixed-size-block device the cache and
// B-tree are built on: a file of exactly `TotalBlocks * BlockSize` bytes,
// memory-mapped for buffer-copy reads and writes, durable on Close (or an
// explicit Flush).
package blockdev

import (
	"fmt"
	"io"
	"os"
	"syscall"

	"github.com/xaionaro-go/bytesextra"

	"github.com/gjbauer/blocktree/internal/blkerr"
)

// BlockSize is the fixed size, in bytes, of every block on a Device.
const BlockSize = 4096

// BlockNumber identifies a block. Block 0 is reserved for the allocation
// bitmap.
type BlockNumber uint64

// Device is a fixed-size-block store backed by a file. Reads and writes are
// buffer copies into/out of a shared memory map; durability is guaranteed on
// Close or Flush.
type Device struct {
	file        *os.File
	data        []byte
	stream      io.ReadWriteSeeker
	totalBlocks uint64
	mapped      bool
}

// Open opens an existing block device file. The file's size must be exactly
// `totalBlocks * BlockSize` bytes.
func Open(path string, totalBlocks uint64) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	wantSize := int64(totalBlocks) * int64(BlockSize)
	if info.Size() != wantSize {
		f.Close()
		return nil, blkerr.ErrIOFailed.WithMessage(fmt.Sprintf(
			"device file %q is %d bytes, want %d (%d blocks of %d bytes)",
			path, info.Size(), wantSize, totalBlocks, BlockSize))
	}

	return mapDevice(f, totalBlocks)
}

// Create creates a new block device file of exactly `totalBlocks * BlockSize`
// bytes, truncating any existing file at `path`. Block 0 (the allocation
// bitmap) comes back zeroed; callers are responsible for setting bit 0 to
// mark the bitmap block itself allocated.
func Create(path string, totalBlocks uint64) (*Device, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	size := int64(totalBlocks) * int64(BlockSize)
	if err := f.Truncate(size); err != nil {
		f.Close()
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	return mapDevice(f, totalBlocks)
}

func mapDevice(f *os.File, totalBlocks uint64) (*Device, error) {
	size := int(totalBlocks) * BlockSize
	data, err := syscall.Mmap(int(f.Fd()), 0, size, syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, blkerr.ErrIOFailed.WrapError(err)
	}

	return &Device{
		file:        f,
		data:        data,
		totalBlocks: totalBlocks,
		mapped:      true,
	}, nil
}

// NewMemoryDevice creates an in-memory Device, for tests, backed by a plain
// []byte wrapped in a bytesextra.NewReadWriteSeeker the same way disko's own
// test helpers turn a backing buffer into a stream: Read and Write seek into
// it and read/write through the stream rather than indexing the slice
// directly. No file is ever created; Close is a no-op.
func NewMemoryDevice(totalBlocks uint64) *Device {
	backing := make([]byte, int(totalBlocks)*BlockSize)

	return &Device{
		data:        backing,
		stream:      bytesextra.NewReadWriteSeeker(backing),
		totalBlocks: totalBlocks,
		mapped:      false,
	}
}

// TotalBlocks returns the number of blocks in the device.
func (d *Device) TotalBlocks() uint64 {
	return d.totalBlocks
}

func (d *Device) checkBlock(blockNum BlockNumber) error {
	if uint64(blockNum) >= d.totalBlocks {
		return blkerr.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"block %d not in [0, %d)", blockNum, d.totalBlocks))
	}
	return nil
}

// Read copies exactly BlockSize bytes from the device into buf.
func (d *Device) Read(blockNum BlockNumber, buf []byte) error {
	if err := d.checkBlock(blockNum); err != nil {
		return err
	}
	if len(buf) != BlockSize {
		return blkerr.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"buffer must be exactly %d bytes, got %d", BlockSize, len(buf)))
	}

	start := int64(blockNum) * BlockSize
	if !d.mapped {
		if _, err := d.stream.Seek(start, io.SeekStart); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
		if _, err := io.ReadFull(d.stream, buf); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
		return nil
	}

	copy(buf, d.data[start:start+BlockSize])
	return nil
}

// Write copies exactly BlockSize bytes from buf into the device.
func (d *Device) Write(blockNum BlockNumber, buf []byte) error {
	if err := d.checkBlock(blockNum); err != nil {
		return err
	}
	if len(buf) != BlockSize {
		return blkerr.ErrInvalidArgument.WithMessage(fmt.Sprintf(
			"buffer must be exactly %d bytes, got %d", BlockSize, len(buf)))
	}

	start := int64(blockNum) * BlockSize
	if !d.mapped {
		if _, err := d.stream.Seek(start, io.SeekStart); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
		if _, err := d.stream.Write(buf); err != nil {
			return blkerr.ErrIOFailed.WrapError(err)
		}
		return nil
	}

	copy(d.data[start:start+BlockSize], buf)
	return nil
}

// Flush ensures all writes made so far are durable without closing the
// device.
func (d *Device) Flush() error {
	if !d.mapped {
		return nil
	}
	// Mmap-backed files are kept durable by msync semantics on most platforms
	// at munmap/close time; an explicit Flush additionally fsyncs the
	// underlying file descriptor so callers get the same guarantee without
	// waiting for Close.
	return d.file.Sync()
}

// Close releases all resources held by the device. After Close, the Device
// must not be used again.
func (d *Device) Close() error {
	if !d.mapped {
		return nil
	}

	var firstErr error
	if err := syscall.Munmap(d.data); err != nil {
		firstErr = blkerr.ErrIOFailed.WrapError(err)
	}
	if err := d.file.Sync(); err != nil && firstErr == nil {
		firstErr = blkerr.ErrIOFailed.WrapError(err)
	}
	if err := d.file.Close(); err != nil && firstErr == nil {
		firstErr = blkerr.ErrIOFailed.WrapError(err)
	}

	d.mapped = false
	return firstErr
}

var _ io.Closer = (*Device)(nil)
