package cache

import "github.com/gjbauer/blocktree/blockdev"

// defaultSlotCount is used when the host's available RAM can't be
// determined; it's the same order of magnitude as the <2 GiB tier in
// spec.md §4.6 (16k slots, 64 MiB of cache at BlockSize=4096).
const defaultSlotCount = 16384

const (
	gib = 1 << 30
)

// DefaultSlotCount derives the total slot count from available RAM,
// following spec.md §4.6's tiers:
//
//   - < 2 GiB RAM:    16k slots (64 MiB)
//   - 2-16 GiB RAM:   one eighth of RAM, in blocks
//   - > 16 GiB RAM:   one eighth of RAM in blocks, capped around 8 GiB of
//     blocks
//
// When the host's memory size can't be determined, it falls back to the
// <2 GiB tier's constant, which tests are free to substitute with a smaller
// value of the same order of magnitude (spec.md §4.6).
func DefaultSlotCount() int {
	total, ok := totalSystemMemory()
	if !ok || total < 2*gib {
		return defaultSlotCount
	}

	eighth := total / 8
	if total > 16*gib {
		cap8gib := uint64(8 * gib)
		if eighth > cap8gib {
			eighth = cap8gib
		}
	}

	slots := eighth / blockdev.BlockSize
	if slots == 0 {
		return defaultSlotCount
	}
	return int(slots)
}
