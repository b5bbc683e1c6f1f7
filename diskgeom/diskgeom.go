// Package diskgeom provides named volume-geometry presets for
// `blocktreectl --format --geometry`, the way disko's disks package looks up named
// floppy-disk geometries: a CSV table parsed once at init time via
// github.com/gocarina/gocsv and exposed through a slug lookup.
package diskgeom

import (
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
)

// Geometry describes a preset device size for `blocktreectl --format`.
type Geometry struct {
	Slug        string `csv:"slug"`
	Name        string `csv:"name"`
	TotalBlocks uint64 `csv:"total_blocks"`
	BlockSize   uint64 `csv:"block_size"`
	Notes       string `csv:"notes"`
}

// TotalSizeBytes gives the size in bytes of a device file matching this
// geometry.
func (g Geometry) TotalSizeBytes() int64 {
	return int64(g.TotalBlocks * g.BlockSize)
}

// rawCSV holds the preset table. Unlike disko's disks.go (whose go:embed
// directive on disk-geometries.csv never actually fired, leaving its
// geometry table permanently empty), this table is a literal string so it
// is always populated.
const rawCSV = `slug,name,total_blocks,block_size,notes
tiny,Tiny test volume,64,4096,"Smallest usable size: room for the bitmap, superblock, inode bitmap, and a handful of tree nodes"
small,Small volume,4096,4096,"16 MiB, fits comfortably in a small in-memory cache"
default,Default volume,16384,4096,"64 MiB, matches the default cache slot count"
large,Large volume,1048576,4096,"4 GiB, exercises multi-level trees and eviction under load"
`

var geometries map[string]Geometry

func init() {
	geometries = make(map[string]Geometry)
	reader := strings.NewReader(rawCSV)
	err := gocsv.UnmarshalToCallback(reader, func(row Geometry) error {
		if _, exists := geometries[row.Slug]; exists {
			return fmt.Errorf("duplicate volume geometry slug %q", row.Slug)
		}
		geometries[row.Slug] = row
		return nil
	})
	if err != nil {
		panic(err)
	}
}

// Lookup returns the named preset geometry, or an error if no preset has
// that slug.
func Lookup(slug string) (Geometry, error) {
	g, ok := geometries[slug]
	if !ok {
		return Geometry{}, fmt.Errorf("no predefined volume geometry named %q", slug)
	}
	return g, nil
}

// Names returns every preset's slug, for the CLI's `--geometry` flag usage
// text.
func Names() []string {
	names := make([]string, 0, len(geometries))
	for slug := range geometries {
		names = append(names, slug)
	}
	return names
}
