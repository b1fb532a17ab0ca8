// Package device abstracts the block storage a scrub run operates on.
//
// A Device exposes a linear range of fixed-size blocks addressed by index,
// an allocation predicate telling which blocks are in use, and raw block
// read/write entry points. Implementations must allow concurrent ReadBlock
// and WriteBlock calls for different block indices; the scrub core overlaps
// I/O across workers and does not serialize device access.
//
// Two implementations are provided: Memory (in-RAM, used by tests and
// fixtures) and File (a raw image file with a sidecar allocation bitmap).
// Parsing real filesystem metadata to produce the allocation map is outside
// this package; callers supply allocation state through a Bitmap.
package device

import "context"

// Device is the storage backend consumed by the scrub core.
type Device interface {
	// BlockSize returns the size of every block in bytes.
	BlockSize() int

	// BlockCount returns the total number of blocks on the device.
	// Valid block indices are [FirstBlock(), BlockCount()).
	BlockCount() uint64

	// FirstBlock returns the first valid block index.
	FirstBlock() uint64

	// IsAllocated reports whether the device considers the block in use.
	// Allocated blocks are never read or written by the scrub core.
	IsAllocated(blk uint64) bool

	// ReadBlock reads block blk into buf. buf must be at least
	// BlockSize() bytes long; only the first BlockSize() bytes are used.
	ReadBlock(ctx context.Context, blk uint64, buf []byte) error

	// WriteBlock overwrites block blk with data. data must be exactly
	// BlockSize() bytes long.
	WriteBlock(ctx context.Context, blk uint64, data []byte) error

	// FreeBlockHint returns the expected number of unallocated blocks.
	// It is used as the denominator for progress percentages and does not
	// need to be exact; a stale hint only skews the readout.
	FreeBlockHint() uint64
}
