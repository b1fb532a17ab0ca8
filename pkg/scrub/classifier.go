package scrub

import (
	"bytes"
	"context"
)

// Decision is the outcome of classifying a single block.
type Decision int

const (
	// SkipAllocated means the block is in use and must not be touched.
	SkipAllocated Decision = iota

	// SkipClean means the block is free and already holds the fill pattern.
	SkipClean

	// Rewrite means the block is free and holds other data; it gets
	// overwritten with the fill pattern.
	Rewrite
)

func (d Decision) String() string {
	switch d {
	case SkipAllocated:
		return "allocated"
	case SkipClean:
		return "clean"
	case Rewrite:
		return "rewrite"
	default:
		return "unknown"
	}
}

// classify decides what to do with block blk.
//
// Allocated blocks are skipped without any I/O. Free blocks are read into
// buf and compared against the fill pattern; only blocks that differ are
// rewritten. Classification itself never mutates the device.
//
// A failed read returns SkipClean alongside a *ReadError: the block was
// already determined free, which is what the caller's accounting needs.
func (s *Scrubber) classify(ctx context.Context, blk uint64, buf []byte) (Decision, error) {
	if s.dev.IsAllocated(blk) {
		return SkipAllocated, nil
	}

	if err := s.dev.ReadBlock(ctx, blk, buf); err != nil {
		return SkipClean, &ReadError{Block: blk, Err: err}
	}

	if bytes.Equal(buf[:len(s.fill)], s.fill) {
		return SkipClean, nil
	}
	return Rewrite, nil
}
