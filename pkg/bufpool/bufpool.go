// Package bufpool provides pooled byte slices for block I/O.
//
// Scrub workers allocate one read buffer per job slot; pooling them keeps
// repeated runs and tests from churning the allocator. Two size classes
// cover the common block sizes (4KiB and 64KiB); larger requests are
// allocated directly and never pooled, so an oversized one-off cannot pin
// memory.
package bufpool

import "sync"

const (
	// BlockSize covers the default filesystem block size (4KiB).
	BlockSize = 4 << 10

	// LargeSize covers big-block images (64KiB).
	LargeSize = 64 << 10
)

var (
	blockPool = sync.Pool{New: func() any {
		buf := make([]byte, BlockSize)
		return &buf
	}}
	largePool = sync.Pool{New: func() any {
		buf := make([]byte, LargeSize)
		return &buf
	}}
)

// Get returns a byte slice of length size. The backing array may be larger;
// callers must pass the slice back to Put when done.
func Get(size int) []byte {
	switch {
	case size <= BlockSize:
		buf := *blockPool.Get().(*[]byte)
		return buf[:size]
	case size <= LargeSize:
		buf := *largePool.Get().(*[]byte)
		return buf[:size]
	default:
		return make([]byte, size)
	}
}

// Put returns a buffer obtained from Get to its pool. Buffers that were
// allocated directly (oversize) are dropped for the GC.
func Put(buf []byte) {
	switch cap(buf) {
	case BlockSize:
		full := buf[:cap(buf)]
		blockPool.Put(&full)
	case LargeSize:
		full := buf[:cap(buf)]
		largePool.Put(&full)
	}
}
