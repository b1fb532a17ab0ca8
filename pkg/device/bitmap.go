package device

import (
	"fmt"
	"io"
	"math/bits"
	"os"
)

// Bitmap is a packed allocation bitset: one bit per block, bit set means the
// block is allocated. It is the sidecar format the CLI feeds to a File
// device in place of real filesystem metadata parsing.
//
// Bitmap is safe for concurrent readers once fully loaded; Set and Clear are
// not synchronized and belong to the setup phase.
type Bitmap struct {
	words  []uint64
	blocks uint64
}

// NewBitmap creates an all-clear bitmap covering blocks indices.
func NewBitmap(blocks uint64) *Bitmap {
	return &Bitmap{
		words:  make([]uint64, (blocks+63)/64),
		blocks: blocks,
	}
}

// Len returns the number of blocks the bitmap covers.
func (b *Bitmap) Len() uint64 { return b.blocks }

// Set marks block blk as allocated.
func (b *Bitmap) Set(blk uint64) {
	if blk < b.blocks {
		b.words[blk/64] |= 1 << (blk % 64)
	}
}

// Clear marks block blk as free.
func (b *Bitmap) Clear(blk uint64) {
	if blk < b.blocks {
		b.words[blk/64] &^= 1 << (blk % 64)
	}
}

// Test reports whether block blk is allocated. Out-of-range indices report
// allocated so that callers never touch blocks the bitmap does not cover.
func (b *Bitmap) Test(blk uint64) bool {
	if blk >= b.blocks {
		return true
	}
	return b.words[blk/64]&(1<<(blk%64)) != 0
}

// FreeCount returns the number of clear bits, i.e. free blocks.
func (b *Bitmap) FreeCount() uint64 {
	var set uint64
	for _, w := range b.words {
		set += uint64(bits.OnesCount64(w))
	}
	return b.blocks - set
}

// WriteTo serializes the bitmap as a raw little-endian bit stream, eight
// blocks per byte, LSB first. Trailing padding bits are zero.
func (b *Bitmap) WriteTo(w io.Writer) (int64, error) {
	buf := make([]byte, (b.blocks+7)/8)
	for blk := uint64(0); blk < b.blocks; blk++ {
		if b.Test(blk) {
			buf[blk/8] |= 1 << (blk % 8)
		}
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadBitmap parses a raw bit stream produced by WriteTo covering blocks
// block indices. The stream must hold at least ceil(blocks/8) bytes.
func ReadBitmap(r io.Reader, blocks uint64) (*Bitmap, error) {
	buf := make([]byte, (blocks+7)/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read bitmap: %w", err)
	}
	bm := NewBitmap(blocks)
	for blk := uint64(0); blk < blocks; blk++ {
		if buf[blk/8]&(1<<(blk%8)) != 0 {
			bm.Set(blk)
		}
	}
	return bm, nil
}

// LoadBitmapFile reads an allocation bitmap for blocks block indices from a
// sidecar file on disk.
func LoadBitmapFile(path string, blocks uint64) (*Bitmap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bitmap file: %w", err)
	}
	defer f.Close()

	return ReadBitmap(f, blocks)
}
