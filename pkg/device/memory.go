package device

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-RAM Device used by tests, benchmarks, and fixtures.
//
// Block data lives in a single contiguous byte slice. Reads and writes for
// different blocks touch disjoint regions, so the only lock is a coarse
// RWMutex protecting the failure-injection state and close flag; data copies
// happen while holding the read side.
type Memory struct {
	mu        sync.RWMutex
	data      []byte
	alloc     *Bitmap
	blockSize int
	first     uint64
	closed    bool

	// failRead and failWrite inject an error for a specific block index.
	failRead  map[uint64]error
	failWrite map[uint64]error
}

var _ Device = (*Memory)(nil)

// NewMemory creates a memory device with blocks blocks of blockSize bytes,
// all free and zero-filled.
func NewMemory(blockSize int, blocks uint64) *Memory {
	return &Memory{
		data:      make([]byte, uint64(blockSize)*blocks),
		alloc:     NewBitmap(blocks),
		blockSize: blockSize,
	}
}

// SetFirstBlock sets the first valid block index (default 0).
func (m *Memory) SetFirstBlock(first uint64) { m.first = first }

// Allocate marks block blk as allocated.
func (m *Memory) Allocate(blk uint64) { m.alloc.Set(blk) }

// FillBlock overwrites block blk with a repeated byte value, bypassing the
// allocation check. Intended for fixture setup.
func (m *Memory) FillBlock(blk uint64, val byte) {
	off := blk * uint64(m.blockSize)
	for i := 0; i < m.blockSize; i++ {
		m.data[off+uint64(i)] = val
	}
}

// BlockData returns a copy of block blk's content. Intended for assertions.
func (m *Memory) BlockData(blk uint64) []byte {
	off := blk * uint64(m.blockSize)
	out := make([]byte, m.blockSize)
	copy(out, m.data[off:])
	return out
}

// FailReadBlock makes ReadBlock on blk return err.
func (m *Memory) FailReadBlock(blk uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRead == nil {
		m.failRead = make(map[uint64]error)
	}
	m.failRead[blk] = err
}

// FailWriteBlock makes WriteBlock on blk return err.
func (m *Memory) FailWriteBlock(blk uint64, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite == nil {
		m.failWrite = make(map[uint64]error)
	}
	m.failWrite[blk] = err
}

func (m *Memory) BlockSize() int            { return m.blockSize }
func (m *Memory) BlockCount() uint64        { return m.alloc.Len() }
func (m *Memory) FirstBlock() uint64        { return m.first }
func (m *Memory) IsAllocated(blk uint64) bool { return m.alloc.Test(blk) }
func (m *Memory) FreeBlockHint() uint64     { return m.alloc.FreeCount() }

// ReadBlock copies block blk into buf.
func (m *Memory) ReadBlock(_ context.Context, blk uint64, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if err, ok := m.failRead[blk]; ok {
		return err
	}
	if blk < m.first || blk >= m.alloc.Len() {
		return fmt.Errorf("read block %d: %w", blk, ErrOutOfRange)
	}
	if len(buf) < m.blockSize {
		return ErrShortBuffer
	}

	off := blk * uint64(m.blockSize)
	copy(buf[:m.blockSize], m.data[off:])
	return nil
}

// WriteBlock overwrites block blk with data.
func (m *Memory) WriteBlock(_ context.Context, blk uint64, data []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	if err, ok := m.failWrite[blk]; ok {
		return err
	}
	if blk < m.first || blk >= m.alloc.Len() {
		return fmt.Errorf("write block %d: %w", blk, ErrOutOfRange)
	}
	if len(data) != m.blockSize {
		return ErrBadLength
	}

	off := blk * uint64(m.blockSize)
	copy(m.data[off:off+uint64(m.blockSize)], data)
	return nil
}

// Close releases the device. Further reads and writes fail with ErrClosed.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
