package device

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
)

// FileConfig holds configuration for opening a File device.
type FileConfig struct {
	// Path is the image file to operate on.
	Path string

	// BlockSize is the block size in bytes. Default: 4096.
	BlockSize int

	// Alloc is the allocation bitmap covering the image. Its length
	// determines BlockCount; the image file must be at least
	// Alloc.Len()*BlockSize bytes.
	Alloc *Bitmap

	// FirstBlock is the first valid block index. Default: 0.
	FirstBlock uint64

	// ReadOnly opens the image without write access. WriteBlock fails.
	ReadOnly bool
}

// File is a Device backed by a raw image file.
//
// Blocks map to byte ranges [blk*BlockSize, (blk+1)*BlockSize). ReadAt and
// WriteAt are positional syscalls, so concurrent calls for different blocks
// need no locking.
type File struct {
	f         *os.File
	alloc     *Bitmap
	free      uint64
	blockSize int
	first     uint64
	readOnly  bool
	closed    atomic.Bool
}

var _ Device = (*File)(nil)

// OpenFile opens a raw image file as a block device.
func OpenFile(cfg FileConfig) (*File, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("image path is required")
	}
	if cfg.Alloc == nil {
		return nil, fmt.Errorf("allocation bitmap is required")
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = 4096
	}

	flag := os.O_RDWR
	if cfg.ReadOnly {
		flag = os.O_RDONLY
	}
	f, err := os.OpenFile(cfg.Path, flag, 0)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat image: %w", err)
	}
	need := int64(cfg.Alloc.Len()) * int64(cfg.BlockSize)
	if info.Size() < need {
		f.Close()
		return nil, fmt.Errorf("image %s is %d bytes, bitmap covers %d", cfg.Path, info.Size(), need)
	}

	return &File{
		f:         f,
		alloc:     cfg.Alloc,
		free:      cfg.Alloc.FreeCount(),
		blockSize: cfg.BlockSize,
		first:     cfg.FirstBlock,
		readOnly:  cfg.ReadOnly,
	}, nil
}

func (d *File) BlockSize() int              { return d.blockSize }
func (d *File) BlockCount() uint64          { return d.alloc.Len() }
func (d *File) FirstBlock() uint64          { return d.first }
func (d *File) IsAllocated(blk uint64) bool { return d.alloc.Test(blk) }
func (d *File) FreeBlockHint() uint64       { return d.free }

func (d *File) checkRange(blk uint64, op string) error {
	if d.closed.Load() {
		return ErrClosed
	}
	if blk < d.first || blk >= d.alloc.Len() {
		return fmt.Errorf("%s block %d: %w", op, blk, ErrOutOfRange)
	}
	return nil
}

// ReadBlock reads block blk into buf.
func (d *File) ReadBlock(_ context.Context, blk uint64, buf []byte) error {
	if err := d.checkRange(blk, "read"); err != nil {
		return err
	}
	if len(buf) < d.blockSize {
		return ErrShortBuffer
	}

	off := int64(blk) * int64(d.blockSize)
	if _, err := d.f.ReadAt(buf[:d.blockSize], off); err != nil {
		return fmt.Errorf("read block %d: %w", blk, err)
	}
	return nil
}

// WriteBlock overwrites block blk with data.
func (d *File) WriteBlock(_ context.Context, blk uint64, data []byte) error {
	if err := d.checkRange(blk, "write"); err != nil {
		return err
	}
	if d.readOnly {
		return fmt.Errorf("write block %d: device is read-only", blk)
	}
	if len(data) != d.blockSize {
		return ErrBadLength
	}

	off := int64(blk) * int64(d.blockSize)
	if _, err := d.f.WriteAt(data, off); err != nil {
		return fmt.Errorf("write block %d: %w", blk, err)
	}
	return nil
}

// Sync flushes pending writes to stable storage.
func (d *File) Sync() error {
	if d.closed.Load() {
		return ErrClosed
	}
	return d.f.Sync()
}

// Close syncs and closes the underlying file.
func (d *File) Close() error {
	if d.closed.Swap(true) {
		return nil
	}
	if !d.readOnly {
		if err := d.f.Sync(); err != nil {
			d.f.Close()
			return err
		}
	}
	return d.f.Close()
}
