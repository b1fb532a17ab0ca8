package device

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
)

func TestMemoryReadWrite(t *testing.T) {
	ctx := context.Background()
	dev := NewMemory(8, 4)

	data := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	if err := dev.WriteBlock(ctx, 2, data); err != nil {
		t.Fatalf("WriteBlock: %v", err)
	}

	buf := make([]byte, 8)
	if err := dev.ReadBlock(ctx, 2, buf); err != nil {
		t.Fatalf("ReadBlock: %v", err)
	}
	if string(buf) != string(data) {
		t.Errorf("ReadBlock = %v, want %v", buf, data)
	}
}

func TestMemoryBounds(t *testing.T) {
	ctx := context.Background()
	dev := NewMemory(8, 4)
	buf := make([]byte, 8)

	if err := dev.ReadBlock(ctx, 4, buf); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("read past end: %v, want ErrOutOfRange", err)
	}
	if err := dev.WriteBlock(ctx, 9, buf); !errors.Is(err, ErrOutOfRange) {
		t.Errorf("write past end: %v, want ErrOutOfRange", err)
	}
	if err := dev.ReadBlock(ctx, 0, buf[:4]); !errors.Is(err, ErrShortBuffer) {
		t.Errorf("short read buffer: %v, want ErrShortBuffer", err)
	}
	if err := dev.WriteBlock(ctx, 0, buf[:4]); !errors.Is(err, ErrBadLength) {
		t.Errorf("short write payload: %v, want ErrBadLength", err)
	}
}

func TestMemoryAllocationAndHint(t *testing.T) {
	dev := NewMemory(4, 10)
	dev.Allocate(3)
	dev.Allocate(7)

	if !dev.IsAllocated(3) || !dev.IsAllocated(7) || dev.IsAllocated(0) {
		t.Error("allocation state wrong")
	}
	if got := dev.FreeBlockHint(); got != 8 {
		t.Errorf("FreeBlockHint = %d, want 8", got)
	}
}

func TestMemoryFaultInjection(t *testing.T) {
	ctx := context.Background()
	dev := NewMemory(4, 4)
	dev.FailReadBlock(1, io.ErrUnexpectedEOF)
	dev.FailWriteBlock(2, io.ErrShortWrite)

	buf := make([]byte, 4)
	if err := dev.ReadBlock(ctx, 1, buf); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("injected read error missing: %v", err)
	}
	if err := dev.WriteBlock(ctx, 2, buf); !errors.Is(err, io.ErrShortWrite) {
		t.Errorf("injected write error missing: %v", err)
	}
	// Other blocks are unaffected.
	if err := dev.ReadBlock(ctx, 0, buf); err != nil {
		t.Errorf("healthy block read failed: %v", err)
	}
}

func TestMemoryClose(t *testing.T) {
	ctx := context.Background()
	dev := NewMemory(4, 4)
	if err := dev.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	buf := make([]byte, 4)
	if err := dev.ReadBlock(ctx, 0, buf); !errors.Is(err, ErrClosed) {
		t.Errorf("read after close: %v, want ErrClosed", err)
	}
}

func TestMemoryConcurrentDisjointBlocks(t *testing.T) {
	ctx := context.Background()
	dev := NewMemory(64, 32)

	var wg sync.WaitGroup
	for blk := uint64(0); blk < 32; blk++ {
		wg.Add(1)
		go func(blk uint64) {
			defer wg.Done()
			data := make([]byte, 64)
			for i := range data {
				data[i] = byte(blk)
			}
			if err := dev.WriteBlock(ctx, blk, data); err != nil {
				t.Errorf("write block %d: %v", blk, err)
				return
			}
			buf := make([]byte, 64)
			if err := dev.ReadBlock(ctx, blk, buf); err != nil {
				t.Errorf("read block %d: %v", blk, err)
				return
			}
			if buf[0] != byte(blk) {
				t.Errorf("block %d holds %d", blk, buf[0])
			}
		}(blk)
	}
	wg.Wait()
}
