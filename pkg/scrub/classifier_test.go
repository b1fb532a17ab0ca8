package scrub

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/zeroblk/zeroblk/pkg/device"
)

func TestClassify(t *testing.T) {
	dev := device.NewMemory(4, 4)
	dev.Allocate(0)
	dev.FillBlock(1, 0x00) // clean for fill 0
	dev.FillBlock(2, 0x5A) // dirty

	s, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	buf := make([]byte, 4)

	cases := []struct {
		name string
		blk  uint64
		want Decision
	}{
		{"allocated block", 0, SkipAllocated},
		{"clean free block", 1, SkipClean},
		{"dirty free block", 2, Rewrite},
		{"untouched zero block", 3, SkipClean},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.classify(context.Background(), tc.blk, buf)
			if err != nil {
				t.Fatalf("classify(%d): %v", tc.blk, err)
			}
			if got != tc.want {
				t.Errorf("classify(%d) = %v, want %v", tc.blk, got, tc.want)
			}
		})
	}
}

func TestClassifyNeverWrites(t *testing.T) {
	dev := device.NewMemory(4, 2)
	dev.FillBlock(0, 0x77)
	before := dev.BlockData(0)

	s, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf := make([]byte, 4)
	if _, err := s.classify(context.Background(), 0, buf); err != nil {
		t.Fatalf("classify: %v", err)
	}
	if got := dev.BlockData(0); string(got) != string(before) {
		t.Errorf("classification mutated the block: %v -> %v", before, got)
	}
}

func TestClassifyReadFailure(t *testing.T) {
	dev := device.NewMemory(4, 2)
	dev.FailReadBlock(1, io.ErrUnexpectedEOF)

	s, err := New(dev, DefaultConfig())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	buf := make([]byte, 4)
	_, err = s.classify(context.Background(), 1, buf)
	var re *ReadError
	if !errors.As(err, &re) {
		t.Fatalf("classify error = %v, want *ReadError", err)
	}
	if re.Block != 1 {
		t.Errorf("ReadError.Block = %d, want 1", re.Block)
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadError does not unwrap to the device error: %v", err)
	}
}

func TestDecisionString(t *testing.T) {
	cases := map[Decision]string{
		SkipAllocated: "allocated",
		SkipClean:     "clean",
		Rewrite:       "rewrite",
		Decision(99):  "unknown",
	}
	for d, want := range cases {
		if got := d.String(); got != want {
			t.Errorf("Decision(%d).String() = %q, want %q", d, got, want)
		}
	}
}
