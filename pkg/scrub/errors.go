package scrub

import (
	"errors"
	"fmt"
)

// Configuration errors. These are detected by New before any worker starts;
// a run never begins with an invalid setup.
var (
	// ErrNilDevice indicates no device was supplied.
	ErrNilDevice = errors.New("device is required")

	// ErrInvalidBlockSize indicates the device reports a non-positive block size.
	ErrInvalidBlockSize = errors.New("device block size must be positive")

	// ErrInvalidFill indicates a fill value outside 0-255.
	ErrInvalidFill = errors.New("fill value must be between 0 and 255")

	// ErrInvalidWorkers indicates a worker count outside 1-MaxWorkers.
	ErrInvalidWorkers = fmt.Errorf("worker count must be between 1 and %d", MaxWorkers)
)

// ReadError reports a failed block read during classification. A ReadError
// aborts the run; remaining workers drain and the partial counters are
// returned alongside it.
type ReadError struct {
	Block uint64
	Err   error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read block %d: %v", e.Block, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// WriteError reports a failed block rewrite. Same run-abort policy as
// ReadError.
type WriteError struct {
	Block uint64
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write block %d: %v", e.Block, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
