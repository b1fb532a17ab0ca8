package device

import "errors"

// Standard device errors. Callers match these with errors.Is after
// implementations wrap them with block context.
var (
	// ErrOutOfRange indicates a block index outside [FirstBlock, BlockCount).
	ErrOutOfRange = errors.New("block index out of range")

	// ErrShortBuffer indicates the caller's buffer is smaller than one block.
	ErrShortBuffer = errors.New("buffer smaller than block size")

	// ErrBadLength indicates a write payload that is not exactly one block.
	ErrBadLength = errors.New("payload length does not match block size")

	// ErrClosed indicates the device has been closed.
	ErrClosed = errors.New("device is closed")
)
