// Package scrub implements the concurrent free-block scrubber.
//
// A Scrubber walks every block of a device in ascending index order,
// classifies each block (allocated, already clean, or needing a rewrite),
// and overwrites dirty free blocks with a fill pattern. A single dispatcher
// hands block indices to a fixed pool of workers one at a time through a
// capacity-1 mailbox with synchronous handoff, so the producer never
// outruns the configured concurrency and every index is accepted by exactly
// one worker.
//
// All cross-goroutine state (the mailbox, the in-flight counter, the
// shutdown flag, the progress counters) lives behind a single mutex with
// three condition variables:
//
//   - jobReady: a job was placed in the mailbox, or shutdown was requested
//   - jobTaken: the pending job was accepted by a worker
//   - jobDone:  a worker finished a job, freeing a pool slot
//
// Block I/O happens outside the mutex, which is what lets reads and writes
// overlap across workers.
package scrub

import (
	"context"
	"errors"
	"sync"

	"github.com/zeroblk/zeroblk/pkg/device"
)

// MaxWorkers caps the worker pool size. Beyond a few hundred workers the
// dispatcher handoff dominates and extra goroutines only add overhead.
const MaxWorkers = 256

// ProgressFunc receives percent-complete updates. It is invoked with the
// coordination lock held and only when the displayed tenth of a percent
// changes, so it must be fast and must not call back into the Scrubber.
type ProgressFunc func(percent float64)

// Recorder receives per-block observations. Implementations must be safe
// for concurrent use. A nil Recorder disables metrics with zero overhead.
type Recorder interface {
	// ObserveScan records a classified block with its decision.
	ObserveScan(d Decision)

	// ObserveRewrite records an actual or simulated rewrite of n bytes.
	ObserveRewrite(n int)
}

// Config holds scrub run configuration.
type Config struct {
	// Fill is the byte value written to reclaimed blocks and compared
	// against when deciding whether a block is already clean. Must be
	// 0-255. Default: 0.
	Fill int

	// Workers is the size of the worker pool. Must be 1-MaxWorkers.
	// Default: 1.
	Workers int

	// DryRun suppresses writes. Blocks that would be rewritten are still
	// counted as modified, so repeated dry runs over an unchanged device
	// report identical results.
	DryRun bool

	// Progress, when non-nil, receives percent-complete updates.
	Progress ProgressFunc

	// Metrics, when non-nil, receives per-block observations.
	Metrics Recorder
}

// DefaultConfig returns the default scrub configuration.
func DefaultConfig() Config {
	return Config{Fill: 0, Workers: 1}
}

// Result summarizes a scrub run. On a failed run it holds the counters
// gathered up to the failure point.
type Result struct {
	// FreeBlocks is the number of blocks found unallocated.
	FreeBlocks uint64

	// ModifiedBlocks is the number of blocks rewritten (or that would
	// have been rewritten in dry-run mode).
	ModifiedBlocks uint64

	// TotalBlocks is the device block count.
	TotalBlocks uint64
}

// Scrubber coordinates one scrub run over a device. A Scrubber is built
// with New and used for a single Run call.
type Scrubber struct {
	dev      device.Device
	fill     []byte
	workers  int
	dryRun   bool
	progress ProgressFunc
	metrics  Recorder

	mu       sync.Mutex
	jobReady *sync.Cond
	jobTaken *sync.Cond
	jobDone  *sync.Cond

	// Capacity-1 mailbox. Written only by the dispatcher, cleared only by
	// the accepting worker. At most one block is ever pending.
	pending      bool
	pendingBlock uint64

	// inflight counts workers between job acceptance and completion.
	// Invariant: 0 <= inflight <= workers.
	inflight int

	// shutdown transitions false->true exactly once, after the dispatcher
	// exhausts the index range or the run fails.
	shutdown bool

	freeBlocks     uint64
	modifiedBlocks uint64
	freeHint       uint64
	lastTenth      int

	// err holds the first fatal error; later errors are dropped.
	err error

	// onAccept is a test hook observing each job acceptance together with
	// the in-flight count at that instant.
	onAccept func(blk uint64, inflight int)
}

// New validates cfg and builds a Scrubber for dev. Configuration problems
// are reported here, before any worker goroutine exists.
func New(dev device.Device, cfg Config) (*Scrubber, error) {
	if dev == nil {
		return nil, ErrNilDevice
	}
	if dev.BlockSize() <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if cfg.Fill < 0 || cfg.Fill > 0xFF {
		return nil, ErrInvalidFill
	}
	if cfg.Workers == 0 {
		cfg.Workers = 1
	}
	if cfg.Workers < 1 || cfg.Workers > MaxWorkers {
		return nil, ErrInvalidWorkers
	}

	fill := make([]byte, dev.BlockSize())
	for i := range fill {
		fill[i] = byte(cfg.Fill)
	}

	s := &Scrubber{
		dev:       dev,
		fill:      fill,
		workers:   cfg.Workers,
		dryRun:    cfg.DryRun,
		progress:  cfg.Progress,
		metrics:   cfg.Metrics,
		freeHint:  dev.FreeBlockHint(),
		lastTenth: -1,
	}
	s.jobReady = sync.NewCond(&s.mu)
	s.jobTaken = sync.NewCond(&s.mu)
	s.jobDone = sync.NewCond(&s.mu)
	return s, nil
}

// Run scans [FirstBlock, BlockCount) and returns the run summary.
//
// Indices are handed out in strictly ascending order; they may complete out
// of order. Run returns once every worker has terminated. On failure the
// first error is returned together with the counters gathered so far.
// Cancelling ctx stops the dispatcher between handoffs; in-flight block
// operations finish.
func (s *Scrubber) Run(ctx context.Context) (Result, error) {
	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.worker(ctx)
		}()
	}

	count := s.dev.BlockCount()
	for blk := s.dev.FirstBlock(); blk < count; blk++ {
		if err := ctx.Err(); err != nil {
			s.fail(err)
			break
		}
		if !s.dispatch(blk) {
			break
		}
	}

	// Range exhausted or run failed: wake everyone still waiting for a job
	// and wait for the pool to drain.
	s.mu.Lock()
	s.shutdown = true
	s.jobReady.Broadcast()
	s.mu.Unlock()

	wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	res := Result{
		FreeBlocks:     s.freeBlocks,
		ModifiedBlocks: s.modifiedBlocks,
		TotalBlocks:    count,
	}
	return res, s.err
}

// dispatch performs the synchronous handoff of one block index. It blocks
// while every pool slot is occupied (admission control), then parks the
// index in the mailbox and waits until a worker has accepted it. Returns
// false when the run has failed and dispatching must stop.
func (s *Scrubber) dispatch(blk uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.inflight >= s.workers && s.err == nil {
		s.jobDone.Wait()
	}
	if s.err != nil {
		return false
	}

	s.pending = true
	s.pendingBlock = blk
	s.jobReady.Signal()

	for s.pending && s.err == nil {
		s.jobTaken.Wait()
	}
	if s.err != nil {
		// Failed while the job was still unaccepted: retract it so no
		// worker picks it up during shutdown.
		s.pending = false
		return false
	}
	return true
}

// fail records err as the run error if it is the first one.
func (s *Scrubber) fail(err error) {
	s.mu.Lock()
	if s.err == nil {
		s.err = err
	}
	s.mu.Unlock()
}

// noteFree updates the free-block counter and the percent readout. Must be
// called with the lock held.
func (s *Scrubber) noteFree() {
	s.freeBlocks++
	if s.progress == nil || s.freeHint == 0 {
		return
	}
	percent := 100 * float64(s.freeBlocks) / float64(s.freeHint)
	if tenth := int(percent * 10); tenth != s.lastTenth {
		s.lastTenth = tenth
		s.progress(percent)
	}
}

// account applies a finished block's decision to the shared counters.
// Must be called with the lock held.
func (s *Scrubber) account(d Decision) {
	if d != SkipAllocated {
		s.noteFree()
	}
	if d == Rewrite {
		s.modifiedBlocks++
		if s.metrics != nil {
			s.metrics.ObserveRewrite(len(s.fill))
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveScan(d)
	}
}

// Snapshot returns the current counters. Safe to call from any goroutine,
// including while a run is in progress.
func (s *Scrubber) Snapshot() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Result{
		FreeBlocks:     s.freeBlocks,
		ModifiedBlocks: s.modifiedBlocks,
		TotalBlocks:    s.dev.BlockCount(),
	}
}

// IsFatal reports whether err is a block I/O failure that aborted a run.
func IsFatal(err error) bool {
	var re *ReadError
	var we *WriteError
	return errors.As(err, &re) || errors.As(err, &we)
}
