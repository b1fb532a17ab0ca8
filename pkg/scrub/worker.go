package scrub

import (
	"context"
	"errors"

	"github.com/zeroblk/zeroblk/pkg/bufpool"
)

// worker is the body of one pool goroutine. It loops through
// wait-for-job -> run -> report until shutdown, or until it hits a fatal
// I/O error.
func (s *Scrubber) worker(ctx context.Context) {
	buf := bufpool.Get(s.dev.BlockSize())
	defer bufpool.Put(buf)

	s.mu.Lock()
	for {
		// The wait predicate must include shutdown: the final broadcast
		// arrives with no job pending, and a worker waiting on pending
		// alone would park forever.
		for !s.pending && !s.shutdown {
			s.jobReady.Wait()
		}
		if !s.pending {
			break
		}

		blk := s.pendingBlock
		s.pending = false
		s.inflight++
		if s.onAccept != nil {
			s.onAccept(blk, s.inflight)
		}
		s.jobTaken.Signal()
		s.mu.Unlock()

		d, err := s.process(ctx, blk, buf)

		s.mu.Lock()
		if err == nil {
			s.account(d)
		} else {
			// The block was determined free before the failing I/O;
			// keep the partial counters honest.
			s.noteFree()
			var we *WriteError
			if errors.As(err, &we) {
				s.modifiedBlocks++
			}
		}
		s.inflight--
		s.jobDone.Signal()

		if err != nil {
			if s.err == nil {
				s.err = err
			}
			// The dispatcher may be parked waiting for acceptance of a
			// job nobody will take now.
			s.jobTaken.Broadcast()
			break
		}
	}
	s.mu.Unlock()
}

// process runs the lock-free phase of one job: classify the block and, on a
// Rewrite decision, overwrite it with the fill pattern (suppressed in
// dry-run mode).
func (s *Scrubber) process(ctx context.Context, blk uint64, buf []byte) (Decision, error) {
	d, err := s.classify(ctx, blk, buf)
	if err != nil || d != Rewrite {
		return d, err
	}
	if s.dryRun {
		return d, nil
	}
	if err := s.dev.WriteBlock(ctx, blk, s.fill); err != nil {
		return d, &WriteError{Block: blk, Err: err}
	}
	return d, nil
}
