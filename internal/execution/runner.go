// Package execution runs the blocks of a committed topology: one goroutine
// per block, woken whenever one of its ports changes.
package execution

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/birdayz/kflow/kblock"
)

// ErrNotStarted is returned by operations that need a started Runner.
var ErrNotStarted = errors.New("execution: runner not started")

// Runner owns the workers of one topology run.
type Runner struct {
	log      *slog.Logger
	capacity int

	workers []*Worker

	busy     atomic.Int64
	activity atomic.Uint64

	cancel context.CancelFunc
	eg     *errgroup.Group
	done   chan struct{}

	errMtx sync.Mutex
	err    error

	stopOnce sync.Once
	stopErr  error
}

// Unit is a block together with its node ID.
type Unit struct {
	ID    string
	Block kblock.Block
}

// NewRunner creates a runner for the given blocks. capacity bounds the input
// queues of every block, in elements.
func NewRunner(log *slog.Logger, capacity int, units []Unit) *Runner {
	r := &Runner{
		log:      log,
		capacity: capacity,
		done:     make(chan struct{}),
	}
	for _, u := range units {
		r.workers = append(r.workers, newWorker(log, u.ID, u.Block, &r.busy))
	}
	return r
}

// Bind binds every block to this runner. On failure no block stays bound.
func (r *Runner) Bind() error {
	for i, w := range r.workers {
		err := kblock.Bind(w.block, kblock.Binding{
			Wake:     w.Wake,
			Activity: r.touch,
			Capacity: r.capacity,
		})
		if err != nil {
			for _, bound := range r.workers[:i] {
				kblock.Unbind(bound.block)
			}
			return err
		}
	}
	return nil
}

func (r *Runner) touch() {
	r.activity.Add(1)
}

// Start launches one goroutine per block. Blocks must be bound and their
// ports subscribed.
func (r *Runner) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	eg, ctx := errgroup.WithContext(ctx)
	r.eg = eg

	r.busy.Add(int64(len(r.workers)))
	for _, w := range r.workers {
		eg.Go(func() error {
			if err := w.Run(ctx); err != nil {
				r.setErr(err)
				r.log.Error("Block failed", "block", w.id, "error", err)
				return err
			}
			return nil
		})
	}

	go func() {
		_ = eg.Wait()
		close(r.done)
	}()
	r.log.Info("Runner started", "blocks", len(r.workers))
}

func (r *Runner) setErr(err error) {
	r.errMtx.Lock()
	defer r.errMtx.Unlock()
	r.err = multierr.Append(r.err, err)
}

// Err returns the errors raised by blocks so far, or nil.
func (r *Runner) Err() error {
	r.errMtx.Lock()
	defer r.errMtx.Unlock()
	return r.err
}

// idle reports whether no worker is running Work and none is scheduled.
func (r *Runner) idle() bool {
	if r.busy.Load() > 0 {
		return false
	}
	for _, w := range r.workers {
		if w.pending() {
			return false
		}
	}
	return true
}

// WaitInactive blocks until no data moved for at least idle and no block is
// working, or until timeout elapsed. A zero timeout waits forever. It
// returns true if the topology went inactive; a stopped runner is inactive.
func (r *Runner) WaitInactive(idle, timeout time.Duration) bool {
	if r.eg == nil {
		return true
	}

	tick := max(idle/4, time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	last := r.activity.Load()
	quietSince := time.Now()
	for {
		select {
		case <-r.done:
			return true
		case <-deadline:
			r.log.Warn("Topology did not go inactive", "timeout", timeout)
			return false
		case now := <-ticker.C:
			cur := r.activity.Load()
			if cur != last || !r.idle() {
				last = cur
				quietSince = now
				continue
			}
			if now.Sub(quietSince) >= idle {
				return true
			}
		}
	}
}

// Stop cancels all workers, waits for them, deactivates and unbinds every
// block. Only the first call does anything; later calls return the same
// result.
func (r *Runner) Stop() error {
	r.stopOnce.Do(func() {
		if r.eg != nil {
			r.cancel()
			<-r.done
		}

		var errs error
		for _, w := range r.workers {
			if r.eg != nil {
				errs = multierr.Append(errs, w.Deactivate())
			}
			kblock.Unbind(w.block)
		}
		r.stopErr = errs
		r.log.Info("Runner stopped")
	})
	return r.stopErr
}
