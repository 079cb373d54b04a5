package execution

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/birdayz/kflow/kblock"
)

type WorkerState string

const (
	StateCreated WorkerState = "CREATED"
	StateRunning WorkerState = "RUNNING"
	StateWaiting WorkerState = "WAITING"
	StateStopped WorkerState = "STOPPED"
	StateErrored WorkerState = "ERRORED"
)

// Worker drives a single block: it calls Work while the block makes
// progress and sleeps on its wake channel otherwise.
type Worker struct {
	id    string
	block kblock.Block
	log   *slog.Logger

	wake chan struct{}

	// shared with the runner
	busy *atomic.Int64

	state WorkerState
}

func newWorker(log *slog.Logger, id string, block kblock.Block, busy *atomic.Int64) *Worker {
	return &Worker{
		id:    id,
		block: block,
		log:   log.With("block", id),
		wake:  make(chan struct{}, 1),
		busy:  busy,
		state: StateCreated,
	}
}

// Wake schedules another Work call. It never blocks.
func (w *Worker) Wake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *Worker) pending() bool {
	return len(w.wake) > 0
}

func (w *Worker) changeState(newState WorkerState) {
	w.log.Debug("Change state", "from", w.state, "to", newState)
	w.state = newState
}

// Run loops until ctx is done or the block fails. The caller must have
// counted the worker as busy.
func (w *Worker) Run(ctx context.Context) (err error) {
	busy := true
	defer func() {
		if busy {
			w.busy.Add(-1)
		}
		if err != nil {
			w.changeState(StateErrored)
		} else {
			w.changeState(StateStopped)
		}
	}()

	if a, ok := w.block.(kblock.Activator); ok {
		if err := w.call(StageActivate, a.Activate); err != nil {
			return err
		}
	}

	w.changeState(StateRunning)
	for {
		if ctx.Err() != nil {
			return nil
		}

		before := w.block.Transfers()
		if err := w.call(StageWork, func() error { return w.block.Work(ctx) }); err != nil {
			return err
		}
		if w.block.Transfers() != before {
			continue
		}

		busy = false
		w.busy.Add(-1)
		w.changeState(StateWaiting)
		select {
		case <-ctx.Done():
			return nil
		case <-w.wake:
		}
		w.busy.Add(1)
		busy = true
		w.changeState(StateRunning)
	}
}

// Deactivate runs the block's Deactivate hook, if any.
func (w *Worker) Deactivate() error {
	if d, ok := w.block.(kblock.Deactivator); ok {
		return w.call(StageDeactivate, d.Deactivate)
	}
	return nil
}

// call runs fn, turning errors and panics into a BlockError.
func (w *Worker) call(stage Stage, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &BlockError{Cause: &PanicError{Value: r}, Stage: stage, Block: w.id, Path: w.block.Path()}
		}
	}()
	if err := fn(); err != nil {
		return &BlockError{Cause: err, Stage: stage, Block: w.id, Path: w.block.Path()}
	}
	return nil
}
