package measure

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// ErrBusy is returned when a measurement is started while another runs
	ErrBusy = errors.New("measurement already running")

	// ErrCancelUnsupported is returned by Cancel. A measurement in progress
	// always runs to completion or failure.
	ErrCancelUnsupported = errors.New("cancelling a running measurement is not supported")
)

// Completion is the single outcome of a background measurement
type Completion struct {
	Result *Result
	Err    error
}

// Worker runs one measurement at a time on a background goroutine, keeping
// the caller responsive.
type Worker struct {
	runner  *Runner
	running atomic.Bool
	wg      sync.WaitGroup
}

// NewWorker creates a worker executing plans with r
func NewWorker(r *Runner) *Worker {
	return &Worker{runner: r}
}

// Start begins a measurement. The returned channel receives exactly one
// Completion and is then closed. The measurement is detached from ctx
// cancellation, ctx only supplies values.
func (w *Worker) Start(ctx context.Context, plan Plan) (<-chan Completion, error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}

	done := make(chan Completion, 1)
	ctx = context.WithoutCancel(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()

		c := w.run(ctx, plan)

		w.running.Store(false)
		done <- c
		close(done)
	}()

	return done, nil
}

// Running reports whether a measurement is in progress
func (w *Worker) Running() bool {
	return w.running.Load()
}

// Cancel always fails, see ErrCancelUnsupported
func (w *Worker) Cancel() error {
	return ErrCancelUnsupported
}

// Wait blocks until the current measurement, if any, has completed
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, plan Plan) (c Completion) {
	defer func() {
		if r := recover(); r != nil {
			c = Completion{Err: fmt.Errorf("measurement panicked: %v", r)}
		}
	}()

	c.Result, c.Err = w.runner.Run(ctx, plan)
	return
}
