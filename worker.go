package dirwatch

import (
	"sync/atomic"
	"time"
)

// worker is the shared loop discipline for the Collector and Notifier drain
// loops: perform one unit of work, sleep for a short fixed quantum, check the
// stop flag. Shutdown is cooperative: halt lets the current unit finish and
// blocks until the loop confirms it has exited. A worker is single-use.
type worker struct {
	quantum time.Duration
	// step performs one unit of work and reports whether the loop should
	// continue. Returning false aborts the loop.
	step func() bool

	started chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	halted  atomic.Bool
	running atomic.Bool
}

func newWorker(quantum time.Duration, step func() bool) *worker {
	return &worker{
		quantum: quantum,
		step:    step,
		started: make(chan struct{}),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// start launches the loop and blocks until it has signalled initialization,
// so callers never need to spin-wait on a running flag.
func (w *worker) start() {
	go w.run()
	<-w.started
}

func (w *worker) run() {
	w.running.Store(true)
	close(w.started)
	defer func() {
		w.running.Store(false)
		close(w.stopped)
	}()

	timer := time.NewTimer(w.quantum)
	defer timer.Stop()

	for {
		if !w.step() {
			return
		}

		timer.Reset(w.quantum)
		select {
		case <-w.stop:
			return
		case <-timer.C:
		}
	}
}

// halt requests a stop and blocks until the loop has exited. Safe to call
// more than once and after the loop aborted on its own.
func (w *worker) halt() {
	if w.halted.CompareAndSwap(false, true) {
		close(w.stop)
	}
	<-w.stopped
}

func (w *worker) isRunning() bool {
	return w.running.Load()
}
