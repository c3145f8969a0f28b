package dirwatch

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/listenupapp/dirwatch/internal/queue"
)

// Backend is a scanner strategy. All backends honor the same contract toward
// the Collector: deliver either a complete *Scan of the current matching file
// set per polling interval, or individual FileStat updates as changes are
// detected (plus a periodic full-glob pass to catch additions, which kernel
// notification mechanisms cannot report for unwatched files).
type Backend interface {
	// Start launches the backend's periodic cycle. It returns once the
	// cycle is running.
	Start() error

	// Stop lets the current cycle finish, then blocks until the backend
	// has fully shut down.
	Stop() error

	// Pause discards detected changes until Resume. Paused is not
	// buffered: changes seen while paused are lost, and data already
	// queued still drains normally.
	Pause()

	// Resume re-enables enqueueing after Pause.
	Resume()

	// Running reports whether the periodic cycle is active. A backend
	// with MaxIterations configured stops on its own once exhausted.
	Running() bool
}

// driver is the generic periodic loop shared by all backends: tick at the
// scan interval, run one cycle unless paused, and auto-stop after
// maxIterations cycles when configured.
type driver struct {
	logger        *slog.Logger
	name          string
	interval      time.Duration
	maxIterations int

	// cycle produces one unit of work (a scan or a full pass).
	cycle func() error

	paused     atomic.Bool
	iterations int
	w          *worker
}

func newDriver(name string, interval time.Duration, maxIterations int, cycle func() error, logger *slog.Logger) *driver {
	return &driver{
		logger:        logger,
		name:          name,
		interval:      interval,
		maxIterations: maxIterations,
		cycle:         cycle,
	}
}

// Start launches the periodic cycle. The first cycle runs immediately.
func (d *driver) Start() error {
	if d.Running() {
		return ErrAlreadyRunning
	}
	d.iterations = 0
	d.w = newWorker(d.interval, d.step)
	d.w.start()
	return nil
}

func (d *driver) step() bool {
	if !d.paused.Load() {
		if err := d.cycle(); err != nil {
			d.logger.Warn("scanner cycle failed", "backend", d.name, "error", err)
		}
	}

	if d.maxIterations > 0 {
		d.iterations++
		if d.iterations >= d.maxIterations {
			d.logger.Debug("scanner reached maximum iterations", "backend", d.name, "iterations", d.iterations)
			return false
		}
	}
	return true
}

// Stop halts the periodic cycle.
func (d *driver) Stop() error {
	if d.w == nil {
		return ErrNotRunning
	}
	d.w.halt()
	d.w = nil
	return nil
}

// Pause discards detected changes until Resume.
func (d *driver) Pause() { d.paused.Store(true) }

// Resume re-enables enqueueing.
func (d *driver) Resume() { d.paused.Store(false) }

// Running reports whether the periodic cycle is active.
func (d *driver) Running() bool {
	return d.w != nil && d.w.isRunning()
}

// availability probes populate the capability registry. A requested backend
// that is registered but unavailable falls back to the poller.
var backendProbes = map[string]func() bool{
	BackendPoll:     func() bool { return true },
	BackendFsnotify: fsnotifyAvailable,
}

func fsnotifyAvailable() bool {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return false
	}
	w.Close()
	return true
}

// Backends returns the registered backend names and their availability on
// this system.
func Backends() map[string]bool {
	out := make(map[string]bool, len(backendProbes))
	for name, probe := range backendProbes {
		out[name] = probe()
	}
	return out
}

// newBackend builds the requested backend, falling back to the poller when
// the requested one is unavailable. It returns the backend and the name of
// the strategy actually in effect.
func newBackend(opts Options, sink *queue.Queue[any], logger *slog.Logger) (Backend, string, error) {
	probe, ok := backendProbes[opts.Backend]
	if !ok {
		return nil, "", ErrUnknownBackend
	}

	name := opts.Backend
	if !probe() {
		logger.Warn("requested scanner backend unavailable, falling back to polling", "backend", name)
		name = BackendPoll
	}

	switch name {
	case BackendFsnotify:
		b, err := newFsnotifyBackend(opts, sink, logger)
		if err != nil {
			return nil, "", err
		}
		return b, name, nil
	default:
		b, err := newPollBackend(opts, sink, logger)
		if err != nil {
			return nil, "", err
		}
		return b, name, nil
	}
}
