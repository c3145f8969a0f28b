package dirwatch

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/listenupapp/dirwatch/internal/queue"
	"github.com/listenupapp/dirwatch/internal/statestore"
)

// joinPollInterval is how often Join re-checks the backend state.
const joinPollInterval = 10 * time.Millisecond

// Watcher is the top-level coordinator: it owns configuration and lifecycle
// and wires scanner backend → Collector → Notifier. Construct with New,
// register observers, then Start.
type Watcher struct {
	logger *slog.Logger
	opts   Options

	collectQ *queue.Queue[any]
	notifyQ  *queue.Queue[Event]

	collector   *Collector
	notifier    *Notifier
	backend     Backend
	backendName string

	mu      sync.Mutex
	running bool
	paused  bool
}

// New validates opts and builds a watcher. A nil logger falls back to
// slog.Default. Misconfiguration (missing or non-directory root, non-positive
// interval, unknown sort key or backend) is rejected here, never deferred to
// runtime.
func New(logger *slog.Logger, opts Options) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}

	collectQ := queue.New[any]()
	notifyQ := queue.New[Event]()

	backend, backendName, err := newBackend(opts, collectQ, logger)
	if err != nil {
		return nil, err
	}

	// Removed-file reconciliation belongs to full-scan polling only; the
	// kernel-notification backend reports removals itself.
	collector := NewCollector(collectQ, notifyQ, CollectorConfig{
		SortBy:          opts.SortBy,
		OrderBy:         opts.OrderBy,
		StableThreshold: opts.StableThreshold,
		Reconcile:       backendName == BackendPoll,
	}, logger)

	return &Watcher{
		logger:      logger,
		opts:        opts,
		collectQ:    collectQ,
		notifyQ:     notifyQ,
		collector:   collector,
		notifier:    NewNotifier(notifyQ, logger),
		backend:     backend,
		backendName: backendName,
	}, nil
}

// AddObserver registers an observer under handle.
func (w *Watcher) AddObserver(handle string, obs Observer) {
	w.notifier.AddObserver(handle, obs)
}

// AddObserverFunc registers a function observer and returns its handle.
func (w *Watcher) AddObserverFunc(fn ObserverFunc) string {
	return w.notifier.AddObserverFunc(fn)
}

// DeleteObserver removes the observer registered under handle.
func (w *Watcher) DeleteObserver(handle string) {
	w.notifier.DeleteObserver(handle)
}

// DeleteObservers removes all observers.
func (w *Watcher) DeleteObservers() {
	w.notifier.DeleteObservers()
}

// CountObservers returns the number of registered observers.
func (w *Watcher) CountObservers() int {
	return w.notifier.CountObservers()
}

// Start loads persisted state (when configured), establishes the pre-load
// baseline (when configured), and launches the three loops.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrAlreadyRunning
	}

	w.loadPersisted()

	if w.opts.PreLoad {
		if err := w.seed(); err != nil {
			return err
		}
	}

	// Consumers first so nothing the backend produces can pile up unseen.
	if err := w.notifier.Start(); err != nil {
		return err
	}
	if err := w.collector.Start(); err != nil {
		w.notifier.Stop()
		return err
	}
	if err := w.backend.Start(); err != nil {
		w.collector.Stop()
		w.notifier.Stop()
		return err
	}

	w.running = true
	w.paused = false
	w.logger.Info("watcher started",
		"dir", w.opts.Dir,
		"backend", w.backendName,
		"interval", w.opts.Interval,
	)
	return nil
}

// Stop shuts the loops down cooperatively in producer→consumer order, drains
// anything still queued so no notification is lost across a restart, and
// persists the state table when configured.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return ErrNotRunning
	}

	if err := w.backend.Stop(); err != nil && !errors.Is(err, ErrNotRunning) {
		w.logger.Warn("backend stop failed", "error", err)
	}

	w.collector.Stop()
	// Final synchronous drains: the loops are stopped, so this goroutine
	// is the sole owner now.
	w.collector.drain()
	w.notifier.Stop()
	w.notifier.Dispatch()

	w.running = false
	w.persist()

	w.logger.Info("watcher stopped", "dir", w.opts.Dir)
	return w.collector.Err()
}

// Pause discards changes detected by the scanner until Resume. Events already
// queued still drain normally.
func (w *Watcher) Pause() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return ErrNotRunning
	}
	w.backend.Pause()
	w.paused = true
	return nil
}

// Resume re-enables scanning after Pause.
func (w *Watcher) Resume() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return ErrNotRunning
	}
	w.backend.Resume()
	w.paused = false
	return nil
}

// Running reports whether the watcher has been started and not yet stopped.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// Paused reports whether the scanner is paused.
func (w *Watcher) Paused() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.paused
}

// Reset clears the state table, the stability counters, and the dedup slot.
// With preLoad it reseeds the baseline by scanning without emitting events.
// Only legal while the watcher is stopped.
func (w *Watcher) Reset(preLoad bool) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return ErrRunning
	}

	if err := w.collector.Reset(); err != nil {
		return err
	}
	w.notifier.resetDedup()

	if preLoad {
		return w.seed()
	}
	return nil
}

// RunOnce performs a single synchronous scan+collect+dispatch cycle without
// starting any loops and returns the number of events delivered to observers.
// Only legal while the watcher is stopped.
func (w *Watcher) RunOnce() (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return 0, ErrRunning
	}

	scan, err := NewScan(w.opts.Dir, w.opts.Globs, w.opts.IgnoreGlobs, w.logger)
	if err != nil {
		return 0, err
	}
	w.collector.OnScan(scan, true)
	return w.notifier.Dispatch(), nil
}

// Join blocks until the scanner backend stops, typically because
// MaxIterations was exhausted. A zero timeout waits forever; a positive
// timeout returns ErrJoinTimeout when it expires first.
func (w *Watcher) Join(timeout time.Duration) error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	for w.backend.Running() {
		if !deadline.IsZero() && time.Now().After(deadline) {
			return ErrJoinTimeout
		}
		time.Sleep(joinPollInterval)
	}
	return nil
}

// DumpStats serializes the state table to sink. Only legal while stopped.
func (w *Watcher) DumpStats(sink io.Writer) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrRunning
	}
	return w.collector.DumpStats(sink)
}

// LoadStats replaces the state table with the snapshot read from source.
// Only legal while stopped.
func (w *Watcher) LoadStats(source io.Reader) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return ErrRunning
	}
	return w.collector.LoadStats(source)
}

// seed establishes the baseline state from a scan without emitting events.
func (w *Watcher) seed() error {
	scan, err := NewScan(w.opts.Dir, w.opts.Globs, w.opts.IgnoreGlobs, w.logger)
	if err != nil {
		return fmt.Errorf("pre-load scan: %w", err)
	}
	w.collector.OnScan(scan, false)
	w.logger.Debug("pre-loaded baseline state", "paths", len(scan.Results()))
	return nil
}

// loadPersisted restores the state table from the persist store, if
// configured. Persistence failures degrade to a cold start, never a crash.
func (w *Watcher) loadPersisted() {
	if w.opts.PersistPath == "" {
		return
	}

	store, err := statestore.Open(w.opts.PersistPath)
	if err != nil {
		w.logger.Warn("failed to open persist store, starting cold", "path", w.opts.PersistPath, "error", err)
		return
	}
	defer store.Close()

	records, err := store.Load()
	if err != nil {
		w.logger.Warn("failed to load persisted state, starting cold", "path", w.opts.PersistPath, "error", err)
		return
	}

	state := make(map[string]FileStat, len(records))
	for _, rec := range records {
		state[rec.Path] = FileStat{Path: rec.Path, ModTime: rec.ModTime, Size: rec.Size, Removed: rec.Removed}
	}
	if err := w.collector.Restore(state); err != nil {
		w.logger.Warn("failed to restore persisted state", "error", err)
		return
	}
	w.logger.Info("restored persisted state", "path", w.opts.PersistPath, "paths", len(state))
}

// persist saves the state table to the persist store, if configured.
func (w *Watcher) persist() {
	if w.opts.PersistPath == "" {
		return
	}

	store, err := statestore.Open(w.opts.PersistPath)
	if err != nil {
		w.logger.Warn("failed to open persist store, state not saved", "path", w.opts.PersistPath, "error", err)
		return
	}
	defer store.Close()

	state := w.collector.Snapshot()
	records := make([]statestore.Record, 0, len(state))
	for _, st := range state {
		records = append(records, statestore.Record{Path: st.Path, ModTime: st.ModTime, Size: st.Size, Removed: st.Removed})
	}

	if err := store.Save(records); err != nil {
		w.logger.Warn("failed to persist state", "path", w.opts.PersistPath, "error", err)
		return
	}
	w.logger.Debug("persisted state", "path", w.opts.PersistPath, "paths", len(records))
}
