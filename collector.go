package dirwatch

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/listenupapp/dirwatch/internal/queue"
)

// collectorQuantum is the sleep between drain passes of the Collector loop.
const collectorQuantum = 10 * time.Millisecond

// CollectorConfig controls event ordering, the stability engine, and the
// removed-file reconciliation pass.
type CollectorConfig struct {
	SortBy  SortBy
	OrderBy OrderBy

	// StableThreshold is the number of consecutive unchanged observations
	// after an add/modify before a stable event emits. Zero disables
	// stability tracking entirely.
	StableThreshold int

	// Reconcile controls whether OnScan synthesizes removed events for
	// tracked paths absent from a scan. Full scans from the polling
	// backend reconcile; kernel-notification backends report removals
	// through their own callbacks and must not, or their periodic
	// addition-catching scans would double-report removals.
	Reconcile bool
}

// Collector is the single authority that turns a stream of Scan batches and
// per-file FileStat updates into an ordered, policy-filtered Event stream.
//
// It exclusively owns the authoritative path→FileStat table and the per-path
// stability counters. While the drain loop runs, only that loop touches them;
// maintenance operations (LoadStats, Restore, Reset) are legal only while the
// loop is stopped.
type Collector struct {
	logger *slog.Logger
	cfg    CollectorConfig

	source *queue.Queue[any]
	sink   *queue.Queue[Event]

	state    map[string]FileStat
	counters map[string]int

	w       *worker
	loopErr error
}

// NewCollector creates a Collector draining source and emitting onto sink.
func NewCollector(source *queue.Queue[any], sink *queue.Queue[Event], cfg CollectorConfig, logger *slog.Logger) *Collector {
	return &Collector{
		logger:   logger,
		cfg:      cfg,
		source:   source,
		sink:     sink,
		state:    make(map[string]FileStat),
		counters: make(map[string]int),
	}
}

// Start launches the drain loop.
func (c *Collector) Start() error {
	if c.Running() {
		return ErrAlreadyRunning
	}
	c.loopErr = nil
	c.w = newWorker(collectorQuantum, c.drain)
	c.w.start()
	return nil
}

// Stop lets the current drain pass finish, then blocks until the loop exits.
func (c *Collector) Stop() error {
	if c.w == nil {
		return ErrNotRunning
	}
	c.w.halt()
	c.w = nil
	return c.loopErr
}

// Running reports whether the drain loop is active.
func (c *Collector) Running() bool {
	return c.w != nil && c.w.isRunning()
}

// Err returns the error that aborted the drain loop, if any.
func (c *Collector) Err() error {
	return c.loopErr
}

// drain empties everything currently queued on the collection channel. A
// malformed item is a contract violation by the producer: it aborts the loop
// rather than being masked.
func (c *Collector) drain() bool {
	for {
		item, ok := c.source.TryPop()
		if !ok {
			return true
		}

		switch v := item.(type) {
		case *Scan:
			c.OnScan(v, true)
		case FileStat:
			c.OnStat(v, true)
		default:
			c.loopErr = fmt.Errorf("%w: %T", ErrCollectorProtocol, item)
			c.logger.Error("collector: aborting on protocol violation", "item_type", fmt.Sprintf("%T", item))
			return false
		}
	}
}

// OnScan processes one full scan: every FileStat in the scan, in the
// configured sort order, runs the per-path pipeline; afterwards, when
// reconciliation is enabled, every tracked path absent from the scan is
// compared against the removed sentinel. With emit == false the state table
// is updated but no events are produced and no stability counters are armed
// (pre-load: establish the baseline without announcing pre-existing files).
func (c *Collector) OnScan(scan *Scan, emit bool) {
	stats := make([]FileStat, len(scan.Results()))
	copy(stats, scan.Results())
	c.sortStats(stats)

	for _, st := range stats {
		c.processStat(st, emit)
	}

	if !c.cfg.Reconcile {
		return
	}

	present := scan.Paths()
	var missing []string
	for path := range c.state {
		if _, ok := present[path]; !ok {
			missing = append(missing, path)
		}
	}
	sort.Strings(missing)

	for _, path := range missing {
		c.processStat(NewRemovedStat(path), emit)
	}
}

// OnStat processes a single per-file update, as reported by a
// kernel-notification backend that detects one file's change without a full
// rescan.
func (c *Collector) OnStat(stat FileStat, emit bool) {
	c.processStat(stat, emit)
}

// processStat is the per-path pipeline: swap the prior stat for the new one,
// derive the event, and run it through the stability/emission policy.
func (c *Collector) processStat(cur FileStat, emit bool) {
	var prev *FileStat
	if old, ok := c.state[cur.Path]; ok {
		prev = &old
		delete(c.state, cur.Path)
	}
	if !cur.IsRemoved() {
		c.state[cur.Path] = cur
	}

	if !emit {
		return
	}

	c.apply(Event{Type: classify(prev, cur), Path: cur.Path})
}

// apply runs the stability/emission policy. Stability must be re-armed by a
// real change: once a stable event is reported for a path it cannot repeat
// until the path is added or modified again.
func (c *Collector) apply(ev Event) {
	switch ev.Type {
	case EventStable:
		if c.cfg.StableThreshold <= 0 {
			return
		}
		count, armed := c.counters[ev.Path]
		if !armed {
			return
		}
		count++
		if count < c.cfg.StableThreshold {
			c.counters[ev.Path] = count
			return
		}
		delete(c.counters, ev.Path)
		c.emit(ev)

	case EventRemoved:
		delete(c.counters, ev.Path)
		c.emit(ev)

	default: // added or modified
		c.counters[ev.Path] = 0
		c.emit(ev)
	}
}

func (c *Collector) emit(ev Event) {
	c.logger.Debug("collector: emitting event", "type", ev.Type.String(), "path", ev.Path)
	c.sink.Push(ev)
}

// sortStats orders a scan's stats by the configured key and direction so that
// multiple events from one scan reach the notification channel
// deterministically.
func (c *Collector) sortStats(stats []FileStat) {
	less := func(a, b FileStat) bool {
		switch c.cfg.SortBy {
		case SortByMTime:
			return a.ModTime.Before(b.ModTime)
		case SortBySize:
			return a.Size < b.Size
		default:
			return strings.Compare(a.Path, b.Path) < 0
		}
	}

	sort.SliceStable(stats, func(i, j int) bool {
		if c.cfg.OrderBy == OrderDescending {
			return less(stats[j], stats[i])
		}
		return less(stats[i], stats[j])
	})
}

// Snapshot returns a copy of the authoritative state table.
func (c *Collector) Snapshot() map[string]FileStat {
	out := make(map[string]FileStat, len(c.state))
	for path, st := range c.state {
		out[path] = st
	}
	return out
}

// Restore replaces the state table wholesale. Only legal while the drain
// loop is stopped.
func (c *Collector) Restore(state map[string]FileStat) error {
	if c.Running() {
		return ErrRunning
	}
	c.state = make(map[string]FileStat, len(state))
	for path, st := range state {
		c.state[path] = st
	}
	return nil
}

// Reset clears the state table and all stability counters. Only legal while
// the drain loop is stopped.
func (c *Collector) Reset() error {
	if c.Running() {
		return ErrRunning
	}
	c.state = make(map[string]FileStat)
	c.counters = make(map[string]int)
	return nil
}

// DumpStats serializes the full path→FileStat table to sink as JSON. A
// maintenance operation: only safe while the drain loop is stopped.
func (c *Collector) DumpStats(sink io.Writer) error {
	if c.Running() {
		return ErrRunning
	}

	stats := make([]FileStat, 0, len(c.state))
	for _, st := range c.state {
		stats = append(stats, st)
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Path < stats[j].Path })

	enc := json.NewEncoder(sink)
	enc.SetIndent("", "  ")
	if err := enc.Encode(stats); err != nil {
		return fmt.Errorf("dump stats: %w", err)
	}
	return nil
}

// LoadStats replaces the state table with the snapshot read from source.
// Only safe while the drain loop is stopped.
func (c *Collector) LoadStats(source io.Reader) error {
	if c.Running() {
		return ErrRunning
	}

	var stats []FileStat
	if err := json.NewDecoder(source).Decode(&stats); err != nil {
		return fmt.Errorf("load stats: %w", err)
	}

	c.state = make(map[string]FileStat, len(stats))
	for _, st := range stats {
		c.state[st.Path] = st
	}
	return nil
}
