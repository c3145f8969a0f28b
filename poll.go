package dirwatch

import (
	"log/slog"

	"github.com/listenupapp/dirwatch/internal/queue"
)

// pollBackend is the canonical scanner strategy: each cycle it re-stats every
// glob match and pushes the complete Scan onto the collection queue. The
// Collector performs removed-file reconciliation against these full scans.
type pollBackend struct {
	*driver

	dir     string
	globs   []string
	ignores []string
	sink    *queue.Queue[any]
	logger  *slog.Logger
}

func newPollBackend(opts Options, sink *queue.Queue[any], logger *slog.Logger) (*pollBackend, error) {
	// Compile once up front so bad patterns fail construction, not cycles.
	if _, err := newGlobSet(opts.Globs, opts.IgnoreGlobs); err != nil {
		return nil, err
	}

	b := &pollBackend{
		dir:     opts.Dir,
		globs:   opts.Globs,
		ignores: opts.IgnoreGlobs,
		sink:    sink,
		logger:  logger,
	}
	b.driver = newDriver(BackendPoll, opts.Interval, opts.MaxIterations, b.produce, logger)
	return b, nil
}

// produce builds a fresh Scan and enqueues it. The walk is forced here so all
// blocking stat I/O stays on the scanner loop; the Collector only consumes
// memoized results.
func (b *pollBackend) produce() error {
	scan, err := NewScan(b.dir, b.globs, b.ignores, b.logger)
	if err != nil {
		return err
	}
	scan.Results()
	b.sink.Push(scan)
	return nil
}
