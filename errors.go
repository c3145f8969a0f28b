package dirwatch

import "errors"

// Errors returned by the watcher lifecycle and the Collector.
var (
	// ErrAlreadyRunning is returned by Start when the watcher is running.
	ErrAlreadyRunning = errors.New("dirwatch: already running")

	// ErrNotRunning is returned by Stop, Pause and Resume when the watcher
	// is not running.
	ErrNotRunning = errors.New("dirwatch: not running")

	// ErrRunning is returned by operations that are only safe while the
	// processing loops are stopped (Reset, LoadStats, Restore).
	ErrRunning = errors.New("dirwatch: operation requires a stopped watcher")

	// ErrJoinTimeout is returned by Join when the timeout expires before
	// the scanner backend stops.
	ErrJoinTimeout = errors.New("dirwatch: join timed out")

	// ErrCollectorProtocol reports a malformed item on the collection
	// queue. This is a contract violation by the producer and aborts the
	// Collector loop.
	ErrCollectorProtocol = errors.New("dirwatch: malformed item on collection queue")

	// ErrUnknownBackend is returned when the configured backend name is
	// not registered at all (as opposed to registered but unavailable,
	// which falls back to polling).
	ErrUnknownBackend = errors.New("dirwatch: unknown scanner backend")
)
