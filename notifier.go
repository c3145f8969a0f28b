package dirwatch

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/listenupapp/dirwatch/internal/queue"
)

// notifierQuantum is the sleep between drain passes of the Notifier loop.
const notifierQuantum = 10 * time.Millisecond

// Observer receives events from the Notifier, one call per event. Returning
// an error does not interrupt delivery to other observers; it is logged with
// the observer's handle and the event that triggered it.
type Observer interface {
	Update(Event) error
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event) error

// Update implements Observer.
func (f ObserverFunc) Update(ev Event) error { return f(ev) }

// Notifier drains the notification channel, collapses immediately-repeated
// duplicate events, and fans the rest out to every registered observer.
//
// The Notifier is the sole owner of the previous-event dedup slot. The
// observer registry is guarded by a mutex because hosts register and remove
// observers while the loop runs.
type Notifier struct {
	logger *slog.Logger
	source *queue.Queue[Event]

	mu        sync.RWMutex
	observers map[string]Observer

	prev *Event
	w    *worker
}

// NewNotifier creates a Notifier draining source.
func NewNotifier(source *queue.Queue[Event], logger *slog.Logger) *Notifier {
	return &Notifier{
		logger:    logger,
		source:    source,
		observers: make(map[string]Observer),
	}
}

// AddObserver registers an observer under the given handle, replacing any
// observer previously registered under it.
func (n *Notifier) AddObserver(handle string, obs Observer) {
	n.mu.Lock()
	n.observers[handle] = obs
	n.mu.Unlock()
}

// AddObserverFunc registers a function observer under a generated handle and
// returns the handle for later removal.
func (n *Notifier) AddObserverFunc(fn ObserverFunc) string {
	handle := uuid.NewString()
	n.AddObserver(handle, fn)
	return handle
}

// DeleteObserver removes the observer registered under handle.
func (n *Notifier) DeleteObserver(handle string) {
	n.mu.Lock()
	delete(n.observers, handle)
	n.mu.Unlock()
}

// DeleteObservers removes all registered observers.
func (n *Notifier) DeleteObservers() {
	n.mu.Lock()
	n.observers = make(map[string]Observer)
	n.mu.Unlock()
}

// CountObservers returns the number of registered observers.
func (n *Notifier) CountObservers() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.observers)
}

// Start launches the drain loop.
func (n *Notifier) Start() error {
	if n.Running() {
		return ErrAlreadyRunning
	}
	n.w = newWorker(notifierQuantum, n.drain)
	n.w.start()
	return nil
}

// Stop lets the current drain pass finish, then blocks until the loop exits.
func (n *Notifier) Stop() error {
	if n.w == nil {
		return ErrNotRunning
	}
	n.w.halt()
	n.w = nil
	return nil
}

// Running reports whether the drain loop is active.
func (n *Notifier) Running() bool {
	return n.w != nil && n.w.isRunning()
}

// resetDedup clears the previous-event slot. Only legal while the loop is
// stopped; used by the watcher's Reset.
func (n *Notifier) resetDedup() {
	n.prev = nil
}

// drain dispatches everything currently queued. It always continues; observer
// failures never stop the loop.
func (n *Notifier) drain() bool {
	n.Dispatch()
	return true
}

// Dispatch synchronously delivers all queued events and returns the number
// delivered to observers (after dedup). Used by the drain loop and by the
// watcher's RunOnce.
func (n *Notifier) Dispatch() int {
	delivered := 0
	for {
		ev, ok := n.source.TryPop()
		if !ok {
			return delivered
		}

		// Collapse an event identical to the immediately preceding
		// delivered one. Guards against a kernel backend and a racing
		// scan reporting the same logical change twice.
		if n.prev != nil && n.prev.Equal(ev) {
			n.logger.Debug("notifier: dropping duplicate event", "type", ev.Type.String(), "path", ev.Path)
			continue
		}
		prev := ev
		n.prev = &prev

		n.fanOut(ev)
		delivered++
	}
}

// fanOut delivers one event to every observer, in sorted handle order so
// delivery is deterministic. Each delivery is isolated: an error or panic
// from one observer is logged and does not prevent delivery to the rest.
func (n *Notifier) fanOut(ev Event) {
	n.mu.RLock()
	handles := make([]string, 0, len(n.observers))
	for handle := range n.observers {
		handles = append(handles, handle)
	}
	sort.Strings(handles)

	observers := make([]Observer, len(handles))
	for i, handle := range handles {
		observers[i] = n.observers[handle]
	}
	n.mu.RUnlock()

	for i, obs := range observers {
		if err := n.deliver(obs, ev); err != nil {
			n.logger.Error("notifier: observer delivery failed",
				"observer", handles[i],
				"event", ev.String(),
				"error", err,
			)
		}
	}
}

// deliver invokes one observer, converting a panic into an error so a
// misbehaving observer cannot crash the loop.
func (n *Notifier) deliver(obs Observer, ev Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("observer panicked: %v", r)
		}
	}()
	return obs.Update(ev)
}
