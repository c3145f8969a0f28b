// Package queue provides the unbounded FIFO hand-off queues that connect the
// watch pipeline's loops. A queue supports concurrent producers and a single
// draining consumer without any locking by callers.
package queue

import "sync"

// Queue is an unbounded concurrent FIFO.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends an item to the tail of the queue. It never blocks.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()
}

// TryPop removes and returns the head of the queue. The second return value
// is false when the queue is empty. It never blocks; drain loops poll and
// yield rather than wait.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}

	item := q.items[0]
	// Nil out the vacated slot so the backing array does not pin it.
	q.items[0] = zero
	q.items = q.items[1:]

	// Reclaim the backing array once fully drained.
	if len(q.items) == 0 {
		q.items = nil
	}
	return item, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
