// Package queue provides a generic, thread-safe, unbounded
// multiple-producer/single-consumer queue with timed blocking reads.
//
// The queue is the framework's single cross-goroutine boundary: any number
// of goroutines may Push, one consumer drains with Pop/TryPop. Statistics
// are always collected for observability.
package queue

import (
	"sync"
	"time"
)

// Queue is an unbounded FIFO queue of items of type T.
// All methods are safe for concurrent use; Pop and TryPop assume a single
// consumer.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	head   int
	closed bool
	notify chan struct{}
	stats  Statistics
}

// New creates an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		notify: make(chan struct{}, 1),
	}
}

// Push appends an item to the queue and wakes the consumer.
// Pushes to a closed queue are dropped and counted.
func (q *Queue[T]) Push(item T) {
	q.mu.Lock()
	if q.closed {
		q.stats.Dropped++
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, item)
	if depth := int64(len(q.items) - q.head); depth > q.stats.MaxDepth {
		q.stats.MaxDepth = depth
	}
	q.stats.Pushed++
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// TryPop removes and returns the oldest item without blocking.
// Returns the zero value and false if the queue is empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.popLocked()
}

// Pop removes and returns the oldest item, blocking up to timeout if the
// queue is empty. Returns the zero value and false on timeout or after
// Close on an empty queue.
func (q *Queue[T]) Pop(timeout time.Duration) (T, bool) {
	var zero T
	deadline := time.Now().Add(timeout)
	for {
		q.mu.Lock()
		item, ok := q.popLocked()
		closed := q.closed
		q.mu.Unlock()
		if ok {
			return item, true
		}
		if closed {
			return zero, false
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, false
		}
		timer := time.NewTimer(remaining)
		select {
		case <-q.notify:
			timer.Stop()
		case <-timer.C:
		}
	}
}

// Len returns the current number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}

// Close marks the queue closed. Subsequent pushes are dropped; queued items
// remain readable. Close is idempotent.
func (q *Queue[T]) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	// Wake a blocked consumer so it observes the closed state.
	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Stats returns a snapshot of the queue statistics.
func (q *Queue[T]) Stats() Statistics {
	q.mu.Lock()
	defer q.mu.Unlock()
	s := q.stats
	s.Depth = int64(len(q.items) - q.head)
	return s
}

// popLocked removes the head item. Callers must hold q.mu.
func (q *Queue[T]) popLocked() (T, bool) {
	var zero T
	if q.head >= len(q.items) {
		return zero, false
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.stats.Popped++

	// Reclaim the consumed prefix once it dominates the backing slice.
	if q.head > 64 && q.head*2 >= len(q.items) {
		q.items = append(q.items[:0], q.items[q.head:]...)
		q.head = 0
	}
	return item, true
}

// Statistics captures queue activity counters.
type Statistics struct {
	// Pushed is the total number of items accepted.
	Pushed int64
	// Popped is the total number of items consumed.
	Popped int64
	// Dropped is the number of pushes rejected after Close.
	Dropped int64
	// Depth is the number of items queued at snapshot time.
	Depth int64
	// MaxDepth is the high-water mark of queued items.
	MaxDepth int64
}
