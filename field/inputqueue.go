package field

import (
	"sync"

	"github.com/c360/fieldbus/event"
)

// InputQueue is an unmanaged, directly queryable FIFO of incoming events.
// It is the only input field legal on Bare components: it needs no buffer
// switch, so the component (or a goroutine it owns) consumes it at its own
// pace.
type InputQueue[T any] struct {
	key    string
	maxLen int

	mu      sync.Mutex
	events  []event.Event
	dropped int64
}

// NewInputQueue creates an InputQueue subscribed to key. WithMaxLen bounds
// the queue with drop-oldest semantics; unbounded by default. WithTrigger is
// not meaningful here and is ignored.
func NewInputQueue[T any](key string, opts ...Option) *InputQueue[T] {
	o := buildOptions(opts)
	return &InputQueue[T]{key: key, maxLen: o.maxLen}
}

// Key implements Input.
func (f *InputQueue[T]) Key() string { return f.key }

// Set appends an event to the queue.
func (f *InputQueue[T]) Set(e event.Event) {
	if _, ok := e.Value.(T); !ok {
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		return
	}
	f.mu.Lock()
	f.events = appendBounded(f.events, e, f.maxLen)
	f.mu.Unlock()
}

// Pop removes and returns the oldest queued event.
func (f *InputQueue[T]) Pop() (event.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return event.Event{}, false
	}
	e := f.events[0]
	f.events = f.events[1:]
	return e, true
}

// PopValue removes the oldest queued event and returns its payload.
func (f *InputQueue[T]) PopValue() (T, bool) {
	e, ok := f.Pop()
	if !ok {
		var zero T
		return zero, false
	}
	return e.Value.(T), true
}

// Drain removes and returns all queued events in arrival order.
func (f *InputQueue[T]) Drain() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	events := f.events
	f.events = nil
	return events
}

// Len returns the number of queued events.
func (f *InputQueue[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.events)
}

// Dropped returns the number of events rejected for payload type mismatch.
func (f *InputQueue[T]) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
