package field

import (
	"sync"
	"time"

	fbErrors "github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
)

// Buffer accumulates all events staged since the previous switch. Staged
// events are cleared on every switch, so consecutive processing steps see
// non-overlapping batches.
type Buffer[T any] struct {
	key     string
	trigger bool
	maxLen  int

	mu          sync.Mutex
	staging     []event.Event
	stagedSince bool
	events      []event.Event
	updated     bool
	dropped     int64
}

// NewBuffer creates a Buffer field subscribed to key. WithMaxLen bounds the
// staging area with drop-oldest semantics; unbounded by default.
func NewBuffer[T any](key string, opts ...Option) *Buffer[T] {
	o := buildOptions(opts)
	return &Buffer[T]{key: key, trigger: o.trigger, maxLen: o.maxLen}
}

// Key implements Input.
func (f *Buffer[T]) Key() string { return f.key }

// Trigger implements DoubleBuffered.
func (f *Buffer[T]) Trigger() bool { return f.trigger }

// Set stages an event at the end of the staging area.
func (f *Buffer[T]) Set(e event.Event) {
	if _, ok := e.Value.(T); !ok {
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		return
	}
	f.mu.Lock()
	f.staging = appendBounded(f.staging, e, f.maxLen)
	f.stagedSince = true
	f.mu.Unlock()
}

// Switch implements DoubleBuffered. The staging area is cleared.
func (f *Buffer[T]) Switch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = f.stagedSince
	f.stagedSince = false
	f.events = append([]event.Event(nil), f.staging...)
	f.staging = f.staging[:0]
}

// Updated reports whether an event was staged since the previous switch.
func (f *Buffer[T]) Updated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

// Events returns the stable batch of events.
func (f *Buffer[T]) Events() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

// Values returns the payloads of the stable batch.
func (f *Buffer[T]) Values() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return valuesOf[T](f.events)
}

// Timestamps returns the timestamps of the stable batch.
func (f *Buffer[T]) Timestamps() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return timestampsOf(f.events)
}

// Dropped returns the number of events rejected for payload type mismatch.
func (f *Buffer[T]) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

// History accumulates the last maxLen events across processing steps. The
// staging area is never cleared, so the window remains visible in steps with
// no new input until overwritten by newer events.
type History[T any] struct {
	key     string
	trigger bool
	maxLen  int

	mu          sync.Mutex
	staging     []event.Event
	stagedSince bool
	events      []event.Event
	updated     bool
	dropped     int64
}

// NewHistory creates a History field subscribed to key, keeping the last
// maxLen events. maxLen must be positive.
func NewHistory[T any](key string, maxLen int, opts ...Option) (*History[T], error) {
	if maxLen < 1 {
		return nil, fbErrors.WrapInvalid(fbErrors.ErrInvalidConfig,
			"History", "NewHistory", "max length must be positive")
	}
	o := buildOptions(opts)
	return &History[T]{key: key, trigger: o.trigger, maxLen: maxLen}, nil
}

// Key implements Input.
func (f *History[T]) Key() string { return f.key }

// Trigger implements DoubleBuffered.
func (f *History[T]) Trigger() bool { return f.trigger }

// Set stages an event, evicting the oldest once the window is full.
func (f *History[T]) Set(e event.Event) {
	if _, ok := e.Value.(T); !ok {
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		return
	}
	f.mu.Lock()
	f.staging = appendBounded(f.staging, e, f.maxLen)
	f.stagedSince = true
	f.mu.Unlock()
}

// Switch implements DoubleBuffered. The staging window persists.
func (f *History[T]) Switch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = f.stagedSince
	f.stagedSince = false
	f.events = append([]event.Event(nil), f.staging...)
}

// Updated reports whether an event was staged since the previous switch.
func (f *History[T]) Updated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

// Events returns the stable window of events.
func (f *History[T]) Events() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

// Values returns the payloads of the stable window.
func (f *History[T]) Values() []T {
	f.mu.Lock()
	defer f.mu.Unlock()
	return valuesOf[T](f.events)
}

// Timestamps returns the timestamps of the stable window.
func (f *History[T]) Timestamps() []time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return timestampsOf(f.events)
}

// Dropped returns the number of events rejected for payload type mismatch.
func (f *History[T]) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

func appendBounded(events []event.Event, e event.Event, maxLen int) []event.Event {
	events = append(events, e)
	if maxLen > 0 && len(events) > maxLen {
		copy(events, events[len(events)-maxLen:])
		events = events[:maxLen]
	}
	return events
}

func valuesOf[T any](events []event.Event) []T {
	values := make([]T, 0, len(events))
	for _, e := range events {
		values = append(values, e.Value.(T))
	}
	return values
}

func timestampsOf(events []event.Event) []time.Time {
	timestamps := make([]time.Time, 0, len(events))
	for _, e := range events {
		timestamps = append(timestamps, e.Timestamp)
	}
	return timestamps
}
