package field

import (
	"sync"
	"time"

	"github.com/c360/fieldbus/event"
)

// Latest keeps only the most recent event. Within one staging period, later
// events overwrite earlier ones; only the last staged value survives a
// switch. The stable value is retained across switches with no new input.
type Latest[T any] struct {
	key     string
	trigger bool

	mu          sync.Mutex
	staged      event.Event
	stagedValid bool
	stagedSince bool
	current     event.Event
	hasValue    bool
	updated     bool
	dropped     int64
}

// NewLatest creates a Latest field subscribed to key.
func NewLatest[T any](key string, opts ...Option) *Latest[T] {
	o := buildOptions(opts)
	return &Latest[T]{key: key, trigger: o.trigger}
}

// Key implements Input.
func (f *Latest[T]) Key() string { return f.key }

// Trigger implements DoubleBuffered.
func (f *Latest[T]) Trigger() bool { return f.trigger }

// Set stages an event, replacing any previously staged one.
func (f *Latest[T]) Set(e event.Event) {
	if _, ok := e.Value.(T); !ok {
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		return
	}
	f.mu.Lock()
	f.staged = e
	f.stagedValid = true
	f.stagedSince = true
	f.mu.Unlock()
}

// Switch implements DoubleBuffered.
func (f *Latest[T]) Switch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = f.stagedSince
	f.stagedSince = false
	if f.stagedValid {
		f.current = f.staged
		f.hasValue = true
	}
}

// Updated reports whether an event was staged since the previous switch.
func (f *Latest[T]) Updated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

// Value returns the stable value, or the zero value if no event has been
// switched in yet.
func (f *Latest[T]) Value() T {
	v, _ := f.Get()
	return v
}

// Get returns the stable value and whether one is present.
func (f *Latest[T]) Get() (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasValue {
		var zero T
		return zero, false
	}
	return f.current.Value.(T), true
}

// Event returns the stable event and whether one is present.
func (f *Latest[T]) Event() (event.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.hasValue
}

// Timestamp returns the timestamp of the stable event, or the zero time.
func (f *Latest[T]) Timestamp() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current.Timestamp
}

// Dropped returns the number of events rejected for payload type mismatch.
func (f *Latest[T]) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
