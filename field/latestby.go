package field

import (
	"sync"

	fbErrors "github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
)

// LatestBy keeps the most recent event per class, where the class of an
// event is computed from its payload by a classifier function. Switch merges
// the staged classes into the stable map, so classes that received no new
// event keep their previous value.
type LatestBy[K comparable, T any] struct {
	key      string
	trigger  bool
	classify func(T) K

	mu          sync.Mutex
	staged      map[K]event.Event
	stagedSince bool
	current     map[K]event.Event
	updated     bool
	dropped     int64
}

// NewLatestBy creates a LatestBy field subscribed to key, classifying
// payloads with classify. classify must not be nil.
func NewLatestBy[K comparable, T any](key string, classify func(T) K, opts ...Option) (*LatestBy[K, T], error) {
	if classify == nil {
		return nil, fbErrors.WrapInvalid(fbErrors.ErrInvalidConfig,
			"LatestBy", "NewLatestBy", "classifier must not be nil")
	}
	o := buildOptions(opts)
	return &LatestBy[K, T]{
		key:      key,
		trigger:  o.trigger,
		classify: classify,
		staged:   make(map[K]event.Event),
		current:  make(map[K]event.Event),
	}, nil
}

// Key implements Input.
func (f *LatestBy[K, T]) Key() string { return f.key }

// Trigger implements DoubleBuffered.
func (f *LatestBy[K, T]) Trigger() bool { return f.trigger }

// Set stages an event under its payload's class, replacing any previously
// staged event of the same class.
func (f *LatestBy[K, T]) Set(e event.Event) {
	v, ok := e.Value.(T)
	if !ok {
		f.mu.Lock()
		f.dropped++
		f.mu.Unlock()
		return
	}
	class := f.classify(v)
	f.mu.Lock()
	f.staged[class] = e
	f.stagedSince = true
	f.mu.Unlock()
}

// Switch implements DoubleBuffered. Staged classes are merged into the
// stable map and the staging map is cleared.
func (f *LatestBy[K, T]) Switch() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updated = f.stagedSince
	f.stagedSince = false
	for class, e := range f.staged {
		f.current[class] = e
	}
	clear(f.staged)
}

// Updated reports whether an event was staged since the previous switch.
func (f *LatestBy[K, T]) Updated() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updated
}

// Value returns the stable value for a class and whether one is present.
func (f *LatestBy[K, T]) Value(class K) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.current[class]
	if !ok {
		var zero T
		return zero, false
	}
	return e.Value.(T), true
}

// Values returns a copy of the stable value per class.
func (f *LatestBy[K, T]) Values() map[K]T {
	f.mu.Lock()
	defer f.mu.Unlock()
	values := make(map[K]T, len(f.current))
	for class, e := range f.current {
		values[class] = e.Value.(T)
	}
	return values
}

// Event returns the stable event for a class and whether one is present.
func (f *LatestBy[K, T]) Event(class K) (event.Event, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.current[class]
	return e, ok
}

// Dropped returns the number of events rejected for payload type mismatch.
func (f *LatestBy[K, T]) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
