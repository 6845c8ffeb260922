package field

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360/fieldbus/event"
)

// Output publishes values to exactly one key. Push wraps the value in an
// event and hands it to the shared sink injected by the framework at
// registration time. Output is safe for use from any goroutine, which is how
// Bare components publish from threads they own.
type Output[T any] struct {
	key     string
	mu      sync.RWMutex
	sink    event.Sink
	unbound atomic.Int64
}

// NewOutput creates an Output publishing to key.
func NewOutput[T any](key string) *Output[T] {
	return &Output[T]{key: key}
}

// Key implements Emitter.
func (o *Output[T]) Key() string { return o.key }

// Bind implements Emitter. The framework injects the application queue here;
// tests may inject any sink.
func (o *Output[T]) Bind(sink event.Sink) {
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// Push publishes a value with the current time as timestamp. Pushes on an
// output that has not been bound yet are dropped and counted.
func (o *Output[T]) Push(value T) {
	o.PushAt(value, time.Now())
}

// PushAt publishes a value with an explicit timestamp.
func (o *Output[T]) PushAt(value T, ts time.Time) {
	o.mu.RLock()
	sink := o.sink
	o.mu.RUnlock()
	if sink == nil {
		o.unbound.Add(1)
		return
	}
	sink.Push(event.NewAt(o.key, value, ts))
}

// Unbound returns the number of pushes dropped because no sink was bound.
func (o *Output[T]) Unbound() int64 {
	return o.unbound.Load()
}
