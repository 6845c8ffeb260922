package field

import (
	"sync"
	"time"

	fbErrors "github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
)

// Averageable is the payload contract for AveragingOutput: the type must
// support addition and division by an integer.
type Averageable[T any] interface {
	Add(T) T
	Divide(n int) T
}

// Scalar is a ready-made Averageable for plain numeric payloads.
type Scalar float64

// Add implements Averageable.
func (s Scalar) Add(o Scalar) Scalar { return s + o }

// Divide implements Averageable.
func (s Scalar) Divide(n int) Scalar { return s / Scalar(n) }

// AveragingOption configures an AveragingOutput.
type AveragingOption func(*averagingOptions)

type averagingOptions struct {
	count    int
	interval time.Duration
}

// WithCount emits one averaged event once n values have accumulated.
func WithCount(n int) AveragingOption {
	return func(o *averagingOptions) { o.count = n }
}

// WithInterval emits one averaged event once d has elapsed since the last
// emission. The check happens only inside Push; interval expiry alone never
// emits.
func WithInterval(d time.Duration) AveragingOption {
	return func(o *averagingOptions) { o.interval = d }
}

// AveragingOutput accumulates pushed values and emits one event carrying
// their average when the configured count is reached or the configured
// interval has elapsed since the last emission, whichever happens first.
type AveragingOutput[T Averageable[T]] struct {
	key      string
	count    int
	interval time.Duration

	mu       sync.Mutex
	sink     event.Sink
	pending  []T
	lastEmit time.Time
	unbound  int64
}

// NewAveraging creates an AveragingOutput publishing to key. At least one of
// WithCount and WithInterval must be given; anything else is a
// misconfiguration, not a runtime fault.
func NewAveraging[T Averageable[T]](key string, opts ...AveragingOption) (*AveragingOutput[T], error) {
	var o averagingOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.count <= 0 && o.interval <= 0 {
		return nil, fbErrors.WrapInvalid(fbErrors.ErrInvalidConfig,
			"AveragingOutput", "NewAveraging", "count or interval required")
	}
	return &AveragingOutput[T]{key: key, count: o.count, interval: o.interval}, nil
}

// Key implements Emitter.
func (o *AveragingOutput[T]) Key() string { return o.key }

// Bind implements Emitter.
func (o *AveragingOutput[T]) Bind(sink event.Sink) {
	o.mu.Lock()
	o.sink = sink
	o.mu.Unlock()
}

// Push accumulates a value and emits the accumulated average if either
// emission condition holds.
func (o *AveragingOutput[T]) Push(value T) {
	now := time.Now()

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.lastEmit.IsZero() {
		o.lastEmit = now
	}
	o.pending = append(o.pending, value)

	countReached := o.count > 0 && len(o.pending) >= o.count
	intervalElapsed := o.interval > 0 && now.Sub(o.lastEmit) >= o.interval
	if !countReached && !intervalElapsed {
		return
	}

	avg := o.pending[0]
	for _, v := range o.pending[1:] {
		avg = avg.Add(v)
	}
	avg = avg.Divide(len(o.pending))
	o.pending = o.pending[:0]
	o.lastEmit = now

	if o.sink == nil {
		o.unbound++
		return
	}
	o.sink.Push(event.NewAt(o.key, avg, now))
}

// Pending returns the number of values accumulated since the last emission.
func (o *AveragingOutput[T]) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
