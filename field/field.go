// Package field provides the typed conduits binding components to event
// keys: double-buffered input fields (Latest, Buffer, History, LatestBy),
// the unmanaged InputQueue, and output fields (Output, AveragingOutput).
//
// # Double buffering
//
// Double-buffered fields hold a staging area written by the dispatcher and a
// stable snapshot read by the component. Switch atomically promotes staged
// data to the snapshot, so a component's view of its inputs is frozen for
// the entire duration of one processing step even as new events continue to
// arrive. The framework calls Switch between processing steps; component
// code only reads the stable accessors.
//
// # Typed payloads
//
// Fields are generic over their payload type. The bus routes opaque values;
// an event whose payload is not assignable to the field's type parameter is
// dropped by that field and counted, never delivered as a zero value.
package field

import "github.com/c360/fieldbus/event"

// Input is the capability shared by all input fields: subscription to
// exactly one key and reception of raw events.
type Input interface {
	// Key returns the event key this field subscribes to.
	Key() string

	// Set pushes a new event into the field. This method is used by the
	// framework to deliver events; it only stages data and never makes it
	// visible to a running processing step.
	Set(event.Event)
}

// DoubleBuffered is an input field with a staging area and a stable
// snapshot, switched by the framework between processing steps.
type DoubleBuffered interface {
	Input

	// Switch promotes staged data to the stable snapshot. Used by the
	// framework; component code should not call it.
	Switch()

	// Trigger reports whether this field wakes an EventDriven component.
	Trigger() bool

	// Updated reports whether at least one event was staged between the two
	// most recent switches.
	Updated() bool
}

// Emitter is the capability shared by all output fields: publication to
// exactly one key through a framework-injected sink.
type Emitter interface {
	// Key returns the event key this field publishes to.
	Key() string

	// Bind injects the shared application sink. Used by the framework at
	// registration time.
	Bind(event.Sink)
}

// Option configures an input field.
type Option func(*options)

type options struct {
	trigger bool
	maxLen  int
}

// WithTrigger marks a double-buffered field as a wake source for its
// EventDriven component.
func WithTrigger() Option {
	return func(o *options) { o.trigger = true }
}

// WithMaxLen bounds the staging area of a Buffer or InputQueue; the oldest
// staged event is dropped when the bound is exceeded.
func WithMaxLen(n int) Option {
	return func(o *options) { o.maxLen = n }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
