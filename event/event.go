// Package event defines the envelope for all data passed between components
// and the well-known event keys used by the framework itself.
//
// The key serves as an address: events are delivered to all input fields
// subscribed to the key carried by the event. Production code rarely
// constructs events directly - output fields take care of that.
package event

import "time"

// Framework event keys. Keys under the "fieldbus." prefix are reserved.
const (
	// KeyRegister carries a component to be registered as payload.
	// Don't push directly - use Application.Register.
	KeyRegister = "fieldbus.register"

	// KeyDeregister carries a component to be deregistered as payload.
	// Don't push directly - use Application.Deregister.
	KeyDeregister = "fieldbus.deregister"

	// KeyShutdown triggers graceful application shutdown. Components request
	// shutdown through their implicit shutdown output.
	KeyShutdown = "fieldbus.shutdown"

	// KeyShutdownError triggers application shutdown due to an uncaught
	// failure inside a component. Pushed by the framework on the runner
	// error boundary.
	KeyShutdownError = "fieldbus.shutdown_error"

	// KeyDuration carries metric.Duration payloads emitted after every
	// processing step of Iterating and EventDriven components.
	KeyDuration = "fieldbus.metric.duration"

	// KeyFPS carries metric.FPS payloads emitted by Iterating components.
	KeyFPS = "fieldbus.metric.fps"
)

// Event is the immutable envelope for all data passed between components.
// It is never mutated after creation.
type Event struct {
	// Key is the address that connects output fields to input fields.
	Key string

	// Value is the opaque payload. The bus routes it without inspection;
	// typed access happens at the receiving field.
	Value any

	// Timestamp records when the event was created.
	Timestamp time.Time
}

// New creates an event with the current time as timestamp.
func New(key string, value any) Event {
	return Event{Key: key, Value: value, Timestamp: time.Now()}
}

// NewAt creates an event with an explicit timestamp.
func NewAt(key string, value any, ts time.Time) Event {
	return Event{Key: key, Value: value, Timestamp: ts}
}

// Sink accepts events for routing. The application's shared queue is the
// canonical Sink; it is injected into output fields at registration time.
type Sink interface {
	Push(Event)
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(Event)

// Push implements Sink.
func (f SinkFunc) Push(e Event) { f(e) }
