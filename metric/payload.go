// Package metric provides the framework-originated metric event payloads and
// Prometheus instrumentation for the event bus.
//
// Two well-known event keys carry framework payloads: event.KeyDuration
// (Duration, emitted after every processing step of Iterating and
// EventDriven components) and event.KeyFPS (FPS, emitted by Iterating
// components only). Both payloads are Averageable, so runners emit them
// through averaging outputs instead of flooding the bus once per step.
package metric

// Duration is the processing-duration payload carried on event.KeyDuration.
// All values combined by Add are expected to come from the same component.
type Duration struct {
	// ComponentID identifies the emitting component.
	ComponentID string
	// Seconds is the duration of one processing step.
	Seconds float64
}

// Add implements field.Averageable.
func (d Duration) Add(o Duration) Duration {
	return Duration{ComponentID: d.ComponentID, Seconds: d.Seconds + o.Seconds}
}

// Divide implements field.Averageable.
func (d Duration) Divide(n int) Duration {
	return Duration{ComponentID: d.ComponentID, Seconds: d.Seconds / float64(n)}
}

// FPS is the frame-rate payload carried on event.KeyFPS.
// All values combined by Add are expected to come from the same component.
type FPS struct {
	// ComponentID identifies the emitting component.
	ComponentID string
	// Current is the exponentially smoothed frames-per-second estimate.
	Current float64
	// Target is the configured target rate; it is not averaged.
	Target float64
}

// Add implements field.Averageable.
func (f FPS) Add(o FPS) FPS {
	return FPS{ComponentID: f.ComponentID, Current: f.Current + o.Current, Target: f.Target}
}

// Divide implements field.Averageable.
func (f FPS) Divide(n int) FPS {
	return FPS{ComponentID: f.ComponentID, Current: f.Current / float64(n), Target: f.Target}
}
