// Package component defines the component contracts and the structural
// registry that indexes components, their fields and their event keys.
//
// A component is a leaf unit of computation exposing input and output fields
// and a processing entry point. Components declare their fields explicitly
// through Fields() - there is no reflective discovery - and carry exactly
// one scheduling kind that determines how the framework runs them.
package component

import (
	"context"
	"fmt"
	"sync"

	"github.com/c360/fieldbus/field"
)

// Kind is the scheduling category of a component.
type Kind int

const (
	// KindUnknown is the invalid zero value; registration rejects it.
	KindUnknown Kind = iota
	// KindIterating components run at a fixed target rate.
	KindIterating
	// KindEventDriven components run once per trigger wake.
	KindEventDriven
	// KindBare components are never scheduled by the framework.
	KindBare
)

// String returns a string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindIterating:
		return "iterating"
	case KindEventDriven:
		return "event-driven"
	case KindBare:
		return "bare"
	default:
		return "unknown"
	}
}

// FieldSet is a component's explicit field declaration, keyed by field name.
// Names must be unique across inputs and outputs of one component; the name
// "_shutdown" is reserved for the implicit shutdown output.
type FieldSet struct {
	Inputs  map[string]field.Input
	Outputs map[string]field.Emitter
}

// SubComponent is a unit with fields but no independent runner. It must be
// embedded in a container component, which aggregates its fields into its
// own for registry purposes.
type SubComponent interface {
	// ID returns the unique component id.
	ID() string

	// Fields returns the explicit field declaration.
	Fields() FieldSet
}

// Component is a schedulable unit: a SubComponent with a kind and lifecycle
// hooks. Setup is called once before any processing, Cleanup once after the
// run loop exits, with fields still wired.
type Component interface {
	SubComponent

	// Kind returns the scheduling category.
	Kind() Kind

	Setup(ctx context.Context) error
	Cleanup(ctx context.Context) error
}

// Processor is the per-step logic of Iterating and EventDriven components.
// It is never called before Setup or after Cleanup.
type Processor interface {
	Process(ctx context.Context) error
}

// Iterating is the full contract of a KindIterating component.
type Iterating interface {
	Component
	Processor

	// TargetFPS returns the target processing rate in Hz. It is read once
	// at runner startup and cannot change at runtime.
	TargetFPS() float64
}

// Container is implemented by components and subcomponents that embed
// subcomponents. The registry aggregates the fields of all descendants,
// recursively.
type Container interface {
	SubComponents() []SubComponent
}

// ShutdownRequester exposes a component's implicit shutdown output so the
// registry can wire it. Base implements it; pushing the output is
// indistinguishable at the bus level from the internal shutdown signal.
type ShutdownRequester interface {
	ShutdownOutput() field.Emitter
}

// IDSequence issues ascending per-prefix component ids ("Camera0",
// "Camera1", ...). It replaces hidden per-class instance counters with an
// explicitly injected counter service.
type IDSequence struct {
	mu     sync.Mutex
	counts map[string]int
}

// NewIDSequence creates an empty id sequence.
func NewIDSequence() *IDSequence {
	return &IDSequence{counts: make(map[string]int)}
}

// Next returns the next id for a prefix.
func (s *IDSequence) Next(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := s.counts[prefix]
	s.counts[prefix] = n + 1
	return fmt.Sprintf("%s%d", prefix, n)
}
