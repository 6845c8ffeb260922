package component

import (
	"fmt"
	"sort"
	"sync"

	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/field"
)

// Registry is the structural index mapping components to their fields and
// derived key-based lookup tables. The two derived maps are rebuilt in full
// on every register and deregister: registration is rare relative to event
// throughput, so O(total fields) per mutation is acceptable in exchange for
// O(1) lookups on the dispatch path.
type Registry struct {
	mu            sync.RWMutex
	nodes         map[string]*Node
	inputsByKey   map[string][]field.Input
	triggersByKey map[string][]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:         make(map[string]*Node),
		inputsByKey:   make(map[string][]field.Input),
		triggersByKey: make(map[string][]string),
	}
}

// Register builds the component's node tree, validates the kind-specific
// structural constraints, rejects duplicate ids and rebuilds the derived
// maps. All validation failures are configuration errors raised before any
// scheduling begins.
func (r *Registry) Register(c Component) (*Node, error) {
	if c == nil {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Register",
			"component validation")
	}

	node, err := newNode(c, "")
	if err != nil {
		return nil, err
	}
	if err := validate(c, node); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[c.ID()]; exists {
		return nil, errors.WrapInvalid(errors.ErrDuplicateComponent, "Registry", "Register",
			fmt.Sprintf("duplicate id check for %q", c.ID()))
	}
	r.nodes[c.ID()] = node
	r.rebuildLocked()

	return node, nil
}

// Deregister removes a component's node and rebuilds the derived maps.
// Fails if the component was never registered.
func (r *Registry) Deregister(c Component) error {
	if c == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "Deregister",
			"component validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.nodes[c.ID()]; !exists {
		return errors.WrapInvalid(errors.ErrNotRegistered, "Registry", "Deregister",
			fmt.Sprintf("lookup for %q", c.ID()))
	}
	delete(r.nodes, c.ID())
	r.rebuildLocked()

	return nil
}

// InputsByKey returns all input fields subscribed to key, or an empty slice.
// The returned slice must not be mutated.
func (r *Registry) InputsByKey(key string) []field.Input {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.inputsByKey[key]
}

// TriggeredByKey returns the ids of all components with a trigger field on
// key, or an empty slice. The returned slice must not be mutated.
func (r *Registry) TriggeredByKey(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.triggersByKey[key]
}

// Node returns the node for a component id.
func (r *Registry) Node(id string) (*Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[id]
	return node, ok
}

// Components returns all registered components, sorted by id.
func (r *Registry) Components() []Component {
	r.mu.RLock()
	defer r.mu.RUnlock()

	components := make([]Component, 0, len(r.nodes))
	for _, node := range r.nodes {
		components = append(components, node.Component.(Component))
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i].ID() < components[j].ID()
	})
	return components
}

// Len returns the number of registered components.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// rebuildLocked regenerates the derived maps from scratch.
// Callers must hold r.mu.
func (r *Registry) rebuildLocked() {
	r.inputsByKey = make(map[string][]field.Input)
	r.triggersByKey = make(map[string][]string)
	for _, node := range r.nodes {
		for _, in := range node.AllInputs() {
			r.inputsByKey[in.Key()] = append(r.inputsByKey[in.Key()], in.Field)
		}
		for _, trigger := range node.AllTriggers() {
			r.triggersByKey[trigger.Key()] = append(r.triggersByKey[trigger.Key()], node.ID())
		}
	}
}

// validate checks the kind-specific structural constraints.
func validate(c Component, node *Node) error {
	switch c.Kind() {
	case KindIterating:
		it, ok := c.(Iterating)
		if !ok {
			return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
				"iterating component must implement component.Iterating")
		}
		if it.TargetFPS() <= 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
				"target fps must be positive")
		}
		if len(node.AllTriggers()) > 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
				"iterating component cannot have trigger fields")
		}
	case KindEventDriven:
		if _, ok := c.(Processor); !ok {
			return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
				"event-driven component must implement component.Processor")
		}
		if len(node.AllTriggers()) == 0 {
			return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
				"event-driven component must have at least one trigger field")
		}
	case KindBare:
		for _, in := range node.AllInputs() {
			if _, ok := in.Field.(field.DoubleBuffered); ok {
				return errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "Register",
					fmt.Sprintf("bare component cannot have double-buffered field %q", in.Name))
			}
		}
	default:
		return errors.WrapInvalid(errors.ErrUnknownKind, node.ID(), "Register",
			fmt.Sprintf("kind validation (%d)", c.Kind()))
	}
	return nil
}
