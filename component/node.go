package component

import (
	"fmt"
	"sort"

	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/field"
)

// shutdownFieldName is the reserved name for the implicit shutdown output.
const shutdownFieldName = "_shutdown"

// InputRef is an input field together with its position in the node tree.
type InputRef struct {
	Field field.Input
	// ID is the fully qualified field id ("Container0.Sub1.frames").
	ID string
	// Name is the declared field name.
	Name string
}

// Key returns the event key the field subscribes to.
func (r InputRef) Key() string { return r.Field.Key() }

// OutputRef is an output field together with its position in the node tree.
type OutputRef struct {
	Field field.Emitter
	ID    string
	Name  string
}

// Key returns the event key the field publishes to.
func (r OutputRef) Key() string { return r.Field.Key() }

// Node is the registry-internal composite of a component and its direct
// fields, plus child nodes derived from subcomponents. It is fully recomputed
// from the component's field declaration at registration time and read-only
// afterwards; aggregation over descendants is computed bottom-up with no
// back-references.
type Node struct {
	Component SubComponent
	Inputs    []InputRef
	Outputs   []OutputRef
	Triggers  []InputRef
	Children  []*Node

	allInputs   []InputRef
	allOutputs  []OutputRef
	allTriggers []InputRef
}

// ID returns the component id.
func (n *Node) ID() string { return n.Component.ID() }

// AllInputs returns the inputs of this node and all descendants.
func (n *Node) AllInputs() []InputRef { return n.allInputs }

// AllOutputs returns the outputs of this node and all descendants.
func (n *Node) AllOutputs() []OutputRef { return n.allOutputs }

// AllTriggers returns the trigger fields of this node and all descendants.
func (n *Node) AllTriggers() []InputRef { return n.allTriggers }

// DoubleBuffered returns every double-buffered input of this node and all
// descendants. Runners switch exactly these fields between processing steps.
func (n *Node) DoubleBuffered() []field.DoubleBuffered {
	var fields []field.DoubleBuffered
	for _, in := range n.allInputs {
		if db, ok := in.Field.(field.DoubleBuffered); ok {
			fields = append(fields, db)
		}
	}
	return fields
}

// newNode builds the node tree for a component, prefixing field ids with the
// path of component ids from the root.
func newNode(sc SubComponent, parentPrefix string) (*Node, error) {
	prefix := parentPrefix + sc.ID() + "."
	fs := sc.Fields()

	for name := range fs.Outputs {
		if name == shutdownFieldName {
			return nil, errors.WrapInvalid(errors.ErrDuplicateField, sc.ID(), "Register",
				fmt.Sprintf("output name %q is reserved", shutdownFieldName))
		}
	}
	for name := range fs.Inputs {
		if _, ok := fs.Outputs[name]; ok {
			return nil, errors.WrapInvalid(errors.ErrDuplicateField, sc.ID(), "Register",
				fmt.Sprintf("field name %q declared as both input and output", name))
		}
	}

	node := &Node{Component: sc}

	for _, name := range sortedKeys(fs.Inputs) {
		f := fs.Inputs[name]
		ref := InputRef{Field: f, ID: prefix + name, Name: name}
		node.Inputs = append(node.Inputs, ref)
		if db, ok := f.(field.DoubleBuffered); ok && db.Trigger() {
			node.Triggers = append(node.Triggers, ref)
		}
	}
	for _, name := range sortedKeys(fs.Outputs) {
		node.Outputs = append(node.Outputs, OutputRef{Field: fs.Outputs[name], ID: prefix + name, Name: name})
	}
	if sr, ok := sc.(ShutdownRequester); ok {
		node.Outputs = append(node.Outputs, OutputRef{
			Field: sr.ShutdownOutput(),
			ID:    prefix + shutdownFieldName,
			Name:  shutdownFieldName,
		})
	}

	if container, ok := sc.(Container); ok {
		childIDs := make(map[string]struct{})
		for _, sub := range container.SubComponents() {
			// Sibling ids must be unique or their fully qualified
			// field ids collide.
			if _, dup := childIDs[sub.ID()]; dup {
				return nil, errors.WrapInvalid(errors.ErrDuplicateField, sc.ID(), "Register",
					fmt.Sprintf("duplicate subcomponent id %q", sub.ID()))
			}
			childIDs[sub.ID()] = struct{}{}
			child, err := newNode(sub, prefix)
			if err != nil {
				return nil, err
			}
			node.Children = append(node.Children, child)
		}
	}

	node.aggregate()
	return node, nil
}

// aggregate computes the transitive unions over this node and its children.
// Children are already aggregated when this is called.
func (n *Node) aggregate() {
	n.allInputs = append(n.allInputs, n.Inputs...)
	n.allOutputs = append(n.allOutputs, n.Outputs...)
	n.allTriggers = append(n.allTriggers, n.Triggers...)
	for _, child := range n.Children {
		n.allInputs = append(n.allInputs, child.allInputs...)
		n.allOutputs = append(n.allOutputs, child.allOutputs...)
		n.allTriggers = append(n.allTriggers, child.allTriggers...)
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
