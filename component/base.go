package component

import (
	"github.com/c360/fieldbus/event"
	"github.com/c360/fieldbus/field"
)

// Base provides component identity and the implicit shutdown output wired at
// construction. Embed it in component implementations:
//
//	type Camera struct {
//		component.Base
//		Frames *field.Output[Frame]
//	}
//
//	cam := &Camera{
//		Base:   component.NewBase(ids.Next("Camera")),
//		Frames: field.NewOutput[Frame]("camera.frames"),
//	}
//
// Any component may request global shutdown by calling Shutdown; the push is
// routed like every other event.
type Base struct {
	id       string
	shutdown *field.Output[any]
}

// NewBase creates a Base with the given component id.
func NewBase(id string) Base {
	return Base{
		id:       id,
		shutdown: field.NewOutput[any](event.KeyShutdown),
	}
}

// ID returns the component id.
func (b Base) ID() string { return b.id }

// Shutdown requests graceful application shutdown.
func (b Base) Shutdown() {
	b.shutdown.Push(nil)
}

// ShutdownOutput implements ShutdownRequester. The registry includes this
// output in the component's node so it is bound to the application queue.
func (b Base) ShutdownOutput() field.Emitter {
	return b.shutdown
}
