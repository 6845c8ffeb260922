package runner

import (
	"context"
	"time"

	"github.com/c360/fieldbus/component"
)

// eventDrivenRunner drives an EventDriven component. It sleeps until one of
// its trigger fields receives an event, then runs exactly one processing
// step over whatever accumulated since the last one.
type eventDrivenRunner struct {
	*core
	proc component.Processor

	// trigger has capacity one: any number of wakeups between processing
	// steps coalesce into a single step.
	trigger chan struct{}
}

// Trigger wakes the runner. Safe to call from any goroutine; pending
// wakeups coalesce.
func (r *eventDrivenRunner) Trigger() {
	select {
	case r.trigger <- struct{}{}:
		r.metrics.RecordTriggerWake(r.node.ID())
	default:
	}
}

func (r *eventDrivenRunner) Run(ctx context.Context) {
	defer close(r.done)
	defer r.cleanup(ctx)

	if !r.contain(ctx, "Setup", r.comp.Setup) {
		r.idle()
		return
	}

	for {
		select {
		case <-r.stop:
			return
		case <-r.trigger:
		}

		// Consume the wakeup before switching: a trigger arriving from
		// here on refers to a value the switch may not promote, so it
		// must survive into the next loop turn.
		start := time.Now()
		r.switchFields()

		if !r.contain(ctx, "Process", r.proc.Process) {
			r.idle()
			return
		}
		r.recordStep(time.Since(start))
	}
}

var _ Runner = (*eventDrivenRunner)(nil)
