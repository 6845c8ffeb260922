package runner

import (
	"context"
	"time"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/field"
	"github.com/c360/fieldbus/metric"
)

// iteratingRunner drives an Iterating component at its target frame rate.
// Each cycle switches the component's double-buffered fields, processes, and
// sleeps off whatever remains of the frame period.
type iteratingRunner struct {
	*core
	comp component.Iterating
	fps  *field.AveragingOutput[metric.FPS]
}

func (r *iteratingRunner) Run(ctx context.Context) {
	defer close(r.done)
	defer r.cleanup(ctx)

	if !r.contain(ctx, "Setup", r.comp.Setup) {
		r.idle()
		return
	}

	target := r.comp.TargetFPS()
	period := time.Duration(float64(time.Second) / target)

	// Exponentially smoothed rate over full cycles, sleep included.
	var smoothed float64

	for !r.stopped() {
		start := time.Now()

		r.switchFields()
		if !r.contain(ctx, "Process", r.comp.Process) {
			r.idle()
			return
		}
		r.recordStep(time.Since(start))

		if !r.sleep(period - time.Since(start)) {
			return
		}

		cycle := time.Since(start).Seconds()
		if cycle > 0 {
			smoothed = (smoothed + 1/cycle) / 2
		}
		r.fps.Push(metric.FPS{ComponentID: r.node.ID(), Current: smoothed, Target: target})
	}
}

var _ Runner = (*iteratingRunner)(nil)
