package runner

import "context"

// bareRunner hosts a Bare component. The framework contributes nothing but
// the lifecycle: Setup on start, Cleanup on stop. Whatever the component does
// in between happens on goroutines it owns itself.
type bareRunner struct {
	*core
}

func (r *bareRunner) Run(ctx context.Context) {
	defer close(r.done)
	defer r.cleanup(ctx)

	if !r.contain(ctx, "Setup", r.comp.Setup) {
		r.idle()
		return
	}
	r.idle()
}

var _ Runner = (*bareRunner)(nil)
