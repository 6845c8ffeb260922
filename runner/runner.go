// Package runner executes components. Every registered component gets one
// runner hosted in its own goroutine, responsible for the component's
// lifecycle: Setup exactly once, the kind-specific processing loop, Cleanup
// exactly once.
//
// Failures never cross the runner boundary. A returned error or a panic from
// Setup, Process or Cleanup is logged with component context and escalated by
// pushing event.KeyShutdownError onto the bus; the runner then idles until
// stopped so the application can shut down in order. Processing for a failed
// component never runs again.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
	"github.com/c360/fieldbus/field"
	"github.com/c360/fieldbus/metric"
)

// defaultMetricInterval is the averaging window for the duration and fps
// payloads a runner emits.
const defaultMetricInterval = time.Second

// Runner drives one component. Run blocks until Stop is called (or until the
// component fails and the subsequent Stop arrives) and must be invoked in its
// own goroutine. Done is closed when Run has returned, Cleanup included.
type Runner interface {
	// ID returns the id of the component this runner drives.
	ID() string

	// Kind returns the component kind. The application stops iterating
	// runners before draining and everything else after.
	Kind() component.Kind

	// Run hosts the component lifecycle. It must be called at most once.
	Run(ctx context.Context)

	// Trigger marks the component as woken. Idempotent; repeated calls
	// before the runner reacts coalesce into a single processing step.
	// No-op for kinds that are not event-driven.
	Trigger()

	// Stop requests the runner to finish its current step and exit.
	// Idempotent and non-blocking; it never preempts an in-flight step.
	Stop()

	// Done is closed once Run has returned.
	Done() <-chan struct{}
}

// Option configures a runner.
type Option func(*options)

type options struct {
	logger         *slog.Logger
	metrics        *metric.Registry
	metricInterval time.Duration
}

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithMetrics sets the Prometheus registry. Recording is skipped when nil.
func WithMetrics(m *metric.Registry) Option {
	return func(o *options) { o.metrics = m }
}

// WithMetricInterval sets the averaging window for the duration and fps
// events the runner emits. Defaults to one second.
func WithMetricInterval(d time.Duration) Option {
	return func(o *options) { o.metricInterval = d }
}

// New builds the runner matching the component's kind. Framework events the
// runner emits (durations, fps, shutdown errors) are pushed to sink.
func New(node *component.Node, sink event.Sink, opts ...Option) (Runner, error) {
	o := options{
		logger:         slog.Default(),
		metricInterval: defaultMetricInterval,
	}
	for _, opt := range opts {
		opt(&o)
	}

	c, ok := node.Component.(component.Component)
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "New",
			"runner construction")
	}

	base, err := newCore(node, c, sink, o)
	if err != nil {
		return nil, err
	}

	switch c.Kind() {
	case component.KindIterating:
		it, ok := c.(component.Iterating)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "New",
				"runner construction")
		}
		r := &iteratingRunner{core: base, comp: it}
		if r.fps, err = field.NewAveraging[metric.FPS](event.KeyFPS,
			field.WithInterval(o.metricInterval)); err != nil {
			return nil, err
		}
		r.fps.Bind(sink)
		return r, nil
	case component.KindEventDriven:
		proc, ok := c.(component.Processor)
		if !ok {
			return nil, errors.WrapInvalid(errors.ErrInvalidConfig, node.ID(), "New",
				"runner construction")
		}
		return &eventDrivenRunner{
			core:    base,
			proc:    proc,
			trigger: make(chan struct{}, 1),
		}, nil
	case component.KindBare:
		return &bareRunner{core: base}, nil
	default:
		return nil, errors.WrapInvalid(errors.ErrUnknownKind, node.ID(), "New",
			fmt.Sprintf("runner construction (%d)", c.Kind()))
	}
}

// core carries the lifecycle shared by all runner kinds. All mutable state is
// touched only from the runner goroutine, except stop/done which are
// channel-based.
type core struct {
	node    *component.Node
	comp    component.Component
	sink    event.Sink
	logger  *slog.Logger
	metrics *metric.Registry

	fields   []field.DoubleBuffered
	duration *field.AveragingOutput[metric.Duration]

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	// failed latches after the first contained failure so the component's
	// processing never runs again.
	failed bool
}

func newCore(node *component.Node, c component.Component, sink event.Sink, o options) (*core, error) {
	duration, err := field.NewAveraging[metric.Duration](event.KeyDuration,
		field.WithInterval(o.metricInterval))
	if err != nil {
		return nil, err
	}
	duration.Bind(sink)

	return &core{
		node:     node,
		comp:     c,
		sink:     sink,
		logger:   o.logger.With("component", node.ID(), "kind", c.Kind().String()),
		metrics:  o.metrics,
		fields:   node.DoubleBuffered(),
		duration: duration,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

func (c *core) ID() string           { return c.node.ID() }
func (c *core) Kind() component.Kind { return c.comp.Kind() }

// Trigger is a no-op for kinds without a trigger channel.
func (c *core) Trigger() {}

func (c *core) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *core) Done() <-chan struct{} { return c.done }

// stopped reports whether Stop has been called, without blocking.
func (c *core) stopped() bool {
	select {
	case <-c.stop:
		return true
	default:
		return false
	}
}

// idle blocks until Stop. Runners park here after a contained failure so the
// application keeps control of shutdown ordering.
func (c *core) idle() {
	<-c.stop
}

// sleep waits for d or until Stop, whichever comes first. Reports whether the
// full duration elapsed.
func (c *core) sleep(d time.Duration) bool {
	if d <= 0 {
		return true
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-c.stop:
		return false
	case <-timer.C:
		return true
	}
}

// switchFields promotes staged values on every double-buffered field owned by
// the component, including those of subcomponents.
func (c *core) switchFields() {
	for _, f := range c.fields {
		f.Switch()
	}
}

// contain runs one lifecycle stage with the error boundary applied: errors
// and panics are logged, counted, escalated via event.KeyShutdownError and
// latch the failed flag. Reports whether the stage completed cleanly.
func (c *core) contain(ctx context.Context, stage string, fn func(context.Context) error) bool {
	err := c.invoke(ctx, stage, fn)
	if err == nil {
		return true
	}
	c.failed = true
	c.logger.Error("component stage failed",
		"stage", stage,
		"error", err,
	)
	c.metrics.RecordRunnerError(c.node.ID(), stage)
	c.sink.Push(event.New(event.KeyShutdownError, err))
	return false
}

func (c *core) invoke(ctx context.Context, stage string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.WrapFatal(fmt.Errorf("panic: %v", r),
				c.node.ID(), stage, "component stage")
		}
	}()
	return fn(ctx)
}

// cleanup runs the component's Cleanup under the error boundary. Called
// exactly once per runner, on the way out of Run.
func (c *core) cleanup(ctx context.Context) {
	c.contain(ctx, "Cleanup", c.comp.Cleanup)
}

// recordStep publishes one processing duration, both as an averaged bus
// event and to Prometheus.
func (c *core) recordStep(elapsed time.Duration) {
	seconds := elapsed.Seconds()
	c.duration.Push(metric.Duration{ComponentID: c.node.ID(), Seconds: seconds})
	c.metrics.RecordProcess(c.node.ID(), seconds)
}
