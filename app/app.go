// Package app assembles the framework: it owns the shared event queue, the
// component registry and one runner per registered component, and hosts the
// dispatcher goroutine that routes every event from outputs to inputs.
//
// A minimal program:
//
//	cfg := config.Default()
//	a, err := app.New(cfg)
//	if err != nil { ... }
//	if err := a.Register(newCamera(), newDisplay()); err != nil { ... }
//	if err := a.Start(); err != nil { ... }
//	<-a.Done() // a component requested shutdown, or call a.Stop()
package app

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/config"
	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/event"
	"github.com/c360/fieldbus/metric"
	"github.com/c360/fieldbus/pkg/queue"
	"github.com/c360/fieldbus/runner"
)

// Option configures an Application.
type Option func(*Application)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Application) { a.logger = logger }
}

// WithMetrics enables Prometheus instrumentation. Without it the framework
// runs uninstrumented; the bus-level duration and fps events are emitted
// either way.
func WithMetrics(m *metric.Registry) Option {
	return func(a *Application) { a.metrics = m }
}

// Application wires components together over a single shared event queue.
// Components never see each other; all coupling happens through event keys.
type Application struct {
	id      string
	cfg     config.Config
	logger  *slog.Logger
	metrics *metric.Registry

	queue    *queue.Queue[event.Event]
	registry *component.Registry

	// mu guards runners and launched across the dispatcher, Start and
	// pre-start registration.
	mu       sync.Mutex
	runners  map[string]runner.Runner
	launched map[string]bool

	ctx    context.Context
	cancel context.CancelFunc

	started     atomic.Bool
	stopped     atomic.Bool
	errOccurred atomic.Bool

	// done is closed when the dispatcher has finished shutdown.
	done chan struct{}
}

// New creates an Application with the given configuration.
func New(cfg config.Config, opts ...Option) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &Application{
		id:       uuid.NewString(),
		cfg:      cfg,
		logger:   slog.Default(),
		queue:    queue.New[event.Event](),
		registry: component.NewRegistry(),
		runners:  make(map[string]runner.Runner),
		launched: make(map[string]bool),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.logger = a.logger.With("app", a.id)
	a.ctx, a.cancel = context.WithCancel(context.Background())
	return a, nil
}

// ID returns the application instance id.
func (a *Application) ID() string { return a.id }

// Register adds components. Before Start it is synchronous and validation
// errors are returned directly. While running, registration is queued as a
// control event and handled by the dispatcher in arrival order; a failure
// then sets the error flag and shuts the application down.
func (a *Application) Register(components ...component.Component) error {
	if a.stopped.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStopped,
			"Application", "Register", "lifecycle check")
	}
	if a.started.Load() {
		for _, c := range components {
			a.queue.Push(event.New(event.KeyRegister, c))
		}
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range components {
		if err := a.registerLocked(c); err != nil {
			return err
		}
	}
	return nil
}

// Deregister removes components, stopping their runners. Same synchronous
// versus queued split as Register.
func (a *Application) Deregister(components ...component.Component) error {
	if a.stopped.Load() {
		return errors.WrapInvalid(errors.ErrAlreadyStopped,
			"Application", "Deregister", "lifecycle check")
	}
	if a.started.Load() {
		for _, c := range components {
			a.queue.Push(event.New(event.KeyDeregister, c))
		}
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, c := range components {
		if err := a.deregisterLocked(c); err != nil {
			return err
		}
	}
	return nil
}

// Start launches one goroutine per registered runner plus the dispatcher.
func (a *Application) Start() error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.WrapInvalid(errors.ErrAlreadyStarted,
			"Application", "Start", "lifecycle check")
	}

	a.mu.Lock()
	for _, r := range a.runners {
		a.launchLocked(r)
	}
	a.mu.Unlock()

	a.logger.Info("application started", "components", a.registry.Len())
	go a.dispatch()
	return nil
}

// Stop requests graceful shutdown and blocks until the dispatcher has
// finished all shutdown phases. Safe to call more than once.
func (a *Application) Stop() error {
	if !a.started.Load() {
		return errors.WrapInvalid(errors.ErrNotStarted,
			"Application", "Stop", "lifecycle check")
	}
	if a.stopped.CompareAndSwap(false, true) {
		a.queue.Push(event.New(event.KeyShutdown, nil))
	}
	<-a.done
	return nil
}

// Done is closed once the application has fully shut down, whether through
// Stop, a component's shutdown request, or an escalated failure.
func (a *Application) Done() <-chan struct{} { return a.done }

// HasErrorOccurred reports whether shutdown was caused by a component
// failure rather than a plain shutdown request.
func (a *Application) HasErrorOccurred() bool { return a.errOccurred.Load() }

// registerLocked validates and registers one component, binds its outputs to
// the queue and creates (and, when running, starts) its runner.
// Callers must hold a.mu.
func (a *Application) registerLocked(c component.Component) error {
	node, err := a.registry.Register(c)
	if err != nil {
		return err
	}

	r, err := runner.New(node, a.queue,
		runner.WithLogger(a.logger),
		runner.WithMetrics(a.metrics),
		runner.WithMetricInterval(a.cfg.MetricInterval),
	)
	if err != nil {
		// Roll back so the registry and runner set stay consistent.
		_ = a.registry.Deregister(c)
		return err
	}

	for _, out := range node.AllOutputs() {
		out.Field.Bind(a.queue)
	}

	a.runners[c.ID()] = r
	a.metrics.RecordRegistered(1)
	if a.started.Load() {
		a.launchLocked(r)
	}
	a.logger.Info("component registered", "component", c.ID(), "kind", c.Kind().String())
	return nil
}

// deregisterLocked stops the component's runner, waits for it within the
// configured timeout, and removes the component from the registry.
// Callers must hold a.mu.
func (a *Application) deregisterLocked(c component.Component) error {
	r, ok := a.runners[c.ID()]
	if !ok {
		return errors.WrapInvalid(errors.ErrNoRunner, "Application", "Deregister",
			"runner lookup for "+c.ID())
	}

	if a.launched[c.ID()] {
		a.stopRunner(r)
	}
	delete(a.runners, c.ID())
	delete(a.launched, c.ID())
	if err := a.registry.Deregister(c); err != nil {
		return err
	}
	a.metrics.RecordRegistered(-1)
	a.logger.Info("component deregistered", "component", c.ID())
	return nil
}

// launchLocked starts a runner's goroutine at most once: Start and a
// registration racing it both go through here under a.mu, so a runner added
// while Start flips the started flag is still launched exactly once.
// Callers must hold a.mu.
func (a *Application) launchLocked(r runner.Runner) {
	if a.launched[r.ID()] {
		return
	}
	a.launched[r.ID()] = true
	go r.Run(a.ctx)
}
