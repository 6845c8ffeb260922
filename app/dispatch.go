package app

import (
	"time"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/event"
	"github.com/c360/fieldbus/runner"
)

// dispatch is the single goroutine that pops events off the shared queue and
// routes them. It runs until a shutdown event arrives, then walks the
// shutdown phases and closes a.done.
func (a *Application) dispatch() {
	defer close(a.done)
	defer a.cancel()

	for {
		e, ok := a.queue.Pop(a.cfg.PollInterval)
		if !ok {
			continue
		}
		if a.handleEvent(e) {
			break
		}
		// Drain whatever accumulated while handling, without blocking.
		stop := false
		for {
			e, ok := a.queue.TryPop()
			if !ok {
				break
			}
			if a.handleEvent(e) {
				stop = true
				break
			}
		}
		if stop {
			break
		}
	}

	a.shutdown()
}

// handleEvent routes one event. Reports whether shutdown was requested.
func (a *Application) handleEvent(e event.Event) bool {
	a.metrics.RecordDispatch(e.Key)
	a.metrics.RecordQueueDepth(a.queue.Len())

	switch e.Key {
	case event.KeyShutdown:
		a.logger.Info("shutdown requested")
		return true

	case event.KeyShutdownError:
		a.errOccurred.Store(true)
		a.logger.Error("shutdown forced by component failure", "error", e.Value)
		return true

	case event.KeyRegister:
		c, ok := e.Value.(component.Component)
		if !ok {
			a.logger.Error("register event without component payload")
			a.errOccurred.Store(true)
			return true
		}
		a.mu.Lock()
		err := a.registerLocked(c)
		a.mu.Unlock()
		if err != nil {
			a.logger.Error("registration failed", "component", c.ID(), "error", err)
			a.errOccurred.Store(true)
			return true
		}

	case event.KeyDeregister:
		c, ok := e.Value.(component.Component)
		if !ok {
			a.logger.Error("deregister event without component payload")
			a.errOccurred.Store(true)
			return true
		}
		a.mu.Lock()
		err := a.deregisterLocked(c)
		a.mu.Unlock()
		if err != nil {
			a.logger.Error("deregistration failed", "component", c.ID(), "error", err)
			a.errOccurred.Store(true)
			return true
		}

	default:
		a.deliver(e)
	}
	return false
}

// deliver stages the event on every subscribed input, then wakes every
// runner with a matching trigger field. Staging never blocks; the value
// becomes visible to the component at its next switch.
func (a *Application) deliver(e event.Event) {
	for _, in := range a.registry.InputsByKey(e.Key) {
		in.Set(e)
	}
	triggered := a.registry.TriggeredByKey(e.Key)
	if len(triggered) == 0 {
		return
	}
	a.mu.Lock()
	for _, id := range triggered {
		if r, ok := a.runners[id]; ok {
			r.Trigger()
		}
	}
	a.mu.Unlock()
}

// shutdown runs the three-phase stop sequence: quiesce producers, drain the
// queue so event-driven components see everything emitted before and during
// the stop, then stop whatever still runs.
func (a *Application) shutdown() {
	a.stopped.Store(true)

	a.stopRunnersOfKind(component.KindIterating)
	a.drain()
	a.stopRunnersOfKind(component.KindEventDriven, component.KindBare)

	a.queue.Close()
	stats := a.queue.Stats()
	a.logger.Info("application stopped",
		"error_occurred", a.errOccurred.Load(),
		"events_routed", stats.Popped,
	)
}

// drain keeps routing regular events until the queue has been empty and
// quiet for DrainQuietPeriod, bounded overall by DrainTimeout. Shutdown and
// registration control events are ignored at this point.
func (a *Application) drain() {
	deadline := time.Now().Add(a.cfg.DrainTimeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			a.logger.Warn("drain timeout exceeded, discarding remaining events",
				"depth", a.queue.Len())
			return
		}
		wait := a.cfg.DrainQuietPeriod
		if wait > remaining {
			wait = remaining
		}
		e, ok := a.queue.Pop(wait)
		if !ok {
			if a.queue.Len() == 0 {
				return
			}
			continue
		}
		switch e.Key {
		case event.KeyShutdown, event.KeyShutdownError,
			event.KeyRegister, event.KeyDeregister:
			if e.Key == event.KeyShutdownError {
				a.errOccurred.Store(true)
			}
		default:
			a.deliver(e)
		}
	}
}

// stopRunnersOfKind stops and awaits every runner of the given kinds.
func (a *Application) stopRunnersOfKind(kinds ...component.Kind) {
	a.mu.Lock()
	var matched []runner.Runner
	for _, r := range a.runners {
		for _, k := range kinds {
			if r.Kind() == k {
				matched = append(matched, r)
				break
			}
		}
	}
	a.mu.Unlock()

	for _, r := range matched {
		r.Stop()
	}
	for _, r := range matched {
		a.awaitRunner(r)
	}
}

// stopRunner stops one runner and awaits it. Used by deregistration.
func (a *Application) stopRunner(r runner.Runner) {
	r.Stop()
	a.awaitRunner(r)
}

// awaitRunner waits for a runner to finish within RunnerStopTimeout and logs
// stragglers instead of blocking shutdown on them.
func (a *Application) awaitRunner(r runner.Runner) {
	timer := time.NewTimer(a.cfg.RunnerStopTimeout)
	defer timer.Stop()
	select {
	case <-r.Done():
	case <-timer.C:
		a.logger.Error("runner did not stop in time", "component", r.ID())
	}
}
