package app

import (
	"context"
	goerrors "errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360/fieldbus/component"
	"github.com/c360/fieldbus/config"
	"github.com/c360/fieldbus/errors"
	"github.com/c360/fieldbus/field"
)

func testConfig() config.Config {
	cfg := config.Default()
	cfg.PollInterval = 5 * time.Millisecond
	cfg.DrainQuietPeriod = 50 * time.Millisecond
	cfg.DrainTimeout = 2 * time.Second
	cfg.RunnerStopTimeout = 2 * time.Second
	return cfg
}

func waitDone(t *testing.T, a *Application) {
	t.Helper()
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("application did not shut down")
	}
}

// counterSource pushes 1, 2, 3, ... at its target rate.
type counterSource struct {
	component.Base
	out      *field.Output[int]
	fps      float64
	n        atomic.Int64
	setups   atomic.Int64
	cleanups atomic.Int64

	// processErr, when set, fails the nth step.
	processErr error
	failAt     int64

	// quitAfter, when positive, requests shutdown after that many steps.
	quitAfter int64
}

func newCounterSource(id, key string, fps float64) *counterSource {
	return &counterSource{
		Base: component.NewBase(id),
		out:  field.NewOutput[int](key),
		fps:  fps,
	}
}

func (s *counterSource) Kind() component.Kind { return component.KindIterating }
func (s *counterSource) Fields() component.FieldSet {
	return component.FieldSet{Outputs: map[string]field.Emitter{"out": s.out}}
}
func (s *counterSource) TargetFPS() float64 { return s.fps }

func (s *counterSource) Setup(context.Context) error {
	s.setups.Add(1)
	return nil
}

func (s *counterSource) Cleanup(context.Context) error {
	s.cleanups.Add(1)
	return nil
}

func (s *counterSource) Process(context.Context) error {
	n := s.n.Add(1)
	if s.processErr != nil && n >= s.failAt {
		return s.processErr
	}
	s.out.Push(int(n))
	if s.quitAfter > 0 && n >= s.quitAfter {
		s.Shutdown()
	}
	return nil
}

// collector accumulates every int delivered on its key.
type collector struct {
	component.Base
	in       *field.Buffer[int]
	mu       sync.Mutex
	got      []int
	setups   atomic.Int64
	cleanups atomic.Int64
}

func newCollector(id, key string) *collector {
	return &collector{
		Base: component.NewBase(id),
		in:   field.NewBuffer[int](key, field.WithTrigger()),
	}
}

func (c *collector) Kind() component.Kind { return component.KindEventDriven }
func (c *collector) Fields() component.FieldSet {
	return component.FieldSet{Inputs: map[string]field.Input{"in": c.in}}
}

func (c *collector) Setup(context.Context) error {
	c.setups.Add(1)
	return nil
}

func (c *collector) Cleanup(context.Context) error {
	c.cleanups.Add(1)
	return nil
}

func (c *collector) Process(context.Context) error {
	c.mu.Lock()
	c.got = append(c.got, c.in.Values()...)
	c.mu.Unlock()
	return nil
}

func (c *collector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.got)
}

func (c *collector) values() []int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]int, len(c.got))
	copy(out, c.got)
	return out
}

func TestSourceToSink(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	src := newCounterSource("Source0", "numbers", 200)
	sink := newCollector("Sink0", "numbers")
	require.NoError(t, a.Register(src, sink))
	require.NoError(t, a.Start())

	require.Eventually(t, func() bool { return sink.count() >= 10 },
		5*time.Second, 5*time.Millisecond)
	require.NoError(t, a.Stop())

	// Lifecycle ran exactly once per component.
	assert.EqualValues(t, 1, src.setups.Load())
	assert.EqualValues(t, 1, src.cleanups.Load())
	assert.EqualValues(t, 1, sink.setups.Load())
	assert.EqualValues(t, 1, sink.cleanups.Load())
	assert.False(t, a.HasErrorOccurred())

	// The drain phase runs after producers stop, so every pushed value
	// arrives exactly once and in order.
	got := sink.values()
	require.EqualValues(t, src.n.Load(), len(got))
	for i, v := range got {
		assert.Equal(t, i+1, v)
	}
}

func TestShutdownOnComponentError(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	src := newCounterSource("Source0", "numbers", 200)
	src.processErr = goerrors.New("sensor gone")
	src.failAt = 3
	sink := newCollector("Sink0", "numbers")
	require.NoError(t, a.Register(src, sink))
	require.NoError(t, a.Start())

	waitDone(t, a)
	assert.True(t, a.HasErrorOccurred())
	assert.EqualValues(t, 1, src.cleanups.Load())
	assert.EqualValues(t, 1, sink.cleanups.Load())
}

func TestComponentRequestedShutdown(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	src := newCounterSource("Source0", "numbers", 200)
	src.quitAfter = 5
	sink := newCollector("Sink0", "numbers")
	require.NoError(t, a.Register(src, sink))
	require.NoError(t, a.Start())

	waitDone(t, a)
	assert.False(t, a.HasErrorOccurred())
	// Everything emitted before the shutdown request was drained.
	assert.GreaterOrEqual(t, sink.count(), 5)
}

func TestKeyedRouting(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	vehicles := newCounterSource("Vehicles0", "vehicles", 200)
	apparel := newCounterSource("Apparel0", "apparel", 200)
	vehicleSink := newCollector("VehicleSink0", "vehicles")
	apparelSink := newCollector("ApparelSink0", "apparel")
	require.NoError(t, a.Register(vehicles, apparel, vehicleSink, apparelSink))
	require.NoError(t, a.Start())

	require.Eventually(t, func() bool {
		return vehicleSink.count() >= 5 && apparelSink.count() >= 5
	}, 5*time.Second, 5*time.Millisecond)
	require.NoError(t, a.Stop())

	assert.EqualValues(t, vehicles.n.Load(), len(vehicleSink.values()))
	assert.EqualValues(t, apparel.n.Load(), len(apparelSink.values()))
}

func TestRegisterWhileRunning(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	sink := newCollector("Sink0", "numbers")
	require.NoError(t, a.Register(sink))
	require.NoError(t, a.Start())

	src := newCounterSource("Source0", "numbers", 200)
	require.NoError(t, a.Register(src))

	require.Eventually(t, func() bool { return sink.count() >= 5 },
		5*time.Second, 5*time.Millisecond)
	require.NoError(t, a.Stop())
	assert.EqualValues(t, 1, src.setups.Load())
	assert.EqualValues(t, 1, src.cleanups.Load())
}

func TestDeregisterWhileRunning(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	src := newCounterSource("Source0", "numbers", 200)
	sink := newCollector("Sink0", "numbers")
	require.NoError(t, a.Register(src, sink))
	require.NoError(t, a.Start())

	require.Eventually(t, func() bool { return sink.count() >= 5 },
		5*time.Second, 5*time.Millisecond)
	require.NoError(t, a.Deregister(src))

	// The source's runner is stopped and cleaned up by the dispatcher.
	require.Eventually(t, func() bool { return src.cleanups.Load() == 1 },
		5*time.Second, 5*time.Millisecond)

	// No new values flow once the producer is gone.
	settled := sink.count()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, settled, sink.count())

	require.NoError(t, a.Stop())
}

func TestRegisterValidationBeforeStart(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	// An event-driven component without any trigger field is a
	// configuration error, surfaced synchronously before Start.
	bad := &collector{
		Base: component.NewBase("Bad0"),
		in:   field.NewBuffer[int]("numbers"),
	}
	err = a.Register(bad)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
	assert.Equal(t, 0, a.registry.Len())
}

func TestStartTwice(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, a.Start())

	err = a.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStarted)
	require.NoError(t, a.Stop())
}

func TestStopBeforeStart(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	err = a.Stop()
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrNotStarted)
}

func TestStopTwice(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, a.Start())
	require.NoError(t, a.Stop())
	require.NoError(t, a.Stop())
}

func TestRegisterRacingStart(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)

	// Components registered concurrently with Start must have their
	// runner launched exactly once, whichever call wins the race.
	sources := make([]*counterSource, 8)
	for i := range sources {
		sources[i] = newCounterSource(fmt.Sprintf("Source%d", i), "numbers", 100)
	}

	var wg sync.WaitGroup
	wg.Add(len(sources) + 1)
	go func() {
		defer wg.Done()
		assert.NoError(t, a.Start())
	}()
	for _, src := range sources {
		go func() {
			defer wg.Done()
			assert.NoError(t, a.Register(src))
		}()
	}
	wg.Wait()

	for _, src := range sources {
		require.Eventually(t, func() bool { return src.setups.Load() == 1 },
			5*time.Second, 5*time.Millisecond)
	}
	require.NoError(t, a.Stop())

	// A second Run on the same runner would double Setup (and panic on a
	// re-closed done channel before Cleanup could double).
	for _, src := range sources {
		assert.EqualValues(t, 1, src.setups.Load())
		assert.EqualValues(t, 1, src.cleanups.Load())
	}
}

func TestRegisterAfterStop(t *testing.T) {
	a, err := New(testConfig())
	require.NoError(t, err)
	require.NoError(t, a.Start())
	require.NoError(t, a.Stop())

	err = a.Register(newCounterSource("Source0", "numbers", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)

	err = a.Deregister(newCounterSource("Source1", "numbers", 100))
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrAlreadyStopped)
}

func TestInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PollInterval = 0
	_, err := New(cfg)
	require.Error(t, err)
	assert.True(t, errors.IsInvalid(err))
}
