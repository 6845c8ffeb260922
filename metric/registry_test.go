package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationPayload(t *testing.T) {
	a := Duration{ComponentID: "Camera0", Seconds: 0.1}
	b := Duration{ComponentID: "Camera0", Seconds: 0.3}

	sum := a.Add(b)
	assert.Equal(t, "Camera0", sum.ComponentID)
	assert.InDelta(t, 0.4, sum.Seconds, 1e-9)

	avg := sum.Divide(2)
	assert.InDelta(t, 0.2, avg.Seconds, 1e-9)
}

func TestFPSPayload(t *testing.T) {
	a := FPS{ComponentID: "Camera0", Current: 24, Target: 30}
	b := FPS{ComponentID: "Camera0", Current: 28, Target: 30}

	avg := a.Add(b).Divide(2)
	assert.InDelta(t, 26, avg.Current, 1e-9)
	assert.Equal(t, 30.0, avg.Target, "target is configuration, not averaged")
}

func TestRegistryRecording(t *testing.T) {
	r := NewRegistry()

	r.RecordDispatch("sensor.frame")
	r.RecordDispatch("sensor.frame")
	r.RecordQueueDepth(7)
	r.RecordTriggerWake("Detector0")
	r.RecordRegistered(2)
	r.RecordRegistered(-1)
	r.RecordProcess("Detector0", 0.05)
	r.RecordRunnerError("Detector0", "process")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Core.EventsDispatched.WithLabelValues("sensor.frame")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.Core.QueueDepth))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Core.TriggerWakeups.WithLabelValues("Detector0")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Core.ComponentsRegistered))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Core.RunnerErrors.WithLabelValues("Detector0", "process")))

	require.NotNil(t, r.PrometheusRegistry())
}

func TestNilRegistryIsNoOp(t *testing.T) {
	var r *Registry

	// Must not panic anywhere.
	r.RecordDispatch("k")
	r.RecordQueueDepth(1)
	r.RecordProcess("c", 0.1)
	r.RecordTriggerWake("c")
	r.RecordRegistered(1)
	r.RecordRunnerError("c", "setup")
	assert.Nil(t, r.PrometheusRegistry())
}
