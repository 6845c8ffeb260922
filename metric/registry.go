package metric

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics holds the core bus metrics.
type Metrics struct {
	EventsDispatched     *prometheus.CounterVec
	QueueDepth           prometheus.Gauge
	ProcessDuration      *prometheus.HistogramVec
	TriggerWakeups       *prometheus.CounterVec
	ComponentsRegistered prometheus.Gauge
	RunnerErrors         *prometheus.CounterVec
}

// NewMetrics creates the core bus metrics, unregistered.
func NewMetrics() *Metrics {
	return &Metrics{
		EventsDispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbus",
			Name:      "events_dispatched_total",
			Help:      "Events delivered by the dispatcher, by event key.",
		}, []string{"key"}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldbus",
			Name:      "queue_depth",
			Help:      "Events waiting on the shared queue.",
		}),
		ProcessDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "fieldbus",
			Name:      "process_duration_seconds",
			Help:      "Duration of component processing steps.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"component"}),
		TriggerWakeups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbus",
			Name:      "trigger_wakeups_total",
			Help:      "Trigger wakeups delivered to event-driven runners.",
		}, []string{"component"}),
		ComponentsRegistered: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "fieldbus",
			Name:      "components_registered",
			Help:      "Currently registered components.",
		}),
		RunnerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fieldbus",
			Name:      "runner_errors_total",
			Help:      "Failures contained at the runner boundary, by lifecycle stage.",
		}, []string{"component", "stage"}),
	}
}

// Registry manages the registration and lifecycle of bus metrics. A nil
// *Registry is valid: all recording methods are no-ops, so the framework
// runs unchanged without instrumentation.
type Registry struct {
	prometheusRegistry *prometheus.Registry
	Core               *Metrics
}

// NewRegistry creates a metrics registry with the core bus metrics and Go
// runtime collectors registered.
func NewRegistry() *Registry {
	prometheusRegistry := prometheus.NewRegistry()

	r := &Registry{
		prometheusRegistry: prometheusRegistry,
		Core:               NewMetrics(),
	}

	prometheusRegistry.MustRegister(
		r.Core.EventsDispatched,
		r.Core.QueueDepth,
		r.Core.ProcessDuration,
		r.Core.TriggerWakeups,
		r.Core.ComponentsRegistered,
		r.Core.RunnerErrors,
	)
	prometheusRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return r
}

// PrometheusRegistry returns the underlying Prometheus registry, for
// exposition by whatever HTTP surface the host application runs.
func (r *Registry) PrometheusRegistry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.prometheusRegistry
}

// RecordDispatch counts one delivered event.
func (r *Registry) RecordDispatch(key string) {
	if r == nil {
		return
	}
	r.Core.EventsDispatched.WithLabelValues(key).Inc()
}

// RecordQueueDepth updates the shared queue depth gauge.
func (r *Registry) RecordQueueDepth(depth int) {
	if r == nil {
		return
	}
	r.Core.QueueDepth.Set(float64(depth))
}

// RecordProcess observes one processing step duration.
func (r *Registry) RecordProcess(component string, seconds float64) {
	if r == nil {
		return
	}
	r.Core.ProcessDuration.WithLabelValues(component).Observe(seconds)
}

// RecordTriggerWake counts one trigger wakeup.
func (r *Registry) RecordTriggerWake(component string) {
	if r == nil {
		return
	}
	r.Core.TriggerWakeups.WithLabelValues(component).Inc()
}

// RecordRegistered adjusts the registered components gauge.
func (r *Registry) RecordRegistered(delta int) {
	if r == nil {
		return
	}
	r.Core.ComponentsRegistered.Add(float64(delta))
}

// RecordRunnerError counts one contained runner failure.
func (r *Registry) RecordRunnerError(component, stage string) {
	if r == nil {
		return
	}
	r.Core.RunnerErrors.WithLabelValues(component, stage).Inc()
}
