// Package metrics exposes Prometheus collectors for the execution engine and
// the notification bridge. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "blockflow"

// Metrics groups every collector the application reports.
type Metrics struct {
	runsSubmitted prometheus.Counter
	runsFinished  *prometheus.CounterVec
	steps         *prometheus.CounterVec
	stepDuration  *prometheus.HistogramVec
	redeliveries  *prometheus.CounterVec
	queueDepth    prometheus.Gauge
	subscribers   prometheus.Gauge
	pushes        prometheus.Counter
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_submitted_total",
			Help:      "Pipelines accepted by the engine.",
		}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_finished_total",
			Help:      "Pipelines that reached a terminal state.",
		}, []string{"state"}),
		steps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "steps_total",
			Help:      "Units of work executed, by task and outcome.",
		}, []string{"task", "outcome"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of a single unit of work.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"task"}),
		redeliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "step_redeliveries_total",
			Help:      "Steps put back on the queue after a worker failure.",
		}, []string{"task"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Steps waiting for a worker.",
		}),
		subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "bridge_subscribers",
			Help:      "Observers currently subscribed to live status.",
		}),
		pushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bridge_pushes_total",
			Help:      "Status records pushed to observers.",
		}),
	}
	reg.MustRegister(
		m.runsSubmitted, m.runsFinished, m.steps, m.stepDuration,
		m.redeliveries, m.queueDepth, m.subscribers, m.pushes,
	)
	return m
}

// RunSubmitted counts an accepted pipeline.
func (m *Metrics) RunSubmitted() {
	if m == nil {
		return
	}
	m.runsSubmitted.Inc()
}

// RunFinished counts a pipeline reaching state.
func (m *Metrics) RunFinished(state string) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(state).Inc()
}

// StepDone records one executed unit of work.
func (m *Metrics) StepDone(task, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.steps.WithLabelValues(task, outcome).Inc()
	m.stepDuration.WithLabelValues(task).Observe(took.Seconds())
}

// StepRedelivered counts a step put back on the queue.
func (m *Metrics) StepRedelivered(task string) {
	if m == nil {
		return
	}
	m.redeliveries.WithLabelValues(task).Inc()
}

// QueueDepth reports the number of waiting steps.
func (m *Metrics) QueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

// SubscriberAdded and SubscriberRemoved track live observers.
func (m *Metrics) SubscriberAdded() {
	if m == nil {
		return
	}
	m.subscribers.Inc()
}

// SubscriberRemoved is the counterpart of SubscriberAdded.
func (m *Metrics) SubscriberRemoved() {
	if m == nil {
		return
	}
	m.subscribers.Dec()
}

// Pushed counts one record delivered to one observer.
func (m *Metrics) Pushed() {
	if m == nil {
		return
	}
	m.pushes.Inc()
}
