package engine

import (
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"github.com/vk/blockflow/internal/metrics"
)

// Defaults applied by New.
const (
	DefaultWorkers         = 4
	DefaultTaskTimeLimit   = 300 * time.Second
	DefaultMaxRedeliveries = 3
)

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers sets the size of the worker pool.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithTaskTimeLimit bounds the run time of a single step.
func WithTaskTimeLimit(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.taskTimeLimit = d
		}
	}
}

// WithMaxRedeliveries caps how often a crashing step is put back on the queue.
func WithMaxRedeliveries(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRedeliveries = uint64(n)
		}
	}
}

// WithBackOff sets the redelivery backoff policy. A fresh policy is created
// for every step that needs redelivery.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(e *Engine) {
		if newBackOff != nil {
			e.newBackOff = newBackOff
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		if c != nil {
			e.clock = c
		}
	}
}

// WithMetrics enables Prometheus reporting.
func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 30 * time.Second
	return b
}
