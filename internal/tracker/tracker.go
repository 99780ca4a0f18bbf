// Package tracker reconciles the engine's run records into client-facing
// status records.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/taskstore"
)

// DefaultQueryTimeout bounds a single status query.
const DefaultQueryTimeout = 5 * time.Second

// Source reads the engine's record for a run.
type Source interface {
	State(ctx context.Context, handle string) (taskstore.Record, error)
}

// Status is what clients see for a run.
type Status struct {
	State  taskstore.State         `json:"state"`
	Result accumulator.Accumulator `json:"result,omitempty"`
	Error  string                  `json:"error,omitempty"`
}

// Terminal reports whether the run has finished.
func (s Status) Terminal() bool {
	return s.State.Terminal()
}

// Tracker answers status queries. It is safe for concurrent use.
type Tracker struct {
	source  Source
	timeout time.Duration
	clock   clock.Clock
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithQueryTimeout sets how long one query may take before it is reported as
// a failure.
func WithQueryTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// New creates a Tracker over source.
func New(source Source, opts ...Option) *Tracker {
	t := &Tracker{source: source, timeout: DefaultQueryTimeout, clock: clock.New()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// GetStatus returns the status of a run. It never returns an error: unknown
// handles, query failures and timeouts all come back as FAILURE.
func (t *Tracker) GetStatus(ctx context.Context, handle string) Status {
	logger := ctxlog.FromContext(ctx).With("handle", handle)

	rec, err := t.query(ctx, handle)
	if err != nil {
		logger.Warn("Status query failed.", "error", err)
		return Status{State: taskstore.StateFailure, Error: err.Error()}
	}

	status := Status{State: rec.State}
	switch rec.State {
	case taskstore.StateFailure:
		status.Error = rec.Error
		if status.Error == "" {
			status.Error = "run failed without a reason"
		}
		return status
	case taskstore.StatePending:
		return status
	}

	acc, err := accumulator.Decode(rec.Result)
	if err != nil {
		return Status{State: taskstore.StateFailure, Error: err.Error()}
	}
	if rec.State == taskstore.StateSuccess || len(rec.Result) > 0 {
		status.Result = acc
	}
	return status
}

// query runs the source lookup under the query timeout and converts panics
// into errors.
func (t *Tracker) query(ctx context.Context, handle string) (taskstore.Record, error) {
	if handle == "" {
		return taskstore.Record{}, errors.New("empty execution handle")
	}
	qctx, cancel := t.clock.WithTimeout(ctx, t.timeout)
	defer cancel()

	type result struct {
		rec taskstore.Record
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("status query panicked: %v", r)}
			}
		}()
		rec, err := t.source.State(qctx, handle)
		done <- result{rec: rec, err: err}
	}()

	select {
	case res := <-done:
		if errors.Is(res.err, taskstore.ErrNotFound) {
			return taskstore.Record{}, fmt.Errorf("unknown execution handle '%s'", handle)
		}
		if res.err != nil {
			return taskstore.Record{}, fmt.Errorf("status query failed: %w", res.err)
		}
		return res.rec, nil
	case <-qctx.Done():
		return taskstore.Record{}, fmt.Errorf("status query for '%s' did not answer within %s", handle, t.timeout)
	}
}
