package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cenkalti/backoff/v4"
	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/taskstore"
)

// errTimeLimit marks a step that ran longer than the task time limit.
var errTimeLimit = errors.New("task time limit exceeded")

// worker is the core processing loop for a single concurrent worker.
func (e *Engine) worker(ctx context.Context, workerID int) {
	defer e.wg.Done()
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)

	for {
		d, ok := e.queue.pop(ctx)
		if !ok {
			break
		}
		e.metrics.QueueDepth(e.queue.len())
		e.deliver(ctx, workerID, d)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// deliver runs one step of one run and schedules whatever comes next.
// Units of work see the step's attributes on the context logger.
func (e *Engine) deliver(ctx context.Context, workerID int, d delivery) {
	step := d.chain.Steps[d.index]
	ctx, logger := ctxlog.With(ctx,
		"workerID", workerID, "handle", d.handle,
		"task", step.Task, "nodeID", step.NodeID, "step", d.index)

	rec, err := e.store.Get(ctx, d.handle)
	if err != nil {
		logger.Error("Failed to load run record, dropping delivery.", "error", err)
		return
	}
	if rec.State.Terminal() {
		logger.Debug("Run already finished, dropping delivery.", "state", rec.State)
		return
	}

	acc, err := accumulator.Decode(d.payload)
	if err != nil {
		e.fail(ctx, logger, rec, err.Error())
		return
	}
	unit, ok := e.registry.Lookup(step.Task)
	if !ok {
		e.fail(ctx, logger, rec, fmt.Sprintf("task '%s' is not registered on this worker", step.Task))
		return
	}

	rec.State = taskstore.StateStarted
	rec.Attempts = d.attempt + 1
	rec.UpdatedAt = e.clock.Now()
	e.put(ctx, logger, rec)

	logger.Info("▶️ Starting step.", "attempt", rec.Attempts)
	start := e.clock.Now()
	next, err := e.execute(ctx, unit.Run, acc, step)
	took := e.clock.Since(start)

	switch {
	case err == nil:
	case ctx.Err() != nil:
		// Shutting down; the record keeps its last state for Resume.
		logger.Warn("Step interrupted by shutdown.", "error", err)
		return
	case errors.Is(err, errTimeLimit):
		e.metrics.StepDone(step.Task, "timeout", took)
		e.fail(ctx, logger, rec, err.Error())
		return
	default:
		e.metrics.StepDone(step.Task, "crash", took)
		e.redeliver(ctx, logger, rec, d, err)
		return
	}

	e.metrics.StepDone(step.Task, "ok", took)
	payload, err := accumulator.Encode(next)
	if err != nil {
		e.fail(ctx, logger, rec, err.Error())
		return
	}

	rec.Step = d.index + 1
	rec.Result = payload
	rec.Error = ""
	rec.UpdatedAt = e.clock.Now()
	logger.Info("✅ Finished step.", "took", took)

	if rec.Step == len(d.chain.Steps) {
		rec.State = taskstore.StateSuccess
		e.put(ctx, logger, rec)
		e.metrics.RunFinished(string(taskstore.StateSuccess))
		logger.Info("🏁 Workflow finished.", "state", rec.State)
		return
	}

	e.put(ctx, logger, rec)
	e.queue.push(delivery{handle: d.handle, chain: d.chain, index: d.index + 1, payload: payload})
}

// execute runs a unit of work under the task time limit, converting a panic
// into an error.
func (e *Engine) execute(ctx context.Context, run registry.Unit, acc accumulator.Accumulator, step Step) (next accumulator.Accumulator, err error) {
	stepCtx, cancel := e.clock.WithTimeout(ctx, e.taskTimeLimit)
	defer cancel()

	type result struct {
		acc accumulator.Accumulator
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("unit of work panicked: %v", r)}
			}
		}()
		out := run(stepCtx, acc, step.NodeID, step.Params)
		if out == nil {
			done <- result{err: errors.New("unit of work returned no accumulator")}
			return
		}
		done <- result{acc: out}
	}()

	select {
	case res := <-done:
		return res.acc, res.err
	case <-stepCtx.Done():
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w after %s", errTimeLimit, e.taskTimeLimit)
	}
}

// redeliver puts a crashed step back on the queue with the same snapshot, or
// fails the run once the backoff policy gives up.
func (e *Engine) redeliver(ctx context.Context, logger *slog.Logger, rec taskstore.Record, d delivery, cause error) {
	if d.bo == nil {
		d.bo = backoff.WithMaxRetries(e.newBackOff(), e.maxRedeliveries)
		d.bo.Reset()
	}
	wait := d.bo.NextBackOff()
	if wait == backoff.Stop {
		e.fail(ctx, logger, rec, fmt.Sprintf("%s (gave up after %d deliveries)", cause, d.attempt+1))
		return
	}

	rec.State = taskstore.StateRetry
	rec.Error = cause.Error()
	rec.UpdatedAt = e.clock.Now()
	e.put(ctx, logger, rec)
	e.metrics.StepRedelivered(d.chain.Steps[d.index].Task)
	logger.Warn("Step crashed, redelivering.", "error", cause, "attempt", d.attempt+1, "wait", wait)

	d.attempt++
	e.clock.AfterFunc(wait, func() { e.queue.push(d) })
}

func (e *Engine) fail(ctx context.Context, logger *slog.Logger, rec taskstore.Record, msg string) {
	rec.State = taskstore.StateFailure
	rec.Error = msg
	rec.UpdatedAt = e.clock.Now()
	e.put(ctx, logger, rec)
	e.metrics.RunFinished(string(taskstore.StateFailure))
	logger.Error("🏁 Workflow failed.", "error", msg)
}

func (e *Engine) put(ctx context.Context, logger *slog.Logger, rec taskstore.Record) {
	if err := e.store.Put(ctx, rec); err != nil {
		logger.Error("Failed to record run state.", "state", rec.State, "error", err)
	}
}
