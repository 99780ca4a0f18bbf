package engine

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/taskstore"
)

const lostOnRestart = "run was lost on restart"

// Resume puts every unfinished run found in the store back on the queue,
// starting from the last step it completed with the snapshot recorded for it.
// A run whose chain cannot be rebuilt on this engine, or that has used up its
// deliveries, is failed instead. Resume must run before the first Submit; it
// returns the number of runs re-enqueued.
func (e *Engine) Resume(ctx context.Context) (int, error) {
	logger := ctxlog.FromContext(ctx)

	var unfinished []taskstore.Record
	err := e.store.Range(ctx, func(rec taskstore.Record) bool {
		if !rec.State.Terminal() {
			unfinished = append(unfinished, rec)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list runs: %w", err)
	}

	resumed := 0
	for _, rec := range unfinished {
		runLogger := logger.With("handle", rec.Handle, "state", rec.State, "step", rec.Step)
		d, err := e.restore(rec)
		if err != nil {
			e.fail(ctx, runLogger, rec, fmt.Sprintf("%s: %s", lostOnRestart, err))
			continue
		}
		e.queue.push(d)
		resumed++
		runLogger.Info("♻️ Resuming run.", "attempt", d.attempt+1)
	}

	e.metrics.QueueDepth(e.queue.len())
	if len(unfinished) > 0 {
		logger.Info("Unfinished runs recovered.", "resumed", resumed, "failed", len(unfinished)-resumed)
	}
	return resumed, nil
}

// restore rebuilds the delivery that continues rec.
func (e *Engine) restore(rec taskstore.Record) (delivery, error) {
	if len(rec.Chain) == 0 {
		return delivery{}, errors.New("no chain was recorded")
	}
	var chain Chain
	if err := json.Unmarshal(rec.Chain, &chain); err != nil {
		return delivery{}, fmt.Errorf("recorded chain is unreadable: %w", err)
	}
	if rec.Step < 0 || rec.Step >= len(chain.Steps) {
		return delivery{}, fmt.Errorf("run is at step %d of a %d-step chain", rec.Step, len(chain.Steps))
	}
	for _, s := range chain.Steps[rec.Step:] {
		if _, ok := e.registry.Lookup(s.Task); !ok {
			return delivery{}, fmt.Errorf("task '%s' is not registered on this worker", s.Task)
		}
	}

	// A delivery cut short by the restart counts against the step.
	attempt := 0
	if rec.State != taskstore.StatePending {
		attempt = rec.Attempts
	}
	if uint64(attempt) > e.maxRedeliveries {
		return delivery{}, fmt.Errorf("gave up after %d deliveries", attempt)
	}
	return delivery{
		handle:  rec.Handle,
		chain:   chain,
		index:   rec.Step,
		payload: rec.Result,
		attempt: attempt,
	}, nil
}
