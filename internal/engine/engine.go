package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/metrics"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/taskstore"
)

// Engine executes submitted chains on a pool of workers.
type Engine struct {
	registry *registry.Registry
	store    taskstore.Store
	metrics  *metrics.Metrics
	clock    clock.Clock
	queue    *queue

	workers         int
	taskTimeLimit   time.Duration
	maxRedeliveries uint64
	newBackOff      func() backoff.BackOff

	wg        sync.WaitGroup
	startOnce sync.Once
}

// New creates an engine. Workers do not run until Start or Run is called,
// but submissions are accepted and queued immediately.
func New(reg *registry.Registry, store taskstore.Store, opts ...Option) *Engine {
	e := &Engine{
		registry:        reg,
		store:           store,
		clock:           clock.New(),
		queue:           newQueue(),
		workers:         DefaultWorkers,
		taskTimeLimit:   DefaultTaskTimeLimit,
		maxRedeliveries: DefaultMaxRedeliveries,
		newBackOff:      defaultBackOff,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the worker pool. Workers stop when ctx is cancelled.
func (e *Engine) Start(ctx context.Context) {
	e.startOnce.Do(func() {
		logger := ctxlog.FromContext(ctx)
		logger.Info("🚀 Starting engine workers.", "count", e.workers, "task_time_limit", e.taskTimeLimit)
		for i := 1; i <= e.workers; i++ {
			e.wg.Add(1)
			go e.worker(ctx, i)
		}
	})
}

// Wait blocks until every worker has returned.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Run starts the workers and blocks until ctx is cancelled and all of them
// have stopped.
func (e *Engine) Run(ctx context.Context) error {
	e.Start(ctx)
	<-ctx.Done()
	e.Wait()
	ctxlog.FromContext(ctx).Info("🏁 Engine workers stopped.")
	return nil
}

// Submit records a new run and enqueues its first step. It returns as soon
// as the run is queued.
func (e *Engine) Submit(ctx context.Context, chain Chain) (string, error) {
	if len(chain.Steps) == 0 {
		return "", errors.New("cannot submit an empty chain")
	}
	if chain.Steps[0].Task != registry.StartTask {
		return "", fmt.Errorf("chain must begin with the '%s' task, got '%s'", registry.StartTask, chain.Steps[0].Task)
	}
	for _, s := range chain.Steps {
		if _, ok := e.registry.Lookup(s.Task); !ok {
			return "", fmt.Errorf("chain references unregistered task '%s'", s.Task)
		}
	}

	encoded, err := json.Marshal(chain)
	if err != nil {
		return "", fmt.Errorf("failed to encode chain: %w", err)
	}

	handle := uuid.NewString()
	rec := taskstore.Record{
		Handle:    handle,
		State:     taskstore.StatePending,
		Total:     len(chain.Steps),
		Chain:     encoded,
		UpdatedAt: e.clock.Now(),
	}
	if err := e.store.Put(ctx, rec); err != nil {
		return "", fmt.Errorf("failed to record run: %w", err)
	}

	e.queue.push(delivery{handle: handle, chain: chain})
	e.metrics.RunSubmitted()
	e.metrics.QueueDepth(e.queue.len())

	ctxlog.FromContext(ctx).Info("🚀 Workflow submitted.", "handle", handle, "steps", len(chain.Steps))
	return handle, nil
}

// State returns the stored record of a run.
func (e *Engine) State(ctx context.Context, handle string) (taskstore.Record, error) {
	return e.store.Get(ctx, handle)
}
