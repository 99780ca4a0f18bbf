package app

import (
	"context"
	"fmt"
	"io"

	json "github.com/goccy/go-json"
	"github.com/vk/blockflow/internal/bridge"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/engine"
	"github.com/vk/blockflow/internal/taskstore"
	"github.com/vk/blockflow/internal/tracker"
	"github.com/vk/blockflow/internal/workflow"
)

// Validate loads a workflow file and compiles it without running anything.
func (a *App) Validate(ctx context.Context, path string) (engine.Chain, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	nodes, err := workflow.LoadFile(ctx, path)
	if err != nil {
		return engine.Chain{}, err
	}
	return a.compiler.Validate(ctx, nodes)
}

// RunFile executes a workflow file in-process. Every status the bridge
// pushes is written to w as one JSON line; the final one is returned.
// Compile errors are returned before anything runs. The engine workers stop
// when RunFile returns, so an App runs at most one file.
func (a *App) RunFile(ctx context.Context, path string, w io.Writer) (tracker.Status, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.RunFile method started.", "path", path)

	nodes, err := workflow.LoadFile(ctx, path)
	if err != nil {
		return tracker.Status{}, err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.engine.Start(ctx)
	defer func() {
		cancel()
		a.engine.Wait()
	}()

	handle, err := a.compiler.Submit(ctx, nodes)
	if err != nil {
		return tracker.Status{}, err
	}

	b := bridge.New(ctx, a.tracker, bridge.WithPollInterval(a.config.PollInterval), bridge.WithMetrics(a.metrics))
	defer b.Close()

	obs := bridge.NewChanObserver(1)
	unsubscribe := b.Subscribe(handle, obs)
	defer unsubscribe()

	enc := json.NewEncoder(w)
	var last tracker.Status
	for st := range obs.C() {
		last = st
		if err := enc.Encode(st); err != nil {
			return last, fmt.Errorf("failed to write status: %w", err)
		}
	}
	if !last.State.Terminal() {
		return last, fmt.Errorf("status stream for %s ended in state %s", handle, last.State)
	}
	if last.State == taskstore.StateFailure {
		a.logger.Error("Workflow failed.", "handle", handle, "error", last.Error)
	}
	return last, nil
}
