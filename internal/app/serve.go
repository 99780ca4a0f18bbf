package app

import (
	"context"

	"github.com/vk/blockflow/internal/bridge"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/server"
	"github.com/vk/blockflow/internal/workflowstore"
	"golang.org/x/sync/errgroup"
)

// Serve resumes any runs left unfinished by a previous process, then runs the
// engine workers and the HTTP/socket.io front door until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Serve method started.")

	workflows, err := workflowstore.Open(ctx, a.config.DatabasePath)
	if err != nil {
		return err
	}
	defer workflows.Close()

	if _, err := a.engine.Resume(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	b := bridge.New(gctx, a.tracker,
		bridge.WithPollInterval(a.config.PollInterval),
		bridge.WithMetrics(a.metrics),
	)
	defer b.Close()

	srv := server.New(gctx, server.Deps{
		Submitter: a.compiler,
		Status:    a.tracker,
		Bridge:    b,
		Workflows: workflows,
		Blobs:     a.localBlobs,
		Gatherer:  a.promReg,
	}, server.Options{
		Addr:        a.config.Addr,
		CORSOrigins: a.config.CORSOrigins,
	})

	g.Go(func() error { return a.engine.Run(gctx) })
	g.Go(func() error { return srv.Run(gctx) })

	a.logger.Info("🚀 blockflow serving.", "address", a.config.Addr, "workers", a.config.Workers, "backend", a.config.Backend)
	err = g.Wait()
	a.logger.Info("🏁 blockflow stopped.")
	return err
}
