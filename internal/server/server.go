package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/vk/blockflow/internal/blobstore"
	"github.com/vk/blockflow/internal/bridge"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/tracker"
	"github.com/vk/blockflow/internal/workflow"
	"github.com/vk/blockflow/internal/workflowstore"
	"github.com/zishang520/socket.io/v2/socket"
)

// Submitter compiles and submits a node list. *compiler.Service implements it.
type Submitter interface {
	Submit(ctx context.Context, nodes []workflow.Node) (string, error)
}

// StatusQuerier answers status queries. *tracker.Tracker implements it.
type StatusQuerier interface {
	GetStatus(ctx context.Context, handle string) tracker.Status
}

// Subscriber attaches observers to live status. *bridge.Bridge implements it.
type Subscriber interface {
	Subscribe(handle string, obs bridge.Observer) (unsubscribe func())
}

// WorkflowStore persists saved workflows. *workflowstore.Store implements it.
type WorkflowStore interface {
	Save(ctx context.Context, name, description string, def workflow.Definition) (workflowstore.SavedWorkflow, error)
	List(ctx context.Context) ([]workflowstore.SavedWorkflow, error)
	Get(ctx context.Context, id string) (workflowstore.SavedWorkflow, error)
}

// Deps are the collaborators the routes call into. Workflows, Blobs and
// Gatherer may be nil; their routes are then not mounted.
type Deps struct {
	Submitter Submitter
	Status    StatusQuerier
	Bridge    Subscriber
	Workflows WorkflowStore
	Blobs     *blobstore.LocalStore
	Gatherer  prometheus.Gatherer
}

// Options tune the HTTP server.
type Options struct {
	Addr           string
	CORSOrigins    []string
	RequestTimeout time.Duration
}

// Server serves the HTTP API and the socket.io endpoint.
type Server struct {
	deps   Deps
	opts   Options
	io     *socket.Server
	router *gin.Engine
	http   *http.Server
}

// New builds the router. ctx carries the logger used by every request.
func New(ctx context.Context, deps Deps, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	s := &Server{deps: deps, opts: opts}
	s.io = s.newSocketServer(ctx)
	s.router = s.newRouter(ctx)
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	s.http = &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("🌐 HTTP server starting.", "address", s.opts.Addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	logger.Info("🌐 Shutting down HTTP server...")
	s.io.Close(nil)
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed.", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
