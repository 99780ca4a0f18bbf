package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflowstore"
)

// httpError carries the status code a handler wants for its error.
type httpError struct {
	code int
	err  error
}

func (e *httpError) Error() string { return e.err.Error() }
func (e *httpError) Unwrap() error { return e.err }

func badRequest(err error) error { return &httpError{code: http.StatusBadRequest, err: err} }
func notFound(err error) error   { return &httpError{code: http.StatusNotFound, err: err} }

// errorResponse is the body of every failed request.
type errorResponse struct {
	Detail string `json:"detail"`
}

func (s *Server) newRouter(ctx context.Context) *gin.Engine {
	// discard gin default log output
	gin.DefaultWriter = io.Discard
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logMiddleware(ctx))
	router.Use(corsMiddleware(s.opts.CORSOrigins))
	router.Use(timeoutMiddleware(s.opts.RequestTimeout))
	router.Use(errorHandleMiddleware())

	router.GET("/health", s.health)
	router.POST("/execute-workflow", s.executeWorkflow)
	router.GET("/task-status/:id", s.taskStatus)

	if s.deps.Workflows != nil {
		wf := router.Group("/workflows")
		{
			wf.GET("", s.listWorkflows)
			wf.POST("/save", s.saveWorkflow)
			wf.GET("/:id", s.getWorkflow)
			wf.POST("/:id/execute", s.executeSaved)
		}
	}
	if s.deps.Blobs != nil {
		router.GET("/blobs/:name", s.serveBlob)
	}
	if s.deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{})))
	}

	sio := gin.WrapH(s.io.ServeHandler(nil))
	router.GET("/socket.io/*any", sio)
	router.POST("/socket.io/*any", sio)

	return router
}

// logMiddleware logs every request with the application logger.
func logMiddleware(ctx context.Context) gin.HandlerFunc {
	logger := ctxlog.FromContext(ctx)
	return func(c *gin.Context) {
		start := time.Now()
		c.Request = c.Request.WithContext(ctxlog.WithLogger(c.Request.Context(), logger))
		c.Next()

		var errMessage string
		if err := c.Errors.Last(); err != nil {
			errMessage = err.Err.Error()
		}
		logger.Debug("HTTP request served.",
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"ip", c.ClientIP(),
			"error", errMessage,
			"cost", time.Since(start),
		)
	}
}

// corsMiddleware allows credentialed requests from the configured origins.
func corsMiddleware(origins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin != "" && (slices.Contains(origins, "*") || slices.Contains(origins, origin)) {
			h := c.Writer.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "*")
			h.Add("Vary", "Origin")
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// timeoutMiddleware wraps the request context with a timeout
func timeoutMiddleware(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// errorHandleMiddleware puts the error of a failed handler into the response
func errorHandleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		// handlers return right after recording an error, so there is at most one
		lastError := c.Errors.Last()
		if lastError == nil {
			return
		}
		c.JSON(statusFor(lastError.Err), errorResponse{Detail: lastError.Err.Error()})
		c.Abort()
	}
}

func statusFor(err error) int {
	var he *httpError
	switch {
	case errors.As(err, &he):
		return he.code
	case flowerr.IsCompileError(err):
		return http.StatusBadRequest
	case errors.Is(err, workflowstore.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
