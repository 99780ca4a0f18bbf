package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/workflow"
)

type executeResponse struct {
	TaskID string `json:"task_id"`
}

type saveRequest struct {
	Name        string              `json:"name" binding:"required"`
	Description string              `json:"description"`
	Workflow    workflow.Definition `json:"workflow"`
}

type saveResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

type workflowSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type workflowDetail struct {
	workflowSummary
	Workflow json.RawMessage `json:"workflow"`
}

func (s *Server) health(c *gin.Context) {
	ctxlog.FromContext(c.Request.Context()).Debug("Health check endpoint hit.", "remote_addr", c.ClientIP())
	c.String(http.StatusOK, "OK\n")
}

// executeWorkflow compiles and submits {blocks: [...]}.
func (s *Server) executeWorkflow(c *gin.Context) {
	var def workflow.Definition
	if err := c.ShouldBindJSON(&def); err != nil {
		_ = c.Error(badRequest(fmt.Errorf("invalid workflow body: %w", err)))
		return
	}
	s.submit(c, def.Blocks)
}

func (s *Server) submit(c *gin.Context, nodes []workflow.Node) {
	handle, err := s.deps.Submitter.Submit(c.Request.Context(), nodes)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, executeResponse{TaskID: handle})
}

func (s *Server) taskStatus(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Status.GetStatus(c.Request.Context(), c.Param("id")))
}

func (s *Server) saveWorkflow(c *gin.Context) {
	var req saveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(badRequest(fmt.Errorf("invalid save request: %w", err)))
		return
	}
	saved, err := s.deps.Workflows.Save(c.Request.Context(), req.Name, req.Description, req.Workflow)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, saveResponse{ID: saved.ID, Message: "Workflow saved successfully"})
}

func (s *Server) listWorkflows(c *gin.Context) {
	rows, err := s.deps.Workflows.List(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	out := make([]workflowSummary, 0, len(rows))
	for _, w := range rows {
		out = append(out, workflowSummary{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) getWorkflow(c *gin.Context) {
	w, err := s.deps.Workflows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, workflowDetail{
		workflowSummary: workflowSummary{ID: w.ID, Name: w.Name, Description: w.Description, CreatedAt: w.CreatedAt},
		Workflow:        json.RawMessage(w.Workflow),
	})
}

// executeSaved submits a stored workflow as if its blocks had been posted.
func (s *Server) executeSaved(c *gin.Context) {
	w, err := s.deps.Workflows.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	nodes, err := w.Nodes()
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.submit(c, nodes)
}

func (s *Server) serveBlob(c *gin.Context) {
	name := c.Param("name")
	if err := s.deps.Blobs.Verify(name, c.Query("expires"), c.Query("signature")); err != nil {
		c.JSON(http.StatusForbidden, errorResponse{Detail: err.Error()})
		return
	}
	f, err := s.deps.Blobs.Open(name)
	if err != nil {
		_ = c.Error(notFound(errors.New("blob not found")))
		return
	}
	defer f.Close()
	st, err := f.Stat()
	if err != nil {
		_ = c.Error(err)
		return
	}
	http.ServeContent(c.Writer, c.Request, name, st.ModTime(), f)
}
