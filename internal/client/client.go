// Package client talks to a running blockflow server: the HTTP API through
// resty and the live status stream through a socket.io client.
package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"
	"github.com/vk/blockflow/internal/tracker"
	"github.com/vk/blockflow/internal/workflow"
)

// Client is a blockflow API client.
type Client struct {
	baseURL string
	http    *resty.Client
}

type apiError struct {
	Detail string `json:"detail"`
}

// New creates a client for the server at baseURL, e.g. http://localhost:8000.
func New(baseURL string) *Client {
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		baseURL: baseURL,
		http: resty.New().
			SetBaseURL(baseURL).
			SetTimeout(30 * time.Second).
			SetHeader("Accept", "application/json"),
	}
}

// Submit posts a workflow and returns its task id.
func (c *Client) Submit(ctx context.Context, nodes []workflow.Node) (string, error) {
	var out struct {
		TaskID string `json:"task_id"`
	}
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(workflow.Definition{Blocks: nodes}).
		SetResult(&out).
		SetError(&apiErr).
		Post("/execute-workflow")
	if err != nil {
		return "", errors.Wrap(err, "submit request failed")
	}
	if resp.IsError() {
		return "", fmt.Errorf("server rejected workflow (%s): %s", resp.Status(), apiErr.Detail)
	}
	return out.TaskID, nil
}

// Status fetches the current status of a task.
func (c *Client) Status(ctx context.Context, handle string) (tracker.Status, error) {
	var st tracker.Status
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", handle).
		SetResult(&st).
		SetError(&apiErr).
		Get("/task-status/{id}")
	if err != nil {
		return tracker.Status{}, errors.Wrap(err, "status request failed")
	}
	if resp.IsError() {
		return tracker.Status{}, fmt.Errorf("status request failed (%s): %s", resp.Status(), apiErr.Detail)
	}
	return st, nil
}
