// Package compiler turns a workflow node list into the linear chain the
// engine executes.
package compiler

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/dag"
	"github.com/vk/blockflow/internal/engine"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

// Submitter accepts a compiled chain for asynchronous execution.
type Submitter interface {
	Submit(ctx context.Context, chain engine.Chain) (string, error)
}

// Compile validates the node list and linearizes it into a chain that opens
// with the start unit. Independent branches are serialized in sort order.
func Compile(ctx context.Context, reg *registry.Registry, nodes []workflow.Node) (engine.Chain, error) {
	logger := ctxlog.FromContext(ctx)

	if len(nodes) == 0 {
		return engine.Chain{}, &flowerr.CompileError{Kind: flowerr.ErrEmptyWorkflow, Msg: "no nodes to run"}
	}
	for _, n := range nodes {
		if err := checkSlots(n); err != nil {
			return engine.Chain{}, err
		}
	}

	g, err := dag.Build(ctx, nodes)
	if err != nil {
		return engine.Chain{}, err
	}
	order, err := g.Sort()
	if err != nil {
		return engine.Chain{}, err
	}

	byID := make(map[string]workflow.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	chain := engine.Chain{Steps: make([]engine.Step, 0, len(order)+1)}
	chain.Steps = append(chain.Steps, engine.Step{Task: registry.StartTask})
	for _, id := range order {
		n := byID[id]
		params, err := reg.Bind(n)
		if err != nil {
			return engine.Chain{}, err
		}
		chain.Steps = append(chain.Steps, engine.Step{Task: string(n.Type), NodeID: n.ID, Params: params})
	}

	logger.Debug("Compiled workflow.", "order", strings.Join(order, " -> "))
	return chain, nil
}

// checkSlots rejects nodes that read from more than one producer or from a
// slot other than input.
func checkSlots(n workflow.Node) error {
	if n.ID == "" {
		return &flowerr.CompileError{Kind: flowerr.ErrUnknownReference, Msg: fmt.Sprintf("a %s node has no id", n.Type)}
	}
	slots := n.Slots()
	if len(slots) > 1 {
		return flowerr.NewCompileError(flowerr.ErrUnsupportedFanIn, n.ID, "%d input slots declared (%s), only '%s' is supported",
			len(slots), strings.Join(slots, ", "), workflow.InputSlot)
	}
	if len(slots) == 1 && slots[0] != workflow.InputSlot {
		return flowerr.NewCompileError(flowerr.ErrUnsupportedFanIn, n.ID, "slot '%s' is not supported, use '%s'", slots[0], workflow.InputSlot)
	}
	return nil
}

// Service compiles workflows and hands them to a Submitter.
type Service struct {
	registry  *registry.Registry
	submitter Submitter
}

// NewService creates a Service.
func NewService(reg *registry.Registry, submitter Submitter) *Service {
	return &Service{registry: reg, submitter: submitter}
}

// Registry returns the registry the service compiles against.
func (s *Service) Registry() *registry.Registry {
	return s.registry
}

// Validate compiles the workflow without submitting it.
func (s *Service) Validate(ctx context.Context, nodes []workflow.Node) (engine.Chain, error) {
	return Compile(ctx, s.registry, nodes)
}

// Submit compiles the workflow and submits it. It returns the execution
// handle without waiting for any step to run. Compile errors are returned
// as-is and nothing is submitted.
func (s *Service) Submit(ctx context.Context, nodes []workflow.Node) (string, error) {
	chain, err := Compile(ctx, s.registry, nodes)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Workflow rejected.", "error", err)
		return "", err
	}
	handle, err := s.submitter.Submit(ctx, chain)
	if err != nil {
		return "", fmt.Errorf("failed to submit workflow: %w", err)
	}
	return handle, nil
}
