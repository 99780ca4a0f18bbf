package registry

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflow"
)

// Parameter names shared by the core modules.
const (
	ParamPrompt   = "prompt"
	ParamProducer = "previous_node_id"
)

// Params are the compile-time parameters of one pipeline step. They must stay
// plain strings so a step can be serialized and handed to any worker.
type Params map[string]string

// Unit executes one node. It must only write the slot keyed by nodeID and
// must give the same slot for the same snapshot when re-run.
type Unit func(ctx context.Context, acc accumulator.Accumulator, nodeID string, params Params) accumulator.Accumulator

// Binder resolves a node's parameters at compile time, or reports why the
// node cannot be compiled.
type Binder func(n workflow.Node) (Params, error)

// RegisteredUnit holds the compile-time and run-time halves of a node type.
type RegisteredUnit struct {
	Bind Binder
	Run  Unit
}

// RegisterUnit registers the unit of work for a node type.
func (r *Registry) RegisterUnit(name string, unit *RegisteredUnit) {
	if _, exists := r.units[name]; exists {
		panic(fmt.Sprintf("unit of work with name '%s' already registered", name))
	}
	slog.Debug("Registering unit of work.", "name", name)
	r.units[name] = unit
}

// RequireProducer binds the id of the node feeding the input slot, failing
// with MissingDependency when none is declared.
func RequireProducer(n workflow.Node) (Params, error) {
	producer, ok := n.Producer()
	if !ok {
		return nil, flowerr.NewCompileError(flowerr.ErrMissingDependency, n.ID, "%s requires an '%s' producer", n.Type, workflow.InputSlot)
	}
	return Params{ParamProducer: producer}, nil
}

// UpstreamError returns the producer's {error} record when the producer
// failed. Consumers copy it into their own slot verbatim and skip their work.
func UpstreamError(acc accumulator.Accumulator, params Params) (accumulator.Output, bool) {
	producer, ok := params[ParamProducer]
	if !ok {
		return nil, false
	}
	out, ok := acc.Get(producer)
	if !ok {
		return nil, false
	}
	if _, failed := out.Err(); !failed {
		return nil, false
	}
	return out.Clone(), true
}

// ProducerOutput returns the producer's record, or an empty one when the
// node has no producer or the producer left nothing behind.
func ProducerOutput(acc accumulator.Accumulator, params Params) accumulator.Output {
	producer, ok := params[ParamProducer]
	if !ok {
		return accumulator.Output{}
	}
	out, ok := acc.Get(producer)
	if !ok {
		return accumulator.Output{}
	}
	return out
}
