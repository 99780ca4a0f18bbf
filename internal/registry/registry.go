package registry

import (
	"context"
	"sort"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflow"
)

// StartTask is the name of the initializer unit that opens every pipeline.
const StartTask = "start"

// Module is the interface that all node-type modules must implement to be registered.
type Module interface {
	Register(r *Registry)
}

// Registry holds the registered units of work for a single application instance.
type Registry struct {
	units map[string]*RegisteredUnit
}

// New creates a Registry that already holds the start unit.
func New() *Registry {
	r := &Registry{
		units: make(map[string]*RegisteredUnit),
	}
	r.RegisterUnit(StartTask, &RegisteredUnit{
		Bind: func(workflow.Node) (Params, error) { return Params{}, nil },
		Run:  startWorkflow,
	})
	return r
}

// startWorkflow opens a pipeline with an empty accumulator.
func startWorkflow(context.Context, accumulator.Accumulator, string, Params) accumulator.Accumulator {
	return accumulator.New()
}

// Lookup returns the unit registered under name.
func (r *Registry) Lookup(name string) (*RegisteredUnit, bool) {
	u, ok := r.units[name]
	return u, ok
}

// Bind resolves the parameters of a node through the unit registered for its
// type. Unregistered types fail with UnknownNodeType.
func (r *Registry) Bind(n workflow.Node) (Params, error) {
	u, ok := r.units[string(n.Type)]
	if !ok || n.Type == StartTask {
		return nil, flowerr.NewCompileError(flowerr.ErrUnknownNodeType, n.ID, "type '%s' is not registered", n.Type)
	}
	return u.Bind(n)
}

// Types returns the registered node types, sorted, without the start unit.
func (r *Registry) Types() []string {
	types := make([]string, 0, len(r.units))
	for name := range r.units {
		if name == StartTask {
			continue
		}
		types = append(types, name)
	}
	sort.Strings(types)
	return types
}
