package engine

import "github.com/vk/blockflow/internal/registry"

// Step is one unit-of-work invocation in a chain.
type Step struct {
	Task   string          `json:"task"`
	NodeID string          `json:"node_id,omitempty"`
	Params registry.Params `json:"params,omitempty"`
}

// Chain is a strictly linear sequence of steps. The first step is always the
// start unit, which produces the empty accumulator the rest build on.
type Chain struct {
	Steps []Step `json:"steps"`
}

// Tasks returns the task name of every step, in order.
func (c Chain) Tasks() []string {
	tasks := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		tasks[i] = s.Task
	}
	return tasks
}
