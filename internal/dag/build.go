package dag

import (
	"context"

	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflow"
)

// Build constructs the dependency graph for a node list. Every node is added
// first, so each starts with an in-degree of zero, and only then are the
// edges derived from the declared inputs.
func Build(ctx context.Context, nodes []workflow.Node) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Build: Starting graph construction.", "node_count", len(nodes))
	g := New()

	// First pass: create all nodes.
	for _, n := range nodes {
		if _, exists := g.nodes[n.ID]; exists {
			return nil, flowerr.NewCompileError(flowerr.ErrDuplicateNode, n.ID, "id declared more than once")
		}
		g.AddNode(n.ID)
	}
	logger.Debug("Build: Node creation complete.", "node_count", g.Len())

	// Second pass: one edge per declared input slot.
	edges := 0
	for _, n := range nodes {
		for _, slot := range n.Slots() {
			producer := n.Inputs[slot]
			if producer == n.ID {
				return nil, flowerr.NewCompileError(flowerr.ErrCyclicWorkflow, n.ID, "node consumes its own output via slot '%s'", slot)
			}
			if _, ok := g.nodes[producer]; !ok {
				return nil, flowerr.NewCompileError(flowerr.ErrUnknownReference, n.ID, "slot '%s' names unknown producer '%s'", slot, producer)
			}
			if err := g.AddEdge(producer, n.ID); err != nil {
				return nil, err
			}
			edges++
		}
	}
	logger.Debug("Build: Node linking complete.", "edge_count", edges)

	logger.Debug("Build: Graph construction successful.")
	return g, nil
}
