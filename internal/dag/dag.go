package dag

import (
	"fmt"
	"sort"

	"github.com/vk/blockflow/internal/flowerr"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddNode adds a new node with the given ID to the graph with an in-degree of
// zero. If a node with the same ID already exists, the function does nothing.
func (g *Graph) AddNode(id string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[id]; ok {
		return
	}

	g.nodes[id] = &node{
		id:    id,
		index: len(g.order),
	}
	g.order = append(g.order, id)
}

// AddEdge creates a directed edge from the `fromID` node to the `toID` node.
// This signifies that `toID` has a dependency on `fromID`. An error is returned
// if either node does not exist or if the edge would create a self-reference.
func (g *Graph) AddEdge(fromID, toID string) error {
	if fromID == toID {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", fromID, fromID)
	}

	g.mutex.Lock()
	defer g.mutex.Unlock()

	fromNode, ok := g.nodes[fromID]
	if !ok {
		return fmt.Errorf("source node not found: %s", fromID)
	}

	toNode, ok := g.nodes[toID]
	if !ok {
		return fmt.Errorf("destination node not found: %s", toID)
	}

	fromNode.dependents = append(fromNode.dependents, toID)
	toNode.inDegree++

	return nil
}

// Len returns the number of nodes in the graph.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.nodes)
}

// InDegree returns the number of edges ending at the given node.
func (g *Graph) InDegree(id string) (int, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return 0, fmt.Errorf("node not found: %s", id)
	}
	return n.inDegree, nil
}

// Dependents returns a slice of node IDs that depend on the given node.
func (g *Graph) Dependents(id string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[id]
	if !ok {
		return nil, fmt.Errorf("node not found: %s", id)
	}

	dependents := make([]string, len(n.dependents))
	copy(dependents, n.dependents)
	return dependents, nil
}

// Sort returns an execution order in which every node appears after all the
// nodes it depends on. It uses Kahn's algorithm: the queue is seeded with the
// roots in declaration order, and nodes that become ready together are also
// enqueued in declaration order.
//
// If some nodes can never become ready the graph has a cycle, and Sort
// returns a CyclicWorkflow error and no order at all.
func (g *Graph) Sort() ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	remaining := make(map[string]int, len(g.nodes))
	queue := make([]string, 0, len(g.nodes))
	for _, id := range g.order {
		n := g.nodes[id]
		remaining[id] = n.inDegree
		if n.inDegree == 0 {
			queue = append(queue, id)
		}
	}

	order := make([]string, 0, len(g.nodes))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		order = append(order, id)

		var ready []string
		for _, dep := range g.nodes[id].dependents {
			remaining[dep]--
			if remaining[dep] == 0 {
				ready = append(ready, dep)
			}
		}
		sort.Slice(ready, func(i, j int) bool {
			return g.nodes[ready[i]].index < g.nodes[ready[j]].index
		})
		queue = append(queue, ready...)
	}

	if len(order) != len(g.nodes) {
		var stuck []string
		for _, id := range g.order {
			if remaining[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		return nil, flowerr.NewCompileError(flowerr.ErrCyclicWorkflow, "", "nodes %v can never become ready", stuck)
	}

	return order, nil
}
