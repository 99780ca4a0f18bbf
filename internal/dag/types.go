package dag

import "sync"

// Graph is the dependency graph of a workflow: an adjacency list from each
// node to the nodes that consume its output, plus an in-degree per node.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects the nodes map and order slice during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by their unique ID.
	nodes map[string]*node
	// order is the declaration order of the nodes, used to break ties.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string IDs),
// not by direct struct manipulation.
type node struct {
	// id is the unique identifier for the node.
	id string
	// index is the node's position in declaration order.
	index int
	// inDegree counts the edges that end at this node.
	inDegree int
	// dependents lists the nodes that depend on this node, in edge order.
	dependents []string
}
