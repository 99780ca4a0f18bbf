// Package dag turns a workflow's node list into a dependency graph and
// linearizes it with Kahn's algorithm.
//
// Edges are derived from each node's declared inputs and only live inside
// this package. The sorted order is a single sequence even when the graph has
// independent branches; ties between ready nodes always follow declaration
// order, so the same workflow always compiles to the same pipeline.
package dag
