// Package registry is the closed mapping from a node type to the unit of work
// that executes it.
//
// Every unit has the same shape: it receives the accumulator snapshot, the id
// of the node it runs for, and the parameters resolved for that node at
// compile time, and it returns the next accumulator. Modules add units by
// implementing Module; the compiler and the engine only ever talk to the
// Registry, so a new node type needs a new module and nothing else.
package registry
