// Package app wires the application together: it resolves configuration,
// builds the collaborators, registers the units of work, and drives the two
// lifecycles the CLI exposes, serving the API and running a workflow file
// in-process.
package app
