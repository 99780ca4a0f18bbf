// Package inmemorystore provides a thread-safe, in-memory implementation
// of the taskstore.Store interface. It is suitable for development, testing,
// or any deployment where run state does not need to outlive the process.
package inmemorystore
