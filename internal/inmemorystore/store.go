// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the taskstore.Store interface.
//
// # Concurrency Model
//
// Records are kept in a sync.Map keyed by execution handle. Every run writes
// only its own key, and status readers poll keys independently, which is the
// access pattern sync.Map is optimized for: a stable set of keys whose values
// change often.
//
// Records are copied on the way in and out so a caller holding a Record can
// never observe a later write through a shared Result slice.
package inmemorystore

import (
	"context"
	"sync"

	"github.com/vk/blockflow/internal/taskstore"
)

// Store is an in-memory implementation of taskstore.Store.
type Store struct {
	runs sync.Map // Key: handle string, Value: taskstore.Record
}

// New creates a new, empty in-memory run store.
func New() *Store {
	return &Store{}
}

// Put records the state of a run.
func (s *Store) Put(_ context.Context, rec taskstore.Record) error {
	s.runs.Store(rec.Handle, clone(rec))
	return nil
}

// Get retrieves the state of a run.
func (s *Store) Get(_ context.Context, handle string) (taskstore.Record, error) {
	v, ok := s.runs.Load(handle)
	if !ok {
		return taskstore.Record{}, taskstore.ErrNotFound
	}
	return clone(v.(taskstore.Record)), nil
}

// Range calls fn for every stored run.
func (s *Store) Range(_ context.Context, fn func(taskstore.Record) bool) error {
	s.runs.Range(func(_, v any) bool {
		return fn(clone(v.(taskstore.Record)))
	})
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error {
	return nil
}

func clone(rec taskstore.Record) taskstore.Record {
	if rec.Result != nil {
		rec.Result = append([]byte(nil), rec.Result...)
	}
	if rec.Chain != nil {
		rec.Chain = append([]byte(nil), rec.Chain...)
	}
	return rec
}
