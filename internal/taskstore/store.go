// Package taskstore defines the result backend of the execution engine: the
// place where the state of every submitted pipeline run is recorded and read
// back by the status tracker.
//
// # Lifecycle of a record
//
// A record is written once per transition of a run:
//
//	PENDING → STARTED → (STARTED | RETRY)* → SUCCESS or FAILURE
//
// STARTED is rewritten after every completed step with the newest
// accumulator snapshot, so readers can observe partial results. SUCCESS and
// FAILURE are terminal; the engine never writes a record after one of them.
//
// # Implementations
//
// See internal/inmemorystore for the ephemeral backend used by single-process
// runs and tests, and internal/leveldbstore for the on-disk backend. The
// on-disk backend holds an exclusive lock on its directory, so only the
// serving process reads it; other processes ask that server over HTTP.
// Because every record also carries its chain and newest snapshot, a
// restarted engine can pick unfinished runs back up (see Engine.Resume).
package taskstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when no run exists for a handle.
var ErrNotFound = errors.New("execution handle not found")

// State is the engine-level state of a run.
type State string

// Engine states. SUCCESS and FAILURE are terminal.
const (
	StatePending State = "PENDING"
	StateStarted State = "STARTED"
	StateRetry   State = "RETRY"
	StateSuccess State = "SUCCESS"
	StateFailure State = "FAILURE"
)

// Terminal reports whether no further transitions can follow.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Record is the stored state of one pipeline run.
type Record struct {
	Handle string `json:"handle"`
	State  State  `json:"state"`
	// Step is the number of chain steps completed so far, out of Total.
	Step  int `json:"step"`
	Total int `json:"total"`
	// Result is the newest encoded accumulator snapshot.
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
	// Attempts counts deliveries of the current step.
	Attempts int `json:"attempts"`
	// Chain is the encoded chain the run executes, kept so an unfinished run
	// can be resumed after a restart.
	Chain     json.RawMessage `json:"chain,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the interface for persisting run records.
//
// Implementations MUST be safe for concurrent use: workers write records for
// many runs at once while trackers read them.
type Store interface {
	// Put stores rec under rec.Handle, replacing any previous record.
	Put(ctx context.Context, rec Record) error

	// Get returns the record for handle, or ErrNotFound.
	Get(ctx context.Context, handle string) (Record, error)

	// Range calls fn for every stored record, in no particular order, until
	// fn returns false.
	Range(ctx context.Context, fn func(Record) bool) error

	// Close releases any resources held by the store.
	Close() error
}
