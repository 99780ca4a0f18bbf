// Package leveldbstore is an on-disk taskstore.Store backed by goleveldb.
// Records survive a restart, so status queries for runs that finished before
// the process went down keep answering and unfinished runs can be resumed.
package leveldbstore

import (
	"context"
	"errors"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"github.com/vk/blockflow/internal/taskstore"
)

const keyPrefix = "run/"

// Store persists run records as JSON values keyed by "run/<handle>".
type Store struct {
	db *leveldb.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open leveldb at %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

// Put writes the record.
func (s *Store) Put(_ context.Context, rec taskstore.Record) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", rec.Handle, err)
	}
	if err := s.db.Put([]byte(keyPrefix+rec.Handle), b, nil); err != nil {
		return fmt.Errorf("failed to write run %s: %w", rec.Handle, err)
	}
	return nil
}

// Get reads the record for handle.
func (s *Store) Get(_ context.Context, handle string) (taskstore.Record, error) {
	b, err := s.db.Get([]byte(keyPrefix+handle), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return taskstore.Record{}, taskstore.ErrNotFound
	}
	if err != nil {
		return taskstore.Record{}, fmt.Errorf("failed to read run %s: %w", handle, err)
	}
	var rec taskstore.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		return taskstore.Record{}, fmt.Errorf("failed to decode run %s: %w", handle, err)
	}
	return rec, nil
}

// Range iterates over every stored run in key order.
func (s *Store) Range(ctx context.Context, fn func(taskstore.Record) bool) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(keyPrefix)), nil)
	defer iter.Release()
	for iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		// The iterator reuses its buffers between steps.
		value := append([]byte(nil), iter.Value()...)
		var rec taskstore.Record
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("failed to decode %s: %w", iter.Key(), err)
		}
		if !fn(rec) {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("failed to iterate runs: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
