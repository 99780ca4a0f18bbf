package inmemorystore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/taskstore"
)

func TestPutAndGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	// Get a run that doesn't exist yet
	_, err := s.Get(ctx, "missing")
	assert.True(t, errors.Is(err, taskstore.ErrNotFound))

	rec := taskstore.Record{Handle: "h1", State: taskstore.StatePending, Total: 3}
	require.NoError(t, s.Put(ctx, rec))

	got, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// Overwrite with a later state
	rec.State = taskstore.StateSuccess
	rec.Result = json.RawMessage(`{"n1":{"text":"x"}}`)
	require.NoError(t, s.Put(ctx, rec))

	got, err = s.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, taskstore.StateSuccess, got.State)
	assert.JSONEq(t, `{"n1":{"text":"x"}}`, string(got.Result))
}

func TestRecordsAreCopied(t *testing.T) {
	s := New()
	ctx := context.Background()

	result := json.RawMessage(`{"a":{}}`)
	require.NoError(t, s.Put(ctx, taskstore.Record{Handle: "h", Result: result}))
	result[2] = 'b'

	got, err := s.Get(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{}}`, string(got.Result))

	got.Result[2] = 'c'
	again, err := s.Get(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, `{"a":{}}`, string(again.Result))
}

func TestConcurrentAccess(t *testing.T) {
	s := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	numGoroutines := 100

	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(i int) {
			defer wg.Done()
			handle := fmt.Sprintf("h%d", i)
			_ = s.Put(ctx, taskstore.Record{Handle: handle, State: taskstore.StateStarted, Step: i})
			_, _ = s.Get(ctx, handle)
		}(i)
	}
	wg.Wait()

	for i := 0; i < numGoroutines; i++ {
		rec, err := s.Get(ctx, fmt.Sprintf("h%d", i))
		require.NoError(t, err)
		assert.Equal(t, i, rec.Step)
	}
	assert.NoError(t, s.Close())
}

func TestRange(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Put(ctx, taskstore.Record{Handle: fmt.Sprintf("h%d", i), Step: i}))
	}

	seen := map[string]int{}
	require.NoError(t, s.Range(ctx, func(rec taskstore.Record) bool {
		seen[rec.Handle] = rec.Step
		return true
	}))
	assert.Equal(t, map[string]int{"h0": 0, "h1": 1, "h2": 2}, seen)

	var n int
	require.NoError(t, s.Range(ctx, func(taskstore.Record) bool {
		n++
		return false
	}))
	assert.Equal(t, 1, n)
}
