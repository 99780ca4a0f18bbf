package leveldbstore

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/taskstore"
)

func TestStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs")
	ctx := context.Background()

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Get(ctx, "nope")
	assert.True(t, errors.Is(err, taskstore.ErrNotFound))

	rec := taskstore.Record{
		Handle: "h1",
		State:  taskstore.StateFailure,
		Step:   2,
		Total:  3,
		Result: json.RawMessage(`{"n1":{"error":"boom"}}`),
		Error:  "step panicked",
	}
	require.NoError(t, s.Put(ctx, rec))
	require.NoError(t, s.Close())

	// Records survive a reopen.
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, taskstore.StateFailure, got.State)
	assert.Equal(t, 2, got.Step)
	assert.Equal(t, "step panicked", got.Error)
	assert.JSONEq(t, `{"n1":{"error":"boom"}}`, string(got.Result))
}

func TestRange(t *testing.T) {
	ctx := context.Background()
	s, err := Open(filepath.Join(t.TempDir(), "runs"))
	require.NoError(t, err)
	defer s.Close()

	for _, h := range []string{"b", "a", "c"} {
		require.NoError(t, s.Put(ctx, taskstore.Record{
			Handle: h,
			State:  taskstore.StateStarted,
			Chain:  json.RawMessage(`{"steps":[{"task":"start"}]}`),
		}))
	}

	var handles []string
	require.NoError(t, s.Range(ctx, func(rec taskstore.Record) bool {
		handles = append(handles, rec.Handle)
		assert.JSONEq(t, `{"steps":[{"task":"start"}]}`, string(rec.Chain))
		return true
	}))
	assert.Equal(t, []string{"a", "b", "c"}, handles)

	// Returning false stops the walk.
	var seen int
	require.NoError(t, s.Range(ctx, func(taskstore.Record) bool {
		seen++
		return false
	}))
	assert.Equal(t, 1, seen)
}
