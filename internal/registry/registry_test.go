package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/workflow"
)

func noopUnit(_ context.Context, acc accumulator.Accumulator, nodeID string, _ Params) accumulator.Accumulator {
	return acc.With(nodeID, accumulator.Output{"ok": true})
}

func TestNew_HasStartUnit(t *testing.T) {
	r := New()
	u, ok := r.Lookup(StartTask)
	require.True(t, ok)

	acc := u.Run(context.Background(), accumulator.Accumulator{"stale": {}}, "", nil)
	assert.Empty(t, acc, "start must always produce an empty accumulator")
	assert.Empty(t, r.Types())
}

func TestRegisterUnit(t *testing.T) {
	r := New()
	r.RegisterUnit("custom", &RegisteredUnit{Bind: RequireProducer, Run: noopUnit})
	assert.Equal(t, []string{"custom"}, r.Types())

	assert.PanicsWithValue(t, "unit of work with name 'custom' already registered", func() {
		r.RegisterUnit("custom", &RegisteredUnit{Bind: RequireProducer, Run: noopUnit})
	})
}

func TestBind(t *testing.T) {
	r := New()
	r.RegisterUnit(string(workflow.DisplayText), &RegisteredUnit{Bind: RequireProducer, Run: noopUnit})

	t.Run("unknown type", func(t *testing.T) {
		_, err := r.Bind(workflow.Node{ID: "x", Type: "videoEdit"})
		assert.True(t, errors.Is(err, flowerr.ErrUnknownNodeType))
		assert.ErrorContains(t, err, "videoEdit")
	})

	t.Run("start is not a node type", func(t *testing.T) {
		_, err := r.Bind(workflow.Node{ID: "x", Type: StartTask})
		assert.True(t, errors.Is(err, flowerr.ErrUnknownNodeType))
	})

	t.Run("missing producer", func(t *testing.T) {
		_, err := r.Bind(workflow.Node{ID: "n2", Type: workflow.DisplayText})
		assert.True(t, errors.Is(err, flowerr.ErrMissingDependency))
	})

	t.Run("producer bound", func(t *testing.T) {
		params, err := r.Bind(workflow.Node{ID: "n2", Type: workflow.DisplayText, Inputs: map[string]string{"input": "n1"}})
		require.NoError(t, err)
		assert.Equal(t, Params{ParamProducer: "n1"}, params)
	})
}

func TestUpstreamError(t *testing.T) {
	acc := accumulator.New().
		With("bad", accumulator.ErrorOutput("boom")).
		With("good", accumulator.Output{accumulator.FieldText: "hi"})

	out, ok := UpstreamError(acc, Params{ParamProducer: "bad"})
	require.True(t, ok)
	assert.Equal(t, accumulator.Output{"error": "boom"}, out)

	_, ok = UpstreamError(acc, Params{ParamProducer: "good"})
	assert.False(t, ok)

	_, ok = UpstreamError(acc, Params{})
	assert.False(t, ok)

	_, ok = UpstreamError(acc, Params{ParamProducer: "not-run"})
	assert.False(t, ok)

	assert.Equal(t, "hi", ProducerOutput(acc, Params{ParamProducer: "good"}).String(accumulator.FieldText))
	assert.Empty(t, ProducerOutput(acc, Params{}))
}

func TestValidateRegistry(t *testing.T) {
	r := New()
	err := r.ValidateRegistry(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "node type 'generateText' has no registered unit of work")

	r = New()
	for _, typ := range coreTypes {
		r.RegisterUnit(string(typ), &RegisteredUnit{Bind: RequireProducer, Run: noopUnit})
	}
	require.NoError(t, r.ValidateRegistry(context.Background()))

	r.RegisterUnit("broken", &RegisteredUnit{Bind: RequireProducer})
	assert.ErrorContains(t, r.ValidateRegistry(context.Background()), "unit 'broken' has no run function")
}
