package display_text

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	params := registry.Params{registry.ParamProducer: "n1"}

	t.Run("reshapes producer text", func(t *testing.T) {
		acc := accumulator.New().With("n1", accumulator.Output{"text": "hello"})
		acc = Run(ctx, acc, "n2", params)
		assert.Equal(t, accumulator.Output{"displayedText": "hello", "text": "hello"}, acc["n2"])
	})

	t.Run("copies producer error verbatim", func(t *testing.T) {
		acc := accumulator.New().With("n1", accumulator.ErrorOutput("boom"))
		acc = Run(ctx, acc, "n2", params)
		assert.Equal(t, accumulator.Output{"error": "boom"}, acc["n2"])
	})

	t.Run("rerun on the same snapshot is identical", func(t *testing.T) {
		snapshot := accumulator.New().With("n1", accumulator.Output{"text": "hello"})
		assert.Equal(t, Run(ctx, snapshot, "n2", params), Run(ctx, snapshot, "n2", params))
	})
}

func TestRegister_RequiresProducer(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	_, err := r.Bind(workflow.Node{ID: "n2", Type: workflow.DisplayText})
	require.Error(t, err)
	assert.True(t, errors.Is(err, flowerr.ErrMissingDependency))
}
