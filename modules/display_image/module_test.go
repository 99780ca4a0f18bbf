package display_image

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

func TestRun(t *testing.T) {
	ctx := context.Background()
	params := registry.Params{registry.ParamProducer: "img"}

	acc := accumulator.New().With("img", accumulator.Output{"image_url": "https://x/y.png"})
	acc = Run(ctx, acc, "show", params)
	assert.Equal(t, accumulator.Output{"image_url": "https://x/y.png"}, acc["show"])

	acc = accumulator.New().With("img", accumulator.ErrorOutput("nsfw"))
	acc = Run(ctx, acc, "show", params)
	assert.Equal(t, accumulator.Output{"error": "nsfw"}, acc["show"])
}

func TestRegister_RequiresProducer(t *testing.T) {
	r := registry.New()
	(&Module{}).Register(r)

	_, err := r.Bind(workflow.Node{ID: "show", Type: workflow.DisplayImage})
	assert.True(t, errors.Is(err, flowerr.ErrMissingDependency))
}
