package generate_image

import (
	"context"
	"fmt"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/flowerr"
	"github.com/vk/blockflow/internal/provider"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	Images provider.ImageGenerator
}

// Bind takes the prompt from data and, when declared, the producer whose
// text is the fallback prompt. Neither is required at compile time.
func Bind(n workflow.Node) (registry.Params, error) {
	params := registry.Params{registry.ParamPrompt: n.DataString("prompt")}
	if producer, ok := n.Producer(); ok {
		params[registry.ParamProducer] = producer
	}
	return params, nil
}

// Run generates an image and records {image_url} or {error}.
func (m *Module) Run(ctx context.Context, acc accumulator.Accumulator, nodeID string, params registry.Params) accumulator.Accumulator {
	logger := ctxlog.FromContext(ctx).With("unit", workflow.GenerateImage, "nodeID", nodeID)
	logger.Debug("Generate image unit started.")

	if failed, ok := registry.UpstreamError(acc, params); ok {
		logger.Debug("Producer failed, propagating its error.")
		return acc.With(nodeID, failed)
	}

	prompt := params[registry.ParamPrompt]
	if prompt == "" {
		prompt = registry.ProducerOutput(acc, params).String(accumulator.FieldText)
	}
	if prompt == "" {
		return acc.With(nodeID, accumulator.ErrorOutput(fmt.Sprintf("%s: generateImage needs a prompt in data or text from its input", flowerr.ErrMissingPrompt)))
	}
	if m.Images == nil {
		return acc.With(nodeID, accumulator.ErrorOutput("image generation is not configured"))
	}

	url, err := m.Images.GenerateImage(ctx, prompt)
	if err != nil {
		logger.Warn("Image generation failed.", "error", err)
		return acc.With(nodeID, accumulator.ErrorOutput(err.Error()))
	}

	logger.Debug("Generate image unit finished.")
	return acc.With(nodeID, accumulator.Output{accumulator.FieldImageURL: url})
}

// Register registers the unit of work with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit(string(workflow.GenerateImage), &registry.RegisteredUnit{
		Bind: Bind,
		Run:  m.Run,
	})
}
