package generate_text

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
	Text provider.TextGenerator
}

// Bind reads the prompt from the node's data.
func Bind(n workflow.Node) (registry.Params, error) {
	return registry.Params{registry.ParamPrompt: n.DataString("prompt")}, nil
}

// Run generates text for the node's prompt and records {text} or {error}.
func (m *Module) Run(ctx context.Context, acc accumulator.Accumulator, nodeID string, params registry.Params) accumulator.Accumulator {
	logger := ctxlog.FromContext(ctx).With("unit", workflow.GenerateText, "nodeID", nodeID)
	logger.Debug("Generate text unit started.")

	prompt := params[registry.ParamPrompt]
	if prompt == "" {
		return acc.With(nodeID, accumulator.ErrorOutput(fmt.Sprintf("%s: generateText requires a non-empty prompt", flowerr.ErrMissingPrompt)))
	}
	if m.Text == nil {
		return acc.With(nodeID, accumulator.ErrorOutput("text generation is not configured"))
	}

	text, err := m.Text.GenerateText(ctx, prompt)
	if err != nil {
		logger.Warn("Text generation failed.", "error", err)
		return acc.With(nodeID, accumulator.ErrorOutput(err.Error()))
	}

	logger.Debug("Generate text unit finished.", "text_len", len(text))
	return acc.With(nodeID, accumulator.Output{accumulator.FieldText: text})
}

// Register registers the unit of work with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit(string(workflow.GenerateText), &registry.RegisteredUnit{
		Bind: Bind,
		Run:  m.Run,
	})
}
