package display_text

import (
	"context"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Run copies the producer's text into {displayedText, text}.
func Run(ctx context.Context, acc accumulator.Accumulator, nodeID string, params registry.Params) accumulator.Accumulator {
	logger := ctxlog.FromContext(ctx).With("unit", workflow.DisplayText, "nodeID", nodeID)

	if failed, ok := registry.UpstreamError(acc, params); ok {
		logger.Debug("Producer failed, propagating its error.")
		return acc.With(nodeID, failed)
	}

	text := registry.ProducerOutput(acc, params).String(accumulator.FieldText)
	logger.Info("Displaying text.", "text", text)
	return acc.With(nodeID, accumulator.Output{
		accumulator.FieldDisplayedText: text,
		accumulator.FieldText:          text,
	})
}

// Register registers the unit of work with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit(string(workflow.DisplayText), &registry.RegisteredUnit{
		Bind: registry.RequireProducer,
		Run:  Run,
	})
}
