package display_image

import (
	"context"

	"github.com/vk/blockflow/internal/accumulator"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/registry"
	"github.com/vk/blockflow/internal/workflow"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Run passes the producer's {image_url} through.
func Run(ctx context.Context, acc accumulator.Accumulator, nodeID string, params registry.Params) accumulator.Accumulator {
	logger := ctxlog.FromContext(ctx).With("unit", workflow.DisplayImage, "nodeID", nodeID)

	if failed, ok := registry.UpstreamError(acc, params); ok {
		logger.Debug("Producer failed, propagating its error.")
		return acc.With(nodeID, failed)
	}

	url := registry.ProducerOutput(acc, params).String(accumulator.FieldImageURL)
	logger.Info("Displaying image.", "image_url", url)
	return acc.With(nodeID, accumulator.Output{accumulator.FieldImageURL: url})
}

// Register registers the unit of work with the registry.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterUnit(string(workflow.DisplayImage), &registry.RegisteredUnit{
		Bind: registry.RequireProducer,
		Run:  Run,
	})
}
