package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/vk/blockflow/internal/workflow"
)

// coreTypes are the node types every build must be able to run.
var coreTypes = []workflow.Type{
	workflow.GenerateText,
	workflow.DisplayText,
	workflow.GenerateImage,
	workflow.DisplayImage,
	workflow.TextToSpeech,
}

// ValidateRegistry checks that every core node type has a complete unit and
// that no unit is missing either half of its contract.
func (r *Registry) ValidateRegistry(ctx context.Context) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, t := range coreTypes {
		if _, ok := r.units[string(t)]; !ok {
			errs = append(errs, fmt.Sprintf("node type '%s' has no registered unit of work", t))
		}
	}

	for name, unit := range r.units {
		if unit == nil || unit.Bind == nil {
			errs = append(errs, fmt.Sprintf("unit '%s' has no binder", name))
			continue
		}
		if unit.Run == nil {
			errs = append(errs, fmt.Sprintf("unit '%s' has no run function", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logger.Debug("Registry validation passed.", "unit_count", len(r.units))
	return nil
}
