package workflow

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/blockflow/internal/ctxlog"
	"github.com/zclconf/go-cty/cty"
)

// fileRoot is the top-level shape of an HCL workflow file.
type fileRoot struct {
	Nodes []*fileNode `hcl:"node,block"`
}

// fileNode is a single `node "<id>" { ... }` block.
type fileNode struct {
	ID     string            `hcl:"id,label"`
	Type   string            `hcl:"type"`
	Data   cty.Value         `hcl:"data,optional"`
	Inputs map[string]string `hcl:"inputs,optional"`
}

// LoadFile reads a workflow from disk. Files ending in .json are decoded as a
// {"blocks": [...]} document, everything else is parsed as HCL.
func LoadFile(ctx context.Context, path string) ([]Node, error) {
	logger := ctxlog.FromContext(ctx)
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow file %s: %w", path, err)
	}

	var nodes []Node
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		nodes, err = ParseJSON(src)
	default:
		nodes, err = ParseHCL(src, path)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("Workflow file loaded.", "path", path, "node_count", len(nodes))
	return nodes, nil
}

// ParseJSON decodes a {"blocks": [...]} document.
func ParseJSON(src []byte) ([]Node, error) {
	var def Definition
	if err := json.Unmarshal(src, &def); err != nil {
		return nil, fmt.Errorf("failed to decode workflow JSON: %w", err)
	}
	return def.Blocks, nil
}

// ParseHCL decodes node blocks from HCL source. Block order is preserved, so
// declaration order in the file is the declaration order of the workflow.
func ParseHCL(src []byte, filename string) ([]Node, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	var root fileRoot
	if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}

	nodes := make([]Node, 0, len(root.Nodes))
	for _, fn := range root.Nodes {
		data, err := dataFromCty(fn.Data)
		if err != nil {
			return nil, fmt.Errorf("node '%s': %w", fn.ID, err)
		}
		nodes = append(nodes, Node{
			ID:     fn.ID,
			Type:   Type(fn.Type),
			Data:   data,
			Inputs: fn.Inputs,
		})
	}
	return nodes, nil
}

func dataFromCty(v cty.Value) (map[string]any, error) {
	if v.IsNull() {
		return nil, nil
	}
	ty := v.Type()
	if !ty.IsObjectType() && !ty.IsMapType() {
		return nil, fmt.Errorf("data must be an object, got %s", ty.FriendlyName())
	}
	native, err := ctyToNative(v)
	if err != nil {
		return nil, err
	}
	m, _ := native.(map[string]any)
	return m, nil
}
