// Package workflow holds the node-list model a user submits and the loaders
// that read it from HCL or JSON files.
package workflow

import (
	"fmt"
	"sort"
)

// Type names the unit of work bound to a node.
type Type string

// Node types understood by the core modules.
const (
	GenerateText  Type = "generateText"
	DisplayText   Type = "displayText"
	GenerateImage Type = "generateImage"
	DisplayImage  Type = "displayImage"
	TextToSpeech  Type = "textToSpeech"
)

// InputSlot is the only input slot consumer nodes read from.
const InputSlot = "input"

// Node is one step of a workflow.
type Node struct {
	ID     string            `json:"id"`
	Type   Type              `json:"type"`
	Data   map[string]any    `json:"data,omitempty"`
	Inputs map[string]string `json:"inputs,omitempty"`
}

// Definition is the request body shape used by the HTTP API and JSON files.
type Definition struct {
	Blocks []Node `json:"blocks"`
}

// DataString returns data[key] as a string. Absent keys and nulls yield "".
func (n Node) DataString(key string) string {
	v, ok := n.Data[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

// Producer returns the id of the node feeding the input slot, if declared.
func (n Node) Producer() (string, bool) {
	id, ok := n.Inputs[InputSlot]
	if !ok || id == "" {
		return "", false
	}
	return id, true
}

// Slots returns the declared input slot names in a stable order.
func (n Node) Slots() []string {
	slots := make([]string, 0, len(n.Inputs))
	for slot := range n.Inputs {
		slots = append(slots, slot)
	}
	sort.Strings(slots)
	return slots
}
