package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHCL(t *testing.T) {
	t.Run("keeps declaration order and decodes data", func(t *testing.T) {
		src := `
node "n1" {
  type = "generateText"
  data = {
    prompt      = "write a haiku"
    temperature = 0.5
    tags        = ["a", "b"]
  }
}

node "n2" {
  type = "displayText"
  inputs = {
    input = "n1"
  }
}
`
		nodes, err := ParseHCL([]byte(src), "flow.hcl")
		require.NoError(t, err)
		require.Len(t, nodes, 2)

		assert.Equal(t, "n1", nodes[0].ID)
		assert.Equal(t, GenerateText, nodes[0].Type)
		assert.Equal(t, "write a haiku", nodes[0].DataString("prompt"))
		assert.Equal(t, 0.5, nodes[0].Data["temperature"])
		assert.Equal(t, []any{"a", "b"}, nodes[0].Data["tags"])
		assert.Empty(t, nodes[0].Inputs)

		assert.Equal(t, "n2", nodes[1].ID)
		assert.Equal(t, DisplayText, nodes[1].Type)
		assert.Nil(t, nodes[1].Data)
		producer, ok := nodes[1].Producer()
		assert.True(t, ok)
		assert.Equal(t, "n1", producer)
	})

	t.Run("syntax errors are reported", func(t *testing.T) {
		_, err := ParseHCL([]byte(`node "n1" {`), "broken.hcl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to parse HCL file broken.hcl")
	})

	t.Run("missing type is rejected", func(t *testing.T) {
		_, err := ParseHCL([]byte(`node "n1" {}`), "notype.hcl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to decode HCL file")
	})

	t.Run("data must be an object", func(t *testing.T) {
		_, err := ParseHCL([]byte(`
node "n1" {
  type = "generateText"
  data = "nope"
}`), "scalar.hcl")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "data must be an object")
	})
}

func TestParseJSON(t *testing.T) {
	src := `{"blocks":[{"id":"a","type":"generateImage","data":{"prompt":"cat"}},{"id":"b","type":"displayImage","inputs":{"input":"a"}}]}`
	nodes, err := ParseJSON([]byte(src))
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, GenerateImage, nodes[0].Type)
	assert.Equal(t, "cat", nodes[0].DataString("prompt"))
	assert.Equal(t, map[string]string{"input": "a"}, nodes[1].Inputs)

	_, err = ParseJSON([]byte(`{"blocks":`))
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()

	hclPath := filepath.Join(dir, "flow.hcl")
	require.NoError(t, os.WriteFile(hclPath, []byte(`
node "only" {
  type = "generateText"
  data = { prompt = "x" }
}`), 0o600))

	jsonPath := filepath.Join(dir, "flow.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"blocks":[{"id":"j","type":"generateText"}]}`), 0o600))

	nodes, err := LoadFile(context.Background(), hclPath)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "only", nodes[0].ID)

	nodes, err = LoadFile(context.Background(), jsonPath)
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "j", nodes[0].ID)

	_, err = LoadFile(context.Background(), filepath.Join(dir, "missing.hcl"))
	assert.ErrorContains(t, err, "failed to read workflow file")
}

func TestNodeHelpers(t *testing.T) {
	n := Node{
		ID:     "x",
		Data:   map[string]any{"prompt": "p", "n": 3.0, "nil": nil},
		Inputs: map[string]string{"input": "a", "extra": "b"},
	}
	assert.Equal(t, "p", n.DataString("prompt"))
	assert.Equal(t, "3", n.DataString("n"))
	assert.Equal(t, "", n.DataString("nil"))
	assert.Equal(t, "", n.DataString("absent"))
	assert.Equal(t, []string{"extra", "input"}, n.Slots())

	_, ok := Node{ID: "root"}.Producer()
	assert.False(t, ok)
}
