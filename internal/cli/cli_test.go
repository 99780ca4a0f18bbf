package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/app"
	"github.com/vk/blockflow/internal/taskstore"
	"github.com/vk/blockflow/internal/testutil"
	"github.com/vk/blockflow/internal/tracker"
)

const fastSettings = `
bridge {
  poll_interval = "10ms"
}

log {
  level  = "debug"
  format = "text"
}
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func fakes() *app.Collaborators {
	return &app.Collaborators{
		Text:   &testutil.FakeText{},
		Images: &testutil.FakeImages{},
		Speech: &testutil.FakeSpeech{},
		Blobs:  &testutil.MemoryStore{},
	}
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := Execute(context.Background(), args, &out, &errOut, fakes())
	return out.String(), errOut.String(), err
}

func exitCode(t *testing.T, err error) int {
	t.Helper()
	var exitErr *ExitError
	require.True(t, errors.As(err, &exitErr), "expected *ExitError, got %T: %v", err, err)
	return exitErr.Code
}

func TestHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Usage:")
	for _, name := range []string{"serve", "run", "validate", "status", "watch"} {
		assert.Contains(t, out, name)
	}
}

func TestUnknownFlag(t *testing.T) {
	_, _, err := execute(t, "--this-is-not-a-valid-flag")
	require.Error(t, err)
	assert.Equal(t, 2, exitCode(t, err))
	assert.Contains(t, err.Error(), "unknown flag: --this-is-not-a-valid-flag")
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid workflow prints the pipeline", func(t *testing.T) {
		path := writeFile(t, dir, "ok.hcl", `
node "n2" {
  type   = "displayText"
  inputs = { input = "n1" }
}
node "n1" {
  type = "generateText"
  data = { prompt = "x" }
}
`)
		out, _, err := execute(t, "validate", path)
		require.NoError(t, err)
		assert.Contains(t, out, "is valid: start -> generateText -> displayText")
	})

	t.Run("compile error exits with usage code", func(t *testing.T) {
		path := writeFile(t, dir, "missing.hcl", `
node "n2" {
  type = "displayText"
}
`)
		_, _, err := execute(t, "validate", path)
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(t, err))
		assert.Contains(t, err.Error(), "missing dependency")
	})

	t.Run("missing argument", func(t *testing.T) {
		_, _, err := execute(t, "validate")
		assert.ErrorContains(t, err, "accepts 1 arg(s)")
	})
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	settings := writeFile(t, dir, "blockflow.hcl", fastSettings)
	path := writeFile(t, dir, "flow.json", `{"blocks":[
		{"id":"n1","type":"generateText","data":{"prompt":"x"}},
		{"id":"n2","type":"displayText","inputs":{"input":"n1"}}
	]}`)

	out, logs, err := execute(t, "--config", settings, "run", path)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.NotEmpty(t, lines)
	var last tracker.Status
	require.NoError(t, json.Unmarshal([]byte(lines[len(lines)-1]), &last))
	assert.Equal(t, taskstore.StateSuccess, last.State)
	assert.Equal(t, "generated: x", last.Result["n2"].String("displayedText"))

	assert.Contains(t, logs, "Workflow finished.")
	assert.NotContains(t, out, "Workflow finished.", "logs must not be mixed into the status stream")
}

func TestSettingsErrors(t *testing.T) {
	dir := t.TempDir()

	t.Run("explicit config file must exist", func(t *testing.T) {
		_, _, err := execute(t, "--config", filepath.Join(dir, "nope.hcl"), "validate", "flow.hcl")
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(t, err))
		assert.Contains(t, err.Error(), "failed to read settings file")
	})

	t.Run("invalid log level", func(t *testing.T) {
		_, _, err := execute(t, "--log-level", "loud", "validate", "flow.hcl")
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(t, err))
		assert.Contains(t, err.Error(), "invalid log level 'loud'")
	})

	t.Run("workers flag overrides the file", func(t *testing.T) {
		_, _, err := execute(t, "--workers", "0", "validate", "flow.hcl")
		require.Error(t, err)
		assert.Equal(t, 2, exitCode(t, err))
		assert.Contains(t, err.Error(), "workers must be positive")
	})
}

func TestStatus_ServerUnreachable(t *testing.T) {
	_, _, err := execute(t, "status", "abc", "--server", "http://127.0.0.1:1")
	assert.ErrorContains(t, err, "status request failed")
}
