package app

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/blockflow/internal/config"
	"github.com/vk/blockflow/internal/testutil"
)

// SetupAppTest creates a new app instance for system testing. Collaborators
// default to the testutil fakes.
func SetupAppTest(t *testing.T, cfg *Config, collab *Collaborators) (*App, *testutil.SafeBuffer) {
	t.Helper()

	if cfg == nil {
		defaults := config.Defaults()
		cfg = &defaults
	}
	cfg.LogLevel = "debug"
	if collab == nil {
		collab = &Collaborators{}
	}
	if collab.Text == nil {
		collab.Text = &testutil.FakeText{}
	}
	if collab.Images == nil {
		collab.Images = &testutil.FakeImages{}
	}
	if collab.Speech == nil {
		collab.Speech = &testutil.FakeSpeech{}
	}
	if collab.Blobs == nil {
		collab.Blobs = &testutil.MemoryStore{}
	}

	logBuffer := &testutil.SafeBuffer{}
	testApp, err := NewApp(logBuffer, cfg, collab)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = testApp.Close()
		if os.Getenv("BLOCKFLOW_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logBuffer.String())
		}
	})

	return testApp, logBuffer
}
