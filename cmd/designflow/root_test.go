package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const branchDesign = `{
  "data": {
    "nodes": [
      {"id": "ChatInput-viP4f", "data": {"type": "ChatInput"}},
      {"id": "AzureOpenAIModel-6aodL", "data": {"type": "AzureOpenAIModel"}},
      {"id": "Agent-Zgq5D", "data": {"type": "Agent"}},
      {"id": "ChatOutput-AVpjO", "data": {"type": "ChatOutput"}}
    ],
    "edges": [
      {"source": "ChatInput-viP4f", "target": "AzureOpenAIModel-6aodL"},
      {"source": "ChatInput-viP4f", "target": "Agent-Zgq5D"},
      {"source": "AzureOpenAIModel-6aodL", "target": "ChatOutput-AVpjO"}
    ]
  }
}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := RootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte(branchDesign), 0o600))

	out, err := execute(t, "graph", "--design-file", path)
	require.NoError(t, err)

	assert.Contains(t, out, "Design: "+path)
	assert.Contains(t, out, "Graph Structure:")
	assert.Contains(t, out, "ChatInput (ChatInput-viP4f) -> AzureOpenAIModel (AzureOpenAIModel-6aodL), Agent (Agent-Zgq5D)")
	assert.Contains(t, out, "Entry: chatinput_vip4f")
	assert.Contains(t, out, "Steps: [chatinput_vip4f azureopenaimodel_6aodl chatoutput_avpjo]")
	assert.Contains(t, out, "[branch_linearized]")
}

func TestGraph_MissingDesignUsesDefault(t *testing.T) {
	out, err := execute(t, "graph", "--design-file", filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)

	assert.Contains(t, out, "Design: (none, default pipeline)")
	assert.Contains(t, out, "Steps: [default_model]")
	assert.NotContains(t, out, "Graph Structure:")
}

func TestGraph_InvalidDesign(t *testing.T) {
	path := filepath.Join(t.TempDir(), "design.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := execute(t, "graph", "--design-file", path)
	assert.Error(t, err)
}

func TestRoot_InvalidMode(t *testing.T) {
	_, err := execute(t, "--mode", "batch")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid mode "batch"`)
}

func TestRoot_Flags(t *testing.T) {
	cmd := RootCmd()
	for name, def := range map[string]string{
		"debug":       "false",
		"session-id":  "",
		"design-file": "",
		"mode":        "cli",
		"host":        "0.0.0.0",
		"port":        "8080",
	} {
		f := cmd.Flags().Lookup(name)
		require.NotNil(t, f, name)
		assert.Equal(t, def, f.DefValue, name)
	}
}

func TestDesignFiles(t *testing.T) {
	assert.Equal(t, []string{"LEOAZR_M74854_M74854.json", "design.json"}, designFiles(""))
	assert.Equal(t, []string{"x.yaml"}, designFiles("x.yaml"))
}
