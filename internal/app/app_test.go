package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/designflow/internal/config"
	"github.com/randalmurphal/designflow/pkg/llm"
	"github.com/randalmurphal/designflow/pkg/session"
	"github.com/randalmurphal/designflow/pkg/tools"
	"github.com/randalmurphal/designflow/pkg/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chainDesign = `{
  "data": {
    "nodes": [
      {"id": "ChatInput-viP4f", "data": {"type": "ChatInput"}},
      {"id": "AzureOpenAIModel-6aodL", "data": {"type": "AzureOpenAIModel"}},
      {"id": "ChatOutput-AVpjO", "data": {"type": "ChatOutput"}}
    ],
    "edges": [
      {"source": "ChatInput-viP4f", "target": "AzureOpenAIModel-6aodL"},
      {"source": "AzureOpenAIModel-6aodL", "target": "ChatOutput-AVpjO"}
    ]
  }
}`

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeDesign(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func newApp(t *testing.T, cfg config.Config, opts Options) *App {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	a, err := New(context.Background(), &cfg, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestNew_CompilesDesign(t *testing.T) {
	path := writeDesign(t, "design.json", chainDesign)
	a := newApp(t, config.Default(), Options{
		DesignFiles: []string{filepath.Join(t.TempDir(), "missing.json"), path},
		LLM:         llm.NewMockClient("4"),
	})

	assert.Equal(t, path, a.DesignPath)
	assert.False(t, a.Pipeline.IsDefault())
	assert.Equal(t, []string{"chatinput_vip4f", "azureopenaimodel_6aodl", "chatoutput_avpjo"}, a.Pipeline.Steps())
	assert.IsType(t, tools.Noop{}, a.Tools)
	assert.IsType(t, &session.MemoryStore{}, a.Sessions)

	out, err := a.Pipeline.Invoke(context.Background(), workflow.NewState("s", "2+2"))
	require.NoError(t, err)
	assert.Equal(t, "4", out.FinalOutput)
}

func TestNew_MissingDesignUsesDefault(t *testing.T) {
	a := newApp(t, config.Default(), Options{
		DesignFiles: []string{filepath.Join(t.TempDir(), "nope.json")},
		LLM:         llm.NewEchoClient(),
	})

	assert.Empty(t, a.DesignPath)
	assert.True(t, a.Pipeline.IsDefault())

	out, err := a.Pipeline.Invoke(context.Background(), workflow.NewState("s", "ping"))
	require.NoError(t, err)
	assert.Equal(t, "ping", out.FinalOutput)
}

func TestNew_InvalidDesign(t *testing.T) {
	path := writeDesign(t, "design.json", `{"data": [`)
	_, err := New(context.Background(), ptr(config.Default()), Options{
		DesignFiles: []string{path},
		LLM:         llm.NewEchoClient(),
		Logger:      quietLogger(),
	})
	assert.Error(t, err)
}

func TestNew_RequiresCredentials(t *testing.T) {
	_, err := New(context.Background(), ptr(config.Default()), Options{Logger: quietLogger()})
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestNew_BedrockClient(t *testing.T) {
	cfg := config.Default()
	cfg.AWS.AccessKeyID = "AKIA"
	cfg.AWS.SecretAccessKey = "secret"
	cfg.Model.MaxRetries = 2

	a := newApp(t, cfg, Options{DesignFiles: []string{filepath.Join(t.TempDir(), "none.json")}})
	assert.IsType(t, &llm.RetryClient{}, a.LLM)

	cfg.Model.MaxRetries = 0
	a = newApp(t, cfg, Options{DesignFiles: []string{filepath.Join(t.TempDir(), "none.json")}})
	assert.IsType(t, &llm.BedrockClient{}, a.LLM)
}

func TestNew_SQLiteSessions(t *testing.T) {
	cfg := config.Default()
	cfg.Session.DBPath = filepath.Join(t.TempDir(), "sessions.db")

	a := newApp(t, cfg, Options{
		DesignFiles: []string{filepath.Join(t.TempDir(), "none.json")},
		LLM:         llm.NewEchoClient(),
	})
	assert.IsType(t, &session.SQLiteStore{}, a.Sessions)
	require.NoError(t, a.Sessions.Append(context.Background(), "s", llm.UserMessage("hi")))

	require.NoError(t, a.Close())
	_, err := a.Sessions.History(context.Background(), "s")
	assert.ErrorIs(t, err, session.ErrStoreClosed)
}

func TestNew_UnreachableMCPFallsBack(t *testing.T) {
	cfg := config.Default()
	cfg.MCP.ServerURL = "http://127.0.0.1:1/mcp"

	a := newApp(t, cfg, Options{
		DesignFiles: []string{filepath.Join(t.TempDir(), "none.json")},
		LLM:         llm.NewEchoClient(),
	})
	assert.IsType(t, tools.Noop{}, a.Tools)
}

func TestNodeConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Model.SystemPrompt = "be brief"
	client := llm.NewEchoClient()

	nc := NodeConfig(&cfg, client, tools.Noop{})
	assert.Equal(t, cfg.Model.Name, nc.Model)
	assert.InDelta(t, 0.7, nc.Temperature, 1e-9)
	assert.Equal(t, 4096, nc.MaxTokens)
	assert.Equal(t, "be brief", nc.SystemPrompt)
	assert.Same(t, client, nc.LLM)
}

func TestLoadDesign_LogsFallback(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	doc, path, err := LoadDesign(logger, filepath.Join(t.TempDir(), "a.json"))
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.True(t, doc.Empty())
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "no design document found")
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.LogConfig
		debug     bool
		fallback  string
		wantDebug bool
		wantWarn  bool
		wantJSON  bool
	}{
		{name: "info text", cfg: config.LogConfig{Level: "info"}, fallback: FormatText, wantWarn: true},
		{name: "debug flag wins", cfg: config.LogConfig{Level: "error"}, debug: true, fallback: FormatText, wantDebug: true, wantWarn: true},
		{name: "error level", cfg: config.LogConfig{Level: "error"}, fallback: FormatText},
		{name: "json fallback", cfg: config.LogConfig{Level: "debug"}, fallback: FormatJSON, wantDebug: true, wantWarn: true, wantJSON: true},
		{name: "explicit text", cfg: config.LogConfig{Level: "warn", Format: FormatText}, fallback: FormatJSON, wantWarn: true},
		{name: "unknown level", cfg: config.LogConfig{Level: "loud"}, fallback: FormatText, wantWarn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.cfg, tt.debug, tt.fallback, &buf)
			ctx := context.Background()

			assert.Equal(t, tt.wantDebug, logger.Enabled(ctx, slog.LevelDebug))
			assert.Equal(t, tt.wantWarn, logger.Enabled(ctx, slog.LevelWarn))

			logger.Error("x")
			if tt.wantJSON {
				assert.Contains(t, buf.String(), `"msg":"x"`)
			} else {
				assert.Contains(t, buf.String(), "msg=x")
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }
